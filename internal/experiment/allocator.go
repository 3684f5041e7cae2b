// Package experiment provides the A/B allocation and aggregation facility.
// Allocation is a pure function of (userId, experimentName), so a user
// lands in the same arm for the life of an experiment with no assignment
// table to maintain.
package experiment

import (
	"hash/fnv"
	"math"

	"github.com/risewell/notification-engine/internal/domain"
)

// Allocate assigns a user to an arm of the experiment. Returns the variant
// name and whether the user is enrolled at all. Only active experiments
// enroll anyone.
func Allocate(exp *domain.Experiment, userID string) (variant string, enrolled bool) {
	if exp.Status != domain.ExperimentActive {
		return "", false
	}
	if exp.TrafficAllocation <= 0 {
		return "", false
	}

	if bucket(userID, exp.Name) >= exp.TrafficAllocation {
		return "", false
	}

	arms := 1 + len(exp.TreatmentVariants)
	idx := int(armHash(userID, exp.Name) % uint64(arms))
	if idx == 0 {
		return exp.ControlVariant, true
	}
	return exp.TreatmentVariants[idx-1], true
}

// Eligible returns the first active experiment targeting the emotion/tone
// that enrolls the user.
func Eligible(experiments []*domain.Experiment, userID string, emotion domain.Emotion, tone domain.Tone) (*domain.Experiment, string, bool) {
	for _, exp := range experiments {
		if !exp.Targets(emotion, tone) {
			continue
		}
		if variant, ok := Allocate(exp, userID); ok {
			return exp, variant, true
		}
	}
	return nil, "", false
}

// bucket maps (userID, name) to a stable point in [0, 1).
func bucket(userID, name string) float64 {
	h := fnv.New64a()
	h.Write([]byte(userID))
	h.Write([]byte{':'})
	h.Write([]byte(name))
	return float64(h.Sum64()) / math.MaxUint64
}

// armHash is an independent hash for arm selection so enrollment and arm
// are uncorrelated.
func armHash(userID, name string) uint64 {
	h := fnv.New64a()
	h.Write([]byte("arm:"))
	h.Write([]byte(name))
	h.Write([]byte{':'})
	h.Write([]byte(userID))
	return h.Sum64()
}
