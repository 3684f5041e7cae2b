package experiment

import (
	"fmt"
	"testing"

	"github.com/risewell/notification-engine/internal/domain"
)

func activeExperiment(name string, allocation float64, treatments ...string) *domain.Experiment {
	if len(treatments) == 0 {
		treatments = []string{"firm"}
	}
	return &domain.Experiment{
		ID:                "exp-" + name,
		Name:              name,
		ControlVariant:    "control",
		TreatmentVariants: treatments,
		TrafficAllocation: allocation,
		Status:            domain.ExperimentActive,
	}
}

func TestAllocateIsStable(t *testing.T) {
	exp := activeExperiment("stable", 1.0)
	for i := 0; i < 100; i++ {
		userID := fmt.Sprintf("user-%d", i)
		first, ok := Allocate(exp, userID)
		if !ok {
			t.Fatalf("user %s not enrolled at full allocation", userID)
		}
		for j := 0; j < 10; j++ {
			again, _ := Allocate(exp, userID)
			if again != first {
				t.Fatalf("user %s flapped: %q then %q", userID, first, again)
			}
		}
	}
}

func TestAllocateOnlyActiveExperimentsEnroll(t *testing.T) {
	for _, status := range []domain.ExperimentStatus{
		domain.ExperimentDraft, domain.ExperimentPaused,
		domain.ExperimentCompleted, domain.ExperimentArchived,
	} {
		exp := activeExperiment("status-test", 1.0)
		exp.Status = status
		if _, ok := Allocate(exp, "u1"); ok {
			t.Errorf("status %q enrolled a user", status)
		}
	}
}

func TestAllocateHonorsTrafficAllocation(t *testing.T) {
	const users = 10000
	exp := activeExperiment("ten-percent", 0.1)

	enrolled := 0
	for i := 0; i < users; i++ {
		if _, ok := Allocate(exp, fmt.Sprintf("user-%d", i)); ok {
			enrolled++
		}
	}
	// 10% of 10k with generous slack for hash variance.
	if enrolled < 700 || enrolled > 1300 {
		t.Errorf("enrolled %d of %d users at 10%% allocation", enrolled, users)
	}
}

func TestAllocateSpreadsArms(t *testing.T) {
	const users = 10000
	exp := activeExperiment("spread", 1.0, "firm", "playful")

	counts := make(map[string]int)
	for i := 0; i < users; i++ {
		variant, ok := Allocate(exp, fmt.Sprintf("user-%d", i))
		if !ok {
			t.Fatal("full allocation skipped a user")
		}
		counts[variant]++
	}
	if len(counts) != 3 {
		t.Fatalf("arms hit = %v, want control, firm, playful", counts)
	}
	for variant, n := range counts {
		// Each of three arms should land near a third.
		if n < users/4 || n > users/2 {
			t.Errorf("arm %q got %d of %d users", variant, n, users)
		}
	}
}

func TestEligibleRespectsTargeting(t *testing.T) {
	worriedOnly := activeExperiment("worried-only", 1.0)
	worriedOnly.TargetEmotions = []domain.Emotion{domain.EmotionWorried}

	if _, _, ok := Eligible([]*domain.Experiment{worriedOnly}, "u1", domain.EmotionHappy, domain.ToneEncouraging); ok {
		t.Error("happy state matched a worried-only experiment")
	}
	exp, variant, ok := Eligible([]*domain.Experiment{worriedOnly}, "u1", domain.EmotionWorried, domain.ToneEncouraging)
	if !ok {
		t.Fatal("worried state did not match")
	}
	if exp.Name != "worried-only" || variant == "" {
		t.Errorf("matched %q with variant %q", exp.Name, variant)
	}
}

func TestEligibleTakesFirstMatch(t *testing.T) {
	first := activeExperiment("first", 1.0)
	second := activeExperiment("second", 1.0)

	exp, _, ok := Eligible([]*domain.Experiment{first, second}, "u1", domain.EmotionWorried, domain.ToneEncouraging)
	if !ok || exp.Name != "first" {
		t.Errorf("matched %v, want the first experiment", exp)
	}
}
