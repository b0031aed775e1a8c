package resolver

import (
	"testing"

	"wayfarer/internal/models"
)

func place(surface string, candidates ...models.Candidate) models.Entity {
	return models.Entity{Type: "place", Surface: surface, Candidates: candidates}
}

func TestResolve_NoCandidates(t *testing.T) {
	r := New(0.2, 3)

	res := r.Resolve(place("atlantis"))
	if res.Outcome != OutcomeUnresolved {
		t.Errorf("Expected unresolved, got %s", res.Outcome)
	}
}

func TestResolve_SingleCandidateAlwaysResolves(t *testing.T) {
	r := New(0.2, 3)

	// Confidence is irrelevant with a single candidate.
	res := r.Resolve(place("oslo", models.Candidate{ID: "no-oslo", Label: "Oslo, Norway", Confidence: 0.01}))
	if res.Outcome != OutcomeResolved {
		t.Fatalf("Expected resolved, got %s", res.Outcome)
	}
	if res.Candidate.ID != "no-oslo" {
		t.Errorf("Expected candidate no-oslo, got %s", res.Candidate.ID)
	}

	// Repeated calls must agree.
	for i := 0; i < 10; i++ {
		again := r.Resolve(place("oslo", models.Candidate{ID: "no-oslo", Label: "Oslo, Norway", Confidence: 0.01}))
		if again.Outcome != OutcomeResolved || again.Candidate.ID != "no-oslo" {
			t.Fatalf("Resolution not deterministic on call %d", i)
		}
	}
}

func TestResolve_MarginAutoResolve(t *testing.T) {
	r := New(0.2, 3)

	res := r.Resolve(place("paris",
		models.Candidate{ID: "fr-paris", Label: "Paris, France", Confidence: 0.9},
		models.Candidate{ID: "us-paris", Label: "Paris, Texas", Confidence: 0.3},
	))
	if res.Outcome != OutcomeResolved {
		t.Fatalf("Expected auto-resolve above margin, got %s", res.Outcome)
	}
	if res.Candidate.ID != "fr-paris" {
		t.Errorf("Expected top candidate fr-paris, got %s", res.Candidate.ID)
	}
}

func TestResolve_AmbiguousBelowMargin(t *testing.T) {
	r := New(0.2, 3)

	res := r.Resolve(place("london",
		models.Candidate{ID: "ca-london", Label: "London, Ontario", Region: "Canada", Population: 420_000, Confidence: 0.45},
		models.Candidate{ID: "uk-london", Label: "London, UK", Region: "United Kingdom", Population: 8_900_000, Confidence: 0.55},
	))
	if res.Outcome != OutcomeNeedsClarification {
		t.Fatalf("Expected clarification below margin, got %s", res.Outcome)
	}
	if len(res.Candidates) != 2 {
		t.Fatalf("Expected 2 candidates, got %d", len(res.Candidates))
	}
	if res.Candidates[0].ID != "uk-london" || res.Candidates[1].ID != "ca-london" {
		t.Errorf("Candidates not ranked by confidence: %v", res.Candidates)
	}
}

func TestResolve_TieBreakPopulationThenLabel(t *testing.T) {
	r := New(0.2, 3)

	entity := place("springfield",
		models.Candidate{ID: "c", Label: "Springfield, Ohio", Population: 58_000, Confidence: 0.5},
		models.Candidate{ID: "a", Label: "Springfield, Illinois", Population: 110_000, Confidence: 0.5},
		models.Candidate{ID: "b", Label: "Springfield, Missouri", Population: 110_000, Confidence: 0.5},
	)

	first := r.Resolve(entity)
	if first.Outcome != OutcomeNeedsClarification {
		t.Fatalf("Expected clarification, got %s", first.Outcome)
	}

	// Population breaks the confidence tie; lexical label order breaks the
	// population tie between Illinois and Missouri.
	wantOrder := []string{"a", "b", "c"}
	for i, want := range wantOrder {
		if first.Candidates[i].ID != want {
			t.Fatalf("Tie-break order wrong at %d: got %s, want %s", i, first.Candidates[i].ID, want)
		}
	}

	// Reproducible across repeated calls on identical input.
	for i := 0; i < 20; i++ {
		res := r.Resolve(entity)
		for j, want := range wantOrder {
			if res.Candidates[j].ID != want {
				t.Fatalf("Ordering changed on call %d", i)
			}
		}
	}
}

func TestResolve_CandidateListCapped(t *testing.T) {
	r := New(0.2, 2)

	res := r.Resolve(place("san jose",
		models.Candidate{ID: "us", Label: "San Jose, California", Confidence: 0.4},
		models.Candidate{ID: "cr", Label: "San José, Costa Rica", Confidence: 0.35},
		models.Candidate{ID: "ph", Label: "San Jose, Philippines", Confidence: 0.3},
	))
	if res.Outcome != OutcomeNeedsClarification {
		t.Fatalf("Expected clarification, got %s", res.Outcome)
	}
	if len(res.Candidates) != 2 {
		t.Errorf("Expected top-2 candidates, got %d", len(res.Candidates))
	}
}
