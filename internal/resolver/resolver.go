// Package resolver disambiguates extracted entities against their candidate
// resolutions. Resolution is a pure function of the entity plus the
// configured margin and candidate cap, so identical inputs always produce
// identical outcomes.
package resolver

import (
	"sort"

	"wayfarer/internal/models"
)

// Outcome classifies the result of resolving one entity.
type Outcome string

const (
	OutcomeResolved           Outcome = "resolved"
	OutcomeNeedsClarification Outcome = "needs_clarification"
	OutcomeUnresolved         Outcome = "unresolved"
)

// Resolution is the result of resolving one entity. Exactly one of
// Candidate (resolved) or Candidates (ambiguous, top-M) is populated.
type Resolution struct {
	Outcome    Outcome
	Candidate  *models.Candidate
	Candidates []models.Candidate
}

// Resolver applies the disambiguation policy.
type Resolver struct {
	margin        float64
	maxCandidates int
}

// New creates a resolver with the given auto-resolve margin and the maximum
// number of candidates offered in a clarification question.
func New(margin float64, maxCandidates int) *Resolver {
	if maxCandidates < 2 {
		maxCandidates = 2
	}
	return &Resolver{margin: margin, maxCandidates: maxCandidates}
}

// Resolve decides among an entity's candidate resolutions.
//   - no candidates: Unresolved
//   - one candidate: Resolved, regardless of confidence
//   - several: rank by confidence, then population, then label; auto-resolve
//     when the leader beats the runner-up by at least the margin, otherwise
//     return the top candidates for clarification.
func (r *Resolver) Resolve(entity models.Entity) Resolution {
	switch len(entity.Candidates) {
	case 0:
		return Resolution{Outcome: OutcomeUnresolved}
	case 1:
		c := entity.Candidates[0]
		return Resolution{Outcome: OutcomeResolved, Candidate: &c}
	}

	ranked := rank(entity.Candidates)
	if ranked[0].Confidence-ranked[1].Confidence >= r.margin {
		c := ranked[0]
		return Resolution{Outcome: OutcomeResolved, Candidate: &c}
	}

	top := ranked
	if len(top) > r.maxCandidates {
		top = top[:r.maxCandidates]
	}
	return Resolution{Outcome: OutcomeNeedsClarification, Candidates: top}
}

// rank orders candidates by confidence descending; ties fall back to
// population descending and finally lexical label order, so repeated calls
// on identical input always agree.
func rank(candidates []models.Candidate) []models.Candidate {
	ranked := make([]models.Candidate, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Confidence != ranked[j].Confidence {
			return ranked[i].Confidence > ranked[j].Confidence
		}
		if ranked[i].Population != ranked[j].Population {
			return ranked[i].Population > ranked[j].Population
		}
		return ranked[i].Label < ranked[j].Label
	})
	return ranked
}
