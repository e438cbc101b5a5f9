package composite

import (
	"fmt"
)

// ResultSet holds one result per participant of a connection. Order carries
// no meaning; look results up by identity or predicate.
type ResultSet struct {
	results []ModelResult
}

// Merge builds a ResultSet from per-participant results. It fails unless
// results holds exactly one entry for each identity and nothing else.
func Merge(identities []BuildIdentity, results []ModelResult) (*ResultSet, error) {
	expected := make(map[BuildIdentity]bool, len(identities))
	for _, id := range identities {
		if expected[id] {
			return nil, fmt.Errorf("merge: participant %s listed twice", id)
		}
		expected[id] = false
	}
	if len(results) != len(identities) {
		return nil, fmt.Errorf("merge: %d results for %d participants", len(results), len(identities))
	}

	for _, r := range results {
		if r.model == nil && r.failure == nil {
			return nil, fmt.Errorf("merge: empty result for %s", r.identity)
		}
		seen, ok := expected[r.identity]
		if !ok {
			return nil, fmt.Errorf("merge: result for unknown participant %s", r.identity)
		}
		if seen {
			return nil, fmt.Errorf("merge: duplicate result for %s", r.identity)
		}
		expected[r.identity] = true
	}

	return &ResultSet{results: append([]ModelResult(nil), results...)}, nil
}

// Len returns the number of results, which equals the participant count.
func (rs *ResultSet) Len() int { return len(rs.results) }

// All returns every result.
func (rs *ResultSet) All() []ModelResult {
	return append([]ModelResult(nil), rs.results...)
}

// FindByIdentity returns the result for id. It returns a *MatchError
// unless exactly one result matches.
func (rs *ResultSet) FindByIdentity(id BuildIdentity) (ModelResult, error) {
	return rs.find(fmt.Sprintf("build %s", id), func(r ModelResult) bool {
		return r.identity.Equal(id)
	})
}

// Find returns the single result matching pred. It returns a *MatchError
// unless exactly one result matches.
func (rs *ResultSet) Find(pred func(ModelResult) bool) (ModelResult, error) {
	return rs.find("predicate", pred)
}

func (rs *ResultSet) find(query string, pred func(ModelResult) bool) (ModelResult, error) {
	var (
		found ModelResult
		count int
	)
	for _, r := range rs.results {
		if pred(r) {
			found = r
			count++
		}
	}
	if count != 1 {
		return ModelResult{}, &MatchError{Query: query, Count: count}
	}
	return found, nil
}

// Successes returns the results that carry a model.
func (rs *ResultSet) Successes() []ModelResult {
	return rs.filter(ModelResult.IsSuccess)
}

// Failures returns the results that carry an error.
func (rs *ResultSet) Failures() []ModelResult {
	return rs.filter(func(r ModelResult) bool { return !r.IsSuccess() })
}

func (rs *ResultSet) filter(pred func(ModelResult) bool) []ModelResult {
	var out []ModelResult
	for _, r := range rs.results {
		if pred(r) {
			out = append(out, r)
		}
	}
	return out
}
