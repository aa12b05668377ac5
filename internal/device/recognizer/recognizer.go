// Package recognizer matches face embeddings against the enrolled roster.
//
// The index is a flat list of (vector, identity) pairs searched by brute
// force. A classroom roster is a few dozen students with a handful of
// embeddings each, so a linear scan per frame is well within budget and
// keeps the "closest embedding wins" contract trivially correct.
package recognizer

import (
	"errors"
	"math"
	"sync"

	"github.com/ioehub/campus-attendance/internal/device/models"
)

// DefaultThreshold is the maximum cosine distance still accepted as a match.
const DefaultThreshold = 0.40

// ErrNoMatch is returned when no enrolled embedding is close enough.
var ErrNoMatch = errors.New("no matching identity")

// Match identifies the roster entry a query embedding resolved to.
type Match struct {
	IdentityID int64
	Name       string
	Distance   float64
}

type entry struct {
	vector     []float64
	identityID int64
	name       string
}

// Recognizer is a threshold-gated nearest-neighbor index over enrolled
// embeddings. Load and Match may be called from different goroutines.
type Recognizer struct {
	mu        sync.RWMutex
	threshold float64
	entries   []entry
}

// New returns a Recognizer accepting matches up to the given cosine
// distance. Non-positive thresholds fall back to DefaultThreshold.
func New(threshold float64) *Recognizer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Recognizer{threshold: threshold}
}

// Load replaces the whole index with the given roster. Identities without
// embeddings contribute nothing and can never be matched. Load keeps the
// roster order, which makes exact-distance ties resolve to the
// first-loaded embedding.
func (r *Recognizer) Load(identities []models.Identity) {
	entries := make([]entry, 0, len(identities))
	for _, identity := range identities {
		for _, vector := range identity.Embeddings {
			if len(vector) == 0 {
				continue
			}
			entries = append(entries, entry{vector: vector, identityID: identity.ID, name: identity.Name})
		}
	}

	r.mu.Lock()
	r.entries = entries
	r.mu.Unlock()
}

// Size returns the number of loaded embeddings.
func (r *Recognizer) Size() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entries)
}

// Match finds the enrolled embedding with the smallest cosine distance to
// query. If that distance is within the threshold the corresponding identity
// is returned, otherwise ErrNoMatch. Embeddings whose dimension does not
// match the query are skipped as data errors.
func (r *Recognizer) Match(query []float64) (Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	best := Match{Distance: math.Inf(1)}
	for _, e := range r.entries {
		d, ok := cosineDistance(query, e.vector)
		if !ok {
			continue
		}
		if d < best.Distance {
			best = Match{IdentityID: e.identityID, Name: e.name, Distance: d}
		}
	}

	if best.Distance > r.threshold {
		return Match{}, ErrNoMatch
	}
	return best, nil
}

// cosineDistance returns 1 - cosine similarity. The second return value is
// false for dimension mismatches and zero-magnitude vectors, which have no
// meaningful angle to compare.
func cosineDistance(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(a) != len(b) {
		return 0, false
	}
	var dot, normA, normB float64
	for i := range a {
		dot += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	if normA == 0 || normB == 0 {
		return 0, false
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB)), true
}
