package orchestrator

import (
	"sort"
	"sync"

	"github.com/sentrywatch/threatwatch/internal/models"
)

// RiskIndex keeps the global findings list ordered by risk_score, the
// in-memory index execute_job maintains alongside the durable finding
// store (§4.13 step 3b, §9: the DB is source of truth, this is a cache).
// A sorted slice with binary-search insertion gives the same ordered-
// traversal behavior the spec's "AVL index by risk_score" calls for
// without a standalone balanced-tree dependency anywhere in the pack.
type RiskIndex struct {
	mu   sync.RWMutex
	rows []*models.Finding
}

// NewRiskIndex creates an empty index.
func NewRiskIndex() *RiskIndex {
	return &RiskIndex{}
}

// Insert adds f, keeping rows sorted ascending by RiskScore.
func (idx *RiskIndex) Insert(f *models.Finding) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	i := sort.Search(len(idx.rows), func(i int) bool { return idx.rows[i].RiskScore >= f.RiskScore })
	idx.rows = append(idx.rows, nil)
	copy(idx.rows[i+1:], idx.rows[i:])
	idx.rows[i] = f
}

// Top returns the n highest-risk findings, highest first.
func (idx *RiskIndex) Top(n int) []*models.Finding {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if n <= 0 || n > len(idx.rows) {
		n = len(idx.rows)
	}
	out := make([]*models.Finding, n)
	for i := 0; i < n; i++ {
		out[i] = idx.rows[len(idx.rows)-1-i]
	}
	return out
}

// Len returns the number of indexed findings.
func (idx *RiskIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.rows)
}
