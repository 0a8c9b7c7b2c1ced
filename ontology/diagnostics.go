package ontology

import (
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
)

// Diagnostics records which identifiers queries resolved and which they did
// not. The two sets never share a member: whichever outcome is recorded
// first for an identifier sticks.
type Diagnostics struct {
	mu       sync.Mutex
	found    map[string]struct{}
	notFound map[string]struct{}
	logger   *slog.Logger
	onMiss   func()
}

// NewDiagnostics creates empty diagnostics. A nil logger falls back to
// slog.Default.
func NewDiagnostics(logger *slog.Logger) *Diagnostics {
	if logger == nil {
		logger = slog.Default()
	}
	return &Diagnostics{
		found:    make(map[string]struct{}),
		notFound: make(map[string]struct{}),
		logger:   logger,
	}
}

// RecordFound marks id as resolved.
func (d *Diagnostics) RecordFound(id string) {
	if id == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, missing := d.notFound[id]; missing {
		return
	}
	d.found[id] = struct{}{}
}

// RecordNotFound marks id as unresolved. The first miss for an id is logged.
func (d *Diagnostics) RecordNotFound(id string) {
	if id == "" {
		return
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.found[id]; ok {
		return
	}
	if _, ok := d.notFound[id]; ok {
		return
	}
	d.notFound[id] = struct{}{}
	d.logger.Warn("Sequence Ontology term not found", "term", id)
	if d.onMiss != nil {
		d.onMiss()
	}
}

// FoundTerms returns the resolved identifiers sorted case-insensitively.
func (d *Diagnostics) FoundTerms() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return sortedKeys(d.found)
}

// NotFoundTerms returns the unresolved identifiers sorted case-insensitively.
func (d *Diagnostics) NotFoundTerms() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return sortedKeys(d.notFound)
}

// Snapshot is a point-in-time copy of the diagnostics.
type Snapshot struct {
	Found         []string  `json:"found"`
	NotFound      []string  `json:"not_found"`
	FoundCount    int       `json:"found_count"`
	NotFoundCount int       `json:"not_found_count"`
	Timestamp     time.Time `json:"timestamp"`
}

// Snapshot captures both sets atomically.
func (d *Diagnostics) Snapshot() Snapshot {
	d.mu.Lock()
	defer d.mu.Unlock()

	found := sortedKeys(d.found)
	notFound := sortedKeys(d.notFound)
	return Snapshot{
		Found:         found,
		NotFound:      notFound,
		FoundCount:    len(found),
		NotFoundCount: len(notFound),
		Timestamp:     time.Now().UTC(),
	}
}

func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		return lessFold(keys[i], keys[j])
	})
	return keys
}

// lessFold orders case-insensitively, falling back to byte order so that
// identifiers differing only in case sort deterministically.
func lessFold(a, b string) bool {
	la, lb := strings.ToLower(a), strings.ToLower(b)
	if la != lb {
		return la < lb
	}
	return a < b
}
