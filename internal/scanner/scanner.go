package scanner

import (
	"context"
	"fmt"
	"time"

	"NewsCollector/internal/domain"
)

// Request carries all parameters required to scan one source listing.
type Request struct {
	Source domain.Source
	Now    time.Time
	// Limit caps extracted candidates; <= 0 means unbounded.
	Limit int
	// Markup replays an archived listing instead of fetching Source.URL.
	Markup string
}

// Result is the raw listing output of a scan.
type Result struct {
	Candidates []domain.Candidate
	// Markup is the fetched listing document, kept for snapshots.
	Markup string
}

// Listing is the noise-filtered output of one source scan.
type Listing struct {
	Candidates []domain.Candidate
	// Extracted counts candidates before noise filtering.
	Extracted int
	Markup    string
	Strategy  string
}

// Scanner captures a single listing strategy (generic page, container selectors, feed).
type Scanner interface {
	Name() string
	Scan(ctx context.Context, req Request) (Result, error)
}

// Registry keeps a mapping from scanner names to their implementations.
type Registry struct {
	scanners map[string]Scanner
}

// NewRegistry builds an empty registry.
func NewRegistry() *Registry {
	return &Registry{scanners: map[string]Scanner{}}
}

// Register adds or replaces a scanner implementation.
func (r *Registry) Register(scanner Scanner) {
	if r.scanners == nil {
		r.scanners = map[string]Scanner{}
	}
	r.scanners[scanner.Name()] = scanner
}

// Resolve returns a scanner by name or an error if it is absent.
func (r *Registry) Resolve(name string) (Scanner, error) {
	if scanner, ok := r.scanners[name]; ok {
		return scanner, nil
	}
	return nil, fmt.Errorf("scanner %s is not registered", name)
}
