package parser

import (
	"context"
	"fmt"
	"log/slog"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/noise"
	"NewsCollector/internal/scanner"
)

// StrategySource picks the scanner configured for a source and filters its output.
type StrategySource struct {
	registry *scanner.Registry
	logger   *slog.Logger
}

// NewStrategySource wires the scanner registry.
func NewStrategySource(reg *scanner.Registry, log *slog.Logger) *StrategySource {
	return &StrategySource{
		registry: reg,
		logger:   log,
	}
}

// Collect scans one source and drops noise candidates; req.Limit counts only
// the candidates that survive the filter. A failing feed falls back to the
// generic page scan of Source.URL.
func (s *StrategySource) Collect(ctx context.Context, req scanner.Request) (scanner.Listing, error) {
	if s.registry == nil {
		return scanner.Listing{}, fmt.Errorf("scanner registry is not configured")
	}

	strategy := string(req.Source.Config.Strategy())
	s.debug("scan source", "source", req.Source.ID, "scanner", strategy, "limit", req.Limit)

	impl, err := s.registry.Resolve(strategy)
	if err != nil {
		return scanner.Listing{}, fmt.Errorf("source %s: %w", req.Source.ID, err)
	}

	scan := req
	scan.Limit = 0

	res, err := impl.Scan(ctx, scan)
	if err != nil && strategy == string(domain.ScraperRSS) && req.Markup == "" && ctx.Err() == nil {
		s.warn("feed scan failed, falling back to page scan", "source", req.Source.ID, "error", err)
		strategy = string(domain.ScraperGeneric)
		impl, err = s.registry.Resolve(strategy)
		if err == nil {
			res, err = impl.Scan(ctx, scan)
		}
	}
	if err != nil {
		return scanner.Listing{}, err
	}

	host := req.Source.Host()
	kept := make([]domain.Candidate, 0, len(res.Candidates))
	for _, c := range res.Candidates {
		if req.Limit > 0 && len(kept) >= req.Limit {
			break
		}
		if noise.IsNoise(c.Title, c.URL, host) {
			continue
		}
		kept = append(kept, c)
	}

	s.debug("source scanned", "source", req.Source.ID, "extracted", len(res.Candidates), "kept", len(kept))
	return scanner.Listing{
		Candidates: kept,
		Extracted:  len(res.Candidates),
		Markup:     res.Markup,
		Strategy:   strategy,
	}, nil
}

func (s *StrategySource) debug(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Debug(msg, args...)
	}
}

func (s *StrategySource) warn(msg string, args ...interface{}) {
	if s.logger != nil {
		s.logger.Warn(msg, args...)
	}
}
