package usecase

import (
	"context"
	"fmt"

	"NewsCollector/internal/domain"
	"NewsCollector/internal/ports"
)

// Seed upserts the taxonomy and declared sources. Industries go first since
// sources reference them.
func Seed(ctx context.Context, storage ports.Storage, industries []domain.Industry, sources []domain.Source) error {
	for _, ind := range industries {
		if err := storage.UpsertIndustry(ctx, ind); err != nil {
			return fmt.Errorf("seed industry %s: %w", ind.ID, err)
		}
	}
	for _, src := range sources {
		if err := storage.UpsertSource(ctx, src); err != nil {
			return fmt.Errorf("seed source %s: %w", src.ID, err)
		}
	}
	return nil
}
