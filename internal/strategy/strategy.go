// Package strategy lays logical indexes out on the engine. The alias strategy keeps every
// logical index behind a read and a write alias so it can be remapped online; the single
// strategy uses one fixed index.
package strategy

import (
	"fmt"

	"github.com/kailas-cloud/esremap/internal/domain"
	domindex "github.com/kailas-cloud/esremap/internal/domain/index"
)

// New returns the strategy cfg selects.
func New(client Client, cfg domindex.Config, opts ...Option) (Strategy, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("index %s: %w", cfg.BaseName, err)
	}
	switch cfg.Kind() {
	case domindex.StrategyAlias:
		return NewAlias(client, cfg, opts...), nil
	case domindex.StrategySingle:
		return NewSingle(client, cfg), nil
	default:
		return nil, fmt.Errorf("index %s: unknown strategy %q: %w", cfg.BaseName, cfg.Strategy, domain.ErrInvalidDefinition)
	}
}
