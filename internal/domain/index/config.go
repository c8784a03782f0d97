package index

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"github.com/kailas-cloud/esremap/internal/domain"
	"github.com/kailas-cloud/esremap/internal/domain/retry"
)

// StrategyKind selects how a logical index maps onto concrete indexes.
type StrategyKind string

const (
	// StrategyAlias keeps a read and a write alias over timestamped concrete indexes.
	StrategyAlias StrategyKind = "alias"
	// StrategySingle uses one fixed concrete index named after the logical index.
	StrategySingle StrategyKind = "single"
)

// DefaultBatchSize is the scroll page size used while copying documents.
const DefaultBatchSize = 100

var baseNameRegex = regexp.MustCompile(`^[a-z0-9][a-z0-9_.-]*$`)

// Config describes one logical index. It is built once and handed to a strategy.
type Config struct {
	BaseName     string
	Namespace    string
	DocumentType string
	Strategy     StrategyKind
	Definition   Definition
	Retry        retry.Policy
	BatchSize    int
	StrictBulk   bool
}

// FQBaseName returns the base name prefixed by the namespace, if any.
func (c Config) FQBaseName() string {
	if c.Namespace == "" {
		return c.BaseName
	}
	return c.Namespace + "_" + c.BaseName
}

// Kind returns the configured strategy, defaulting to the alias strategy.
func (c Config) Kind() StrategyKind {
	if c.Strategy == "" {
		return StrategyAlias
	}
	return c.Strategy
}

// Segment returns a copy of the config addressing the segment named name,
// e.g. "users" segmented by "EuropeWest" becomes "users_europe_west".
func (c Config) Segment(name string) Config {
	seg := c
	seg.BaseName = c.BaseName + "_" + Underscore(name)
	return seg
}

// Validate checks the fields every strategy needs.
func (c Config) Validate() error {
	if c.BaseName == "" {
		return fmt.Errorf("%w: index_base_name is not set", domain.ErrInvalidDefinition)
	}
	if !baseNameRegex.MatchString(c.FQBaseName()) {
		return fmt.Errorf("%w: index name %q must be lowercase alphanumeric with _ . -",
			domain.ErrInvalidDefinition, c.FQBaseName())
	}
	if c.DocumentType == "" {
		return fmt.Errorf("%w: document_type is not set", domain.ErrInvalidDefinition)
	}
	switch c.Kind() {
	case StrategyAlias, StrategySingle:
	default:
		return fmt.Errorf("%w: unknown strategy %q", domain.ErrInvalidDefinition, c.Strategy)
	}
	if err := c.Definition.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidDefinition, err)
	}
	if err := c.Retry.Validate(); err != nil {
		return fmt.Errorf("%w: %w", domain.ErrInvalidDefinition, err)
	}
	if c.BatchSize < 0 {
		return fmt.Errorf("%w: batch_size must not be negative", domain.ErrInvalidDefinition)
	}
	return nil
}

// Underscore converts CamelCase, kebab-case and spaced names to snake_case.
func Underscore(s string) string {
	var b strings.Builder
	runes := []rune(s)
	for i, r := range runes {
		switch {
		case r == '-' || r == ' ':
			b.WriteByte('_')
		case unicode.IsUpper(r):
			if i > 0 && runes[i-1] != '_' && runes[i-1] != '-' && runes[i-1] != ' ' &&
				(unicode.IsLower(runes[i-1]) || unicode.IsDigit(runes[i-1]) ||
					(i+1 < len(runes) && unicode.IsLower(runes[i+1]))) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
