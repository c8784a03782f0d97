package strategy

import (
	"encoding/json"
	"fmt"

	"github.com/cespare/xxhash/v2"
)

// fingerprint hashes the canonical JSON of a source; encoding/json sorts map keys.
func fingerprint(source map[string]any) (uint64, error) {
	raw, err := json.Marshal(source)
	if err != nil {
		return 0, fmt.Errorf("fingerprint: %w", err)
	}
	return xxhash.Sum64(raw), nil
}
