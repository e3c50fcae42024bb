package postprocessors

import (
	"fmt"

	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/postprocessors/chunker"
	"github.com/custodia-labs/docqa-cli/internal/postprocessors/whitespace"
)

// RegisterDefaults installs the built-in processors: the chunker and
// the whitespace normaliser.
func RegisterDefaults(r *Registry) {
	r.Register("chunker", buildChunker)
	r.Register("whitespace", buildWhitespace)
}

// buildChunker reads chunk_size and overlap from cfg, falling back to
// the chunker defaults. Values arrive as int, int64, or float64
// depending on which config format produced them.
func buildChunker(cfg map[string]any) (driven.PostProcessor, error) {
	size := chunker.DefaultChunkSize
	overlap := chunker.DefaultChunkOverlap

	if cfg != nil {
		if v := intSetting(cfg, "chunk_size"); v != 0 {
			size = v
		}
		if _, ok := cfg["overlap"]; ok {
			overlap = intSetting(cfg, "overlap")
		}
	}

	if size <= 0 {
		return nil, fmt.Errorf("chunk_size %d: must be positive", size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("overlap %d: must satisfy 0 <= overlap < chunk_size", overlap)
	}

	return chunker.New(chunker.WithChunkSize(size), chunker.WithOverlap(overlap)), nil
}

func buildWhitespace(_ map[string]any) (driven.PostProcessor, error) {
	return whitespace.New(), nil
}

// intSetting reads a numeric config value as an int, zero when the key
// is absent or not numeric.
func intSetting(cfg map[string]any, key string) int {
	switch v := cfg[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
