package driven

import (
	"context"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
)

// CorpusResolver turns user-supplied paths into a stream of readable
// corpus files. Directories are walked recursively; hidden files and
// directories are skipped; files with no registered normaliser are
// skipped with a debug log, not an error.
//
// Documents are streamed on the first channel, failures on the second.
// Both channels close when resolution finishes. A read failure on one
// file is reported and does not stop the walk.
type CorpusResolver interface {
	// Resolve streams the corpus files reachable from paths.
	Resolve(ctx context.Context, paths []string) (<-chan domain.RawDocument, <-chan error)
}
