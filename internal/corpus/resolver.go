package corpus

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
	"github.com/custodia-labs/docqa-cli/internal/logger"
)

// Ensure Resolver implements the interface.
var _ driven.CorpusResolver = (*Resolver)(nil)

// ExtensionSet reports which file extensions have a registered
// normaliser. Satisfied by the normaliser registry.
type ExtensionSet interface {
	Extensions() []string
}

// Resolver streams corpus files from local files and directories.
type Resolver struct {
	extensions ExtensionSet
}

// NewResolver creates a resolver. Directory walks are filtered against
// the extensions reported by the given set; explicitly named files are
// always emitted.
func NewResolver(extensions ExtensionSet) *Resolver {
	return &Resolver{extensions: extensions}
}

// Resolve streams the corpus files reachable from paths. Directories
// are walked recursively with hidden entries and unsupported
// extensions skipped. Per-file failures go to the error channel and do
// not stop the walk. Both channels close when resolution finishes.
func (r *Resolver) Resolve(ctx context.Context, paths []string) (<-chan domain.RawDocument, <-chan error) {
	docs := make(chan domain.RawDocument)
	errs := make(chan error, 1)

	go func() {
		defer close(docs)
		defer close(errs)

		supported := r.supportedSet()
		for _, path := range paths {
			if ctx.Err() != nil {
				return
			}
			r.resolvePath(ctx, path, supported, docs, errs)
		}
	}()

	return docs, errs
}

// resolvePath dispatches one user-supplied path to the file or
// directory handler.
func (r *Resolver) resolvePath(
	ctx context.Context, path string, supported map[string]bool,
	docs chan<- domain.RawDocument, errs chan<- error,
) {
	info, err := os.Stat(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		sendErr(ctx, errs, fmt.Errorf("path %s does not exist", path))
		return
	case err != nil:
		sendErr(ctx, errs, fmt.Errorf("stat %s: %w", path, err))
		return
	}

	if !info.IsDir() {
		// Explicitly named files skip the extension filter; the
		// ingest pipeline reports unsupported formats itself.
		r.emitFile(ctx, path, docs, errs)
		return
	}
	r.walkDir(ctx, path, supported, docs, errs)
}

// walkDir streams every supported, non-hidden file under root.
func (r *Resolver) walkDir(
	ctx context.Context, root string, supported map[string]bool,
	docs chan<- domain.RawDocument, errs chan<- error,
) {
	// The callback returns non-nil only on context cancellation,
	// which the caller observes through the closed channels.
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			sendErr(ctx, errs, fmt.Errorf("walk %s: %w", path, err))
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			if path != root && isHidden(d.Name()) {
				return fs.SkipDir
			}
			return nil
		}
		if isHidden(d.Name()) {
			return nil
		}
		if !supported[strings.ToLower(filepath.Ext(path))] {
			logger.Debug("Skipping %s: no normaliser registered for %q", path, filepath.Ext(path))
			return nil
		}
		r.emitFile(ctx, path, docs, errs)
		return nil
	})
}

// emitFile reads one file and sends it on the document channel.
func (r *Resolver) emitFile(
	ctx context.Context, path string,
	docs chan<- domain.RawDocument, errs chan<- error,
) {
	content, err := os.ReadFile(path)
	if err != nil {
		sendErr(ctx, errs, fmt.Errorf("read %s: %w", path, err))
		return
	}

	doc := domain.RawDocument{
		Source:  filepath.Base(path),
		Path:    path,
		Content: content,
	}
	select {
	case docs <- doc:
	case <-ctx.Done():
	}
}

func (r *Resolver) supportedSet() map[string]bool {
	set := make(map[string]bool)
	if r.extensions == nil {
		return set
	}
	for _, ext := range r.extensions.Extensions() {
		set[strings.ToLower(ext)] = true
	}
	return set
}

func sendErr(ctx context.Context, errs chan<- error, err error) {
	select {
	case errs <- err:
	case <-ctx.Done():
	}
}

// isHidden reports whether a file or directory name is hidden.
// "." and ".." are not considered hidden.
func isHidden(name string) bool {
	return strings.HasPrefix(name, ".") && name != "." && name != ".."
}
