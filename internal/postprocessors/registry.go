package postprocessors

import (
	"fmt"
	"sort"

	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// BuilderFunc constructs a processor from its configuration map. The
// map holds whatever keys the settings layer parsed for that processor.
type BuilderFunc func(cfg map[string]any) (driven.PostProcessor, error)

// Registry resolves processor names from configuration to builders, so
// the pipeline composition is data-driven rather than hard-wired.
type Registry struct {
	builders map[string]BuilderFunc
}

// NewRegistry returns a registry with no builders registered.
func NewRegistry() *Registry {
	return &Registry{builders: map[string]BuilderFunc{}}
}

// Register associates a builder with a processor name. The name should
// match what the built processor reports from Name(). Registering the
// same name again replaces the earlier builder.
func (r *Registry) Register(name string, builder BuilderFunc) {
	r.builders[name] = builder
}

// Build constructs the named processor with the given configuration.
func (r *Registry) Build(name string, cfg map[string]any) (driven.PostProcessor, error) {
	builder, ok := r.builders[name]
	if !ok {
		return nil, fmt.Errorf("unknown processor: %s", name)
	}
	return builder(cfg)
}

// Has reports whether a builder is registered under name.
func (r *Registry) Has(name string) bool {
	_, ok := r.builders[name]
	return ok
}

// Names returns the registered processor names, sorted.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for name := range r.builders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
