package normalisers

import (
	"github.com/custodia-labs/docqa-cli/internal/normalisers/docx"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/eml"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/html"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/ics"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/markdown"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/pages"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/pdf"
	"github.com/custodia-labs/docqa-cli/internal/normalisers/plaintext"
)

// RegisterDefaults registers all built-in normalisers with the registry.
// Call this during application initialisation.
func RegisterDefaults(r *Registry) {
	r.Register(plaintext.New())
	r.Register(markdown.New())
	r.Register(pages.New())
	r.Register(html.New())
	r.Register(docx.New())
	r.Register(eml.New())
	r.Register(ics.New())
	r.Register(pdf.New())
}

// DefaultRegistry returns a registry with all built-in normalisers.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	RegisterDefaults(r)
	return r
}
