package normalisers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

// fakeNormaliser is a minimal normaliser for registry tests.
type fakeNormaliser struct {
	name string
	exts []string
}

func (f *fakeNormaliser) Name() string         { return f.name }
func (f *fakeNormaliser) Extensions() []string { return f.exts }
func (f *fakeNormaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	return &domain.Document{Source: raw.Source}, nil
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	require.NotNil(t, r)
	assert.Empty(t, r.Extensions())
}

func TestRegistry_ForPath(t *testing.T) {
	r := NewRegistry()
	txt := &fakeNormaliser{name: "txt", exts: []string{".txt"}}
	r.Register(txt)

	n, err := r.ForPath("/corpus/notes.txt")
	require.NoError(t, err)
	assert.Equal(t, txt, n)
}

func TestRegistry_ForPath_CaseInsensitive(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeNormaliser{name: "txt", exts: []string{".txt"}})

	n, err := r.ForPath("/corpus/NOTES.TXT")
	require.NoError(t, err)
	assert.NotNil(t, n)
}

func TestRegistry_ForPath_Unsupported(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeNormaliser{name: "txt", exts: []string{".txt"}})

	n, err := r.ForPath("/corpus/report.docx")

	assert.ErrorIs(t, err, domain.ErrUnsupportedFormat)
	assert.Nil(t, n)
}

func TestRegistry_Register_LaterWins(t *testing.T) {
	r := NewRegistry()
	first := &fakeNormaliser{name: "first", exts: []string{".txt"}}
	second := &fakeNormaliser{name: "second", exts: []string{".txt"}}
	r.Register(first)
	r.Register(second)

	n, err := r.ForPath("a.txt")
	require.NoError(t, err)
	assert.Equal(t, second, n)
}

func TestRegistry_Extensions_Sorted(t *testing.T) {
	r := NewRegistry()
	r.Register(&fakeNormaliser{name: "multi", exts: []string{".md", ".jsonl", ".txt"}})

	assert.Equal(t, []string{".jsonl", ".md", ".txt"}, r.Extensions())
}

func TestRegisterDefaults(t *testing.T) {
	r := NewRegistry()
	RegisterDefaults(r)

	exts := r.Extensions()
	assert.Contains(t, exts, ".txt")
	assert.Contains(t, exts, ".md")
	assert.Contains(t, exts, ".markdown")
	assert.Contains(t, exts, ".jsonl")
	assert.Contains(t, exts, ".html")
	assert.Contains(t, exts, ".htm")
	assert.Contains(t, exts, ".docx")
	assert.Contains(t, exts, ".eml")
	assert.Contains(t, exts, ".ics")
	assert.Contains(t, exts, ".pdf")
}

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	paths := []string{
		"a.txt", "b.md", "c.markdown", "d.jsonl",
		"e.html", "f.htm", "g.docx", "h.eml", "i.ics", "j.pdf",
	}
	for _, path := range paths {
		n, err := r.ForPath(path)
		require.NoError(t, err, "path %s", path)
		assert.NotNil(t, n)
	}
}

func TestInterfaceCompliance(t *testing.T) {
	var _ driven.NormaliserRegistry = (*Registry)(nil)
	var _ driven.Normaliser = (*fakeNormaliser)(nil)
}
