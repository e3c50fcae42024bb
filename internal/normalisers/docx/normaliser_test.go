package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docqa-cli/internal/core/domain"
	"github.com/custodia-labs/docqa-cli/internal/core/ports/driven"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// buildDocx assembles a minimal Word archive with the given body
// paragraphs and optional core.xml title.
func buildDocx(t *testing.T, title string, paragraphs ...string) []byte {
	t.Helper()

	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)

	add := func(name, content string) {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}

	add("[Content_Types].xml", `<?xml version="1.0" encoding="UTF-8"?>
<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">
<Default Extension="xml" ContentType="application/xml"/>
</Types>`)

	var body bytes.Buffer
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>\n", p)
	}
	add("word/document.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
%s</w:body>
</w:document>`, body.String()))

	if title != "" {
		add("docProps/core.xml", fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
xmlns:dc="http://purl.org/dc/elements/1.1/">
<dc:title>%s</dc:title>
</cp:coreProperties>`, title))
	}

	require.NoError(t, w.Close())
	return buf.Bytes()
}

func normaliseDocx(t *testing.T, source string, content []byte) *domain.Document {
	t.Helper()
	doc, err := New().Normalise(context.Background(), &domain.RawDocument{
		Source:  source,
		Path:    "/corpus/" + source,
		Content: content,
	})
	require.NoError(t, err)
	require.NotNil(t, doc)
	require.Len(t, doc.Sections, 1)
	return doc
}

func TestNormaliser_Identity(t *testing.T) {
	n := New()
	require.NotNil(t, n)
	assert.Equal(t, "docx", n.Name())
	assert.Equal(t, []string{".docx"}, n.Extensions())
}

func TestNormalise_Document(t *testing.T) {
	doc := normaliseDocx(t, "document.docx", buildDocx(t, "Test Document", "Hello World"))

	assert.Equal(t, "document.docx", doc.Source)
	assert.Equal(t, "/corpus/document.docx", doc.URI)
	assert.Equal(t, "Test Document", doc.Metadata["title"])
	assert.Equal(t, "docx", doc.Metadata["format"])
	assert.Nil(t, doc.Sections[0].Page)
	assert.Contains(t, doc.Sections[0].Text, "Hello World")
}

func TestNormalise_RejectsBadInput(t *testing.T) {
	doc, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, doc)

	doc, err = New().Normalise(context.Background(), &domain.RawDocument{
		Source:  "invalid.docx",
		Path:    "/corpus/invalid.docx",
		Content: []byte("not a zip file"),
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, doc)
}

func TestNormalise_TitleFallsBackToFilename(t *testing.T) {
	doc := normaliseDocx(t, "my_document.docx", buildDocx(t, "", "Content"))
	assert.Equal(t, "my document", doc.Metadata["title"])
}

func TestNormalise_ParagraphsJoinedByNewlines(t *testing.T) {
	doc := normaliseDocx(t, "doc.docx",
		buildDocx(t, "", "First paragraph", "Second paragraph", "Third paragraph"))

	assert.Equal(t, "First paragraph\nSecond paragraph\nThird paragraph", doc.Sections[0].Text)
}

func TestNormalise_RunsConcatenateWithinAParagraph(t *testing.T) {
	// Formatting changes split a paragraph into several runs.
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	f, err := w.Create("word/document.xml")
	require.NoError(t, err)
	_, err = f.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p>
<w:r><w:t>Hello </w:t></w:r>
<w:r><w:t>World</w:t></w:r>
</w:p>
</w:body>
</w:document>`))
	require.NoError(t, err)
	require.NoError(t, w.Close())

	doc := normaliseDocx(t, "doc.docx", buf.Bytes())
	assert.Equal(t, "Hello World", doc.Sections[0].Text)
}

func TestNormalise_EmptyBody(t *testing.T) {
	doc := normaliseDocx(t, "empty.docx", buildDocx(t, ""))
	assert.Empty(t, doc.Sections[0].Text)
}

func BenchmarkNormalise(b *testing.B) {
	buf := new(bytes.Buffer)
	w := zip.NewWriter(buf)
	f, _ := w.Create("word/document.xml")
	f.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
<w:body>
<w:p><w:r><w:t>Hello World</w:t></w:r></w:p>
</w:body>
</w:document>`))
	w.Close()

	raw := &domain.RawDocument{
		Source:  "document.docx",
		Path:    "/corpus/document.docx",
		Content: buf.Bytes(),
	}

	n := New()
	ctx := context.Background()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = n.Normalise(ctx, raw)
	}
}
