package domain

// RawDocument represents opaque bytes read from the corpus before
// normalisation.
type RawDocument struct {
	// Source is the logical document identifier, usually the file
	// base name.
	Source string

	// Path is the file the bytes came from.
	Path string

	// Content is the raw bytes.
	Content []byte
}
