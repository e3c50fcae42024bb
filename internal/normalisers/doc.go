// Package normalisers provides implementations of the Normaliser interface
// for various corpus formats. Each normaliser knows how to extract text
// content and page attribution from specific file extensions.
//
// Normalisers are registered with the Registry at startup.
package normalisers
