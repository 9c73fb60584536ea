package extract

import (
	"context"

	"github.com/docupull/pdf2excel/constants"
	"github.com/docupull/pdf2excel/internal/schema"
)

// Source carries the document content handed to a provider. Exactly one of
// Text or ImagePNG is set: text-layer documents go as plain text, scanned
// documents as a rendered first-page PNG.
type Source struct {
	Filename string
	Text     string
	ImagePNG []byte
}

// Instruction tells the provider what to pull out of the source.
type Instruction struct {
	DocumentType constants.DocumentType
	Prompt       string
	Fields       []schema.FieldDefinition
}

// Provider extracts structured fields from a document source.
type Provider interface {
	Name() string
	Extract(ctx context.Context, src Source, inst Instruction) (map[string]schema.FieldValue, error)
}
