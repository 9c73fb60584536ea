package pipeline

import (
	"context"
	"fmt"
	"image"
	"image/png"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docupull/pdf2excel/constants"
	"github.com/docupull/pdf2excel/internal/entity"
	"github.com/docupull/pdf2excel/internal/extract"
	"github.com/docupull/pdf2excel/internal/pdfdoc"
	"github.com/docupull/pdf2excel/internal/schema"
)

// fakePdftoppm writes one blank PNG page at the prefix argument.
type fakePdftoppm struct{}

func (fakePdftoppm) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	prefix := args[len(args)-1]
	out, err := os.Create(fmt.Sprintf("%s-1.png", prefix))
	if err != nil {
		return nil, nil, err
	}
	defer out.Close()
	return nil, nil, png.Encode(out, image.NewGray(image.Rect(0, 0, 2, 2)))
}

type fieldsProvider struct {
	fields map[string]schema.FieldValue
	got    extract.Source
}

func (p *fieldsProvider) Name() string { return "stub" }

func (p *fieldsProvider) Extract(ctx context.Context, src extract.Source, inst extract.Instruction) (map[string]schema.FieldValue, error) {
	p.got = src
	return p.fields, nil
}

func newTestPipeline(provider extract.Provider) *Pipeline {
	analyzer := pdfdoc.NewAnalyzer(nil)
	rasterizer := pdfdoc.NewRasterizer(fakePdftoppm{}, pdfdoc.RasterizeOptions{}, nil)
	chain := extract.NewChain([]extract.Provider{provider}, extract.ChainOptions{}, nil)
	return New(analyzer, rasterizer, chain, schema.NewRegistry(), nil)
}

// Files that cannot be parsed classify as scanned, so a plain temp file
// drives the raster path end to end.
func scannedFixture(t *testing.T) entity.InputFile {
	t.Helper()
	path := t.TempDir() + "/scan.pdf"
	require.NoError(t, os.WriteFile(path, []byte("binary-ish"), 0o644))
	return entity.InputFile{ID: "f1", Path: path, Name: "scan.pdf"}
}

func TestExtractFileScannedPath(t *testing.T) {
	provider := &fieldsProvider{fields: map[string]schema.FieldValue{
		"invoice_number": schema.String("INV-9"),
		"total_amount":   schema.Number(12),
		"zz_extra":       schema.String("x"),
		"aa_extra":       schema.String("y"),
	}}
	p := newTestPipeline(provider)

	ex, err := p.ExtractFile(context.Background(), scannedFixture(t), constants.Invoice, nil)
	require.NoError(t, err)

	assert.True(t, ex.Success)
	assert.Equal(t, constants.Invoice, ex.DocumentType)
	assert.Equal(t, "f1", ex.FileID)
	assert.NotEmpty(t, provider.got.ImagePNG)
	assert.Empty(t, provider.got.Text)

	// Declared fields first in definition order, extras sorted after.
	var names []string
	for _, f := range ex.Fields {
		names = append(names, f.Name)
	}
	assert.Equal(t, []string{"invoice_number", "total_amount", "aa_extra", "zz_extra"}, names)
}

func TestExtractFileDetectsTypeForUnknown(t *testing.T) {
	provider := &fieldsProvider{fields: map[string]schema.FieldValue{
		"account_number": schema.String("AC-1"),
		"consumption":    schema.Number(120),
	}}
	p := newTestPipeline(provider)

	ex, err := p.ExtractFile(context.Background(), scannedFixture(t), constants.Unknown, nil)
	require.NoError(t, err)
	assert.Equal(t, constants.UtilityBill, ex.DocumentType)
}

func TestExtractFileKeepsRequestedType(t *testing.T) {
	// Utility indicators in the output must not override an explicit invoice request.
	provider := &fieldsProvider{fields: map[string]schema.FieldValue{
		"account_number": schema.String("AC-1"),
		"consumption":    schema.Number(120),
	}}
	p := newTestPipeline(provider)

	ex, err := p.ExtractFile(context.Background(), scannedFixture(t), constants.Invoice, nil)
	require.NoError(t, err)
	assert.Equal(t, constants.Invoice, ex.DocumentType)
}

func TestExtractFileCustomFieldsReachPrompt(t *testing.T) {
	analyzer := pdfdoc.NewAnalyzer(nil)
	rasterizer := pdfdoc.NewRasterizer(fakePdftoppm{}, pdfdoc.RasterizeOptions{}, nil)

	var capturedPrompt string
	capture := extract.NewChain([]extract.Provider{providerFunc(func(ctx context.Context, src extract.Source, inst extract.Instruction) (map[string]schema.FieldValue, error) {
		capturedPrompt = inst.Prompt
		return map[string]schema.FieldValue{}, nil
	})}, extract.ChainOptions{}, nil)
	p := New(analyzer, rasterizer, capture, schema.NewRegistry(), nil)

	_, err := p.ExtractFile(context.Background(), scannedFixture(t), constants.Invoice, []string{"project_code"})
	require.NoError(t, err)
	assert.Contains(t, capturedPrompt, "project_code")
}

type providerFunc func(ctx context.Context, src extract.Source, inst extract.Instruction) (map[string]schema.FieldValue, error)

func (providerFunc) Name() string { return "func" }

func (f providerFunc) Extract(ctx context.Context, src extract.Source, inst extract.Instruction) (map[string]schema.FieldValue, error) {
	return f(ctx, src, inst)
}
