package pipeline

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/docupull/pdf2excel/constants"
	"github.com/docupull/pdf2excel/internal/entity"
	"github.com/docupull/pdf2excel/internal/extract"
	"github.com/docupull/pdf2excel/internal/pdfdoc"
	"github.com/docupull/pdf2excel/internal/schema"
)

// Pipeline turns one PDF into a DocumentExtraction: classify the document,
// pick the text or raster path, run the provider chain, and type the result.
type Pipeline struct {
	analyzer   *pdfdoc.Analyzer
	rasterizer *pdfdoc.Rasterizer
	chain      *extract.Chain
	registry   *schema.Registry
	logger     *slog.Logger
}

func New(analyzer *pdfdoc.Analyzer, rasterizer *pdfdoc.Rasterizer, chain *extract.Chain, registry *schema.Registry, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		analyzer:   analyzer,
		rasterizer: rasterizer,
		chain:      chain,
		registry:   registry,
		logger:     logger,
	}
}

func (p *Pipeline) ExtractFile(ctx context.Context, file entity.InputFile, docType constants.DocumentType, customFields []string) (entity.DocumentExtraction, error) {
	start := time.Now()

	kind := p.analyzer.Classify(file.Path)
	p.logger.Info("pipeline.file.start",
		"filename", file.Name,
		"kind", string(kind),
		"document_type", string(docType),
	)

	defs := p.registry.Fields(docType, customFields)
	inst := extract.Instruction{
		DocumentType: docType,
		Prompt:       schema.BuildExtractionPrompt(docType, defs),
		Fields:       defs,
	}

	src, err := p.buildSource(ctx, file, kind)
	if err != nil {
		return entity.DocumentExtraction{}, err
	}

	fields, provider, err := p.chain.Extract(ctx, src, inst)
	if err != nil {
		return entity.DocumentExtraction{}, err
	}

	// The classifier only overrides an unknown request; a caller-specified
	// type is authoritative.
	finalType := docType
	if docType == constants.Unknown {
		if detected := schema.DetectType(fields); detected != constants.Unknown {
			finalType = detected
		}
	}

	ex := entity.DocumentExtraction{
		FileID:         file.ID,
		Filename:       file.Name,
		DocumentType:   finalType,
		Fields:         orderFields(fields, defs),
		ExtractionTime: time.Now(),
		Success:        true,
	}

	p.logger.Info("pipeline.file.ok",
		"filename", file.Name,
		"provider", provider,
		"document_type", string(finalType),
		"fields", len(ex.Fields),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return ex, nil
}

// buildSource prepares provider input. Scanned documents render only the
// first page, which carries the header fields on the supported document
// types; full-document OCR is not worth the latency.
func (p *Pipeline) buildSource(ctx context.Context, file entity.InputFile, kind pdfdoc.PDFKind) (extract.Source, error) {
	if kind == pdfdoc.KindScanned {
		img, err := p.rasterizer.RenderFirstPage(ctx, file.Path)
		if err != nil {
			return extract.Source{}, err
		}
		png, err := pdfdoc.EncodePNG(img)
		if err != nil {
			return extract.Source{}, err
		}
		return extract.Source{Filename: file.Name, ImagePNG: png}, nil
	}

	text, err := p.analyzer.ExtractText(file.Path)
	if err != nil {
		return extract.Source{}, err
	}
	return extract.Source{Filename: file.Name, Text: text}, nil
}

// orderFields lays out declared fields in definition order, then any extra
// provider keys sorted by name.
func orderFields(fields map[string]schema.FieldValue, defs []schema.FieldDefinition) []entity.ExtractedField {
	out := make([]entity.ExtractedField, 0, len(fields))
	declared := make(map[string]bool, len(defs))

	for _, d := range defs {
		declared[d.Name] = true
		if v, ok := fields[d.Name]; ok {
			out = append(out, entity.ExtractedField{Name: d.Name, Value: v})
		}
	}

	var extras []string
	for name := range fields {
		if !declared[name] {
			extras = append(extras, name)
		}
	}
	sort.Strings(extras)
	for _, name := range extras {
		out = append(out, entity.ExtractedField{Name: name, Value: fields[name]})
	}
	return out
}
