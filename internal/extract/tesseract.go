package extract

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/execrun"
	"github.com/docupull/pdf2excel/internal/schema"
)

// TesseractOptions configures the offline OCR fallback.
type TesseractOptions struct {
	BinaryPath  string
	Language    string
	TessdataDir string
}

// TesseractProvider is the offline fallback when the primary provider is
// unreachable. It cannot produce structured fields; it returns the raw
// recognized text plus bookkeeping keys so the document still lands in the
// consolidated table instead of failing the file.
type TesseractProvider struct {
	runner execrun.Runner
	opts   TesseractOptions
	logger *slog.Logger
}

func NewTesseractProvider(runner execrun.Runner, opts TesseractOptions, logger *slog.Logger) *TesseractProvider {
	if runner == nil {
		runner = execrun.ExecRunner{}
	}
	if opts.BinaryPath == "" {
		opts.BinaryPath = "tesseract"
	}
	if opts.Language == "" {
		opts.Language = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractProvider{runner: runner, opts: opts, logger: logger}
}

func (p *TesseractProvider) Name() string { return "tesseract" }

func (p *TesseractProvider) Extract(ctx context.Context, src Source, inst Instruction) (map[string]schema.FieldValue, error) {
	start := time.Now()

	text := src.Text
	if len(src.ImagePNG) > 0 {
		recognized, err := p.recognize(ctx, src.ImagePNG)
		if err != nil {
			return nil, err
		}
		text = recognized
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, common.NewAppError("OCR_EMPTY", "no text recognized", common.ErrProvider)
	}

	p.logger.Info("ocr.extract.ok",
		"provider", p.Name(),
		"filename", src.Filename,
		"chars", len(text),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	return map[string]schema.FieldValue{
		"raw_text":          schema.String(text),
		"extraction_method": schema.String("tesseract"),
		"note":              schema.String("Structured extraction unavailable; raw OCR text captured"),
	}, nil
}

func (p *TesseractProvider) recognize(ctx context.Context, png []byte) (string, error) {
	tmp, err := os.CreateTemp("", "pdf2excel-ocr-*.png")
	if err != nil {
		return "", common.WrapError(err, "create ocr temp file")
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(png); err != nil {
		tmp.Close()
		return "", common.WrapError(err, "write ocr temp file")
	}
	tmp.Close()

	outBase := strings.TrimSuffix(tmp.Name(), filepath.Ext(tmp.Name()))
	args := []string{tmp.Name(), outBase, "-l", p.opts.Language}
	if p.opts.TessdataDir != "" {
		args = append(args, "--tessdata-dir", p.opts.TessdataDir)
	}

	if _, stderr, err := p.runner.Run(ctx, p.opts.BinaryPath, args...); err != nil {
		return "", common.NewAppError("TESSERACT_FAILED",
			fmt.Sprintf("tesseract: %s", strings.TrimSpace(string(stderr))), common.ErrProvider)
	}

	outPath := outBase + ".txt"
	defer os.Remove(outPath)
	data, err := os.ReadFile(outPath)
	if err != nil {
		return "", common.WrapError(err, "read tesseract output")
	}
	return string(data), nil
}
