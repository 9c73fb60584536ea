package pdfdoc

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/execrun"
)

// RasterizeOptions controls PDF-to-image conversion.
type RasterizeOptions struct {
	PdftoppmPath string
	DPI          int
	MaxPages     int
	Preprocess   bool
	Denoise      bool
	Contrast     float64
}

// Rasterizer converts PDF pages to images via pdftoppm for the OCR and
// vision extraction paths.
type Rasterizer struct {
	runner execrun.Runner
	opts   RasterizeOptions
	logger *slog.Logger
}

func NewRasterizer(runner execrun.Runner, opts RasterizeOptions, logger *slog.Logger) *Rasterizer {
	if runner == nil {
		runner = execrun.ExecRunner{}
	}
	if opts.PdftoppmPath == "" {
		opts.PdftoppmPath = "pdftoppm"
	}
	if opts.DPI <= 0 {
		opts.DPI = 300
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rasterizer{runner: runner, opts: opts, logger: logger}
}

// Render converts up to maxPages pages to images, preprocessed for OCR when
// enabled. Pass maxPages <= 0 to use the configured default.
func (r *Rasterizer) Render(ctx context.Context, pdfPath string, maxPages int) ([]image.Image, error) {
	start := time.Now()

	if maxPages <= 0 {
		maxPages = r.opts.MaxPages
	}

	// Probe the page tree before shelling out: pdftoppm reports damaged
	// files poorly, and the real count bounds how many pages we request.
	// Files the probe cannot read still get a rasterization attempt.
	if pages, err := countPages(pdfPath); err != nil {
		r.logger.Warn("pdf.raster.pagecount_failed", "path", pdfPath, "error", err)
	} else if pages == 0 {
		return nil, common.NewAppError("PDF_NO_PAGES", fmt.Sprintf("%s has no pages", pdfPath), common.ErrPipeline)
	} else if maxPages <= 0 || maxPages > pages {
		maxPages = pages
	}

	tmpDir, err := os.MkdirTemp("", "pdf2excel-raster-*")
	if err != nil {
		return nil, common.WrapError(err, "create raster temp dir")
	}
	defer os.RemoveAll(tmpDir)

	prefix := filepath.Join(tmpDir, "page")
	args := []string{"-r", fmt.Sprint(r.opts.DPI), "-png"}
	if maxPages > 0 {
		args = append(args, "-f", "1", "-l", fmt.Sprint(maxPages))
	}
	args = append(args, pdfPath, prefix)

	if _, stderr, err := r.runner.Run(ctx, r.opts.PdftoppmPath, args...); err != nil {
		return nil, common.NewAppError("PDFTOPPM_FAILED",
			fmt.Sprintf("pdftoppm %s: %s", pdfPath, bytes.TrimSpace(stderr)), err)
	}

	matches, err := filepath.Glob(prefix + "*.png")
	if err != nil || len(matches) == 0 {
		return nil, common.NewAppError("PDFTOPPM_NO_PAGES", fmt.Sprintf("pdftoppm produced no pages for %s", pdfPath), common.ErrPipeline)
	}
	sort.Strings(matches)
	if maxPages > 0 && len(matches) > maxPages {
		matches = matches[:maxPages]
	}

	images := make([]image.Image, 0, len(matches))
	for _, m := range matches {
		img, err := decodePNG(m)
		if err != nil {
			return nil, common.WrapError(err, fmt.Sprintf("decode %s", m))
		}
		if r.opts.Preprocess {
			img = PreprocessForOCR(img, r.opts.Denoise, r.opts.Contrast, r.logger)
		}
		images = append(images, img)
	}

	r.logger.Info("pdf.raster.ok",
		"path", pdfPath,
		"pages", len(images),
		"dpi", r.opts.DPI,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return images, nil
}

// RenderFirstPage is a convenience for the single-page extraction path.
func (r *Rasterizer) RenderFirstPage(ctx context.Context, pdfPath string) (image.Image, error) {
	images, err := r.Render(ctx, pdfPath, 1)
	if err != nil {
		return nil, err
	}
	return images[0], nil
}

func decodePNG(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return png.Decode(f)
}

// EncodePNG serializes an image for transport to an extraction provider.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, common.WrapError(err, "encode png")
	}
	return buf.Bytes(), nil
}
