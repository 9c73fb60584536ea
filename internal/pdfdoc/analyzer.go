package pdfdoc

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/docupull/pdf2excel/internal/common"
)

// PDFKind labels whether a document carries an extractable text layer.
type PDFKind string

const (
	KindText    PDFKind = "text"
	KindScanned PDFKind = "scanned"
)

// classifySampleLimit caps how many leading pages the classifier inspects.
const classifySampleLimit = 3

// minCharsPerPage is the average text density below which a document is
// treated as scanned.
const minCharsPerPage = 50

// Analyzer inspects PDF documents: classification, text extraction and
// page counting.
type Analyzer struct {
	logger *slog.Logger
}

func NewAnalyzer(logger *slog.Logger) *Analyzer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Analyzer{logger: logger}
}

// Classify samples up to the first three pages and averages their plain-text
// length. Sparse text means the document is image-based and needs OCR. Any
// read error also classifies as scanned, so the raster path gets a chance
// at documents the text parser chokes on.
func (a *Analyzer) Classify(path string) PDFKind {
	start := time.Now()

	f, r, err := pdf.Open(path)
	if err != nil {
		a.logger.Warn("pdf.classify.open_failed", "path", path, "error", err)
		return KindScanned
	}
	defer f.Close()

	pages := r.NumPage()
	sample := pages
	if sample > classifySampleLimit {
		sample = classifySampleLimit
	}
	if sample == 0 {
		return KindScanned
	}

	totalChars := 0
	for i := 1; i <= sample; i++ {
		text, err := pageText(r, i)
		if err != nil {
			a.logger.Warn("pdf.classify.page_failed", "path", path, "page", i, "error", err)
			return KindScanned
		}
		totalChars += len(strings.TrimSpace(text))
	}

	kind := KindText
	if totalChars/sample < minCharsPerPage {
		kind = KindScanned
	}

	a.logger.Debug("pdf.classify.ok",
		"path", path,
		"kind", string(kind),
		"pages_sampled", sample,
		"avg_chars", totalChars/sample,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return kind
}

// ExtractText pulls the text layer from every page, prefixing each page with
// a marker so downstream prompts can reference page boundaries.
func (a *Analyzer) ExtractText(path string) (string, error) {
	start := time.Now()

	f, r, err := pdf.Open(path)
	if err != nil {
		return "", common.WrapError(err, fmt.Sprintf("open pdf %s", path))
	}
	defer f.Close()

	var parts []string
	for i := 1; i <= r.NumPage(); i++ {
		text, err := pageText(r, i)
		if err != nil {
			a.logger.Warn("pdf.text.page_failed", "path", path, "page", i, "error", err)
			continue
		}
		if strings.TrimSpace(text) == "" {
			continue
		}
		parts = append(parts, fmt.Sprintf("--- Page %d ---\n%s", i, text))
	}

	if len(parts) == 0 {
		return "", common.NewAppError("NO_TEXT_LAYER", fmt.Sprintf("no extractable text in %s", path), common.ErrPipeline)
	}

	out := strings.Join(parts, "\n\n")
	a.logger.Info("pdf.text.ok",
		"path", path,
		"pages", r.NumPage(),
		"chars", len(out),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out, nil
}

// PageCount reports the number of pages in the document.
func (a *Analyzer) PageCount(path string) (int, error) {
	n, err := countPages(path)
	if err != nil {
		return 0, common.WrapError(err, fmt.Sprintf("page count %s", path))
	}
	return n, nil
}

// countPages walks the page tree without touching page contents, so it is
// cheap enough to run before rasterization.
func countPages(path string) (int, error) {
	return api.PageCountFile(path)
}

func pageText(r *pdf.Reader, num int) (text string, err error) {
	// The parser panics on some malformed content streams.
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("page %d: %v", num, rec)
		}
	}()

	page := r.Page(num)
	if page.V.IsNull() {
		return "", nil
	}
	return page.GetPlainText(nil)
}
