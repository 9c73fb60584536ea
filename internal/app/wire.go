// Package app wires configuration into the concrete pipeline, store and
// export components shared by the server and batch entrypoints.
package app

import (
	"log/slog"
	"os"

	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/execrun"
	"github.com/docupull/pdf2excel/internal/export"
	"github.com/docupull/pdf2excel/internal/extract"
	"github.com/docupull/pdf2excel/internal/job"
	"github.com/docupull/pdf2excel/internal/pdfdoc"
	"github.com/docupull/pdf2excel/internal/pipeline"
	"github.com/docupull/pdf2excel/internal/schema"
)

// NewLogger builds the process-wide JSON logger and installs it as default.
func NewLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl}))
	slog.SetDefault(logger)
	return logger
}

// BuildPipeline assembles the per-file extraction pipeline from config.
func BuildPipeline(cfg *common.Config, logger *slog.Logger) *pipeline.Pipeline {
	runner := execrun.ExecRunner{}

	analyzer := pdfdoc.NewAnalyzer(logger)
	contrast := 1.0
	if cfg.Processing.Contrast {
		contrast = 1.5
	}
	rasterizer := pdfdoc.NewRasterizer(runner, pdfdoc.RasterizeOptions{
		PdftoppmPath: cfg.OCR.Pdftoppm,
		DPI:          cfg.Processing.ImageDPI,
		MaxPages:     cfg.Processing.MaxPages,
		Preprocess:   cfg.Processing.Preprocess,
		Denoise:      cfg.Processing.Denoise,
		Contrast:     contrast,
	}, logger)

	var providers []extract.Provider
	if cfg.OCR.Provider == "gemini" && cfg.Gemini.APIKey != "" {
		providers = append(providers, extract.NewGeminiProvider(extract.GeminiOptions{
			APIKey:  cfg.Gemini.APIKey,
			Model:   cfg.Gemini.Model,
			BaseURL: cfg.Gemini.BaseURL,
		}, logger))
	}
	if cfg.OCR.Fallback == "tesseract" {
		providers = append(providers, extract.NewTesseractProvider(runner, extract.TesseractOptions{
			BinaryPath:  cfg.OCR.Tesseract,
			Language:    cfg.OCR.TesseractLang,
			TessdataDir: cfg.OCR.TessdataDir,
		}, logger))
	}

	chain := extract.NewChain(providers, extract.ChainOptions{
		Timeout:    cfg.OCR.Timeout,
		MaxRetries: cfg.OCR.MaxRetries,
	}, logger)

	return pipeline.New(analyzer, rasterizer, chain, schema.NewRegistry(), logger)
}

// BuildJobStore selects the configured job store backend. The returned
// cleanup is a no-op for the memory backend.
func BuildJobStore(cfg *common.Config) (job.Store, func(), error) {
	if cfg.Jobs.Backend == "sqlite" {
		store, err := job.NewSQLiteStore(cfg.Jobs.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		return store, func() { store.Close() }, nil
	}
	return job.NewMemoryStore(), func() {}, nil
}

// BuildManager assembles the job manager and its exporter.
func BuildManager(cfg *common.Config, store job.Store, extractor job.FileExtractor, logger *slog.Logger) (*job.Manager, *export.Generator, error) {
	generator, err := export.NewGenerator(cfg.Output.Dir, logger)
	if err != nil {
		return nil, nil, err
	}
	manager := job.NewManager(store, extractor, generator, job.ManagerOptions{
		MaxFilesPerJob: cfg.Processing.MaxFilesPerJob,
		FilePause:      cfg.Processing.FilePause,
	}, logger)
	return manager, generator, nil
}
