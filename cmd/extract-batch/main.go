package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/docupull/pdf2excel/constants"
	"github.com/docupull/pdf2excel/internal/app"
	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/consolidate"
	"github.com/docupull/pdf2excel/internal/entity"
	"github.com/docupull/pdf2excel/internal/export"
)

func main() {
	var (
		dir      = flag.String("dir", "", "directory of PDFs to process (required)")
		docType  = flag.String("type", "unknown", "document type: invoice, utility_bill or unknown")
		fields   = flag.String("fields", "", "comma-separated custom field names")
		outName  = flag.String("out", "", "output name stem (default: batch_<dir name>)")
		noTables = flag.Bool("no-summary", false, "skip the summary sheet")
	)
	flag.Parse()

	if *dir == "" {
		fmt.Fprintln(os.Stderr, "Error: --dir is required")
		os.Exit(1)
	}

	parsedType, ok := constants.ParseDocumentType(*docType)
	if !ok {
		fmt.Fprintln(os.Stderr, "Error: --type must be invoice, utility_bill or unknown")
		os.Exit(1)
	}

	var customFields []string
	for _, f := range strings.Split(*fields, ",") {
		if f = strings.TrimSpace(f); f != "" {
			customFields = append(customFields, f)
		}
	}

	cfg := common.LoadConfig()
	logger := app.NewLogger(cfg.LogLevel)

	pdfs, err := filepath.Glob(filepath.Join(*dir, "*.pdf"))
	if err != nil || len(pdfs) == 0 {
		fmt.Fprintf(os.Stderr, "Error: no PDF files in %s\n", *dir)
		os.Exit(1)
	}
	sort.Strings(pdfs)

	pipe := app.BuildPipeline(cfg, logger)
	ctx := context.Background()

	var extractions []entity.DocumentExtraction
	failures := 0
	for _, path := range pdfs {
		file := entity.InputFile{
			ID:   uuid.NewString(),
			Path: path,
			Name: filepath.Base(path),
		}
		logger.Info("batch.file", "path", path)
		ex, err := pipe.ExtractFile(ctx, file, parsedType, customFields)
		if err != nil {
			logger.Error("batch.file.failed", "path", path, "error", err)
			failures++
			continue
		}
		extractions = append(extractions, ex)
	}

	table := consolidate.Consolidate(extractions, logger)
	if table.Empty() {
		fmt.Fprintln(os.Stderr, "Error: no successful extractions")
		os.Exit(1)
	}

	generator, err := export.NewGenerator(cfg.Output.Dir, logger)
	if err != nil {
		logger.Error("batch.export_init_failed", "error", err)
		os.Exit(1)
	}

	name := *outName
	if name == "" {
		name = "batch_" + filepath.Base(filepath.Clean(*dir))
	}
	path, err := generator.Generate(table, name, !*noTables, consolidate.Summarize(table))
	if err != nil {
		logger.Error("batch.export_failed", "error", err)
		os.Exit(1)
	}

	fmt.Printf("Batch extraction complete!\n")
	fmt.Printf("- Files processed: %d\n", len(pdfs))
	fmt.Printf("- Successful: %d\n", len(extractions))
	fmt.Printf("- Failed: %d\n", failures)
	fmt.Printf("- Output: %s\n", path)
}
