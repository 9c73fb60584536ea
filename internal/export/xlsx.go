package export

import (
	"encoding/csv"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/consolidate"
)

const (
	dataSheet    = "Extracted Data"
	summarySheet = "Summary"
	maxColWidth  = 50
	headerFill   = "366092"
)

// Generator writes consolidated tables to formatted workbooks in the output
// directory and derives CSV siblings on demand.
type Generator struct {
	outputDir string
	logger    *slog.Logger
}

func NewGenerator(outputDir string, logger *slog.Logger) (*Generator, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, common.WrapError(err, "create output dir")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Generator{outputDir: outputDir, logger: logger}, nil
}

// Generate writes the table to <baseName>_results.xlsx. Cell data is written
// first; styling, column sizing and the frozen header are cosmetic, so their
// failures are logged and the workbook is saved anyway.
func (g *Generator) Generate(table consolidate.Table, baseName string, includeSummary bool, summary consolidate.Summary) (string, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	if includeSummary {
		// Summary renames the default sheet so it stays first in the tab order.
		if err := f.SetSheetName("Sheet1", summarySheet); err != nil {
			return "", common.WrapError(err, "rename summary sheet")
		}
		if _, err := f.NewSheet(dataSheet); err != nil {
			return "", common.WrapError(err, "create data sheet")
		}
		if err := g.writeSummary(f, summary); err != nil {
			return "", err
		}
	} else {
		if err := f.SetSheetName("Sheet1", dataSheet); err != nil {
			return "", common.WrapError(err, "rename data sheet")
		}
	}

	if err := g.writeData(f, table); err != nil {
		return "", err
	}

	g.formatData(f, table)

	name := SanitizeName(baseName)
	path := filepath.Join(g.outputDir, name+"_results.xlsx")
	if err := f.SaveAs(path); err != nil {
		return "", common.WrapError(err, "save workbook")
	}

	g.logger.Info("export.xlsx.ok",
		"path", path,
		"rows", len(table.Rows),
		"columns", len(table.Columns),
		"summary", includeSummary,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return path, nil
}

func (g *Generator) writeData(f *excelize.File, table consolidate.Table) error {
	for c, col := range table.Columns {
		cell, err := excelize.CoordinatesToCellName(c+1, 1)
		if err != nil {
			return common.WrapError(err, "header cell name")
		}
		if err := f.SetCellValue(dataSheet, cell, col); err != nil {
			return common.WrapError(err, "write header cell")
		}
	}

	for r, row := range table.Rows {
		for c, col := range table.Columns {
			v, ok := row[col]
			if !ok || v.IsNull() {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, r+2)
			if err != nil {
				return common.WrapError(err, "data cell name")
			}
			var cellValue any
			if v.IsNumber() {
				cellValue = v.Num
			} else {
				cellValue = v.Display()
			}
			if err := f.SetCellValue(dataSheet, cell, cellValue); err != nil {
				return common.WrapError(err, "write data cell")
			}
		}
	}
	return nil
}

// formatData applies styling after the data is safely written. Errors here
// leave an unstyled but complete workbook.
func (g *Generator) formatData(f *excelize.File, table consolidate.Table) {
	thin := []excelize.Border{
		{Type: "left", Style: 1, Color: "000000"},
		{Type: "right", Style: 1, Color: "000000"},
		{Type: "top", Style: 1, Color: "000000"},
		{Type: "bottom", Style: 1, Color: "000000"},
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{headerFill}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thin,
	})
	if err != nil {
		g.logger.Warn("export.xlsx.style_failed", "error", err)
		return
	}
	bodyStyle, err := f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{Horizontal: "left", Vertical: "center"},
		Border:    thin,
	})
	if err != nil {
		g.logger.Warn("export.xlsx.style_failed", "error", err)
		return
	}

	lastCol, err := excelize.CoordinatesToCellName(len(table.Columns), 1)
	if err == nil {
		if err := f.SetCellStyle(dataSheet, "A1", lastCol, headerStyle); err != nil {
			g.logger.Warn("export.xlsx.header_style_failed", "error", err)
		}
	}
	if len(table.Rows) > 0 {
		first, err1 := excelize.CoordinatesToCellName(1, 2)
		last, err2 := excelize.CoordinatesToCellName(len(table.Columns), len(table.Rows)+1)
		if err1 == nil && err2 == nil {
			if err := f.SetCellStyle(dataSheet, first, last, bodyStyle); err != nil {
				g.logger.Warn("export.xlsx.body_style_failed", "error", err)
			}
		}
	}

	for c, col := range table.Columns {
		width := len(col)
		for _, row := range table.Rows {
			if v, ok := row[col]; ok {
				if l := len(v.Display()); l > width {
					width = l
				}
			}
		}
		width += 2
		if width > maxColWidth {
			width = maxColWidth
		}
		colName, err := excelize.ColumnNumberToName(c + 1)
		if err != nil {
			continue
		}
		if err := f.SetColWidth(dataSheet, colName, colName, float64(width)); err != nil {
			g.logger.Warn("export.xlsx.col_width_failed", "column", col, "error", err)
		}
	}

	if err := f.SetPanes(dataSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		g.logger.Warn("export.xlsx.freeze_failed", "error", err)
	}
}

func (g *Generator) writeSummary(f *excelize.File, s consolidate.Summary) error {
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 14},
	})
	keyStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
	})

	set := func(cell string, v any) error {
		return f.SetCellValue(summarySheet, cell, v)
	}

	if err := set("A1", "Extraction Summary"); err != nil {
		return common.WrapError(err, "write summary title")
	}
	if titleStyle != 0 {
		_ = f.SetCellStyle(summarySheet, "A1", "A1", titleStyle)
	}
	if err := set("A2", "Generated: "+time.Now().Format("2006-01-02 15:04:05")); err != nil {
		return common.WrapError(err, "write summary timestamp")
	}

	rows := []consolidate.SummaryEntry{
		{Key: "Total Records", Value: fmt.Sprint(s.TotalRecords)},
		{Key: "Columns", Value: fmt.Sprint(s.Columns)},
	}
	rows = append(rows, s.Entries...)

	for i, entry := range rows {
		r := i + 4
		if err := set(fmt.Sprintf("A%d", r), entry.Key); err != nil {
			return common.WrapError(err, "write summary key")
		}
		if err := set(fmt.Sprintf("B%d", r), entry.Value); err != nil {
			return common.WrapError(err, "write summary value")
		}
		if keyStyle != 0 {
			_ = f.SetCellStyle(summarySheet, fmt.Sprintf("A%d", r), fmt.Sprintf("A%d", r), keyStyle)
		}
	}

	_ = f.SetColWidth(summarySheet, "A", "A", 32)
	_ = f.SetColWidth(summarySheet, "B", "B", 28)
	return nil
}

var unsafeNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeName makes a string safe as a filename stem: the extension is
// stripped, reserved characters become underscores, and an empty result
// falls back to a timestamped default.
func SanitizeName(name string) string {
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = unsafeNameChars.ReplaceAllString(name, "_")
	name = strings.TrimSpace(name)
	if name == "" {
		return "export_" + time.Now().Format("20060102_150405")
	}
	return name
}

// DeriveCSV converts a workbook's data sheet to a sibling .csv, reusing a
// previously derived file when present.
func (g *Generator) DeriveCSV(xlsxPath string) (string, error) {
	csvPath := strings.TrimSuffix(xlsxPath, filepath.Ext(xlsxPath)) + ".csv"
	if _, err := os.Stat(csvPath); err == nil {
		return csvPath, nil
	}

	f, err := excelize.OpenFile(xlsxPath)
	if err != nil {
		return "", common.WrapError(err, "open workbook")
	}
	defer f.Close()

	rows, err := f.GetRows(dataSheet)
	if err != nil {
		return "", common.NewAppError("NO_DATA_SHEET",
			fmt.Sprintf("workbook %s has no %q sheet", filepath.Base(xlsxPath), dataSheet), err)
	}

	out, err := os.Create(csvPath)
	if err != nil {
		return "", common.WrapError(err, "create csv")
	}
	defer out.Close()

	// GetRows trims trailing empty cells; pad so every record matches the header.
	width := 0
	if len(rows) > 0 {
		width = len(rows[0])
	}
	w := csv.NewWriter(out)
	for _, row := range rows {
		for len(row) < width {
			row = append(row, "")
		}
		if err := w.Write(row); err != nil {
			return "", common.WrapError(err, "write csv row")
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", common.WrapError(err, "flush csv")
	}

	g.logger.Info("export.csv.ok", "path", csvPath, "rows", len(rows))
	return csvPath, nil
}

// FileInfo describes one export artifact on disk.
type FileInfo struct {
	Name      string    `json:"filename"`
	SizeBytes int64     `json:"size_bytes"`
	Modified  time.Time `json:"modified_at"`
}

// List enumerates workbook artifacts in the output directory, newest first.
func (g *Generator) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(g.outputDir)
	if err != nil {
		return nil, common.WrapError(err, "read output dir")
	}

	var files []FileInfo
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".xlsx") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{
			Name:      e.Name(),
			SizeBytes: info.Size(),
			Modified:  info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Modified.After(files[j].Modified) })
	return files, nil
}

// Stat returns metadata for one artifact by filename within the output dir.
func (g *Generator) Stat(name string) (FileInfo, error) {
	if filepath.Base(name) != name {
		return FileInfo{}, common.NewAppError("BAD_NAME", "artifact name must not contain path separators", common.ErrInvalidInput)
	}
	info, err := os.Stat(filepath.Join(g.outputDir, name))
	if err != nil {
		if os.IsNotExist(err) {
			return FileInfo{}, common.NewAppError("NOT_FOUND", fmt.Sprintf("export %s not found", name), common.ErrNotFound)
		}
		return FileInfo{}, common.WrapError(err, "stat export")
	}
	return FileInfo{Name: name, SizeBytes: info.Size(), Modified: info.ModTime()}, nil
}

// Dir exposes the output directory for handlers that stream files.
func (g *Generator) Dir() string { return g.outputDir }
