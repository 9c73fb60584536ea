package consolidate

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/docupull/pdf2excel/internal/entity"
	"github.com/docupull/pdf2excel/internal/schema"
)

// Metadata columns prepended to every consolidated table.
var metadataColumns = []string{"filename", "file_id", "document_type", "extraction_time"}

// Table is the consolidated view of all successful extractions in a job.
// Columns is the ordered header row; each row maps column name to value,
// with absent cells simply missing from the map.
type Table struct {
	Columns []string
	Rows    []map[string]schema.FieldValue
}

// Empty reports whether the table has no data rows.
func (t Table) Empty() bool { return len(t.Rows) == 0 }

// Consolidate merges successful extractions into one table. Column order is
// metadata first, then field columns in first-seen order across documents,
// each followed by its confidence column when any document reported one.
// Rows sort on one date column for the whole table, invoice_date when any
// row carries it, otherwise bill_date; rows without a value in that column
// keep their input order after the dated ones.
func Consolidate(extractions []entity.DocumentExtraction, logger *slog.Logger) Table {
	if logger == nil {
		logger = slog.Default()
	}
	start := time.Now()

	var succeeded []entity.DocumentExtraction
	for _, ex := range extractions {
		if ex.Success {
			succeeded = append(succeeded, ex)
		}
	}
	if len(succeeded) == 0 {
		logger.Warn("consolidate.empty", "total", len(extractions))
		return Table{}
	}

	var fieldOrder []string
	seen := make(map[string]bool)
	hasConfidence := make(map[string]bool)
	for _, ex := range succeeded {
		for _, f := range ex.Fields {
			if !seen[f.Name] {
				seen[f.Name] = true
				fieldOrder = append(fieldOrder, f.Name)
			}
			if f.Confidence != nil {
				hasConfidence[f.Name] = true
			}
		}
	}

	columns := append([]string{}, metadataColumns...)
	for _, name := range fieldOrder {
		columns = append(columns, name)
		if hasConfidence[name] {
			columns = append(columns, name+"_confidence")
		}
	}

	rows := make([]map[string]schema.FieldValue, 0, len(succeeded))
	for _, ex := range succeeded {
		row := map[string]schema.FieldValue{
			"filename":        schema.String(ex.Filename),
			"file_id":         schema.String(ex.FileID),
			"document_type":   schema.String(string(ex.DocumentType)),
			"extraction_time": schema.DateOf(ex.ExtractionTime),
		}
		for _, f := range ex.Fields {
			row[f.Name] = f.Value
			if f.Confidence != nil {
				row[f.Name+"_confidence"] = schema.Number(*f.Confidence)
			}
		}
		rows = append(rows, row)
	}

	sortRowsByDate(rows)

	logger.Info("consolidate.ok",
		"documents", len(extractions),
		"rows", len(rows),
		"columns", len(columns),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return Table{Columns: columns, Rows: rows}
}

// sortRowsByDate orders rows by a single date column chosen for the whole
// table, so mixed-type tables never interleave on different keys. The sort
// is stable so undated rows retain input order and land after dated ones.
func sortRowsByDate(rows []map[string]schema.FieldValue) {
	var sortCol string
	for _, col := range []string{"invoice_date", "bill_date"} {
		for _, row := range rows {
			if v, ok := row[col]; ok && v.IsDate() {
				sortCol = col
				break
			}
		}
		if sortCol != "" {
			break
		}
	}
	if sortCol == "" {
		return
	}

	key := func(row map[string]schema.FieldValue) (time.Time, bool) {
		if v, ok := row[sortCol]; ok && v.IsDate() {
			return v.Date, true
		}
		return time.Time{}, false
	}
	sort.SliceStable(rows, func(i, j int) bool {
		ti, oki := key(rows[i])
		tj, okj := key(rows[j])
		if oki && okj {
			return ti.Before(tj)
		}
		return oki && !okj
	})
}

// SummaryEntry is one key/value line on the summary sheet.
type SummaryEntry struct {
	Key   string
	Value string
}

// Summary holds aggregate statistics over a consolidated table.
type Summary struct {
	TotalRecords int
	Columns      int
	Entries      []SummaryEntry
}

// Summarize computes per-column aggregates: sum, mean, min and max for
// numeric columns (confidence columns excluded), earliest and latest for
// date columns (extraction_time excluded).
func Summarize(t Table) Summary {
	s := Summary{TotalRecords: len(t.Rows), Columns: len(t.Columns)}

	for _, col := range t.Columns {
		if strings.HasSuffix(col, "_confidence") || col == "extraction_time" {
			continue
		}

		var nums []float64
		var dates []time.Time
		for _, row := range t.Rows {
			v, ok := row[col]
			if !ok {
				continue
			}
			switch {
			case v.IsNumber():
				nums = append(nums, v.Num)
			case v.IsDate():
				dates = append(dates, v.Date)
			}
		}

		if len(nums) > 0 {
			sum, minV, maxV := nums[0], nums[0], nums[0]
			for _, n := range nums[1:] {
				sum += n
				if n < minV {
					minV = n
				}
				if n > maxV {
					maxV = n
				}
			}
			s.Entries = append(s.Entries,
				SummaryEntry{col + "_sum", formatNum(sum)},
				SummaryEntry{col + "_mean", formatNum(sum / float64(len(nums)))},
				SummaryEntry{col + "_min", formatNum(minV)},
				SummaryEntry{col + "_max", formatNum(maxV)},
			)
		}

		if len(dates) > 0 {
			earliest, latest := dates[0], dates[0]
			for _, d := range dates[1:] {
				if d.Before(earliest) {
					earliest = d
				}
				if d.After(latest) {
					latest = d
				}
			}
			s.Entries = append(s.Entries,
				SummaryEntry{col + "_earliest", earliest.Format("2006-01-02")},
				SummaryEntry{col + "_latest", latest.Format("2006-01-02")},
			)
		}
	}
	return s
}

func formatNum(f float64) string {
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
