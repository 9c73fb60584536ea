package consolidate

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docupull/pdf2excel/constants"
	"github.com/docupull/pdf2excel/internal/entity"
	"github.com/docupull/pdf2excel/internal/schema"
)

func extraction(filename string, fields ...entity.ExtractedField) entity.DocumentExtraction {
	return entity.DocumentExtraction{
		FileID:         "id-" + filename,
		Filename:       filename,
		DocumentType:   constants.Invoice,
		Fields:         fields,
		ExtractionTime: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Success:        true,
	}
}

func field(name string, v schema.FieldValue) entity.ExtractedField {
	return entity.ExtractedField{Name: name, Value: v}
}

func date(y int, m time.Month, d int) schema.FieldValue {
	return schema.DateOf(time.Date(y, m, d, 0, 0, 0, 0, time.UTC))
}

func TestConsolidateEmpty(t *testing.T) {
	assert.True(t, Consolidate(nil, nil).Empty())

	failed := entity.DocumentExtraction{Filename: "bad.pdf", Success: false, Error: "boom"}
	assert.True(t, Consolidate([]entity.DocumentExtraction{failed}, nil).Empty())
}

func TestConsolidateColumnsAndOrder(t *testing.T) {
	ex1 := extraction("a.pdf",
		field("invoice_number", schema.String("INV-1")),
		field("total_amount", schema.Number(10)),
	)
	ex2 := extraction("b.pdf",
		field("invoice_number", schema.String("INV-2")),
		field("currency", schema.String("EUR")),
	)

	table := Consolidate([]entity.DocumentExtraction{ex1, ex2}, nil)
	assert.Equal(t, []string{
		"filename", "file_id", "document_type", "extraction_time",
		"invoice_number", "total_amount", "currency",
	}, table.Columns)
	require.Len(t, table.Rows, 2)

	// Cells absent from a document are simply missing.
	_, ok := table.Rows[0]["currency"]
	assert.False(t, ok)
	assert.Equal(t, schema.String("EUR"), table.Rows[1]["currency"])
}

func TestConsolidateConfidenceColumns(t *testing.T) {
	conf := 0.92
	ex := extraction("a.pdf", entity.ExtractedField{
		Name:       "total_amount",
		Value:      schema.Number(10),
		Confidence: &conf,
	})

	table := Consolidate([]entity.DocumentExtraction{ex}, nil)
	assert.Contains(t, table.Columns, "total_amount_confidence")
	assert.Equal(t, schema.Number(0.92), table.Rows[0]["total_amount_confidence"])
}

func rowOrder(table Table) []string {
	var order []string
	for _, row := range table.Rows {
		order = append(order, row["filename"].Str)
	}
	return order
}

func TestConsolidateSortsByDate(t *testing.T) {
	newer := extraction("new.pdf", field("invoice_date", date(2024, 6, 1)))
	older := extraction("old.pdf", field("invoice_date", date(2024, 1, 1)))
	undatedA := extraction("ua.pdf", field("invoice_number", schema.String("X")))
	undatedB := extraction("ub.pdf", field("invoice_number", schema.String("Y")))
	billed := extraction("bill.pdf", field("bill_date", date(2024, 3, 15)))

	table := Consolidate([]entity.DocumentExtraction{newer, undatedA, older, undatedB, billed}, nil)

	// invoice_date wins for the whole table, so the bill_date-only row
	// counts as undated and keeps input order with the other undated rows.
	assert.Equal(t, []string{"old.pdf", "new.pdf", "ua.pdf", "ub.pdf", "bill.pdf"}, rowOrder(table))
}

func TestConsolidateSortsByBillDate(t *testing.T) {
	// Without any invoice_date the table falls back to bill_date.
	late := extraction("late.pdf", field("bill_date", date(2024, 9, 1)))
	early := extraction("early.pdf", field("bill_date", date(2024, 2, 1)))
	undated := extraction("u.pdf", field("account_number", schema.String("AC-1")))

	table := Consolidate([]entity.DocumentExtraction{late, undated, early}, nil)
	assert.Equal(t, []string{"early.pdf", "late.pdf", "u.pdf"}, rowOrder(table))
}

func TestConsolidateSkipsFailures(t *testing.T) {
	ok := extraction("good.pdf", field("invoice_number", schema.String("INV-1")))
	bad := entity.DocumentExtraction{Filename: "bad.pdf", Success: false, Error: "provider down"}

	table := Consolidate([]entity.DocumentExtraction{ok, bad}, nil)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, schema.String("good.pdf"), table.Rows[0]["filename"])
}

func TestSummarizeNumericAggregates(t *testing.T) {
	var docs []entity.DocumentExtraction
	for i, amount := range []float64{10, 20, 30} {
		docs = append(docs, extraction(
			string(rune('a'+i))+".pdf",
			field("total_amount", schema.Number(amount)),
		))
	}

	summary := Summarize(Consolidate(docs, nil))
	assert.Equal(t, 3, summary.TotalRecords)

	got := map[string]string{}
	for _, e := range summary.Entries {
		got[e.Key] = e.Value
	}
	assert.Equal(t, "60", got["total_amount_sum"])
	assert.Equal(t, "20", got["total_amount_mean"])
	assert.Equal(t, "10", got["total_amount_min"])
	assert.Equal(t, "30", got["total_amount_max"])
}

func TestSummarizeDatesAndExclusions(t *testing.T) {
	conf := 0.5
	docs := []entity.DocumentExtraction{
		extraction("a.pdf",
			field("invoice_date", date(2024, 1, 5)),
			entity.ExtractedField{Name: "total_amount", Value: schema.Number(1), Confidence: &conf},
		),
		extraction("b.pdf",
			field("invoice_date", date(2024, 4, 20)),
			entity.ExtractedField{Name: "total_amount", Value: schema.Number(2), Confidence: &conf},
		),
	}

	summary := Summarize(Consolidate(docs, nil))
	got := map[string]string{}
	for _, e := range summary.Entries {
		got[e.Key] = e.Value
	}

	assert.Equal(t, "2024-01-05", got["invoice_date_earliest"])
	assert.Equal(t, "2024-04-20", got["invoice_date_latest"])

	// Confidence columns and extraction_time never aggregate.
	for key := range got {
		assert.NotContains(t, key, "_confidence")
		assert.NotContains(t, key, "extraction_time")
	}
}

func TestSummarizeEmptyTable(t *testing.T) {
	summary := Summarize(Table{})
	assert.Equal(t, 0, summary.TotalRecords)
	assert.Empty(t, summary.Entries)
}
