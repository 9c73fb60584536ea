package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/docupull/pdf2excel/constants"
)

func TestDetectType(t *testing.T) {
	tests := []struct {
		name   string
		fields map[string]FieldValue
		want   constants.DocumentType
	}{
		{
			"invoice indicators win",
			map[string]FieldValue{
				"invoice_number": String("INV-1"),
				"supplier_name":  String("ACME"),
				"total_amount":   Number(100),
			},
			constants.Invoice,
		},
		{
			"utility indicators win",
			map[string]FieldValue{
				"account_number": String("AC-9"),
				"consumption":    Number(350),
			},
			constants.UtilityBill,
		},
		{
			"tie yields unknown",
			map[string]FieldValue{
				"invoice_number": String("INV-1"),
				"account_number": String("AC-9"),
			},
			constants.Unknown,
		},
		{
			"no indicators yields unknown",
			map[string]FieldValue{"raw_text": String("...")},
			constants.Unknown,
		},
		{"empty yields unknown", map[string]FieldValue{}, constants.Unknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectType(tt.fields))
		})
	}
}
