package schema

import (
	"github.com/docupull/pdf2excel/constants"
)

var (
	invoiceIndicators = []string{"invoice_number", "supplier_name", "total_amount"}
	utilityIndicators = []string{"account_number", "consumption", "meter_reading"}
)

// DetectType assigns a document-type label by counting indicator fields
// present in the extracted mapping. The higher score wins; a tie (including
// 0-0) yields Unknown.
func DetectType(fields map[string]FieldValue) constants.DocumentType {
	score := func(indicators []string) int {
		n := 0
		for _, name := range indicators {
			if _, ok := fields[name]; ok {
				n++
			}
		}
		return n
	}
	invoiceScore := score(invoiceIndicators)
	utilityScore := score(utilityIndicators)

	switch {
	case invoiceScore > utilityScore:
		return constants.Invoice
	case utilityScore > invoiceScore:
		return constants.UtilityBill
	default:
		return constants.Unknown
	}
}
