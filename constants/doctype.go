package constants

// DocumentType labels the kind of source document a job processes.
type DocumentType string

const (
	Invoice     DocumentType = "invoice"
	UtilityBill DocumentType = "utility_bill"
	Unknown     DocumentType = "unknown"
)

// ParseDocumentType maps a request string onto a known document type.
func ParseDocumentType(s string) (DocumentType, bool) {
	switch DocumentType(s) {
	case Invoice, UtilityBill, Unknown:
		return DocumentType(s), true
	}
	return "", false
}
