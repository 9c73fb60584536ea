package schema

import (
	"github.com/docupull/pdf2excel/constants"
)

// Declared data types for extracted fields.
const (
	TypeString = "string"
	TypeNumber = "number"
	TypeDate   = "date"
)

// FieldDefinition describes one field the extraction provider should return.
type FieldDefinition struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	DataType    string `json:"data_type"`
	Required    bool   `json:"required"`
}

// InvoiceFields is the expected field set for invoices.
var InvoiceFields = []FieldDefinition{
	{Name: "invoice_number", Description: "Unique invoice identifier/number", DataType: TypeString, Required: true},
	{Name: "invoice_date", Description: "Date the invoice was issued", DataType: TypeDate, Required: true},
	{Name: "due_date", Description: "Payment due date", DataType: TypeDate},
	{Name: "supplier_name", Description: "Name of the supplier/vendor", DataType: TypeString, Required: true},
	{Name: "supplier_address", Description: "Supplier's address", DataType: TypeString},
	{Name: "customer_name", Description: "Name of the customer/client", DataType: TypeString},
	{Name: "subtotal", Description: "Subtotal amount before tax", DataType: TypeNumber, Required: true},
	{Name: "tax_amount", Description: "Tax/VAT amount", DataType: TypeNumber},
	{Name: "tax_rate", Description: "Tax/VAT rate percentage", DataType: TypeNumber},
	{Name: "total_amount", Description: "Total amount including tax", DataType: TypeNumber, Required: true},
	{Name: "currency", Description: "Currency code (USD, EUR, GBP, etc.)", DataType: TypeString},
	{Name: "payment_terms", Description: "Payment terms or conditions", DataType: TypeString},
	{Name: "reference_number", Description: "Reference or PO number", DataType: TypeString},
}

// UtilityBillFields is the expected field set for utility bills.
var UtilityBillFields = []FieldDefinition{
	{Name: "account_number", Description: "Customer account number", DataType: TypeString, Required: true},
	{Name: "bill_date", Description: "Date the bill was issued", DataType: TypeDate, Required: true},
	{Name: "due_date", Description: "Payment due date", DataType: TypeDate, Required: true},
	{Name: "provider_name", Description: "Utility provider name", DataType: TypeString, Required: true},
	{Name: "service_address", Description: "Service location address", DataType: TypeString},
	{Name: "billing_period_start", Description: "Start date of billing period", DataType: TypeDate},
	{Name: "billing_period_end", Description: "End date of billing period", DataType: TypeDate},
	{Name: "meter_reading_previous", Description: "Previous meter reading", DataType: TypeNumber},
	{Name: "meter_reading_current", Description: "Current meter reading", DataType: TypeNumber},
	{Name: "consumption", Description: "Total consumption (kWh, m³, etc.)", DataType: TypeNumber, Required: true},
	{Name: "consumption_unit", Description: "Unit of consumption (kWh, m³, gallons, etc.)", DataType: TypeString},
	{Name: "unit_rate", Description: "Rate per unit", DataType: TypeNumber},
	{Name: "charges", Description: "Total charges before tax", DataType: TypeNumber, Required: true},
	{Name: "tax_amount", Description: "Tax amount", DataType: TypeNumber},
	{Name: "total_amount", Description: "Total amount due", DataType: TypeNumber, Required: true},
	{Name: "utility_type", Description: "Type of utility (electricity, gas, water, etc.)", DataType: TypeString},
}

// Registry maps document types to their expected field definitions and
// supports ad-hoc custom field injection per request.
type Registry struct {
	types map[constants.DocumentType][]FieldDefinition
}

// NewRegistry seeds the registry with the invoice and utility bill schemas.
func NewRegistry() *Registry {
	return &Registry{
		types: map[constants.DocumentType][]FieldDefinition{
			constants.Invoice:     InvoiceFields,
			constants.UtilityBill: UtilityBillFields,
		},
	}
}

// Register installs or replaces the field set for a document type.
func (r *Registry) Register(docType constants.DocumentType, defs []FieldDefinition) {
	r.types[docType] = defs
}

// Fields returns the ordered field definitions for a document type,
// defaulting to the invoice schema for unrecognized labels. Custom field
// names are appended as optional string fields.
func (r *Registry) Fields(docType constants.DocumentType, customFields []string) []FieldDefinition {
	base, ok := r.types[docType]
	if !ok {
		base = r.types[constants.Invoice]
	}
	defs := make([]FieldDefinition, len(base), len(base)+len(customFields))
	copy(defs, base)
	for _, name := range customFields {
		defs = append(defs, FieldDefinition{
			Name:        name,
			Description: "Extract " + name,
			DataType:    TypeString,
		})
	}
	return defs
}

// DeclaredType looks up the declared data type of a field, defaulting to string.
func DeclaredType(defs []FieldDefinition, name string) string {
	for _, d := range defs {
		if d.Name == name {
			return d.DataType
		}
	}
	return TypeString
}
