package schema

import (
	"fmt"
	"strings"

	"github.com/docupull/pdf2excel/constants"
)

// BuildExtractionPrompt composes the instruction given to the extraction
// provider: the field list with descriptions and types, the output-format
// constraints (ISO dates, bare numbers, null for missing), and a JSON-only
// example block.
func BuildExtractionPrompt(docType constants.DocumentType, defs []FieldDefinition) string {
	var fields strings.Builder
	for _, d := range defs {
		req := "optional"
		if d.Required {
			req = "required"
		}
		fmt.Fprintf(&fields, "- %s: %s (type: %s, %s)\n", d.Name, d.Description, d.DataType, req)
	}

	return fmt.Sprintf(`You are a document data extraction specialist. Extract the following information from this %s.

FIELDS TO EXTRACT:
%s
INSTRUCTIONS:
1. Carefully analyze the entire document
2. Extract each field value accurately
3. If a field is not found or unclear, use null
4. For dates, use ISO format (YYYY-MM-DD)
5. For numbers, extract numeric values only (no currency symbols)
6. Be precise and verify extracted data

Return the data as a JSON object with the field names as keys.
Example format:
{
    "field_name_1": "value",
    "field_name_2": 123.45,
    "field_name_3": "2024-01-15",
    "field_name_4": null
}

Only return the JSON object, no additional text or explanation.`, docType, fields.String())
}
