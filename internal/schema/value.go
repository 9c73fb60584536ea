package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ValueKind tags the runtime type of an extracted field value.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindString
	KindNumber
	KindDate
)

// FieldValue is the tagged variant carried through consolidation and export.
// Provider output arrives as untyped JSON; CoerceValue converts it against the
// declared FieldDefinition type.
type FieldValue struct {
	Kind ValueKind
	Str  string
	Num  float64
	Date time.Time
}

func Null() FieldValue                 { return FieldValue{Kind: KindNull} }
func String(s string) FieldValue      { return FieldValue{Kind: KindString, Str: s} }
func Number(n float64) FieldValue     { return FieldValue{Kind: KindNumber, Num: n} }
func DateOf(t time.Time) FieldValue   { return FieldValue{Kind: KindDate, Date: t} }
func (v FieldValue) IsNull() bool     { return v.Kind == KindNull }
func (v FieldValue) IsNumber() bool   { return v.Kind == KindNumber }
func (v FieldValue) IsDate() bool     { return v.Kind == KindDate }

// Display renders the value the way it should appear in a spreadsheet cell.
// Dates always carry the clock, midnight included, so every date cell in a
// column shares one format.
func (v FieldValue) Display() string {
	switch v.Kind {
	case KindNull:
		return ""
	case KindString:
		return v.Str
	case KindNumber:
		return strconv.FormatFloat(v.Num, 'f', -1, 64)
	case KindDate:
		return v.Date.Format("2006-01-02 15:04:05")
	}
	return ""
}

// MarshalJSON emits null, a JSON string, a JSON number, or an ISO date string.
func (v FieldValue) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindNull:
		return []byte("null"), nil
	case KindString:
		return json.Marshal(v.Str)
	case KindNumber:
		return json.Marshal(v.Num)
	case KindDate:
		return json.Marshal(v.Display())
	}
	return nil, fmt.Errorf("unknown value kind %d", v.Kind)
}

// UnmarshalJSON re-hydrates a stored value; dates come back as strings and are
// re-detected, which is lossless for the ISO forms Display emits.
func (v *FieldValue) UnmarshalJSON(b []byte) error {
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	switch t := raw.(type) {
	case nil:
		*v = Null()
	case float64:
		*v = Number(t)
	case bool:
		*v = String(strconv.FormatBool(t))
	case string:
		if d, ok := parseDate(t); ok {
			*v = DateOf(d)
		} else {
			*v = String(t)
		}
	default:
		return fmt.Errorf("unsupported value type %T", raw)
	}
	return nil
}

// CoerceValue converts an untyped JSON value against the declared data type.
// Unparsable declared numbers/dates degrade to strings rather than erroring:
// a wrong-typed value is still worth showing in the table.
func CoerceValue(raw any, dataType string) FieldValue {
	if raw == nil {
		return Null()
	}
	switch dataType {
	case TypeNumber:
		switch t := raw.(type) {
		case float64:
			return Number(t)
		case string:
			s := strings.TrimSpace(t)
			if s == "" {
				return Null()
			}
			if f, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", ""), 64); err == nil {
				return Number(f)
			}
			return String(t)
		}
	case TypeDate:
		if s, ok := raw.(string); ok {
			if d, ok := parseDate(strings.TrimSpace(s)); ok {
				return DateOf(d)
			}
			return String(s)
		}
	}
	switch t := raw.(type) {
	case string:
		return String(t)
	case float64:
		return Number(t)
	case bool:
		return String(strconv.FormatBool(t))
	default:
		b, err := json.Marshal(t)
		if err != nil {
			return String(fmt.Sprintf("%v", t))
		}
		return String(string(b))
	}
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

func parseDate(s string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
