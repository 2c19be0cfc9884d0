package schema

import (
	"bytes"
	"encoding/json"
	"reflect"
	"regexp"
	"strconv"
	"time"
)

// Quantity accepts a JSON string or number and keeps its string form.
type Quantity string

func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*q = Quantity(s)
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return &json.UnmarshalTypeError{Value: jsonKind(data), Type: reflect.TypeFor[Quantity]()}
	}
	*q = Quantity(strconv.FormatFloat(n, 'f', -1, 64))
	return nil
}

// String returns the quantity text.
func (q Quantity) String() string { return string(q) }

const dateLayout = "2006-01-02"

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// Date is a calendar date in YYYY-MM-DD form. It is checked by Validate
// rather than during decoding so errors can name the field.
type Date string

// Time returns the date as midnight UTC. Call only on validated dates.
func (d Date) Time() time.Time {
	t, _ := time.Parse(dateLayout, string(d))
	return t
}

func (d Date) check() string {
	if !datePattern.MatchString(string(d)) {
		return "Must be in YYYY-MM-DD format."
	}
	if _, err := time.Parse(dateLayout, string(d)); err != nil {
		return "Invalid date."
	}
	return ""
}

// FormatDate renders t as YYYY-MM-DD in UTC.
func FormatDate(t time.Time) string {
	return t.UTC().Format(dateLayout)
}

func jsonKind(data []byte) string {
	if len(data) == 0 {
		return "empty"
	}
	switch data[0] {
	case '{':
		return "object"
	case '[':
		return "array"
	case 't', 'f':
		return "boolean"
	case 'n':
		return "null"
	case '"':
		return "string"
	default:
		return "number"
	}
}
