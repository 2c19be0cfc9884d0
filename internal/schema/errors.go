package schema

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
)

// ValidationError holds every issue found in one set of arguments.
type ValidationError struct {
	Issues []string
}

func (e *ValidationError) Error() string {
	return "invalid arguments: " + strings.Join(e.Issues, "; ")
}

// checker accumulates issues while validating an input.
type checker struct {
	issues []string
}

func (c *checker) addf(format string, args ...any) {
	c.issues = append(c.issues, fmt.Sprintf(format, args...))
}

// exactlyOne requires exactly one of the two named fields to be present.
func (c *checker) exactlyOne(a string, hasA bool, b string, hasB bool) {
	if hasA == hasB {
		c.addf("Provide exactly one of %s or %s.", a, b)
	}
}

// atLeastOne requires at least one of the update fields to be present.
func (c *checker) atLeastOne(present ...bool) {
	for _, p := range present {
		if p {
			return
		}
	}
	c.addf("Provide at least one field to update.")
}

func (c *checker) err() error {
	if len(c.issues) == 0 {
		return nil
	}
	return &ValidationError{Issues: c.issues}
}

// notNull rejects an explicit null on a non-nullable optional field.
func notNull[T any](c *checker, name string, f Field[T]) {
	if f.IsNull() {
		c.addf("%s: expected %s, received null", name, typeName(reflect.TypeFor[T]()))
	}
}

// nonEmpty rejects null and "" on an optional string field.
func nonEmpty(c *checker, name string, f Field[string]) {
	notNull(c, name, f)
	if v, ok := f.Get(); ok && v == "" {
		c.addf("%s: must contain at least 1 character", name)
	}
}

func required(c *checker, name string, v string) {
	if v == "" {
		c.addf("%s: must contain at least 1 character", name)
	}
}

func checkDate(c *checker, name string, d Date) {
	if msg := d.check(); msg != "" {
		c.addf("%s: %s", name, msg)
	}
}

// decodeError turns encoding/json failures into a ValidationError.
func decodeError(err error) error {
	var typeErr *json.UnmarshalTypeError
	var syntaxErr *json.SyntaxError
	switch {
	case errors.As(err, &typeErr):
		field := typeErr.Field
		if field == "" {
			field = "arguments"
		}
		return &ValidationError{Issues: []string{
			fmt.Sprintf("%s: expected %s, received %s", field, typeName(typeErr.Type), typeErr.Value),
		}}
	case errors.As(err, &syntaxErr):
		return &ValidationError{Issues: []string{"arguments: malformed JSON"}}
	case strings.HasPrefix(err.Error(), "json: unknown field "):
		key := strings.TrimPrefix(err.Error(), "json: unknown field ")
		return &ValidationError{Issues: []string{"Unrecognized key: " + key}}
	default:
		return &ValidationError{Issues: []string{err.Error()}}
	}
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "value"
	}
	if t == reflect.TypeFor[Quantity]() {
		return "string or number"
	}
	switch t.Kind() {
	case reflect.String:
		return "string"
	case reflect.Bool:
		return "boolean"
	case reflect.Int, reflect.Int64, reflect.Float64:
		return "number"
	case reflect.Slice:
		return "array"
	case reflect.Struct, reflect.Map:
		return "object"
	default:
		return t.String()
	}
}
