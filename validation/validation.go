// Package validation collects field-level rule violations for request payloads.
package validation

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// Violations maps a JSON field name to a human-readable reason.
type Violations map[string]string

func (v Violations) Empty() bool { return len(v) == 0 }

// Add records reason for field unless the field already failed.
func (v Violations) Add(field, reason string) {
	if _, exists := v[field]; !exists {
		v[field] = reason
	}
}

// Has reports whether field already carries a violation.
func (v Violations) Has(field string) bool {
	_, ok := v[field]
	return ok
}

// Fields returns the violated field names in sorted order.
func (v Violations) Fields() []string {
	out := make([]string, 0, len(v))
	for f := range v {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

func (v Violations) Error() string {
	parts := make([]string, 0, len(v))
	for _, f := range v.Fields() {
		parts = append(parts, f+": "+v[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

// Validator returns the shared go-playground validator. Field errors are
// reported under the struct's json tag names.
func Validator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
			name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Struct runs the struct tag rules over s. Each failed field is reported with
// messages[field] when present, otherwise with a generic reason derived from
// the failed tag. Fields that already carry a violation are left untouched.
func Struct(s any, messages map[string]string, v Violations) error {
	err := Validator().Struct(s)
	if err == nil {
		return nil
	}
	fieldErrs, ok := err.(validator.ValidationErrors)
	if !ok {
		return fmt.Errorf("validate struct: %w", err)
	}
	for _, fe := range fieldErrs {
		field := fe.Field()
		if msg, ok := messages[field]; ok {
			v.Add(field, msg)
			continue
		}
		v.Add(field, genericReason(fe))
	}
	return nil
}

func genericReason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "Required"
	case "email":
		return "Invalid email"
	case "min", "gte":
		return "Must be at least " + fe.Param()
	case "oneof":
		return "Must be one of: " + fe.Param()
	}
	return "Invalid value"
}

// OutOfRange is reported for numbers a float64 cannot hold.
const OutOfRange = "Number is out of range"

// String reads a string field from a decoded JSON object. An absent optional
// field is fine; an explicit null never is.
func String(raw map[string]any, field string, required bool, v Violations) string {
	val, ok := raw[field]
	if !ok {
		if required {
			v.Add(field, "Required")
		}
		return ""
	}
	s, ok := val.(string)
	if !ok {
		v.Add(field, "Expected string, received "+jsonType(val))
		return ""
	}
	return s
}

// Number reads a numeric field from a decoded JSON object. Both float64 and
// json.Number representations are accepted.
func Number(raw map[string]any, field string, v Violations) float64 {
	val, ok := raw[field]
	if !ok {
		v.Add(field, "Required")
		return 0
	}
	var f float64
	switch n := val.(type) {
	case float64:
		f = n
	case interface{ Float64() (float64, error) }:
		parsed, err := n.Float64()
		if errors.Is(err, strconv.ErrRange) {
			v.Add(field, OutOfRange)
			return 0
		}
		if err != nil {
			v.Add(field, "Expected number, received string")
			return 0
		}
		f = parsed
	default:
		v.Add(field, "Expected number, received "+jsonType(val))
		return 0
	}
	switch {
	case math.IsNaN(f):
		v.Add(field, "Expected number, received nan")
		return 0
	case math.IsInf(f, 0):
		v.Add(field, OutOfRange)
		return 0
	}
	return f
}

// Integer reads a whole-number field. Non-integral numbers are rejected with
// notWhole.
func Integer(raw map[string]any, field, notWhole string, v Violations) int64 {
	f := Number(raw, field, v)
	if v.Has(field) {
		return 0
	}
	// float64(math.MaxInt64) rounds up to 2^63, which int64 cannot hold
	if f != math.Trunc(f) || f >= math.MaxInt64 || f < math.MinInt64 {
		v.Add(field, notWhole)
		return 0
	}
	return int64(f)
}

func jsonType(val any) string {
	switch val.(type) {
	case string:
		return "string"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	case nil:
		return "null"
	}
	if _, ok := val.(interface{ Float64() (float64, error) }); ok {
		return "number"
	}
	return fmt.Sprintf("%T", val)
}
