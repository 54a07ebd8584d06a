package table

import (
	"math"
	"strconv"
	"strings"
)

// Type is the declared scalar type of a column
type Type uint8

const (
	TypeString Type = iota
	TypeInt
	TypeFloat
	TypeBool
)

// String returns the type name used in logs and configuration
func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeBool:
		return "bool"
	default:
		return "string"
	}
}

// ParseType maps a type name to a Type
func ParseType(name string) (Type, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "int", "int64", "integer":
		return TypeInt, true
	case "float", "float64", "real", "double":
		return TypeFloat, true
	case "bool", "boolean":
		return TypeBool, true
	case "string", "str", "text":
		return TypeString, true
	}
	return TypeString, false
}

// Value is a nullable scalar cell. The zero Value is null.
type Value struct {
	valid bool
	typ   Type
	s     string
	i     int64
	f     float64
	b     bool
}

// Null returns the missing value
func Null() Value { return Value{} }

// Str returns a text value
func Str(s string) Value { return Value{valid: true, typ: TypeString, s: s} }

// Int returns an integer value
func Int(i int64) Value { return Value{valid: true, typ: TypeInt, i: i} }

// Float returns a float value; NaN is treated as missing
func Float(f float64) Value {
	if math.IsNaN(f) {
		return Null()
	}
	return Value{valid: true, typ: TypeFloat, f: f}
}

// Bool returns a boolean value
func Bool(b bool) Value { return Value{valid: true, typ: TypeBool, b: b} }

// FromAny converts a database/sql driver value into a Value
func FromAny(x any) Value {
	switch v := x.(type) {
	case nil:
		return Null()
	case int64:
		return Int(v)
	case int:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case float64:
		return Float(v)
	case float32:
		return Float(float64(v))
	case bool:
		return Bool(v)
	case string:
		return Str(v)
	case []byte:
		return Str(string(v))
	case Value:
		return v
	default:
		return Null()
	}
}

// IsNull reports whether the value is missing
func (v Value) IsNull() bool { return !v.valid }

// Type returns the scalar type; meaningless for null values
func (v Value) Type() Type { return v.typ }

// Text returns the string payload of a text value
func (v Value) Text() (string, bool) {
	if !v.valid || v.typ != TypeString {
		return "", false
	}
	return v.s, true
}

// Int64 returns the value as an integer when it is one, or an integral float
func (v Value) Int64() (int64, bool) {
	if !v.valid {
		return 0, false
	}
	switch v.typ {
	case TypeInt:
		return v.i, true
	case TypeFloat:
		if v.f == math.Trunc(v.f) && v.f >= math.MinInt64 && v.f < math.MaxInt64 {
			return int64(v.f), true
		}
	}
	return 0, false
}

// Float64 returns the value as a float for numeric values
func (v Value) Float64() (float64, bool) {
	if !v.valid {
		return 0, false
	}
	switch v.typ {
	case TypeInt:
		return float64(v.i), true
	case TypeFloat:
		return v.f, true
	}
	return 0, false
}

// Boolean returns the payload of a bool value
func (v Value) Boolean() (bool, bool) {
	if !v.valid || v.typ != TypeBool {
		return false, false
	}
	return v.b, true
}

// IsNumeric reports whether the value is a non-null int or float
func (v Value) IsNumeric() bool {
	return v.valid && (v.typ == TypeInt || v.typ == TypeFloat)
}

// String renders the value the way it is written to CSV: nulls are empty,
// floats always carry a decimal point and booleans are True/False.
func (v Value) String() string {
	if !v.valid {
		return ""
	}
	switch v.typ {
	case TypeInt:
		return strconv.FormatInt(v.i, 10)
	case TypeFloat:
		return formatFloat(v.f)
	case TypeBool:
		if v.b {
			return "True"
		}
		return "False"
	default:
		return v.s
	}
}

func formatFloat(f float64) string {
	switch {
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// Key returns a canonical form used for equality, hashing and grouping.
// Numbers compare by magnitude so Int(1) and Float(1.0) share a key.
func (v Value) Key() string {
	if !v.valid {
		return "\x00"
	}
	switch v.typ {
	case TypeInt:
		return "n:" + strconv.FormatInt(v.i, 10)
	case TypeFloat:
		if i, ok := v.Int64(); ok {
			return "n:" + strconv.FormatInt(i, 10)
		}
		return "n:" + strconv.FormatFloat(v.f, 'g', -1, 64)
	case TypeBool:
		if v.b {
			return "b:1"
		}
		return "b:0"
	default:
		return "s:" + v.s
	}
}

// Equal reports whether two values share a key
func (v Value) Equal(o Value) bool {
	return v.Key() == o.Key()
}

// Convert attempts to represent v as type t. Nulls convert to null.
// Float to int truncates toward zero.
func Convert(v Value, t Type) (Value, bool) {
	if !v.valid || v.typ == t {
		return v, true
	}
	switch t {
	case TypeString:
		return Str(v.String()), true
	case TypeInt:
		switch v.typ {
		case TypeFloat:
			if math.IsInf(v.f, 0) || v.f < math.MinInt64 || v.f >= math.MaxInt64 {
				return v, false
			}
			return Int(int64(v.f)), true
		case TypeBool:
			if v.b {
				return Int(1), true
			}
			return Int(0), true
		case TypeString:
			i, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
			if err != nil {
				return v, false
			}
			return Int(i), true
		}
	case TypeFloat:
		switch v.typ {
		case TypeInt:
			return Float(float64(v.i)), true
		case TypeBool:
			if v.b {
				return Float(1), true
			}
			return Float(0), true
		case TypeString:
			f, ok := parseFloat(v.s)
			if !ok {
				return v, false
			}
			return Float(f), true
		}
	case TypeBool:
		switch v.typ {
		case TypeInt:
			return Bool(v.i != 0), true
		case TypeFloat:
			return Bool(v.f != 0), true
		case TypeString:
			b, ok := parseBool(v.s)
			if !ok {
				return v, false
			}
			return Bool(b), true
		}
	}
	return v, false
}

// ToNumber coerces a value to a float, turning anything unparseable into null
func ToNumber(v Value) Value {
	if !v.valid {
		return v
	}
	switch v.typ {
	case TypeInt:
		return Float(float64(v.i))
	case TypeFloat:
		return v
	case TypeString:
		if f, ok := parseFloat(v.s); ok {
			return Float(f)
		}
	}
	return Null()
}

func parseFloat(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

func parseInt(s string) (int64, bool) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	return i, err == nil
}

func parseBool(s string) (bool, bool) {
	switch strings.TrimSpace(s) {
	case "True", "true", "TRUE":
		return true, true
	case "False", "false", "FALSE":
		return false, true
	}
	return false, false
}

// naTokens are the cell contents read as missing
var naTokens = map[string]struct{}{
	"": {}, "#N/A": {}, "#N/A N/A": {}, "#NA": {}, "-1.#IND": {}, "-1.#QNAN": {},
	"-NaN": {}, "-nan": {}, "1.#IND": {}, "1.#QNAN": {}, "<NA>": {}, "N/A": {},
	"NA": {}, "NULL": {}, "NaN": {}, "None": {}, "n/a": {}, "nan": {}, "null": {},
}

// IsNAToken reports whether raw cell text denotes a missing value
func IsNAToken(s string) bool {
	_, ok := naTokens[s]
	return ok
}
