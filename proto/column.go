package proto

import "strings"

// ColumnType is a ClickHouse type-grammar string such as "UInt64",
// "Array(Nullable(String))" or "DateTime('UTC')". It is the sole
// discriminator the block decoder uses to pick a concrete column codec;
// there is no separate type-tag byte on the wire.
type ColumnType string

// Scalar column type names.
const (
	ColumnTypeNone     ColumnType = ""
	ColumnTypeInt8     ColumnType = "Int8"
	ColumnTypeInt16    ColumnType = "Int16"
	ColumnTypeInt32    ColumnType = "Int32"
	ColumnTypeInt64    ColumnType = "Int64"
	ColumnTypeUInt8    ColumnType = "UInt8"
	ColumnTypeUInt16   ColumnType = "UInt16"
	ColumnTypeUInt32   ColumnType = "UInt32"
	ColumnTypeUInt64   ColumnType = "UInt64"
	ColumnTypeFloat32  ColumnType = "Float32"
	ColumnTypeFloat64  ColumnType = "Float64"
	ColumnTypeString   ColumnType = "String"

	ColumnTypeFixedString ColumnType = "FixedString"
	ColumnTypeDate        ColumnType = "Date"
	ColumnTypeDateTime    ColumnType = "DateTime"
	ColumnTypeDateTime64  ColumnType = "DateTime64"
	ColumnTypeDecimal32   ColumnType = "Decimal32"
	ColumnTypeDecimal64   ColumnType = "Decimal64"
	ColumnTypeDecimal128  ColumnType = "Decimal128"
	ColumnTypeEnum8       ColumnType = "Enum8"
	ColumnTypeEnum16      ColumnType = "Enum16"

	ColumnTypeNullable       ColumnType = "Nullable"
	ColumnTypeArray          ColumnType = "Array"
	ColumnTypeLowCardinality ColumnType = "LowCardinality"
	ColumnTypeTuple          ColumnType = "Tuple"
)

// Base returns the part of the type string before the first '(', or the
// whole string if there is none. For "Array(String)" that's "Array".
func (c ColumnType) Base() ColumnType {
	if i := strings.IndexByte(string(c), '('); i >= 0 {
		return c[:i]
	}
	return c
}

// Args returns the text between the outermost matching parens, or ""
// if c carries no parameters.
func (c ColumnType) Args() string {
	s := string(c)
	i := strings.IndexByte(s, '(')
	if i < 0 || s[len(s)-1] != ')' {
		return ""
	}
	return s[i+1 : len(s)-1]
}

// Array wraps c as Array(c).
func (c ColumnType) Array() ColumnType {
	return ColumnType("Array(" + string(c) + ")")
}

// IsArray reports whether c's base is Array.
func (c ColumnType) IsArray() bool {
	return c.Base() == ColumnTypeArray
}

// Elem returns the element type of a single-argument parametric type
// (Array(T), Nullable(T), LowCardinality(T)). For anything else it
// returns ColumnTypeNone.
func (c ColumnType) Elem() ColumnType {
	switch c.Base() {
	case ColumnTypeArray, ColumnTypeNullable, ColumnTypeLowCardinality:
		return ColumnType(c.Args())
	default:
		return ColumnTypeNone
	}
}

// Sub builds Base()(inner) — e.g. ColumnTypeNullable.Sub(ColumnTypeUInt64)
// yields "Nullable(UInt64)".
func (c ColumnType) Sub(inner ColumnType) ColumnType {
	return ColumnType(string(c.Base()) + "(" + string(inner) + ")")
}

// With builds Base()('arg') — e.g. ColumnTypeDateTime.With("UTC") yields
// "DateTime('UTC')".
func (c ColumnType) With(arg string) ColumnType {
	return ColumnType(string(c.Base()) + "('" + arg + "')")
}

// Conflicts reports whether a column declared as c cannot be carried by
// a codec built for v: differing bases (modulo the Enum8/Int8 and
// Enum16/Int16 backing-width equivalence), or recursively conflicting
// element types for container types. Parameters that are metadata only
// (a DateTime timezone, Enum label maps, Decimal scale) never conflict.
// The block decoder uses this to check the rebuilt codec's declared
// type against the type string it was parsed from.
func (c ColumnType) Conflicts(v ColumnType) bool {
	if c == v {
		return false
	}
	a, b := c.Base(), v.Base()
	if isDecimal(a) && isDecimal(b) {
		return DecimalWidth(ParseDecimalPrecision(a, c.Args())) !=
			DecimalWidth(ParseDecimalPrecision(b, v.Args()))
	}
	if a != b {
		if w := backingWidth(a); w != ColumnTypeNone && w == backingWidth(b) {
			return false
		}
		return true
	}
	switch a {
	case ColumnTypeArray, ColumnTypeNullable, ColumnTypeLowCardinality:
		return c.Elem().Conflicts(v.Elem())
	case ColumnTypeTuple, "Map":
		as, bs := SplitArgs(c.Args()), SplitArgs(v.Args())
		if len(as) != len(bs) {
			return true
		}
		for i := range as {
			if ColumnType(as[i]).Conflicts(ColumnType(bs[i])) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func isDecimal(base ColumnType) bool {
	switch base {
	case "Decimal", ColumnTypeDecimal32, ColumnTypeDecimal64, ColumnTypeDecimal128:
		return true
	}
	return false
}

// backingWidth maps an enum type to its backing integer so that Enum8
// and Int8 (likewise Enum16/Int16) are interchangeable on the wire.
func backingWidth(c ColumnType) ColumnType {
	switch c {
	case ColumnTypeEnum8, ColumnTypeInt8:
		return ColumnTypeInt8
	case ColumnTypeEnum16, ColumnTypeInt16:
		return ColumnTypeInt16
	}
	return ColumnTypeNone
}

// SplitArgs splits a comma-separated argument list at top level only,
// respecting nested parens (needed for Tuple(Array(String), UInt8) and
// similar compound parameters).
func SplitArgs(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	out = append(out, strings.TrimSpace(s[start:]))
	return out
}
