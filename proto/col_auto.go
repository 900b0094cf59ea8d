package proto

import "strconv"

// ParseColumn builds an empty Column codec for the given declared type
// string, recursively descending into parametric types exactly the way
// the type grammar nests (Array(Nullable(String)), and so on). It fails
// with a *MalformedError if the type string doesn't parse — the decoder
// must never silently fall back to a best-guess codec.
func ParseColumn(typ ColumnType) (Column, error) {
	base := typ.Base()
	args := typ.Args()

	switch base {
	case ColumnTypeInt8:
		return NewColInt8(), nil
	case ColumnTypeUInt8:
		return NewColUInt8(), nil
	case ColumnTypeInt16:
		return NewColInt16(), nil
	case ColumnTypeUInt16:
		return NewColUInt16(), nil
	case ColumnTypeInt32:
		return NewColInt32(), nil
	case ColumnTypeUInt32:
		return NewColUInt32(), nil
	case ColumnTypeInt64:
		return NewColInt64(), nil
	case ColumnTypeUInt64:
		return NewColUInt64(), nil
	case ColumnTypeFloat32:
		return NewColFloat32(), nil
	case ColumnTypeFloat64:
		return NewColFloat64(), nil
	case ColumnTypeString:
		return NewColStr(), nil

	case ColumnTypeFixedString:
		n, err := strconv.Atoi(args)
		if err != nil || n < 0 {
			return nil, Malformed("bad FixedString length: " + args)
		}
		return NewColFixedStr(n), nil

	case ColumnTypeDate:
		return NewColDate(), nil
	case ColumnTypeDateTime:
		return NewColDateTime(typ), nil
	case ColumnTypeDateTime64:
		return NewColDateTime64(typ), nil

	case ColumnTypeDecimal32, ColumnTypeDecimal64, ColumnTypeDecimal128:
		p := ParseDecimalPrecision(base, args)
		return NewColDecimal(typ, p), nil

	case "Decimal":
		parts := SplitArgs(args)
		if len(parts) == 0 {
			return nil, Malformed("missing Decimal precision: " + string(typ))
		}
		if p, err := strconv.Atoi(parts[0]); err != nil || p < 1 || p > 38 {
			return nil, Malformed("bad Decimal precision: " + string(typ))
		}
		p := ParseDecimalPrecision(base, args)
		return NewColDecimal(typ, p), nil

	case ColumnTypeEnum8:
		return NewColEnum8(typ), nil
	case ColumnTypeEnum16:
		return NewColEnum16(typ), nil

	case ColumnTypeNullable:
		inner, err := ParseColumn(ColumnType(args))
		if err != nil {
			return nil, err
		}
		return NewColNullable(inner), nil

	case ColumnTypeArray:
		inner, err := ParseColumn(ColumnType(args))
		if err != nil {
			return nil, err
		}
		return NewColArray(inner), nil

	case ColumnTypeLowCardinality:
		dict, err := ParseColumn(ColumnType(args))
		if err != nil {
			return nil, err
		}
		return NewColLowCardinality(dict), nil

	case ColumnTypeTuple:
		parts := SplitArgs(args)
		elems := make([]Column, 0, len(parts))
		for _, p := range parts {
			e, err := ParseColumn(ColumnType(p))
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		return NewColTuple(elems...), nil

	default:
		return nil, Malformed("unknown column type: " + string(typ))
	}
}
