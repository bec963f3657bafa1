package value

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hupe1980/capmatch/internal/semver"
)

// FromAny converts a plain Go value into a Value. Untyped decoder output maps
// as follows: int and int64 to Int64, float64 to Float64, []any to Seq.
func FromAny(x any) (Value, error) {
	switch v := x.(type) {
	case Value:
		return v, nil
	case string:
		return String(v), nil
	case bool:
		return Bool(v), nil
	case int:
		return Int64(int64(v)), nil
	case int8:
		return Int8(v), nil
	case int16:
		return Int16(v), nil
	case int32:
		return Int32(v), nil
	case int64:
		return Int64(v), nil
	case uint:
		return Uint64(uint64(v)), nil
	case uint8:
		return Uint8(v), nil
	case uint16:
		return Uint16(v), nil
	case uint32:
		return Uint32(v), nil
	case uint64:
		return Uint64(v), nil
	case float32:
		return Float32(v), nil
	case float64:
		return Float64(v), nil
	case *big.Int:
		return BigInt(v), nil
	case decimal.Decimal:
		return Decimal(v), nil
	case semver.Version:
		return Version(v), nil
	case []string:
		return Strings(v...), nil
	case []int64:
		return Int64s(v...), nil
	case []any:
		elems := make([]Value, len(v))

		for i, e := range v {
			ev, err := FromAny(e)
			if err != nil {
				return Value{}, fmt.Errorf("element %d: %w", i, err)
			}

			elems[i] = ev
		}

		return Seq(elems...)
	default:
		return Value{}, fmt.Errorf("%w: %T", ErrUnsupportedType, x)
	}
}

// scalarTypes maps declared attribute type names to value kinds. Names are
// matched case-insensitively.
var scalarTypes = map[string]Kind{
	"string":     KindString,
	"version":    KindVersion,
	"boolean":    KindBool,
	"bool":       KindBool,
	"char":       KindChar,
	"character":  KindChar,
	"byte":       KindInt8,
	"short":      KindInt16,
	"int":        KindInt32,
	"integer":    KindInt32,
	"long":       KindInt64,
	"float":      KindFloat32,
	"double":     KindFloat64,
	"biginteger": KindBigInt,
	"bigdecimal": KindDecimal,
}

// TypeNames returns the canonical scalar type names accepted by ParseTyped.
// Each may also appear as a List<T> element type.
func TypeNames() []string {
	return []string{
		"String", "Version", "Boolean", "Char", "Byte", "Short",
		"Integer", "Long", "Float", "Double", "BigInteger", "BigDecimal",
	}
}

// ParseTyped converts raw text into a Value of a declared attribute type such
// as "Long", "Version" or "List<String>". List elements are separated by
// commas; a backslash escapes a literal comma. An empty type name means
// String.
func ParseTyped(typeName, raw string) (Value, error) {
	t := strings.TrimSpace(typeName)
	if t == "" {
		return String(raw), nil
	}

	if elem, ok := listElementType(t); ok {
		kind, known := scalarTypes[strings.ToLower(elem)]
		if !known {
			return Value{}, fmt.Errorf("%w: %q", ErrUnsupportedType, typeName)
		}

		parts := splitList(raw)
		elems := make([]Value, 0, len(parts))

		for _, p := range parts {
			if kind != KindString {
				p = strings.TrimSpace(p)
			}

			v, err := parseScalar(kind, p)
			if err != nil {
				return Value{}, err
			}

			elems = append(elems, v)
		}

		return Value{kind: KindSeq, seq: elems}, nil
	}

	kind, ok := scalarTypes[strings.ToLower(t)]
	if !ok {
		return Value{}, fmt.Errorf("%w: %q", ErrUnsupportedType, typeName)
	}

	return parseScalar(kind, raw)
}

func parseScalar(kind Kind, raw string) (Value, error) {
	v, ok := Coerce(kind, raw)
	if !ok {
		return Value{}, fmt.Errorf("parsing %q as %s: %w", raw, kind, strconv.ErrSyntax)
	}

	return v, nil
}

// listElementType extracts T from "List<T>". A bare "List" means strings.
func listElementType(t string) (string, bool) {
	lower := strings.ToLower(t)
	if lower == "list" {
		return "String", true
	}

	if strings.HasPrefix(lower, "list<") && strings.HasSuffix(lower, ">") {
		return strings.TrimSpace(t[len("list<") : len(t)-1]), true
	}

	return "", false
}

// splitList splits on unescaped commas. An empty input yields no elements.
func splitList(raw string) []string {
	if raw == "" {
		return nil
	}

	var (
		parts   []string
		current strings.Builder
		escaped bool
	)

	for _, r := range raw {
		switch {
		case escaped:
			current.WriteRune(r)

			escaped = false
		case r == '\\':
			escaped = true
		case r == ',':
			parts = append(parts, current.String())
			current.Reset()
		default:
			current.WriteRune(r)
		}
	}

	return append(parts, current.String())
}
