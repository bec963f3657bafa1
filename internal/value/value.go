// Package value defines the closed set of attribute value variants that
// capabilities, requirements and services carry, the case-insensitive
// PropertyMap that holds them, and the per-variant coercion and comparison
// rules the filter evaluator relies on.
package value

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/hupe1980/capmatch/internal/semver"
)

// Kind identifies the variant held by a Value.
type Kind uint8

// Supported value kinds.
const (
	KindInvalid Kind = iota
	KindString
	KindBool
	KindChar
	KindInt8
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindBigInt
	KindDecimal
	KindVersion
	KindSeq
)

var kindNames = [...]string{
	KindInvalid: "invalid",
	KindString:  "string",
	KindBool:    "bool",
	KindChar:    "char",
	KindInt8:    "int8",
	KindInt16:   "int16",
	KindInt32:   "int32",
	KindInt64:   "int64",
	KindUint8:   "uint8",
	KindUint16:  "uint16",
	KindUint32:  "uint32",
	KindUint64:  "uint64",
	KindFloat32: "float32",
	KindFloat64: "float64",
	KindBigInt:  "bigint",
	KindDecimal: "decimal",
	KindVersion: "version",
	KindSeq:     "seq",
}

// String returns the lower-case kind name.
func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}

	return fmt.Sprintf("kind(%d)", uint8(k))
}

// IsSigned reports whether k is one of the signed integer kinds.
func (k Kind) IsSigned() bool {
	return k >= KindInt8 && k <= KindInt64
}

// IsUnsigned reports whether k is one of the unsigned integer kinds.
func (k Kind) IsUnsigned() bool {
	return k >= KindUint8 && k <= KindUint64
}

// bits returns the bit size of fixed-width numeric kinds.
func (k Kind) bits() int {
	switch k {
	case KindInt8, KindUint8:
		return 8
	case KindInt16, KindUint16:
		return 16
	case KindInt32, KindUint32, KindFloat32:
		return 32
	default:
		return 64
	}
}

// Value is an immutable tagged union over the supported kinds. The zero
// Value has KindInvalid.
type Value struct {
	kind Kind
	str  string
	r    rune
	b    bool
	i    int64
	u    uint64
	f    float64
	bi   *big.Int
	dec  decimal.Decimal
	ver  semver.Version
	seq  []Value
}

// String returns a KindString value.
func String(s string) Value { return Value{kind: KindString, str: s} }

// Bool returns a KindBool value.
func Bool(b bool) Value { return Value{kind: KindBool, b: b} }

// Char returns a KindChar value holding a single code point.
func Char(r rune) Value { return Value{kind: KindChar, r: r} }

// Int8 returns a KindInt8 value.
func Int8(i int8) Value { return Value{kind: KindInt8, i: int64(i)} }

// Int16 returns a KindInt16 value.
func Int16(i int16) Value { return Value{kind: KindInt16, i: int64(i)} }

// Int32 returns a KindInt32 value.
func Int32(i int32) Value { return Value{kind: KindInt32, i: int64(i)} }

// Int64 returns a KindInt64 value.
func Int64(i int64) Value { return Value{kind: KindInt64, i: i} }

// Uint8 returns a KindUint8 value.
func Uint8(u uint8) Value { return Value{kind: KindUint8, u: uint64(u)} }

// Uint16 returns a KindUint16 value.
func Uint16(u uint16) Value { return Value{kind: KindUint16, u: uint64(u)} }

// Uint32 returns a KindUint32 value.
func Uint32(u uint32) Value { return Value{kind: KindUint32, u: uint64(u)} }

// Uint64 returns a KindUint64 value.
func Uint64(u uint64) Value { return Value{kind: KindUint64, u: u} }

// Float32 returns a KindFloat32 value.
func Float32(f float32) Value { return Value{kind: KindFloat32, f: float64(f)} }

// Float64 returns a KindFloat64 value.
func Float64(f float64) Value { return Value{kind: KindFloat64, f: f} }

// BigInt returns a KindBigInt value holding a copy of i. A nil i is zero.
func BigInt(i *big.Int) Value {
	c := new(big.Int)
	if i != nil {
		c.Set(i)
	}

	return Value{kind: KindBigInt, bi: c}
}

// ParseBigInt parses a base-10 integer of arbitrary size.
func ParseBigInt(s string) (Value, error) {
	i, ok := new(big.Int).SetString(strings.TrimSpace(s), 10)
	if !ok {
		return Value{}, fmt.Errorf("parsing big integer %q: invalid syntax", s)
	}

	return Value{kind: KindBigInt, bi: i}, nil
}

// Decimal returns a KindDecimal value.
func Decimal(d decimal.Decimal) Value { return Value{kind: KindDecimal, dec: d} }

// ParseDecimal parses an arbitrary-precision decimal number.
func ParseDecimal(s string) (Value, error) {
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return Value{}, fmt.Errorf("parsing decimal %q: %w", s, err)
	}

	return Value{kind: KindDecimal, dec: d}, nil
}

// Version returns a KindVersion value.
func Version(v semver.Version) Value { return Value{kind: KindVersion, ver: v} }

// ParseVersion parses a semantic version value.
func ParseVersion(s string) (Value, error) {
	v, err := semver.ParseVersion(s)
	if err != nil {
		return Value{}, err
	}

	return Value{kind: KindVersion, ver: v}, nil
}

// Seq returns a KindSeq value over a copy of elems. All elements must share
// one scalar kind; nested sequences are rejected.
func Seq(elems ...Value) (Value, error) {
	out := make([]Value, len(elems))

	for i, e := range elems {
		if e.kind == KindInvalid || e.kind == KindSeq {
			return Value{}, fmt.Errorf("%w: element %d has kind %s", ErrHeterogeneousSeq, i, e.kind)
		}

		if i > 0 && e.kind != elems[0].kind {
			return Value{}, fmt.Errorf("%w: element %d is %s, expected %s", ErrHeterogeneousSeq, i, e.kind, elems[0].kind)
		}

		out[i] = e
	}

	return Value{kind: KindSeq, seq: out}, nil
}

// MustSeq is like Seq but panics on error.
func MustSeq(elems ...Value) Value {
	v, err := Seq(elems...)
	if err != nil {
		panic(err)
	}

	return v
}

// Strings returns a sequence of string values.
func Strings(ss ...string) Value {
	out := make([]Value, len(ss))
	for i, s := range ss {
		out[i] = String(s)
	}

	return Value{kind: KindSeq, seq: out}
}

// Int64s returns a sequence of int64 values.
func Int64s(is ...int64) Value {
	out := make([]Value, len(is))
	for i, n := range is {
		out[i] = Int64(n)
	}

	return Value{kind: KindSeq, seq: out}
}

// Kind returns the variant held by v.
func (v Value) Kind() Kind { return v.kind }

// IsValid reports whether v holds a variant.
func (v Value) IsValid() bool { return v.kind != KindInvalid }

// Len returns the number of elements of a sequence, 1 for scalars and 0 for
// the invalid value.
func (v Value) Len() int {
	switch v.kind {
	case KindInvalid:
		return 0
	case KindSeq:
		return len(v.seq)
	default:
		return 1
	}
}

// Elements returns a copy of the elements of a sequence, or nil for scalars.
func (v Value) Elements() []Value {
	if v.kind != KindSeq {
		return nil
	}

	out := make([]Value, len(v.seq))
	copy(out, v.seq)

	return out
}

// Native returns the value as a plain Go value suitable for JSON/YAML
// encoding. Big numbers, decimals and versions are rendered as strings.
func (v Value) Native() any {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return v.b
	case KindChar:
		return string(v.r)
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return v.i
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return v.u
	case KindFloat32, KindFloat64:
		return v.f
	case KindBigInt, KindDecimal, KindVersion:
		return v.String()
	case KindSeq:
		out := make([]any, len(v.seq))
		for i, e := range v.seq {
			out[i] = e.Native()
		}

		return out
	default:
		return nil
	}
}

// String returns the textual form of v. This is also the form used by
// substring matching.
func (v Value) String() string {
	switch v.kind {
	case KindString:
		return v.str
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindChar:
		return string(v.r)
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return strconv.FormatInt(v.i, 10)
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return strconv.FormatUint(v.u, 10)
	case KindFloat32, KindFloat64:
		return strconv.FormatFloat(v.f, 'g', -1, v.kind.bits())
	case KindBigInt:
		return v.bi.String()
	case KindDecimal:
		return v.dec.String()
	case KindVersion:
		return v.ver.String()
	case KindSeq:
		parts := make([]string, len(v.seq))
		for i, e := range v.seq {
			parts[i] = e.String()
		}

		return "[" + strings.Join(parts, ", ") + "]"
	default:
		return ""
	}
}
