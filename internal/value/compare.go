package value

import (
	"cmp"
	"math"
	"math/big"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"github.com/hupe1980/capmatch/internal/semver"
)

// Coerce converts operand text into a Value of the given kind. It is total:
// text that cannot be represented in kind yields ok == false instead of an
// error. Sequences and the invalid kind are never coercion targets.
func Coerce(kind Kind, text string) (Value, bool) {
	switch kind {
	case KindString:
		return String(text), true
	case KindBool:
		t := strings.TrimSpace(text)
		switch {
		case strings.EqualFold(t, "true"):
			return Bool(true), true
		case strings.EqualFold(t, "false"):
			return Bool(false), true
		default:
			return Value{}, false
		}
	case KindChar:
		if utf8.RuneCountInString(text) != 1 {
			text = strings.TrimSpace(text)
		}

		if utf8.RuneCountInString(text) != 1 {
			return Value{}, false
		}

		r, _ := utf8.DecodeRuneInString(text)

		return Char(r), true
	case KindInt8, KindInt16, KindInt32, KindInt64:
		i, err := strconv.ParseInt(strings.TrimSpace(text), 10, kind.bits())
		if err != nil {
			return Value{}, false
		}

		return Value{kind: kind, i: i}, true
	case KindUint8, KindUint16, KindUint32, KindUint64:
		u, err := strconv.ParseUint(strings.TrimSpace(text), 10, kind.bits())
		if err != nil {
			return Value{}, false
		}

		return Value{kind: kind, u: u}, true
	case KindFloat32, KindFloat64:
		f, err := strconv.ParseFloat(strings.TrimSpace(text), kind.bits())
		if err != nil {
			return Value{}, false
		}

		return Value{kind: kind, f: f}, true
	case KindBigInt:
		i, ok := new(big.Int).SetString(strings.TrimSpace(text), 10)
		if !ok {
			return Value{}, false
		}

		return Value{kind: KindBigInt, bi: i}, true
	case KindDecimal:
		d, err := decimal.NewFromString(strings.TrimSpace(text))
		if err != nil {
			return Value{}, false
		}

		return Value{kind: KindDecimal, dec: d}, true
	case KindVersion:
		v, err := semver.ParseVersion(text)
		if err != nil {
			return Value{}, false
		}

		return Value{kind: KindVersion, ver: v}, true
	default:
		return Value{}, false
	}
}

// Compare orders two scalar values of the same kind. ok is false when the
// kinds differ, either side is a sequence, or the pair is unordered (NaN, or
// booleans that are not equal).
func Compare(a, b Value) (c int, ok bool) {
	if a.kind != b.kind {
		return 0, false
	}

	switch a.kind {
	case KindString:
		return strings.Compare(a.str, b.str), true
	case KindBool:
		if a.b == b.b {
			return 0, true
		}

		return 0, false
	case KindChar:
		return cmp.Compare(a.r, b.r), true
	case KindInt8, KindInt16, KindInt32, KindInt64:
		return cmp.Compare(a.i, b.i), true
	case KindUint8, KindUint16, KindUint32, KindUint64:
		return cmp.Compare(a.u, b.u), true
	case KindFloat32, KindFloat64:
		if math.IsNaN(a.f) || math.IsNaN(b.f) {
			return 0, false
		}

		return cmp.Compare(a.f, b.f), true
	case KindBigInt:
		return a.bi.Cmp(b.bi), true
	case KindDecimal:
		return a.dec.Cmp(b.dec), true
	case KindVersion:
		return semver.Compare(a.ver, b.ver), true
	default:
		return 0, false
	}
}

// Equal reports whether a and b are the same kind and compare equal.
// Sequences are equal when they have equal elements in the same order.
func Equal(a, b Value) bool {
	if a.kind == KindSeq && b.kind == KindSeq {
		if len(a.seq) != len(b.seq) {
			return false
		}

		for i := range a.seq {
			if !Equal(a.seq[i], b.seq[i]) {
				return false
			}
		}

		return true
	}

	c, ok := Compare(a, b)

	return ok && c == 0
}

// ApproxEqual is the weak equality used by the "~=" operator. Strings are
// compared case-insensitively after collapsing whitespace runs to a single
// space; characters case-insensitively; every other kind falls
// back to Equal. ApproxEqual is never stricter than Equal.
func ApproxEqual(a, b Value) bool {
	if a.kind != b.kind {
		return false
	}

	switch a.kind {
	case KindString:
		return strings.EqualFold(NormalizeSpace(a.str), NormalizeSpace(b.str))
	case KindChar:
		return unicode.ToLower(a.r) == unicode.ToLower(b.r)
	default:
		return Equal(a, b)
	}
}

// NormalizeSpace trims s and collapses every run of white space to a single
// space character.
func NormalizeSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
