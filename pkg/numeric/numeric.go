// Package numeric centralizes the exact-integer coercion used at every
// boundary that carries an on-chain amount: request bodies, transaction
// values, and fee calculations. The invariant it guards is that no
// floating-point intermediate ever represents an amount.
package numeric

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// ParseBig converts any supported amount representation into an exact
// non-negative big integer. Supported forms: Go integer types, *big.Int,
// json.Number, and strings in plain decimal, 0x-prefixed hex, or scientific
// notation ("1.5e18"). Fractional results and negative values are rejected.
func ParseBig(v any) (*big.Int, error) {
	switch n := v.(type) {
	case nil:
		return nil, fmt.Errorf("amount is nil")
	case *big.Int:
		if n == nil {
			return nil, fmt.Errorf("amount is nil")
		}
		return checkSign(new(big.Int).Set(n))
	case big.Int:
		return checkSign(new(big.Int).Set(&n))
	case string:
		return parseString(n)
	case json.Number:
		return parseString(n.String())
	case int:
		return checkSign(big.NewInt(int64(n)))
	case int8:
		return checkSign(big.NewInt(int64(n)))
	case int16:
		return checkSign(big.NewInt(int64(n)))
	case int32:
		return checkSign(big.NewInt(int64(n)))
	case int64:
		return checkSign(big.NewInt(n))
	case uint:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint8:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint16:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint32:
		return new(big.Int).SetUint64(uint64(n)), nil
	case uint64:
		return new(big.Int).SetUint64(n), nil
	case float32:
		return parseFloat(float64(n))
	case float64:
		return parseFloat(n)
	default:
		return nil, fmt.Errorf("unsupported amount type %T", v)
	}
}

// Normalize converts any supported amount representation into a plain
// base-10 integer string, with no sign, no hex prefix, and no exponent.
func Normalize(v any) (string, error) {
	b, err := ParseBig(v)
	if err != nil {
		return "", err
	}
	return b.String(), nil
}

func checkSign(b *big.Int) (*big.Int, error) {
	if b.Sign() < 0 {
		return nil, fmt.Errorf("negative amount %s", b.String())
	}
	return b, nil
}

func parseString(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty amount")
	}
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		b, ok := new(big.Int).SetString(s[2:], 16)
		if !ok {
			return nil, fmt.Errorf("invalid hex amount %q", s)
		}
		return checkSign(b)
	}
	if i := strings.IndexAny(s, "eE"); i >= 0 {
		return parseScientific(s[:i], s[i+1:])
	}
	if strings.Contains(s, ".") {
		return parseScientific(s, "0")
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid decimal amount %q", s)
	}
	return checkSign(b)
}

// parseScientific expands mantissa*10^exp exactly, failing if the result is
// not an integer.
func parseScientific(mantissa, exp string) (*big.Int, error) {
	e, ok := new(big.Int).SetString(strings.TrimPrefix(exp, "+"), 10)
	if !ok {
		return nil, fmt.Errorf("invalid exponent %q", exp)
	}

	// Fold the mantissa's fractional digits into the exponent.
	scale := int64(0)
	if i := strings.Index(mantissa, "."); i >= 0 {
		frac := mantissa[i+1:]
		mantissa = mantissa[:i] + frac
		scale = int64(len(frac))
	}
	m, ok := new(big.Int).SetString(mantissa, 10)
	if !ok {
		return nil, fmt.Errorf("invalid mantissa %q", mantissa)
	}
	e.Sub(e, big.NewInt(scale))

	if e.Sign() < 0 {
		// Allow trailing zeros to cancel a negative exponent; anything else
		// is a fractional amount.
		down := new(big.Int).Neg(e)
		if !down.IsInt64() {
			return nil, fmt.Errorf("amount %se%s is not an integer", mantissa, exp)
		}
		div := new(big.Int).Exp(big.NewInt(10), down, nil)
		q, r := new(big.Int).QuoRem(m, div, new(big.Int))
		if r.Sign() != 0 {
			return nil, fmt.Errorf("amount %se%s is not an integer", mantissa, exp)
		}
		return checkSign(q)
	}
	if !e.IsInt64() || e.Int64() > 10000 {
		return nil, fmt.Errorf("exponent %s out of range", e.String())
	}
	m.Mul(m, new(big.Int).Exp(big.NewInt(10), e, nil))
	return checkSign(m)
}

// parseFloat accepts a float only when it is integral and small enough to be
// represented exactly; amounts should arrive as strings or big integers.
func parseFloat(f float64) (*big.Int, error) {
	if f != f || f < 0 {
		return nil, fmt.Errorf("invalid amount %v", f)
	}
	bf := new(big.Float).SetPrec(256).SetFloat64(f)
	b, acc := bf.Int(nil)
	if acc != big.Exact {
		return nil, fmt.Errorf("amount %v is not an integer", f)
	}
	if f >= 1<<53 {
		return nil, fmt.Errorf("amount %v exceeds exact float range, pass a string or *big.Int", f)
	}
	return b, nil
}
