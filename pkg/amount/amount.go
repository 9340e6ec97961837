// Package amount converts human-readable token amounts into integer base units.
package amount

import (
	"math/big"
	"strings"

	airdroperrors "github.com/speedrun-hq/airdropper/pkg/errors"
)

// MaxUint176 bounds the per-claim amount accepted by the distributor contract.
var MaxUint176 = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 176), big.NewInt(1))

// ParseUnits converts a decimal string such as "12.5" into base units for a token with the
// given decimals. Extra fractional digits are rounded half up.
func ParseUnits(value string, decimals uint8) (*big.Int, error) {
	value = strings.TrimSpace(value)
	negative := strings.HasPrefix(value, "-")
	if negative {
		value = value[1:]
	}

	whole, frac, _ := strings.Cut(value, ".")
	if (whole == "" && frac == "") || !isDigits(whole) || !isDigits(frac) {
		return nil, airdroperrors.NewInvalidInputError("amount %q is not a number", value)
	}

	d := int(decimals)
	roundUp := false
	if len(frac) > d {
		roundUp = frac[d] >= '5'
		frac = frac[:d]
	}
	frac += strings.Repeat("0", d-len(frac))

	digits := strings.TrimLeft(whole+frac, "0")
	result := new(big.Int)
	if digits != "" {
		if _, ok := result.SetString(digits, 10); !ok {
			return nil, airdroperrors.NewInvalidInputError("amount %q is not a number", value)
		}
	}
	if roundUp {
		result.Add(result, big.NewInt(1))
	}
	if negative {
		result.Neg(result)
	}
	return result, nil
}

// FormatUnits renders base units as a decimal string without trailing zeros.
func FormatUnits(value *big.Int, decimals uint8) string {
	if value == nil {
		return "0"
	}

	abs := new(big.Int).Abs(value).String()
	d := int(decimals)
	if len(abs) <= d {
		abs = strings.Repeat("0", d-len(abs)+1) + abs
	}

	whole, frac := abs[:len(abs)-d], strings.TrimRight(abs[len(abs)-d:], "0")
	out := whole
	if frac != "" {
		out += "." + frac
	}
	if value.Sign() < 0 {
		out = "-" + out
	}
	return out
}

// SplitPerClaim divides total evenly across count recipients. The remainder is returned
// separately and is not redistributed.
func SplitPerClaim(total *big.Int, count uint64) (perClaim, remainder *big.Int, err error) {
	if total == nil || total.Sign() <= 0 {
		return nil, nil, airdroperrors.NewInvalidInputError("total amount must be greater than zero")
	}
	if count == 0 {
		return nil, nil, airdroperrors.NewInvalidInputError("recipient count must be greater than zero")
	}

	perClaim, remainder = new(big.Int).QuoRem(total, new(big.Int).SetUint64(count), new(big.Int))
	if perClaim.Sign() == 0 {
		return nil, nil, airdroperrors.NewInvalidInputError("total amount %v is too small for %d recipients", total, count)
	}
	if perClaim.Cmp(MaxUint176) > 0 {
		return nil, nil, airdroperrors.NewInvalidInputError("amount per claim %v exceeds uint176", perClaim)
	}
	return perClaim, remainder, nil
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
