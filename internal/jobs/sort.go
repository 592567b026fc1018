package jobs

import (
	"math/big"
	"slices"
	"strings"
)

// SortIDsNumeric orders work IDs by the integer formed from their digits,
// ignoring every non-digit character. IDs with equal numbers (or no digits,
// which count as zero) fall back to plain string order.
func SortIDsNumeric(ids []string) {
	keys := make(map[string]*big.Int, len(ids))
	for _, id := range ids {
		keys[id] = digitKey(id)
	}
	slices.SortStableFunc(ids, func(a, b string) int {
		if c := keys[a].Cmp(keys[b]); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
}

func digitKey(id string) *big.Int {
	var digits strings.Builder
	for _, r := range id {
		if r >= '0' && r <= '9' {
			digits.WriteRune(r)
		}
	}
	n := new(big.Int)
	if digits.Len() == 0 {
		return n
	}
	n.SetString(digits.String(), 10)
	return n
}
