package referral

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// Uppercase letters and digits without the look-alikes 0, O, I, L and 1.
// 31 symbols at length 8 gives ~8.5e11 codes, so generation collisions stay
// negligible well past any realistic user count.
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

func GenerateCode(length int) (string, error) {
	buf := make([]byte, length)
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := range buf {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate referral code: %w", err)
		}
		buf[i] = codeAlphabet[n.Int64()]
	}
	return string(buf), nil
}

// NormalizeCode uppercases a user-supplied code and strips the REF_ prefix
// that invite links carry.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	return strings.TrimPrefix(code, "REF_")
}
