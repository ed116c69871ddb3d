// Package accountnum generates and validates 12-digit account numbers.
package accountnum

import (
	"crypto/rand"
	"math/big"
)

const Length = 12

var ten = big.NewInt(10)

// Generate returns a random 12-digit account number. The first digit is
// always 1-9 so the number survives round-trips through numeric parsers.
func Generate() string {
	buf := make([]byte, Length)
	buf[0] = '1' + randDigit(9)
	for i := 1; i < Length; i++ {
		buf[i] = '0' + randDigit(10)
	}
	return string(buf)
}

// IsValid reports whether s is exactly 12 ASCII digits. The same rule gates
// external-debit destination numbers.
func IsValid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}

func randDigit(n int64) byte {
	v, err := rand.Int(rand.Reader, big.NewInt(n))
	if err != nil {
		// crypto/rand only fails if the platform source is broken;
		// account numbers cannot be issued in that state.
		panic(err)
	}
	return byte(v.Int64())
}
