package users

import (
	"encoding/hex"
	"strings"

	"levtrade/internal/apperr"

	"golang.org/x/crypto/sha3"
)

// NormalizeAddress validates a 20-byte hex EVM address and returns its
// EIP-55 checksum form. Mixed-case input must already carry a valid checksum.
func NormalizeAddress(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if len(raw) != 42 || !(strings.HasPrefix(raw, "0x") || strings.HasPrefix(raw, "0X")) {
		return "", apperr.Validation("invalid destination address")
	}
	body := raw[2:]
	if _, err := hex.DecodeString(body); err != nil {
		return "", apperr.Validation("invalid destination address")
	}
	sum := checksum(strings.ToLower(body))
	lower, upper := strings.ToLower(body), strings.ToUpper(body)
	if body != lower && body != upper && body != sum[2:] {
		return "", apperr.Validation("destination address checksum mismatch")
	}
	return sum, nil
}

func checksum(lowerHex string) string {
	h := sha3.NewLegacyKeccak256()
	h.Write([]byte(lowerHex))
	digest := h.Sum(nil)

	out := []byte(lowerHex)
	for i, c := range out {
		if c < 'a' || c > 'f' {
			continue
		}
		nibble := digest[i/2]
		if i%2 == 0 {
			nibble >>= 4
		}
		if nibble&0x0f >= 8 {
			out[i] = c - 32
		}
	}
	return "0x" + string(out)
}
