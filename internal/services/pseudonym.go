package services

import (
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"

	"github.com/tripnest/booking-service/pkg/validator"
)

// PhoneHasher turns phone numbers into stable keyed pseudonyms so audit rows
// and rate limit windows never hold a number in clear text
type PhoneHasher struct {
	key       []byte
	validator *validator.PhoneValidator
}

// NewPhoneHasher creates a hasher. Keys longer than 64 bytes are compressed
// to the BLAKE2b maximum; an empty key gives an unkeyed hash.
func NewPhoneHasher(key string) (*PhoneHasher, error) {
	k := []byte(key)
	if len(k) > blake2b.Size {
		sum := blake2b.Sum512(k)
		k = sum[:]
	}

	// reject bad keys up front instead of on every Hash call
	if _, err := blake2b.New256(k); err != nil {
		return nil, fmt.Errorf("invalid audit hash key: %w", err)
	}

	return &PhoneHasher{key: k, validator: validator.NewPhoneValidator()}, nil
}

// Hash returns the hex pseudonym of a phone. Formatting differences of the
// same number hash identically. Empty input yields "".
func (h *PhoneHasher) Hash(phone string) string {
	sanitized := h.validator.Sanitize(phone)
	if sanitized == "" {
		return ""
	}

	mac, _ := blake2b.New256(h.key)
	mac.Write([]byte(sanitized))
	return hex.EncodeToString(mac.Sum(nil))
}
