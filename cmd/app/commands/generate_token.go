package commands

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// RunGenerateToken generates cryptographically secure credentials tokens.
// Each token is 32 random bytes, base64url encoded without padding, which is
// the form handed to a peer's operator out of band before registration. The
// operator side seeds the value through OCPI_TOKENS_A, the receiving side
// through OCPI_TOKENS_C.
func RunGenerateToken(ioTuple IOTuple, count int) error {
	if count < 1 {
		return fmt.Errorf("count must be at least 1, got %d", count)
	}

	for i := 0; i < count; i++ {
		raw := make([]byte, 32)
		if _, err := rand.Read(raw); err != nil {
			return fmt.Errorf("failed to generate token: %w", err)
		}
		token := base64.RawURLEncoding.EncodeToString(raw)
		if _, err := fmt.Fprintln(ioTuple.Writer, token); err != nil {
			return fmt.Errorf("failed to write token: %w", err)
		}
	}

	return nil
}
