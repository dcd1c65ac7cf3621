package deviceflow

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/platform-labs/deviceauth/internal/validation"
)

// deviceCodeBytes is the entropy of a device code. 32 bytes is well past
// the 128-bit unguessability floor for codes sent over the wire.
const deviceCodeBytes = 32

// generateDeviceCode generates a cryptographically secure opaque device code
func generateDeviceCode() (string, error) {
	buf := make([]byte, deviceCodeBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating device code: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// generateUserCode generates a short numeric code for the user to type
// into the activation form
func generateUserCode() (string, error) {
	var builder strings.Builder
	for i := 0; i < validation.CodeLength; i++ {
		d, err := randomDigit()
		if err != nil {
			return "", err
		}
		builder.WriteByte('0' + d)
	}
	return builder.String(), nil
}

// randomDigit draws a decimal digit without modulo bias
func randomDigit() (byte, error) {
	// Reject bytes above the largest multiple of 10
	const maxNeeded = 256 - (256 % 10)

	for {
		b := make([]byte, 1)
		if _, err := rand.Read(b); err != nil {
			return 0, fmt.Errorf("generating random byte: %w", err)
		}
		if int(b[0]) >= maxNeeded {
			continue
		}
		return b[0] % 10, nil
	}
}
