package deviceflow

import (
	"regexp"
	"testing"
)

func TestGenerateDeviceCode(t *testing.T) {
	hexPattern := regexp.MustCompile(`^[0-9a-f]{64}$`)
	seen := make(map[string]bool)

	for i := 0; i < 100; i++ {
		code, err := generateDeviceCode()
		if err != nil {
			t.Fatalf("generateDeviceCode: %v", err)
		}
		if !hexPattern.MatchString(code) {
			t.Fatalf("device code %q is not 64 hex chars", code)
		}
		if seen[code] {
			t.Fatalf("device code %q generated twice", code)
		}
		seen[code] = true
	}
}

func TestGenerateUserCode(t *testing.T) {
	digitPattern := regexp.MustCompile(`^[0-9]{6}$`)

	for i := 0; i < 100; i++ {
		code, err := generateUserCode()
		if err != nil {
			t.Fatalf("generateUserCode: %v", err)
		}
		if !digitPattern.MatchString(code) {
			t.Fatalf("user code %q is not 6 digits", code)
		}
	}
}
