package security

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey_RoundTrip(t *testing.T) {
	plaintext, keyID, secretHash, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if !strings.HasPrefix(plaintext, "pw_") {
		t.Errorf("plaintext = %q, want pw_ prefix", plaintext)
	}

	parsedID, secret, err := ParseAPIKey(plaintext)
	if err != nil {
		t.Fatalf("ParseAPIKey: %v", err)
	}
	if parsedID != keyID {
		t.Errorf("parsed keyID = %q, want %q", parsedID, keyID)
	}
	if !APIKeySecretEqual(secret, secretHash) {
		t.Error("APIKeySecretEqual should match the generated secret")
	}
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	a, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	b, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if a == b {
		t.Error("GenerateAPIKey produced identical keys")
	}
}

func TestParseAPIKey_Malformed(t *testing.T) {
	testCases := []struct {
		name string
		key  string
	}{
		{"empty", ""},
		{"no separator", "pwabcdef"},
		{"wrong prefix", "sk_abc_def"},
		{"missing secret", "pw_abc_"},
		{"missing id", "pw__def"},
		{"too many parts", "pw_a_b_c"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if _, _, err := ParseAPIKey(tc.key); err != ErrInvalidAPIKey {
				t.Errorf("ParseAPIKey(%q) = %v, want ErrInvalidAPIKey", tc.key, err)
			}
		})
	}
}

func TestAPIKeySecretEqual_RejectsWrongSecret(t *testing.T) {
	storedHash := HashAPIKeySecret("right-secret")
	if APIKeySecretEqual("wrong-secret", storedHash) {
		t.Error("APIKeySecretEqual should reject an incorrect secret")
	}
}

func TestSecretEqual(t *testing.T) {
	if !SecretEqual("shared", "shared") {
		t.Error("SecretEqual should match identical secrets")
	}
	if SecretEqual("shared", "other") {
		t.Error("SecretEqual should reject different secrets")
	}
	if SecretEqual("", "") {
		t.Error("SecretEqual should never match an empty expected secret")
	}
}
