package logger

import (
	"strings"
	"testing"
)

func TestSanitizeValue_RedactsSecretsAndHashesIDs(t *testing.T) {
	if got := sanitizeValue("authorization", "Bearer abc"); got != "[REDACTED]" {
		t.Fatalf("expected authorization redacted, got %v", got)
	}
	if got := sanitizeValue("user_email", "a@b.c"); got != "[REDACTED]" {
		t.Fatalf("expected email redacted, got %v", got)
	}
	got, _ := sanitizeValue("user_id", "1234").(string)
	if !strings.HasPrefix(got, "hash:") || len(got) != len("hash:")+12 {
		t.Fatalf("expected hashed user_id, got %q", got)
	}
	if again, _ := sanitizeValue("user_id", "1234").(string); again != got {
		t.Fatalf("hash must be stable: %q vs %q", got, again)
	}
	if got := sanitizeValue("content_id", "c1"); got != "c1" {
		t.Fatalf("expected content_id untouched, got %v", got)
	}
}

func TestSanitizeValue_RedactsJWTShapedStrings(t *testing.T) {
	jwt := "eyJhbGciOiJSUzI1NiJ9.eyJzdWIiOiIxMjM0NTY3ODkwIn0.sig"
	if got := sanitizeValue("detail", jwt); got != "[REDACTED]" {
		t.Fatalf("expected jwt redacted, got %v", got)
	}
}

func TestSanitizeKVs_KeepsDanglingKey(t *testing.T) {
	out := sanitizeKVs([]interface{}{"quiz_id", "q1", "orphan"})
	if len(out) != 3 || out[2] != "orphan" {
		t.Fatalf("unexpected kvs: %#v", out)
	}
}

func TestNop(t *testing.T) {
	log := Nop()
	log.With("service", "x").Info("ignored", "k", "v")
}
