package jwt

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func testConfig(ttl time.Duration) Config {
	return Config{
		Secret: []byte("0123456789abcdef0123456789abcdef"),
		TTL:    ttl,
		Issuer: "bozor",
	}
}

func TestIssueAndVerify(t *testing.T) {
	codec, err := NewCodec(testConfig(time.Minute))
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	token, err := codec.Issue("user-1", "a@x.com", "user")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Fatalf("expected compact JWS, got %q", token)
	}

	claims, err := codec.Verify(token)
	if err != nil {
		t.Fatalf("Verify error: %v", err)
	}
	if claims.UID != "user-1" || claims.Email != "a@x.com" || claims.Role != "user" {
		t.Fatalf("unexpected claims: %+v", claims)
	}
}

func TestVerifyExpired(t *testing.T) {
	codec, err := NewCodec(testConfig(time.Millisecond))
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	token, err := codec.Issue("user-1", "a@x.com", "user")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	time.Sleep(10 * time.Millisecond)

	if _, err := codec.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid for expired token, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	issuer, err := NewCodec(testConfig(time.Minute))
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}
	verifier, err := NewCodec(Config{
		Secret: []byte("ffffffffffffffffffffffffffffffff"),
		TTL:    time.Minute,
		Issuer: "bozor",
	})
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	token, err := issuer.Issue("user-1", "a@x.com", "user")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("expected ErrTokenInvalid under wrong secret, got %v", err)
	}
}

func TestVerifyMalformed(t *testing.T) {
	codec, err := NewCodec(testConfig(time.Minute))
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	for _, input := range []string{"", "garbage", "a.b", "a.b.c.d", "eyJ..."} {
		if _, err := codec.Verify(input); !errors.Is(err, ErrTokenInvalid) {
			t.Fatalf("input %q: expected ErrTokenInvalid, got %v", input, err)
		}
	}
}

func TestIssueVariesBetweenCalls(t *testing.T) {
	codec, err := NewCodec(testConfig(time.Minute))
	if err != nil {
		t.Fatalf("NewCodec error: %v", err)
	}

	first, err := codec.Issue("user-1", "a@x.com", "user")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}

	time.Sleep(1100 * time.Millisecond) // iat has second resolution

	second, err := codec.Issue("user-1", "a@x.com", "user")
	if err != nil {
		t.Fatalf("Issue error: %v", err)
	}
	if first == second {
		t.Fatal("expected issued-at timestamp to vary token output")
	}
}

func TestNewCodecRejectsWeakConfig(t *testing.T) {
	cases := []struct {
		name string
		cfg  Config
	}{
		{"short secret", Config{Secret: []byte("short"), TTL: time.Minute}},
		{"zero ttl", Config{Secret: []byte("0123456789abcdef0123456789abcdef")}},
		{"negative leeway", Config{Secret: []byte("0123456789abcdef0123456789abcdef"), TTL: time.Minute, Leeway: -time.Second}},
	}
	for _, tc := range cases {
		if _, err := NewCodec(tc.cfg); err == nil {
			t.Fatalf("%s: expected config rejection", tc.name)
		}
	}
}
