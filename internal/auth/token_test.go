package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestService(t, newStubStore())
	now := time.Now().UTC()

	token, expiresAt, err := svc.signToken("u-1", now)
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	if got := expiresAt.Sub(now); got != 30*24*time.Hour {
		t.Fatalf("ttl = %v, want 720h", got)
	}

	subject, err := svc.verifyToken(token)
	if err != nil {
		t.Fatalf("verifyToken: %v", err)
	}
	if subject != "u-1" {
		t.Fatalf("subject = %q", subject)
	}
}

func TestTokenExpires(t *testing.T) {
	issued := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := issued
	svc := newTestService(t, newStubStore(),
		WithTokenTTL(time.Hour),
		WithClock(func() time.Time { return clock }),
	)

	token, _, err := svc.signToken("u-1", issued)
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}

	clock = issued.Add(30 * time.Minute)
	if _, err := svc.verifyToken(token); err != nil {
		t.Fatalf("token rejected before expiry: %v", err)
	}

	clock = issued.Add(2 * time.Hour)
	if _, err := svc.verifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token accepted: err = %v", err)
	}
}

func TestTokenWrongSecret(t *testing.T) {
	issuing := newTestService(t, newStubStore())
	verifying, err := NewService(newStubStore(), "a-different-secret")
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}

	token, _, err := issuing.signToken("u-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	if _, err := verifying.verifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("foreign-secret token accepted: err = %v", err)
	}
}

func TestTokenWrongIssuerRejected(t *testing.T) {
	other := newTestService(t, newStubStore(), WithIssuer("someone-else"))
	svc := newTestService(t, newStubStore())

	token, _, err := other.signToken("u-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("signToken: %v", err)
	}
	if _, err := svc.verifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong-issuer token accepted: err = %v", err)
	}
}

func TestTokenAlgorithmConfusionRejected(t *testing.T) {
	svc := newTestService(t, newStubStore())

	// An unsigned token with otherwise valid claims must not pass.
	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "kurylys",
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	if _, err := svc.verifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("alg=none token accepted: err = %v", err)
	}
}

func TestTokenMissingSubjectRejected(t *testing.T) {
	svc := newTestService(t, newStubStore())
	if _, _, err := svc.signToken("   ", time.Now().UTC()); err == nil {
		t.Fatalf("blank subject signed")
	}

	claims := Claims{RegisteredClaims: jwt.RegisteredClaims{
		Issuer:    "kurylys",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}}
	raw := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token, err := raw.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := svc.verifyToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("subject-less token accepted: err = %v", err)
	}
}
