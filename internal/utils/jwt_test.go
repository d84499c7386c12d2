package utils

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }

func newTestSigner(t *testing.T, clock *fakeClock) *TokenSigner {
	t.Helper()
	s, err := NewTokenSigner("test-secret", "HS256", WithClock(clock.Now))
	require.NoError(t, err)
	return s
}

func TestTokenSigner_RoundTripAndExpiry(t *testing.T) {
	clock := &fakeClock{t: time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)}
	s := newTestSigner(t, clock)

	tok, err := s.Issue(42, TokenAccess, 15*time.Minute)
	require.NoError(t, err)
	assert.Equal(t, clock.t.Add(15*time.Minute), tok.Exp)

	clock.t = clock.t.Add(14 * time.Minute)
	sub, err := s.Decode(tok.Token)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), sub)

	clock.t = clock.t.Add(2 * time.Minute)
	_, err = s.Decode(tok.Token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenSigner_DecodeAs(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestSigner(t, clock)

	refresh, err := s.Issue(7, TokenRefresh, time.Hour)
	require.NoError(t, err)

	_, err = s.DecodeAs(refresh.Token, TokenAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)

	sub, err := s.DecodeAs(refresh.Token, TokenRefresh)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), sub)
}

func TestTokenSigner_DecodeFailures(t *testing.T) {
	clock := &fakeClock{t: time.Now()}
	s := newTestSigner(t, clock)
	other, err := NewTokenSigner("other-secret", "HS256", WithClock(clock.Now))
	require.NoError(t, err)
	hs512, err := NewTokenSigner("test-secret", "HS512", WithClock(clock.Now))
	require.NoError(t, err)

	foreign, err := other.Issue(1, TokenAccess, time.Hour)
	require.NoError(t, err)
	wrongAlg, err := hs512.Issue(1, TokenAccess, time.Hour)
	require.NoError(t, err)

	noSub, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type: TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(clock.t.Add(time.Hour)),
		},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Type:             TokenAccess,
		RegisteredClaims: jwt.RegisteredClaims{Subject: "1"},
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	tests := []struct {
		name string
		raw  string
	}{
		{name: "empty", raw: ""},
		{name: "malformed", raw: "not.a.jwt"},
		{name: "bad signature", raw: foreign.Token},
		{name: "wrong algorithm", raw: wrongAlg.Token},
		{name: "missing subject", raw: noSub},
		{name: "missing expiry", raw: noExp},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Decode(tt.raw)
			assert.ErrorIs(t, err, ErrInvalidToken)
		})
	}
}

func TestNewTokenSigner_Validation(t *testing.T) {
	_, err := NewTokenSigner("", "HS256")
	assert.Error(t, err)
	_, err = NewTokenSigner("secret", "RS256")
	assert.Error(t, err)
	_, err = NewTokenSigner("secret", "HS384")
	assert.NoError(t, err)
}
