package utils // package utils provides helpers for token creation and hashing

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenType distinguishes access from refresh tokens via the "type" claim.
type TokenType string

const (
	TokenAccess  TokenType = "access"
	TokenRefresh TokenType = "refresh"
)

// ErrInvalidToken covers every decode failure: malformed input, bad
// signature, wrong algorithm, expiry, missing subject or wrong type. Callers
// must not distinguish between them in responses.
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload of every token issued by TokenSigner.
type Claims struct {
	Type TokenType `json:"type"`
	jwt.RegisteredClaims
}

// IssuedToken is a signed token with its absolute expiry.
type IssuedToken struct {
	Token string
	Exp   time.Time
}

// TokenSigner issues and verifies HMAC-signed JWTs. Key and algorithm are
// fixed at construction; a signer is safe for concurrent use.
type TokenSigner struct {
	secret []byte
	method jwt.SigningMethod
	now    func() time.Time
}

// SignerOption customises a TokenSigner.
type SignerOption func(*TokenSigner)

// WithClock overrides the time source used for iat/exp and validation.
func WithClock(now func() time.Time) SignerOption {
	return func(s *TokenSigner) { s.now = now }
}

// NewTokenSigner builds a signer for one of HS256, HS384 or HS512.
func NewTokenSigner(secret, algorithm string, opts ...SignerOption) (*TokenSigner, error) {
	if secret == "" {
		return nil, errors.New("jwt secret is empty")
	}
	var method jwt.SigningMethod
	switch algorithm {
	case "HS256", "":
		method = jwt.SigningMethodHS256
	case "HS384":
		method = jwt.SigningMethodHS384
	case "HS512":
		method = jwt.SigningMethodHS512
	default:
		return nil, fmt.Errorf("unsupported jwt algorithm %q", algorithm)
	}
	s := &TokenSigner{secret: []byte(secret), method: method, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for subject with the given type; it expires ttl after
// issuance.
func (s *TokenSigner) Issue(subject uint64, typ TokenType, ttl time.Duration) (IssuedToken, error) {
	now := s.now().UTC()
	exp := now.Add(ttl)
	claims := Claims{
		Type: typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(subject, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(s.method, claims).SignedString(s.secret)
	if err != nil {
		return IssuedToken{}, fmt.Errorf("sign token: %w", err)
	}
	return IssuedToken{Token: signed, Exp: exp}, nil
}

// Decode verifies signature and expiry and returns the numeric subject.
func (s *TokenSigner) Decode(raw string) (uint64, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return 0, err
	}
	return subjectID(claims)
}

// DecodeAs is Decode restricted to tokens of the wanted type.
func (s *TokenSigner) DecodeAs(raw string, want TokenType) (uint64, error) {
	claims, err := s.parse(raw)
	if err != nil {
		return 0, err
	}
	if claims.Type != want {
		return 0, ErrInvalidToken
	}
	return subjectID(claims)
}

func (s *TokenSigner) parse(raw string) (*Claims, error) {
	if raw == "" {
		return nil, ErrInvalidToken
	}
	claims := &Claims{}
	tok, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{s.method.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !tok.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func subjectID(c *Claims) (uint64, error) {
	if c.Subject == "" {
		return 0, ErrInvalidToken
	}
	id, err := strconv.ParseUint(c.Subject, 10, 64)
	if err != nil || id == 0 {
		return 0, ErrInvalidToken
	}
	return id, nil
}
