package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

var (
	ErrTokenInvalid      = errors.New("auth: invalid token")
	ErrTokenExpired      = errors.New("auth: token expired")
	ErrMissingSigningKey = errors.New("auth: missing signing key")
	ErrWeakSigningKey    = errors.New("auth: signing key too short")
)

// MinSecretLength is the minimum secret length for HMAC-SHA256 signing.
const MinSecretLength = 32

// DefaultTokenTTL bounds how long an issued token stays valid.
const DefaultTokenTTL = 24 * time.Hour

// Claims is the signed token payload.
type Claims struct {
	UserID    string `json:"sub"`
	Username  string `json:"username"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Signer issues and verifies HMAC-SHA256 signed bearer tokens. A token is
// base64url(claims) + "." + base64url(signature).
type Signer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

type SignerOption func(*Signer)

func WithTokenTTL(ttl time.Duration) SignerOption {
	return func(s *Signer) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithSignerClock(now func() time.Time) SignerOption {
	return func(s *Signer) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSigner(secret []byte, opts ...SignerOption) (*Signer, error) {
	if len(secret) == 0 {
		return nil, ErrMissingSigningKey
	}
	if len(secret) < MinSecretLength {
		return nil, ErrWeakSigningKey
	}
	s := &Signer{
		secret: append([]byte(nil), secret...),
		ttl:    DefaultTokenTTL,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Issue signs a fresh token for the user.
func (s *Signer) Issue(userID, username string) (string, error) {
	now := s.now()
	claims := Claims{
		UserID:    userID,
		Username:  username,
		IssuedAt:  now.Unix(),
		ExpiresAt: now.Add(s.ttl).Unix(),
	}
	payload, err := json.Marshal(claims)
	if err != nil {
		return "", fmt.Errorf("auth: encode claims: %w", err)
	}
	body := base64.RawURLEncoding.EncodeToString(payload)
	return body + "." + s.sign(body), nil
}

// Verify checks the signature and expiry and returns the claims.
func (s *Signer) Verify(token string) (Claims, error) {
	body, sig, ok := strings.Cut(token, ".")
	if !ok || body == "" || sig == "" {
		return Claims{}, ErrTokenInvalid
	}
	if !hmac.Equal([]byte(s.sign(body)), []byte(sig)) {
		return Claims{}, ErrTokenInvalid
	}
	payload, err := base64.RawURLEncoding.DecodeString(body)
	if err != nil {
		return Claims{}, ErrTokenInvalid
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return Claims{}, ErrTokenInvalid
	}
	if claims.UserID == "" {
		return Claims{}, ErrTokenInvalid
	}
	if s.now().Unix() >= claims.ExpiresAt {
		return Claims{}, ErrTokenExpired
	}
	return claims, nil
}

func (s *Signer) sign(body string) string {
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(body))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}
