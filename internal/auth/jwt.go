// Package auth issues and validates the signed tokens that guard the
// administrative API.
package auth

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Admin tokens are short-lived HS256 JWTs carrying role "admin". There are
// no refresh tokens; operators mint a new token with the CLI when one expires.

const (
	// DefaultTokenExpiry is how long admin tokens are valid.
	DefaultTokenExpiry = 1 * time.Hour

	// RoleAdmin is the only role the API recognizes.
	RoleAdmin = "admin"

	// MinSigningKeyLength is the shortest accepted HS256 secret, in bytes.
	MinSigningKeyLength = 32

	// DefaultIssuer and DefaultAudience are used when TokenConfig leaves them empty.
	DefaultIssuer   = "prohealth"
	DefaultAudience = "prohealth-admin"
)

// Predefined token errors.
var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrTokenExpired    = errors.New("token has expired")
	ErrNotAdmin        = errors.New("token does not grant admin role")
	ErrWeakSigningKey  = errors.New("signing key too short")
	ErrSigningDisabled = errors.New("token signing key not configured")
)

// Claims represents the claims in an admin token.
type Claims struct {
	jwt.RegisteredClaims

	// Role is the granted role.
	Role string `json:"role"`
}

// TokenConfig holds configuration for the token service.
type TokenConfig struct {
	// SigningKey is the secret used to sign tokens. Empty disables the
	// admin API entirely.
	SigningKey string

	// Issuer is the issuer claim (defaults to DefaultIssuer).
	Issuer string

	// Audience is the audience claim (defaults to DefaultAudience).
	Audience string

	// Expiry overrides DefaultTokenExpiry.
	Expiry time.Duration
}

// TokenService handles admin token creation and validation.
type TokenService struct {
	signingKey []byte
	issuer     string
	audience   string
	expiry     time.Duration
	now        func() time.Time
}

// NewTokenService creates a new token service.
func NewTokenService(cfg TokenConfig) (*TokenService, error) {
	if cfg.SigningKey == "" {
		return nil, ErrSigningDisabled
	}
	if len(cfg.SigningKey) < MinSigningKeyLength {
		return nil, fmt.Errorf("%w: need at least %d bytes", ErrWeakSigningKey, MinSigningKeyLength)
	}

	expiry := cfg.Expiry
	if expiry <= 0 {
		expiry = DefaultTokenExpiry
	}

	issuer := cfg.Issuer
	if issuer == "" {
		issuer = DefaultIssuer
	}
	audience := cfg.Audience
	if audience == "" {
		audience = DefaultAudience
	}

	return &TokenService{
		signingKey: []byte(cfg.SigningKey),
		issuer:     issuer,
		audience:   audience,
		expiry:     expiry,
		now:        time.Now,
	}, nil
}

// IssueAdminToken signs a new admin token for subject.
func (s *TokenService) IssueAdminToken(subject string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.expiry)

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   subject,
			Audience:  jwt.ClaimStrings{s.audience},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			NotBefore: jwt.NewNumericDate(now),
			ID:        generateTokenID(),
		},
		Role: RoleAdmin,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("signing admin token: %w", err)
	}

	return tokenString, expiresAt, nil
}

// ValidateAdminToken validates tokenString and requires the admin role.
func (s *TokenService) ValidateAdminToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.signingKey, nil
	}, jwt.WithValidMethods([]string{"HS256"}),
		jwt.WithIssuer(s.issuer),
		jwt.WithAudience(s.audience),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %s", ErrInvalidToken, err.Error())
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Role != RoleAdmin {
		return nil, ErrNotAdmin
	}

	return claims, nil
}

// generateTokenID generates a unique token ID.
func generateTokenID() string {
	bytes := make([]byte, 16)
	if _, err := rand.Read(bytes); err != nil {
		return ""
	}
	return base64.RawURLEncoding.EncodeToString(bytes)
}
