package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// DefaultSessionTTL is how long an admin session stays valid.
	DefaultSessionTTL = 30 * 24 * time.Hour
	// DefaultRefreshWindow is the remaining lifetime below which a session
	// is reissued.
	DefaultRefreshWindow = 24 * time.Hour

	RoleAdmin = "admin"
)

var (
	ErrInvalidToken = errors.New("invalid token")
	ErrExpiredToken = errors.New("token has expired")
)

// Claims carried by a session token. ID is unique per token so a session
// can be revoked on sign-out.
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}

// Session is what a client keeps after signing in.
type Session struct {
	AccessToken string    `json:"access_token"`
	ExpiresAt   time.Time `json:"expires_at"`
}

// JWTService signs and verifies session tokens.
type JWTService struct {
	secretKey     []byte
	sessionTTL    time.Duration
	refreshWindow time.Duration
	now           func() time.Time
}

func NewJWTService(secretKey string, sessionTTL, refreshWindow time.Duration) *JWTService {
	return &JWTService{
		secretKey:     []byte(secretKey),
		sessionTTL:    sessionTTL,
		refreshWindow: refreshWindow,
		now:           time.Now,
	}
}

// WithClock replaces the time source.
func (s *JWTService) WithClock(now func() time.Time) *JWTService {
	s.now = now
	return s
}

// Issue creates a new session for email.
func (s *JWTService) Issue(email, role string) (*Session, *Claims, error) {
	now := s.now()
	expiresAt := now.Add(s.sessionTTL)

	claims := &Claims{
		Email: email,
		Role:  role,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return nil, nil, err
	}
	return &Session{AccessToken: signed, ExpiresAt: expiresAt}, claims, nil
}

// Validate verifies a token's signature and expiry.
func (s *JWTService) Validate(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return s.secretKey, nil
	}, jwt.WithTimeFunc(s.now), jwt.WithExpirationRequired())

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// NeedsRefresh reports whether claims expire within the refresh window.
func (s *JWTService) NeedsRefresh(claims *Claims) bool {
	if claims == nil || claims.ExpiresAt == nil {
		return false
	}
	return claims.ExpiresAt.Time.Sub(s.now()) < s.refreshWindow
}

func (s *JWTService) SessionTTL() time.Duration {
	return s.sessionTTL
}

func (s *JWTService) RefreshWindow() time.Duration {
	return s.refreshWindow
}
