package auth

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"
)

// ErrAuthenticationFailed covers bad credentials and unusable sessions.
var ErrAuthenticationFailed = errors.New("authentication failed")

// User is the signed-in administrator.
type User struct {
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Authenticator manages sessions for the single admin account.
type Authenticator struct {
	email        string
	passwordHash string
	jwt          *JWTService

	mu      sync.Mutex
	revoked map[string]time.Time
}

func NewAuthenticator(adminEmail, passwordHash string, jwtService *JWTService) *Authenticator {
	return &Authenticator{
		email:        strings.ToLower(strings.TrimSpace(adminEmail)),
		passwordHash: passwordHash,
		jwt:          jwtService,
		revoked:      make(map[string]time.Time),
	}
}

// SignIn checks the admin credentials and opens a session.
func (a *Authenticator) SignIn(email, password string) (*Session, *User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if a.email == "" || email != a.email || !CheckPassword(password, a.passwordHash) {
		log.Printf("[Auth] Sign-in rejected for %q", email)
		return nil, nil, ErrAuthenticationFailed
	}

	session, _, err := a.jwt.Issue(a.email, RoleAdmin)
	if err != nil {
		return nil, nil, fmt.Errorf("issue session: %w", err)
	}
	log.Printf("[Auth] Admin %s signed in", a.email)
	return session, &User{Email: a.email, Role: RoleAdmin}, nil
}

// Verify returns the claims of a live, unrevoked session token.
func (a *Authenticator) Verify(token string) (*Claims, error) {
	claims, err := a.jwt.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrAuthenticationFailed, err)
	}
	if a.isRevoked(claims.ID) {
		return nil, fmt.Errorf("%w: session signed out", ErrAuthenticationFailed)
	}
	return claims, nil
}

// CurrentUser resolves the user behind a session token.
func (a *Authenticator) CurrentUser(token string) (*User, error) {
	claims, err := a.Verify(token)
	if err != nil {
		return nil, err
	}
	return &User{Email: claims.Email, Role: claims.Role}, nil
}

// SignOut revokes the session until its natural expiry.
func (a *Authenticator) SignOut(claims *Claims) {
	if claims == nil || claims.ID == "" {
		return
	}
	var until time.Time
	if claims.ExpiresAt != nil {
		until = claims.ExpiresAt.Time
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.prune()
	a.revoked[claims.ID] = until
	log.Printf("[Auth] Admin %s signed out", claims.Email)
}

// RefreshIfNeeded reissues a session that is close to expiry. It returns
// nil when the current session is still fresh. The old token stays valid
// until its own expiry; only SignOut revokes.
func (a *Authenticator) RefreshIfNeeded(claims *Claims) (*Session, error) {
	if !a.jwt.NeedsRefresh(claims) {
		return nil, nil
	}
	session, _, err := a.jwt.Issue(claims.Email, claims.Role)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	log.Printf("[Auth] Session refreshed for %s", claims.Email)
	return session, nil
}

func (a *Authenticator) SessionTTL() time.Duration {
	return a.jwt.SessionTTL()
}

func (a *Authenticator) isRevoked(id string) bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	_, ok := a.revoked[id]
	return ok
}

// prune drops revocations for tokens that have expired anyway. Callers hold mu.
func (a *Authenticator) prune() {
	now := a.jwt.now()
	for id, until := range a.revoked {
		if !until.IsZero() && now.After(until) {
			delete(a.revoked, id)
		}
	}
}
