package api

import (
	"net/http"
	"time"

	"github.com/example/meubles-dor/internal/api/middleware"
	"github.com/example/meubles-dor/internal/auth"
)

// AuthHandlers serves admin sign-in and session endpoints.
type AuthHandlers struct {
	authenticator *auth.Authenticator
}

func NewAuthHandlers(authenticator *auth.Authenticator) *AuthHandlers {
	return &AuthHandlers{authenticator: authenticator}
}

type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	User      *auth.User `json:"user"`
	Token     string     `json:"access_token,omitempty"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Message   string     `json:"message,omitempty"`
}

func (h *AuthHandlers) SignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !decodeBody(w, r, &req) {
		return
	}

	session, user, err := h.authenticator.SignIn(req.Email, req.Password)
	if err != nil {
		respondJSONError(w, "Invalid email or password", http.StatusUnauthorized)
		return
	}

	middleware.SetSessionCookie(w, r, session)
	respondJSON(w, http.StatusOK, AuthResponse{
		User:      user,
		Token:     session.AccessToken,
		ExpiresAt: &session.ExpiresAt,
		Message:   "Sign-in successful",
	})
}

// SignOut revokes the caller's session if there is one.
func (h *AuthHandlers) SignOut(w http.ResponseWriter, r *http.Request) {
	if token := middleware.ExtractToken(r); token != "" {
		if claims, err := h.authenticator.Verify(token); err == nil {
			h.authenticator.SignOut(claims)
		}
	}

	middleware.ClearSessionCookie(w)
	respondJSON(w, http.StatusOK, map[string]string{"message": "Sign-out successful"})
}

// Me returns the signed-in admin, or null without a session.
func (h *AuthHandlers) Me(w http.ResponseWriter, r *http.Request) {
	token := middleware.ExtractToken(r)
	if token == "" {
		respondJSON(w, http.StatusOK, AuthResponse{})
		return
	}

	user, err := h.authenticator.CurrentUser(token)
	if err != nil {
		middleware.ClearSessionCookie(w)
		respondJSON(w, http.StatusOK, AuthResponse{})
		return
	}
	respondJSON(w, http.StatusOK, AuthResponse{User: user})
}
