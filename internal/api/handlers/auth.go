package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/rohits-web03/radiologix/internal/api/middleware"
	"github.com/rohits-web03/radiologix/internal/common"
	"github.com/rohits-web03/radiologix/internal/credentials"
	"github.com/rohits-web03/radiologix/internal/utils"
)

type Credentials interface {
	Register(ctx context.Context, email, name, password string) (*credentials.Identity, error)
	VerifyLogin(ctx context.Context, email, password string) (*credentials.Identity, error)
}

type TokenIssuer interface {
	Issue(subjectID string) (string, error)
	TTL() time.Duration
}

type AuthHandler struct {
	users      Credentials
	tokens     TokenIssuer
	production bool
	log        *slog.Logger
}

func NewAuthHandler(users Credentials, tokens TokenIssuer, production bool, log *slog.Logger) *AuthHandler {
	return &AuthHandler{users: users, tokens: tokens, production: production, log: log}
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// Register godoc
// @Summary Register a new user
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body RegisterRequest true "New user"
// @Success 201 {object} utils.Payload{data=credentials.Identity}
// @Failure 400 {object} utils.Payload
// @Failure 409 {object} utils.Payload
// @Router /auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input RegisterRequest
	if err := decodeJSON(w, r, &input); err != nil {
		badRequest(w, "Invalid input")
		return
	}

	identity, err := h.users.Register(r.Context(), input.Email, input.Name, input.Password)
	switch {
	case err == nil:
	case errors.Is(err, common.ErrDuplicateCredential):
		utils.JSONResponse(w, http.StatusConflict, utils.Payload{
			Success: false,
			Message: "Email already registered",
		})
		return
	case errors.Is(err, common.ErrValidation):
		badRequest(w, validationMessage(err))
		return
	default:
		h.log.Error("register user", "err", err)
		internalError(w)
		return
	}

	h.log.Info("user registered", "user_id", identity.ID)
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "User registered successfully",
		Data:    identity,
	})
}

// Login godoc
// @Summary Exchange email and password for a bearer token
// @Description The token is returned in the body and also set as an HttpOnly cookie.
// @Tags Auth
// @Accept json
// @Produce json
// @Param body body LoginRequest true "Credentials"
// @Success 200 {object} utils.Payload{data=TokenResponse}
// @Failure 400 {object} utils.Payload
// @Failure 401 {object} utils.Payload
// @Router /auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input LoginRequest
	if err := decodeJSON(w, r, &input); err != nil {
		badRequest(w, "Invalid input")
		return
	}
	if strings.TrimSpace(input.Email) == "" || input.Password == "" {
		badRequest(w, "Invalid input")
		return
	}

	identity, err := h.users.VerifyLogin(r.Context(), input.Email, input.Password)
	if err != nil {
		if errors.Is(err, common.ErrInvalidCredentials) {
			w.Header().Set("WWW-Authenticate", "Bearer")
			utils.JSONResponse(w, http.StatusUnauthorized, utils.Payload{
				Success: false,
				Message: "Invalid credentials",
			})
			return
		}
		h.log.Error("verify login", "err", err)
		internalError(w)
		return
	}

	token, err := h.tokens.Issue(identity.ID)
	if err != nil {
		h.log.Error("issue token", "err", err)
		internalError(w)
		return
	}

	ttl := h.tokens.TTL()
	http.SetCookie(w, h.cookie(token, int(ttl.Seconds())))

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Login successful",
		Data: TokenResponse{
			AccessToken: token,
			TokenType:   "bearer",
			ExpiresIn:   int64(ttl.Seconds()),
		},
	})
}

// Logout godoc
// @Summary Clear the session cookie
// @Description Tokens are not revoked server-side; they stay valid until they expire.
// @Tags Auth
// @Produce json
// @Success 200 {object} utils.Payload
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	// maxAge < 0 deletes the cookie
	http.SetCookie(w, h.cookie("", -1))

	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Logged out successfully",
	})
}

// Me godoc
// @Summary Current user
// @Tags Auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} utils.Payload{data=credentials.Identity}
// @Failure 401 {object} utils.Payload
// @Router /auth/me [get]
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := middleware.IdentityFrom(r.Context())
	if !ok {
		middleware.Unauthorized(w)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Current user",
		Data:    identity,
	})
}

func (h *AuthHandler) cookie(value string, maxAge int) *http.Cookie {
	sameSite := http.SameSiteLaxMode
	if h.production {
		sameSite = http.SameSiteNoneMode
	}
	return &http.Cookie{
		Name:     middleware.TokenCookie,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		Secure:   h.production,
		HttpOnly: true,
		SameSite: sameSite,
	}
}
