package handler

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-management/internal/config"
	"github.com/iliyamo/restaurant-management/internal/middleware"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/repository"
	"github.com/iliyamo/restaurant-management/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"Name"`
	Email    string `json:"Email"`
	Phone    string `json:"Phone"`
	Password string `json:"Password"`
}
type loginReq struct {
	Email    string `json:"Email"`
	Password string `json:"Password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}
type verifyReq struct {
	Email string `json:"Email"`
	Phone string `json:"Phone"`
}
type resetReq struct {
	Email       string `json:"Email"`
	Phone       string `json:"Phone"`
	NewPassword string `json:"NewPassword"`
}

type tokenPart struct {
	Token   string    `json:"token"`
	Expires time.Time `json:"expires"`
}
type authResp struct {
	User    model.PublicUser `json:"user"`
	Access  tokenPart        `json:"access"`
	Refresh tokenPart        `json:"refresh"`
}

// issue creates an access token and a stored refresh token for u.
func (h *AuthHandler) issue(c echo.Context, u model.User) (authResp, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role(), h.Cfg.AccessTTLMin)
	if err != nil {
		return authResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return authResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return authResp{}, err
	}
	return authResp{
		User:    u.Public(),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: refresh.Raw, Expires: refresh.Exp}, // raw back to client
	}, nil
}

// Register: create a customer and return tokens immediately.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Name, Email and Password are required")
	}
	if len(req.Password) < utils.MinPasswordLength {
		return fail(c, http.StatusBadRequest, "Password must be at least 6 characters")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	uid, err := h.Users.Create(ctx, repository.NewUser{
		Name: req.Name, Email: req.Email, Phone: req.Phone, Password: req.Password,
	}, h.Cfg.BcryptCost)
	if err != nil {
		return storeError(c, err, "create user failed")
	}
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return storeError(c, err, "load user failed")
	}
	resp, err := h.issue(c, u)
	if err != nil {
		return serverError(c, "issue tokens failed", err)
	}
	return okMessage(c, http.StatusCreated, "User registered successfully", resp)
}

// checkPassword verifies plain against the stored value.  Rows created
// before passwords were hashed still hold plain text; those are compared in
// constant time and upgraded to bcrypt on success.
func (h *AuthHandler) checkPassword(c echo.Context, u model.User, plain string) bool {
	if utils.IsBcryptHash(u.PasswordHash) {
		return utils.VerifyPassword(u.PasswordHash, plain)
	}
	if subtle.ConstantTimeCompare([]byte(u.PasswordHash), []byte(plain)) != 1 {
		return false
	}
	if hash, err := utils.HashPassword(plain, h.Cfg.BcryptCost); err == nil {
		ctx, cancel := reqCtx(c)
		defer cancel()
		if err := h.Users.SetPasswordHash(ctx, u.ID, hash); err != nil {
			c.Logger().Warnf("upgrade password hash for user %d: %v", u.ID, err)
		}
	}
	return true
}

// Login: verify and return new pair.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return fail(c, http.StatusBadRequest, "Email and Password are required")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusUnauthorized, "Invalid email or password")
		}
		return serverError(c, "query failed", err)
	}
	if !h.checkPassword(c, u, req.Password) {
		return fail(c, http.StatusUnauthorized, "Invalid email or password")
	}
	resp, err := h.issue(c, u)
	if err != nil {
		return serverError(c, "issue tokens failed", err)
	}
	return okMessage(c, http.StatusOK, "Login successful", resp)
}

// Refresh: validate by hash, rotate, issue new pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return fail(c, http.StatusBadRequest, "refresh_token required")
	}
	oldHash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := reqCtx(c)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, oldHash)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidToken) {
			return fail(c, http.StatusUnauthorized, "invalid refresh")
		}
		return serverError(c, "validate refresh failed", err)
	}
	u, err := h.Users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusUnauthorized, "invalid refresh")
		}
		return serverError(c, "load user failed", err)
	}

	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Email, u.Role(), h.Cfg.AccessTTLMin)
	if err != nil {
		return serverError(c, "issue access failed", err)
	}
	newRef, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return serverError(c, "issue refresh failed", err)
	}
	if err := h.Tokens.Rotate(ctx, u.ID, oldHash, utils.HashRefreshRaw(newRef.Raw), newRef.Exp); err != nil {
		if errors.Is(err, repository.ErrInvalidToken) {
			return fail(c, http.StatusUnauthorized, "invalid refresh")
		}
		return serverError(c, "rotate refresh failed", err)
	}
	return ok(c, http.StatusOK, authResp{
		User:    u.Public(),
		Access:  tokenPart{Token: access.Token, Expires: access.Exp},
		Refresh: tokenPart{Token: newRef.Raw, Expires: newRef.Exp},
	})
}

// Logout revokes one session when a refresh_token is posted, or every
// session of the caller when only a valid Bearer token is sent.
func (h *AuthHandler) Logout(c echo.Context) error {
	var uid uint64
	if auth := c.Request().Header.Get("Authorization"); strings.HasPrefix(auth, "Bearer ") {
		if claims, err := utils.ParseAccessToken(h.Cfg.JWTSecret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
			uid, _ = claims.UserID()
		}
	}
	var req refreshReq
	_ = c.Bind(&req)
	refreshToken := strings.TrimSpace(req.RefreshToken)

	ctx, cancel := reqCtx(c)
	defer cancel()

	switch {
	case refreshToken != "":
		hash := utils.HashRefreshRaw(refreshToken)
		if _, err := h.Tokens.ValidateRefresh(ctx, hash); err != nil {
			return fail(c, http.StatusUnauthorized, "invalid refresh token")
		}
		if err := h.Tokens.RevokeByHash(ctx, hash); err != nil {
			return serverError(c, "logout failed", err)
		}
	case uid != 0:
		if err := h.Tokens.RevokeAllForUser(ctx, uid); err != nil {
			return serverError(c, "logout failed", err)
		}
	default:
		return fail(c, http.StatusBadRequest, "provide Authorization header or refresh_token")
	}
	return okMessage(c, http.StatusOK, "Logged out", nil)
}

// Me returns the authenticated user's profile.
func (h *AuthHandler) Me(c echo.Context) error {
	uid, _ := c.Get(middleware.CtxUserID).(uint64)
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, uid)
	if err != nil {
		return storeError(c, err, "load user failed")
	}
	return ok(c, http.StatusOK, u.Public())
}

// VerifyUser confirms that an email and phone belong to the same account,
// the first step of a password reset.
func (h *AuthHandler) VerifyUser(c echo.Context) error {
	var req verifyReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Phone) == "" {
		return fail(c, http.StatusBadRequest, "Email and Phone are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.FindByEmailAndPhone(ctx, req.Email, req.Phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusNotFound, "No user found with that email and phone")
		}
		return serverError(c, "verify user failed", err)
	}
	return okMessage(c, http.StatusOK, "User verified", echo.Map{"UserID": u.ID})
}

// ResetPassword sets a new password after email and phone verification and
// revokes every refresh token of the account.
func (h *AuthHandler) ResetPassword(c echo.Context) error {
	var req resetReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Email) == "" || strings.TrimSpace(req.Phone) == "" || req.NewPassword == "" {
		return fail(c, http.StatusBadRequest, "Email, Phone and NewPassword are required")
	}
	if len(req.NewPassword) < utils.MinPasswordLength {
		return fail(c, http.StatusBadRequest, "Password must be at least 6 characters")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.FindByEmailAndPhone(ctx, req.Email, req.Phone)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return fail(c, http.StatusNotFound, "No user found with that email and phone")
		}
		return serverError(c, "verify user failed", err)
	}
	hash, err := utils.HashPassword(req.NewPassword, h.Cfg.BcryptCost)
	if err != nil {
		return serverError(c, "hash password failed", err)
	}
	if err := h.Users.SetPasswordHash(ctx, u.ID, hash); err != nil {
		return storeError(c, err, "reset password failed")
	}
	if err := h.Tokens.RevokeAllForUser(ctx, u.ID); err != nil {
		c.Logger().Warnf("revoke sessions for user %d: %v", u.ID, err)
	}
	return okMessage(c, http.StatusOK, "Password reset successfully", nil)
}
