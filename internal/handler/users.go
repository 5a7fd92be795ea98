package handler

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-management/internal/authz"
	"github.com/iliyamo/restaurant-management/internal/middleware"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/repository"
	"github.com/iliyamo/restaurant-management/internal/utils"
)

// UserHandler serves profiles and membership management.
type UserHandler struct {
	Users      *repository.UserRepo
	BcryptCost int
}

func NewUserHandler(u *repository.UserRepo, bcryptCost int) *UserHandler {
	return &UserHandler{Users: u, BcryptCost: bcryptCost}
}

func publicUsers(us []model.User) []model.PublicUser {
	out := make([]model.PublicUser, 0, len(us))
	for _, u := range us {
		out = append(out, u.Public())
	}
	return out
}

// List returns every user (admin).
func (h *UserHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	us, err := h.Users.List(ctx)
	if err != nil {
		return serverError(c, "Error fetching users", err)
	}
	return ok(c, http.StatusOK, publicUsers(us))
}

// Get returns one user to themselves or an admin.
func (h *UserHandler) Get(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	if err := authz.Check(middleware.Actor(c), authz.Owned("user", id)); err != nil {
		return storeError(c, err, "")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err, "Error fetching user")
	}
	return ok(c, http.StatusOK, u.Public())
}

type updateUserReq struct {
	Name            *string `json:"Name"`
	Email           *string `json:"Email"`
	Phone           *string `json:"Phone"`
	Password        *string `json:"Password"`
	CurrentPassword string  `json:"CurrentPassword"`
}

// Update changes any of Name, Email, Phone and Password.  Users changing
// their own email or password must confirm the current password; admins
// editing someone else need not.
func (h *UserHandler) Update(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	actor := middleware.Actor(c)
	if err := authz.Check(actor, authz.Owned("user", id)); err != nil {
		return storeError(c, err, "")
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err, "Error fetching user")
	}

	upd := repository.ProfileUpdate{Name: req.Name, Phone: req.Phone}
	if req.Email != nil && !strings.EqualFold(strings.TrimSpace(*req.Email), u.Email) {
		upd.Email = req.Email
	}
	if req.Password != nil {
		if len(*req.Password) < utils.MinPasswordLength {
			return fail(c, http.StatusBadRequest, "Password must be at least 6 characters")
		}
		hash, err := utils.HashPassword(*req.Password, h.BcryptCost)
		if err != nil {
			return serverError(c, "hash password failed", err)
		}
		upd.PasswordHash = &hash
	}
	if upd.Empty() {
		return fail(c, http.StatusBadRequest, "No fields to update")
	}
	if actor.UserID == id && (upd.Email != nil || upd.PasswordHash != nil) {
		if req.CurrentPassword == "" || !utils.VerifyPassword(u.PasswordHash, req.CurrentPassword) {
			return fail(c, http.StatusUnauthorized, "Current password is incorrect")
		}
	}
	if err := h.Users.UpdateProfile(ctx, id, upd); err != nil {
		return storeError(c, err, "Error updating user")
	}
	u, err = h.Users.GetByID(ctx, id)
	if err != nil {
		return storeError(c, err, "Error fetching user")
	}
	return okMessage(c, http.StatusOK, "Profile updated successfully", u.Public())
}

// Members lists the users with a membership (admin).
func (h *UserHandler) Members(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	us, err := h.Users.ListMembers(ctx)
	if err != nil {
		return serverError(c, "Error fetching members", err)
	}
	return ok(c, http.StatusOK, publicUsers(us))
}

type addMemberReq struct {
	Name  string `json:"Name"`
	Email string `json:"Email"`
}

// AddMember enrols an existing customer identified by name and email.
func (h *UserHandler) AddMember(c echo.Context) error {
	var req addMemberReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	if strings.TrimSpace(req.Name) == "" || strings.TrimSpace(req.Email) == "" {
		return fail(c, http.StatusBadRequest, "Name and Email are required")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.FindByNameAndEmail(ctx, req.Name, req.Email)
	if err != nil {
		return storeError(c, err, "Error finding user")
	}
	return h.enrol(c, u)
}

func (h *UserHandler) enrol(c echo.Context, u model.User) error {
	if u.IsMember {
		return okMessage(c, http.StatusOK, "User is already a member", u.Public())
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.SetMember(ctx, u.ID, true); err != nil {
		return storeError(c, err, "Error updating membership")
	}
	u.IsMember = true
	return okMessage(c, http.StatusOK, "Membership activated", u.Public())
}

type buyMembershipReq struct {
	UserID *uint64 `json:"UserID"`
	Email  string  `json:"Email"`
}

// BuyMembership lets customers turn on their own membership.  The email
// must match the account.
func (h *UserHandler) BuyMembership(c echo.Context) error {
	var req buyMembershipReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	actor := middleware.Actor(c)
	if req.UserID == nil {
		req.UserID = &actor.UserID
	}
	if *req.UserID == 0 || strings.TrimSpace(req.Email) == "" {
		return fail(c, http.StatusBadRequest, "UserID and Email are required")
	}
	if err := authz.Check(actor, authz.Owned("user", *req.UserID)); err != nil {
		return storeError(c, err, "")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, *req.UserID)
	if err != nil {
		return storeError(c, err, "Error fetching user")
	}
	if !strings.EqualFold(strings.TrimSpace(req.Email), u.Email) {
		return fail(c, http.StatusBadRequest, "Email does not match the account")
	}
	return h.enrol(c, u)
}

// RemoveMember turns a user's membership off (admin).
func (h *UserHandler) RemoveMember(c echo.Context) error {
	id, valid := idParam(c, "id")
	if !valid {
		return badID(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.SetMember(ctx, id, false); err != nil {
		return storeError(c, err, "Error removing membership")
	}
	return okMessage(c, http.StatusOK, "Membership removed", nil)
}
