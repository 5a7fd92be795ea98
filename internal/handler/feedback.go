package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/restaurant-management/internal/authz"
	"github.com/iliyamo/restaurant-management/internal/middleware"
	"github.com/iliyamo/restaurant-management/internal/model"
	"github.com/iliyamo/restaurant-management/internal/repository"
)

type FeedbackHandler struct {
	Feedback *repository.FeedbackRepo
}

func NewFeedbackHandler(f *repository.FeedbackRepo) *FeedbackHandler {
	return &FeedbackHandler{Feedback: f}
}

type feedbackReq struct {
	UserID   *uint64 `json:"UserID"`
	Rating   int     `json:"Rating"`
	Comments *string `json:"Comments"`
}

// Create stores a 1..10 rating for the caller, or for any user when an
// admin posts it.
func (h *FeedbackHandler) Create(c echo.Context) error {
	var req feedbackReq
	if err := c.Bind(&req); err != nil {
		return fail(c, http.StatusBadRequest, "invalid body")
	}
	actor := middleware.Actor(c)
	if req.UserID == nil {
		req.UserID = &actor.UserID
	}
	if *req.UserID == 0 || req.Rating == 0 {
		return fail(c, http.StatusBadRequest, "UserID and Rating are required")
	}
	if req.Rating < 1 || req.Rating > 10 {
		return fail(c, http.StatusBadRequest, "Rating must be between 1 and 10")
	}
	if err := authz.Check(actor, authz.Owned("feedback", *req.UserID)); err != nil {
		return storeError(c, err, "")
	}
	f := model.Feedback{UserID: *req.UserID, Rating: req.Rating, Comments: req.Comments}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Feedback.Create(ctx, &f); err != nil {
		return storeError(c, err, "Error submitting feedback")
	}
	return okMessage(c, http.StatusCreated, "Feedback submitted successfully", f)
}

func (h *FeedbackHandler) ByUser(c echo.Context) error {
	uid, valid := idParam(c, "userId")
	if !valid {
		return badID(c)
	}
	if err := authz.Check(middleware.Actor(c), authz.Owned("feedback", uid)); err != nil {
		return storeError(c, err, "")
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Feedback.ByUser(ctx, uid)
	if err != nil {
		return serverError(c, "Error fetching feedback", err)
	}
	return ok(c, http.StatusOK, out)
}

// List returns all feedback (admin).
func (h *FeedbackHandler) List(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	out, err := h.Feedback.List(ctx)
	if err != nil {
		return serverError(c, "Error fetching feedback", err)
	}
	return ok(c, http.StatusOK, out)
}
