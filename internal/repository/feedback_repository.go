package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/iliyamo/restaurant-management/internal/database"
	"github.com/iliyamo/restaurant-management/internal/model"
)

type FeedbackRepo struct{ DB *sql.DB }

func NewFeedbackRepo(db *sql.DB) *FeedbackRepo { return &FeedbackRepo{DB: db} }

// Create stores f, stamping FeedbackDate with the current time.
func (r *FeedbackRepo) Create(ctx context.Context, f *model.Feedback) error {
	f.FeedbackDate = time.Now().UTC().Truncate(time.Second)
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO feedback (user_id, rating, comments, feedback_date) VALUES (?,?,?,?)",
		f.UserID, f.Rating, f.Comments, f.FeedbackDate)
	if err != nil {
		if database.IsMySQLError(err, database.ErrNoReferencedRow) {
			return ErrUserNotFound
		}
		return err
	}
	f.FeedbackID, err = lastID(res)
	return err
}

const feedbackSelect = `SELECT f.id, f.user_id, u.name, f.rating, f.comments, f.feedback_date
FROM feedback f LEFT JOIN users u ON u.id = f.user_id`

func (r *FeedbackRepo) query(ctx context.Context, q string, args ...any) ([]model.Feedback, error) {
	rows, err := r.DB.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Feedback{}
	for rows.Next() {
		var (
			f              model.Feedback
			name, comments sql.NullString
		)
		if err := rows.Scan(&f.FeedbackID, &f.UserID, &name, &f.Rating, &comments, &f.FeedbackDate); err != nil {
			return nil, err
		}
		if name.Valid {
			f.UserName = &name.String
		}
		if comments.Valid {
			f.Comments = &comments.String
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ByUser returns a user's feedback, newest first.
func (r *FeedbackRepo) ByUser(ctx context.Context, userID uint64) ([]model.Feedback, error) {
	return r.query(ctx, feedbackSelect+" WHERE f.user_id = ? ORDER BY f.feedback_date DESC", userID)
}

func (r *FeedbackRepo) List(ctx context.Context) ([]model.Feedback, error) {
	return r.query(ctx, feedbackSelect+" ORDER BY f.feedback_date DESC")
}
