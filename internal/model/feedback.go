package model

import "time"

// Feedback is a 1..10 rating with optional comments left by a user.
type Feedback struct {
	FeedbackID   uint64    `json:"FeedbackID"`
	UserID       uint64    `json:"UserID"`
	UserName     *string   `json:"UserName,omitempty"`
	Rating       int       `json:"Rating"`
	Comments     *string   `json:"Comments"`
	FeedbackDate time.Time `json:"FeedbackDate"`
}
