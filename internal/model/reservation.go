package model

import "time"

// Reservation statuses.  Any status may be set to any other by an admin;
// Cancelled reservations no longer block a table.
const (
	ReservationPending   = "Pending"
	ReservationConfirmed = "Confirmed"
	ReservationCompleted = "Completed"
	ReservationCancelled = "Cancelled"
)

// ValidReservationStatus reports whether s is one of the four statuses.
func ValidReservationStatus(s string) bool {
	switch s {
	case ReservationPending, ReservationConfirmed, ReservationCompleted, ReservationCancelled:
		return true
	}
	return false
}

// Reservation books a table on a calendar day for the half-open hour range
// [StartTime, EndTime).
//
// Fields:
//  Date               – calendar day, time of day is always midnight UTC.
//  StartTime/EndTime  – integer hours, 0..24.
//  People             – party size, at least one.
//  SatisfactionRating – optional 1..10 score recorded after the visit.
type Reservation struct {
	ReservationID      uint64    `json:"ReservationID"`
	UserID             uint64    `json:"UserID"`
	TableID            uint64    `json:"TableID"`
	Date               time.Time `json:"-"`
	StartTime          int       `json:"StartTime"`
	EndTime            int       `json:"EndTime"`
	People             int       `json:"People"`
	Status             string    `json:"Status"`
	SatisfactionRating *int      `json:"SatisfactionRating"`
	CreatedAt          time.Time `json:"CreatedAt"`
}

// ReservationView is a reservation joined with its user and table for
// listings.
type ReservationView struct {
	Reservation
	DateText      string  `json:"Date"`
	UserName      *string `json:"UserName"`
	TableLocation *string `json:"TableLocation,omitempty"`
	TableCapacity *int    `json:"TableCapacity,omitempty"`
}
