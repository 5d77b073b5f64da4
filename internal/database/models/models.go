// Package models defines the data structures for database entities in the
// IFPass API. It includes models for users, events, subscriptions, and
// attendance certificates, representing the core data model for the
// application.
package models

import (
	"database/sql"
	"time"
)

// User roles
const (
	RoleAdmin     = "admin"
	RoleOrganizer = "organizer"
	RoleAttendee  = "attendee"
)

// User and event types
const (
	TypeInternal = "internal"
	TypeExternal = "external"
)

// Subscription statuses
const (
	StatusConfirmed = "confirmed"
	StatusAttended  = "attended"
	StatusCancelled = "cancelled"
	StatusNoShow    = "no_show"
)

// User represents a system user
type User struct {
	ID           int64          `db:"id" json:"id"`
	FullName     sql.NullString `db:"full_name" json:"full_name"`
	Email        string         `db:"email" json:"email"`
	PasswordHash string         `db:"password_hash" json:"-"`
	Type         string         `db:"type" json:"type"`
	Role         string         `db:"role" json:"role"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt    sql.NullTime   `db:"updated_at" json:"updated_at"`
}

// CanManageEvents reports whether the user may create events and act on
// other users' subscriptions
func (u *User) CanManageEvents() bool {
	return u.Role == RoleAdmin || u.Role == RoleOrganizer
}

// Event represents an event attendees can subscribe to
type Event struct {
	ID          int64          `db:"id" json:"id"`
	UserID      int64          `db:"user_id" json:"user_id"`
	Name        string         `db:"name" json:"name"`
	Type        string         `db:"type" json:"type"`
	Description sql.NullString `db:"description" json:"description"`
	Date        time.Time      `db:"date" json:"date"`
	Location    sql.NullString `db:"location" json:"location"`
	Capacity    sql.NullInt64  `db:"capacity" json:"capacity"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   sql.NullTime   `db:"updated_at" json:"updated_at"`
}

// Subscription represents a user's registration for an event
type Subscription struct {
	ID          int64        `db:"id" json:"id"`
	UserID      int64        `db:"user_id" json:"user_id"`
	EventID     int64        `db:"event_id" json:"event_id"`
	Status      string       `db:"status" json:"status"`
	CheckedInAt sql.NullTime `db:"checked_in_at" json:"checked_in_at"`
	CreatedAt   time.Time    `db:"created_at" json:"created_at"`
	UpdatedAt   sql.NullTime `db:"updated_at" json:"updated_at"`
}

// HasAttended reports whether the subscription holder checked in
func (s *Subscription) HasAttended() bool {
	return s.Status == StatusAttended
}

// IsCancelled reports whether the subscription was cancelled
func (s *Subscription) IsCancelled() bool {
	return s.Status == StatusCancelled
}

// Certificate represents a signed certificate of attendance
type Certificate struct {
	ID                int64         `db:"id" json:"id"`
	UserID            int64         `db:"user_id" json:"user_id"`
	EventID           int64         `db:"event_id" json:"event_id"`
	SubscriptionID    sql.NullInt64 `db:"subscription_id" json:"subscription_id"`
	VerificationToken string        `db:"verification_token" json:"verification_token"`
	CertificateNumber string        `db:"certificate_number" json:"certificate_number"`
	Signature         string        `db:"signature" json:"signature"`
	IssuedAt          time.Time     `db:"issued_at" json:"issued_at"`
	VerifiedAt        sql.NullTime  `db:"verified_at" json:"verified_at"`
	VerificationCount int           `db:"verification_count" json:"verification_count"`
	CreatedAt         time.Time     `db:"created_at" json:"created_at"`
	UpdatedAt         sql.NullTime  `db:"updated_at" json:"updated_at"`
}
