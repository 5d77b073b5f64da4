// Package service implements the business logic of the IFPass API: user
// accounts, events, subscriptions, and the issuance and verification of
// signed attendance certificates.
package service

import "errors"

// Sentinel errors returned by services. Handlers map these to HTTP statuses
// with errors.Is.
var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrEmailTaken is returned when registering with an email already in use
	ErrEmailTaken = errors.New("email already registered")

	// ErrInvalidCredentials is returned on login with a bad email or password
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrAlreadySubscribed is returned when subscribing twice to an event
	ErrAlreadySubscribed = errors.New("already subscribed to this event")

	// ErrEventFull is returned when an event reached its capacity
	ErrEventFull = errors.New("event is full")

	// ErrAlreadyCancelled is returned when cancelling a cancelled subscription
	ErrAlreadyCancelled = errors.New("subscription is already cancelled")

	// ErrAlreadyCheckedIn is returned when checking in twice
	ErrAlreadyCheckedIn = errors.New("subscription already checked in")

	// ErrSubscriptionCancelled is returned when acting on a cancelled subscription
	ErrSubscriptionCancelled = errors.New("subscription is cancelled")

	// ErrNotCheckedIn is returned when issuing a certificate for a
	// subscription without a check-in
	ErrNotCheckedIn = errors.New("subscription has no check-in")

	// ErrInvalidSignature is returned when a certificate's signature does not
	// match its verification token, indicating corruption or tampering
	ErrInvalidSignature = errors.New("certificate signature is invalid")

	// ErrIssuanceFailed is returned when certificate identifier generation
	// kept colliding and retries were exhausted
	ErrIssuanceFailed = errors.New("failed to issue certificate")
)
