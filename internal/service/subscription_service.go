package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eduardobaptist/ifpass-api/internal/database"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"
)

// SubscriptionService handles event subscriptions and check-ins
type SubscriptionService struct {
	db           *database.Database
	eventService *EventService
}

// NewSubscriptionService creates a new subscription service
func NewSubscriptionService(db *database.Database, eventService *EventService) *SubscriptionService {
	return &SubscriptionService{
		db:           db,
		eventService: eventService,
	}
}

// Subscribe registers a user for an event
func (s *SubscriptionService) Subscribe(userID, eventID int64) (*models.Subscription, error) {
	event, err := s.eventService.GetEvent(eventID)
	if err != nil {
		return nil, err
	}

	full, err := s.eventService.IsFull(event)
	if err != nil {
		return nil, err
	}
	if full {
		return nil, ErrEventFull
	}

	sub := &models.Subscription{
		UserID:    userID,
		EventID:   eventID,
		Status:    models.StatusConfirmed,
		CreatedAt: time.Now(),
	}

	if err := s.db.CreateSubscription(sub); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAlreadySubscribed
		}
		return nil, fmt.Errorf("failed to create subscription: %w", err)
	}

	return sub, nil
}

// GetSubscription returns a subscription by ID
func (s *SubscriptionService) GetSubscription(id int64) (*models.Subscription, error) {
	sub, err := s.db.GetSubscription(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}
	return sub, nil
}

// ListByUser returns a user's subscriptions, newest first
func (s *SubscriptionService) ListByUser(userID int64) ([]*models.Subscription, error) {
	return s.db.ListSubscriptionsByUser(userID)
}

// ListByEvent returns all subscriptions for an event
func (s *SubscriptionService) ListByEvent(eventID int64) ([]*models.Subscription, error) {
	return s.db.ListSubscriptionsByEvent(eventID)
}

// Cancel cancels a subscription. Attended subscriptions cannot be cancelled.
func (s *SubscriptionService) Cancel(id int64) (*models.Subscription, error) {
	sub, err := s.GetSubscription(id)
	if err != nil {
		return nil, err
	}

	if sub.IsCancelled() {
		return nil, ErrAlreadyCancelled
	}
	if sub.HasAttended() {
		return nil, ErrAlreadyCheckedIn
	}

	sub.Status = models.StatusCancelled
	if err := s.db.UpdateSubscriptionStatus(sub); err != nil {
		return nil, fmt.Errorf("failed to cancel subscription: %w", err)
	}

	return sub, nil
}

// CheckIn marks a subscription as attended and stamps the check-in time.
// This is the precondition for certificate issuance.
func (s *SubscriptionService) CheckIn(id int64) (*models.Subscription, error) {
	sub, err := s.GetSubscription(id)
	if err != nil {
		return nil, err
	}

	if sub.HasAttended() {
		return nil, ErrAlreadyCheckedIn
	}
	if sub.IsCancelled() {
		return nil, ErrSubscriptionCancelled
	}

	sub.Status = models.StatusAttended
	sub.CheckedInAt = sql.NullTime{Time: time.Now(), Valid: true}
	if err := s.db.UpdateSubscriptionStatus(sub); err != nil {
		return nil, fmt.Errorf("failed to check in: %w", err)
	}

	return sub, nil
}
