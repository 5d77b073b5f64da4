package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eduardobaptist/ifpass-api/internal/database"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"
)

// EventService handles event operations
type EventService struct {
	db *database.Database
}

// NewEventService creates a new event service
func NewEventService(db *database.Database) *EventService {
	return &EventService{db: db}
}

// CreateEventRequest represents a request to create or update an event
type CreateEventRequest struct {
	Name        string
	Type        string
	Description string
	Date        time.Time
	Location    string
	Capacity    int64
}

// CreateEvent creates a new event owned by the given organizer
func (s *EventService) CreateEvent(organizerID int64, req *CreateEventRequest) (*models.Event, error) {
	eventType := req.Type
	if eventType == "" {
		eventType = models.TypeInternal
	}

	event := &models.Event{
		UserID:      organizerID,
		Name:        req.Name,
		Type:        eventType,
		Description: sql.NullString{String: req.Description, Valid: req.Description != ""},
		Date:        req.Date,
		Location:    sql.NullString{String: req.Location, Valid: req.Location != ""},
		Capacity:    sql.NullInt64{Int64: req.Capacity, Valid: req.Capacity > 0},
		CreatedAt:   time.Now(),
	}

	if err := s.db.CreateEvent(event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return event, nil
}

// GetEvent returns an event by ID
func (s *EventService) GetEvent(id int64) (*models.Event, error) {
	event, err := s.db.GetEvent(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get event: %w", err)
	}
	return event, nil
}

// ListEvents returns all events ordered by date
func (s *EventService) ListEvents() ([]*models.Event, error) {
	return s.db.ListEvents()
}

// UpdateEvent updates an event's editable fields
func (s *EventService) UpdateEvent(id int64, req *CreateEventRequest) (*models.Event, error) {
	event, err := s.GetEvent(id)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		event.Name = req.Name
	}
	if req.Type != "" {
		event.Type = req.Type
	}
	if req.Description != "" {
		event.Description = sql.NullString{String: req.Description, Valid: true}
	}
	if !req.Date.IsZero() {
		event.Date = req.Date
	}
	if req.Location != "" {
		event.Location = sql.NullString{String: req.Location, Valid: true}
	}
	if req.Capacity > 0 {
		event.Capacity = sql.NullInt64{Int64: req.Capacity, Valid: true}
	}

	if err := s.db.UpdateEvent(event); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update event: %w", err)
	}

	return event, nil
}

// DeleteEvent deletes an event by ID
func (s *EventService) DeleteEvent(id int64) error {
	if err := s.db.DeleteEvent(id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// IsFull reports whether an event has reached its capacity. Events without a
// capacity are never full.
func (s *EventService) IsFull(event *models.Event) (bool, error) {
	if !event.Capacity.Valid {
		return false, nil
	}

	count, err := s.db.CountConfirmedSubscriptions(event.ID)
	if err != nil {
		return false, fmt.Errorf("failed to count subscriptions: %w", err)
	}

	return count >= event.Capacity.Int64, nil
}
