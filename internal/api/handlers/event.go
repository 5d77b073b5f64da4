package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eduardobaptist/ifpass-api/internal/api/middleware"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"
	"github.com/eduardobaptist/ifpass-api/internal/service"
)

// EventHandler handles event operations
type EventHandler struct {
	eventService *service.EventService
	logger       *zap.Logger
}

// NewEventHandler creates a new event handler
func NewEventHandler(eventService *service.EventService, logger *zap.Logger) *EventHandler {
	return &EventHandler{
		eventService: eventService,
		logger:       logger,
	}
}

// ListEvents lists all events
func (h *EventHandler) ListEvents(c *gin.Context) {
	events, err := h.eventService.ListEvents()
	if err != nil {
		h.logger.Error("Failed to list events", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list events"})
		return
	}

	resp := make([]gin.H, len(events))
	for i, event := range events {
		resp[i] = eventResponse(event)
	}

	c.JSON(http.StatusOK, gin.H{"events": resp})
}

// GetEvent returns a specific event
func (h *EventHandler) GetEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	event, err := h.eventService.GetEvent(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"event": eventResponse(event)})
}

// CreateEventRequest represents a request to create or update an event
type CreateEventRequest struct {
	Name        string    `json:"name" binding:"required"`
	Type        string    `json:"type" binding:"omitempty,oneof=internal external"`
	Description string    `json:"description"`
	Date        time.Time `json:"date" binding:"required"`
	Location    string    `json:"location"`
	Capacity    int64     `json:"capacity" binding:"omitempty,gt=0"`
}

// CreateEvent creates a new event owned by the caller
func (h *EventHandler) CreateEvent(c *gin.Context) {
	var req CreateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.eventService.CreateEvent(middleware.UserID(c), &service.CreateEventRequest{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Capacity:    req.Capacity,
	})
	if err != nil {
		h.logger.Error("Failed to create event", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create event"})
		return
	}

	h.logger.Info("Event created", zap.Int64("id", event.ID), zap.String("name", event.Name))

	c.JSON(http.StatusCreated, gin.H{
		"event":   eventResponse(event),
		"message": "event created successfully",
	})
}

// canEditEvent reports whether the caller may modify the event: the owning
// organizer or an admin
func canEditEvent(c *gin.Context, event *models.Event) bool {
	if event.UserID == middleware.UserID(c) {
		return true
	}
	role, _ := c.Get("role")
	return role == models.RoleAdmin
}

// UpdateEventRequest represents a partial update to an event
type UpdateEventRequest struct {
	Name        string    `json:"name"`
	Type        string    `json:"type" binding:"omitempty,oneof=internal external"`
	Description string    `json:"description"`
	Date        time.Time `json:"date"`
	Location    string    `json:"location"`
	Capacity    int64     `json:"capacity" binding:"omitempty,gt=0"`
}

// UpdateEvent updates an event
func (h *EventHandler) UpdateEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	var req UpdateEventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	event, err := h.eventService.GetEvent(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	if !canEditEvent(c, event) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to modify this event"})
		return
	}

	event, err = h.eventService.UpdateEvent(id, &service.CreateEventRequest{
		Name:        req.Name,
		Type:        req.Type,
		Description: req.Description,
		Date:        req.Date,
		Location:    req.Location,
		Capacity:    req.Capacity,
	})
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
			return
		}
		h.logger.Error("Failed to update event", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update event"})
		return
	}

	h.logger.Info("Event updated", zap.Int64("id", id))

	c.JSON(http.StatusOK, gin.H{
		"event":   eventResponse(event),
		"message": "event updated successfully",
	})
}

// DeleteEvent deletes an event
func (h *EventHandler) DeleteEvent(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	event, err := h.eventService.GetEvent(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	if !canEditEvent(c, event) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to delete this event"})
		return
	}

	if err := h.eventService.DeleteEvent(id); err != nil {
		h.logger.Error("Failed to delete event", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete event"})
		return
	}

	h.logger.Info("Event deleted", zap.Int64("id", id))

	c.Status(http.StatusNoContent)
}
