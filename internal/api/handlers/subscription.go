package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eduardobaptist/ifpass-api/internal/api/middleware"
	"github.com/eduardobaptist/ifpass-api/internal/service"
)

// SubscriptionHandler handles event subscriptions and check-ins
type SubscriptionHandler struct {
	subscriptionService *service.SubscriptionService
	eventService        *service.EventService
	logger              *zap.Logger
}

// NewSubscriptionHandler creates a new subscription handler
func NewSubscriptionHandler(subscriptionService *service.SubscriptionService, eventService *service.EventService, logger *zap.Logger) *SubscriptionHandler {
	return &SubscriptionHandler{
		subscriptionService: subscriptionService,
		eventService:        eventService,
		logger:              logger,
	}
}

// SubscribeRequest represents a request to subscribe to an event
type SubscribeRequest struct {
	EventID int64 `json:"event_id" binding:"required"`
}

// Subscribe registers the caller for an event
func (h *SubscriptionHandler) Subscribe(c *gin.Context) {
	var req SubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID := middleware.UserID(c)

	sub, err := h.subscriptionService.Subscribe(userID, req.EventID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		case errors.Is(err, service.ErrEventFull):
			c.JSON(http.StatusConflict, gin.H{"error": "event is at capacity"})
		case errors.Is(err, service.ErrAlreadySubscribed):
			c.JSON(http.StatusConflict, gin.H{"error": "already subscribed to this event"})
		default:
			h.logger.Error("Failed to subscribe", zap.Int64("user_id", userID), zap.Int64("event_id", req.EventID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to subscribe"})
		}
		return
	}

	h.logger.Info("Subscription created",
		zap.Int64("id", sub.ID),
		zap.Int64("user_id", userID),
		zap.Int64("event_id", req.EventID))

	c.JSON(http.StatusCreated, gin.H{
		"subscription": subscriptionResponse(sub),
		"message":      "subscribed successfully",
	})
}

// MySubscriptions lists the caller's subscriptions
func (h *SubscriptionHandler) MySubscriptions(c *gin.Context) {
	subs, err := h.subscriptionService.ListByUser(middleware.UserID(c))
	if err != nil {
		h.logger.Error("Failed to list subscriptions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscriptions"})
		return
	}

	resp := make([]gin.H, len(subs))
	for i, sub := range subs {
		resp[i] = subscriptionResponse(sub)
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": resp})
}

// EventSubscriptions lists a given event's subscriptions. Restricted to the
// event's organizer and admins.
func (h *SubscriptionHandler) EventSubscriptions(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid event id"})
		return
	}

	event, err := h.eventService.GetEvent(eventID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "event not found"})
		return
	}

	if !canEditEvent(c, event) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to view this event's subscriptions"})
		return
	}

	subs, err := h.subscriptionService.ListByEvent(eventID)
	if err != nil {
		h.logger.Error("Failed to list event subscriptions", zap.Int64("event_id", eventID), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list subscriptions"})
		return
	}

	resp := make([]gin.H, len(subs))
	for i, sub := range subs {
		resp[i] = subscriptionResponse(sub)
	}

	c.JSON(http.StatusOK, gin.H{"subscriptions": resp})
}

// Cancel cancels one of the caller's subscriptions
func (h *SubscriptionHandler) Cancel(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid subscription id"})
		return
	}

	sub, err := h.subscriptionService.GetSubscription(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	if sub.UserID != middleware.UserID(c) && !middleware.CanManageEvents(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to cancel this subscription"})
		return
	}

	sub, err = h.subscriptionService.Cancel(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyCancelled):
			c.JSON(http.StatusConflict, gin.H{"error": "subscription is already cancelled"})
		case errors.Is(err, service.ErrAlreadyCheckedIn):
			c.JSON(http.StatusConflict, gin.H{"error": "attended subscriptions cannot be cancelled"})
		default:
			h.logger.Error("Failed to cancel subscription", zap.Int64("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to cancel subscription"})
		}
		return
	}

	h.logger.Info("Subscription cancelled", zap.Int64("id", id))

	c.JSON(http.StatusOK, gin.H{
		"subscription": subscriptionResponse(sub),
		"message":      "subscription cancelled",
	})
}

// CheckInRequest represents a request to mark a subscription as attended
type CheckInRequest struct {
	SubscriptionID int64 `json:"subscription_id" binding:"required"`
}

// CheckIn marks a subscription as attended. Permitted for the subscription's
// owner and for event managers.
func (h *SubscriptionHandler) CheckIn(c *gin.Context) {
	var req CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	id := req.SubscriptionID

	sub, err := h.subscriptionService.GetSubscription(id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	if sub.UserID != middleware.UserID(c) && !middleware.CanManageEvents(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to check in this subscription"})
		return
	}

	sub, err = h.subscriptionService.CheckIn(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrAlreadyCheckedIn):
			c.JSON(http.StatusConflict, gin.H{"error": "subscription is already checked in"})
		case errors.Is(err, service.ErrSubscriptionCancelled):
			c.JSON(http.StatusConflict, gin.H{"error": "cancelled subscriptions cannot be checked in"})
		default:
			h.logger.Error("Failed to check in", zap.Int64("id", id), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to check in"})
		}
		return
	}

	h.logger.Info("Attendee checked in", zap.Int64("id", id), zap.Int64("event_id", sub.EventID))

	c.JSON(http.StatusOK, gin.H{
		"subscription": subscriptionResponse(sub),
		"message":      "checked in successfully",
	})
}
