// Package handlers implements the HTTP handlers of the IFPass API. Handlers
// bind and validate requests, call into the service layer, and shape JSON
// responses.
package handlers

import (
	"database/sql"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/eduardobaptist/ifpass-api/internal/database/models"
)

// nullString flattens a sql.NullString for JSON responses
func nullString(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	return &s.String
}

// nullTime flattens a sql.NullTime for JSON responses
func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	return &t.Time
}

// nullInt64 flattens a sql.NullInt64 for JSON responses
func nullInt64(i sql.NullInt64) *int64 {
	if !i.Valid {
		return nil
	}
	return &i.Int64
}

func userResponse(user *models.User) gin.H {
	return gin.H{
		"id":         user.ID,
		"email":      user.Email,
		"full_name":  nullString(user.FullName),
		"type":       user.Type,
		"role":       user.Role,
		"created_at": user.CreatedAt,
		"updated_at": nullTime(user.UpdatedAt),
	}
}

func eventResponse(event *models.Event) gin.H {
	return gin.H{
		"id":          event.ID,
		"user_id":     event.UserID,
		"name":        event.Name,
		"type":        event.Type,
		"description": nullString(event.Description),
		"date":        event.Date,
		"location":    nullString(event.Location),
		"capacity":    nullInt64(event.Capacity),
		"created_at":  event.CreatedAt,
	}
}

func subscriptionResponse(sub *models.Subscription) gin.H {
	if sub == nil {
		return nil
	}
	return gin.H{
		"id":            sub.ID,
		"user_id":       sub.UserID,
		"event_id":      sub.EventID,
		"status":        sub.Status,
		"checked_in_at": nullTime(sub.CheckedInAt),
		"created_at":    sub.CreatedAt,
	}
}
