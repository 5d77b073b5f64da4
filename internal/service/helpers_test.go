package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/eduardobaptist/ifpass-api/internal/config"
	"github.com/eduardobaptist/ifpass-api/internal/crypto"
	"github.com/eduardobaptist/ifpass-api/internal/database"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"
)

// setupTestDB creates a migrated SQLite database in a temp dir
func setupTestDB(t *testing.T) *database.Database {
	t.Helper()

	cfg := &config.Config{
		Database: config.DatabaseConfig{
			Type: "sqlite",
			SQLite: config.SQLiteConfig{
				Path: t.TempDir() + "/test.db",
			},
		},
	}

	db, err := database.New(cfg)
	require.NoError(t, err)
	require.NoError(t, db.Migrate())

	t.Cleanup(func() { db.Close() })

	return db
}

func testConfig() *config.Config {
	return &config.Config{
		JWT: config.JWTConfig{
			Secret:     "test-jwt-secret",
			Expiration: 24 * time.Hour,
			Issuer:     "test-issuer",
		},
		App: config.AppConfig{
			Secret: "test-app-secret",
		},
	}
}

func testSigner() *crypto.Signer {
	return crypto.NewSigner("test-app-secret")
}

func futureDate() time.Time {
	return time.Now().Add(24 * time.Hour)
}

// seedAttendedSubscription creates a user, organizer, event, and a
// checked-in subscription, the precondition for issuing a certificate
func seedAttendedSubscription(t *testing.T, db *database.Database) *models.Subscription {
	t.Helper()

	userService := NewUserService(db, testConfig())
	eventService := NewEventService(db)
	subService := NewSubscriptionService(db, eventService)

	user, _, err := userService.Register(&RegisterRequest{
		Email:    "attendee@example.com",
		Password: "Password123",
		FullName: "Attendee One",
	})
	require.NoError(t, err)

	organizer, _, err := userService.Register(&RegisterRequest{
		Email:    "organizer@example.com",
		Password: "Password123",
		FullName: "Organizer One",
	})
	require.NoError(t, err)

	event, err := eventService.CreateEvent(organizer.ID, &CreateEventRequest{
		Name: "Tech Week",
		Date: time.Now().Add(24 * time.Hour),
	})
	require.NoError(t, err)

	sub, err := subService.Subscribe(user.ID, event.ID)
	require.NoError(t, err)

	sub, err = subService.CheckIn(sub.ID)
	require.NoError(t, err)

	return sub
}
