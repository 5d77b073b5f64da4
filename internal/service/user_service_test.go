package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eduardobaptist/ifpass-api/internal/auth"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"
)

func TestUserService_Register(t *testing.T) {
	t.Run("Register new user", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewUserService(db, testConfig())

		user, token, err := svc.Register(&RegisterRequest{
			Email:    "alice@example.com",
			Password: "Password123",
			FullName: "Alice Silva",
		})
		require.NoError(t, err)
		assert.NotZero(t, user.ID)
		assert.Equal(t, "alice@example.com", user.Email)
		assert.Equal(t, "Alice Silva", user.FullName.String)
		assert.NotEmpty(t, token)

		// Password is stored hashed
		assert.NotEqual(t, "Password123", user.PasswordHash)
		assert.NoError(t, auth.VerifyPassword("Password123", user.PasswordHash))
	})

	t.Run("Self-registration always creates attendees", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewUserService(db, testConfig())

		user, _, err := svc.Register(&RegisterRequest{
			Email:    "bob@example.com",
			Password: "Password123",
		})
		require.NoError(t, err)
		assert.Equal(t, models.RoleAttendee, user.Role)
	})

	t.Run("Returned token is valid", func(t *testing.T) {
		db := setupTestDB(t)
		cfg := testConfig()
		svc := NewUserService(db, cfg)

		user, token, err := svc.Register(&RegisterRequest{
			Email:    "carol@example.com",
			Password: "Password123",
		})
		require.NoError(t, err)

		claims, err := auth.ValidateToken(token, cfg.JWT.Secret)
		require.NoError(t, err)
		assert.Equal(t, user.ID, claims.UserID)
		assert.Equal(t, user.Email, claims.Email)
	})

	t.Run("Duplicate email returns ErrEmailTaken", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewUserService(db, testConfig())

		_, _, err := svc.Register(&RegisterRequest{
			Email: "alice@example.com", Password: "Password123",
		})
		require.NoError(t, err)

		_, _, err = svc.Register(&RegisterRequest{
			Email: "alice@example.com", Password: "Password456",
		})
		assert.ErrorIs(t, err, ErrEmailTaken)
	})

	t.Run("Weak password is rejected", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewUserService(db, testConfig())

		_, _, err := svc.Register(&RegisterRequest{
			Email: "weak@example.com", Password: "short",
		})
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "weak password")
	})

	t.Run("Default type is external", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewUserService(db, testConfig())

		user, _, err := svc.Register(&RegisterRequest{
			Email: "ext@example.com", Password: "Password123",
		})
		require.NoError(t, err)
		assert.Equal(t, models.TypeExternal, user.Type)
	})
}

func TestUserService_Login(t *testing.T) {
	t.Run("Login with correct credentials", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewUserService(db, testConfig())

		registered, _, err := svc.Register(&RegisterRequest{
			Email: "alice@example.com", Password: "Password123",
		})
		require.NoError(t, err)

		user, token, err := svc.Login("alice@example.com", "Password123")
		require.NoError(t, err)
		assert.Equal(t, registered.ID, user.ID)
		assert.NotEmpty(t, token)
	})

	t.Run("Wrong password returns ErrInvalidCredentials", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewUserService(db, testConfig())

		_, _, err := svc.Register(&RegisterRequest{
			Email: "alice@example.com", Password: "Password123",
		})
		require.NoError(t, err)

		_, _, err = svc.Login("alice@example.com", "WrongPassword1")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})

	t.Run("Unknown email returns ErrInvalidCredentials", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewUserService(db, testConfig())

		_, _, err := svc.Login("nobody@example.com", "Password123")
		assert.ErrorIs(t, err, ErrInvalidCredentials)
	})
}

func TestUserService_CRUD(t *testing.T) {
	t.Run("Get, update, delete user", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewUserService(db, testConfig())

		registered, _, err := svc.Register(&RegisterRequest{
			Email: "alice@example.com", Password: "Password123",
		})
		require.NoError(t, err)

		got, err := svc.GetUser(registered.ID)
		require.NoError(t, err)
		assert.Equal(t, registered.Email, got.Email)

		updated, err := svc.UpdateUser(registered.ID, &UpdateUserRequest{
			Role: models.RoleOrganizer,
		})
		require.NoError(t, err)
		assert.Equal(t, models.RoleOrganizer, updated.Role)

		require.NoError(t, svc.DeleteUser(registered.ID))

		_, err = svc.GetUser(registered.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Unknown user returns ErrNotFound", func(t *testing.T) {
		db := setupTestDB(t)
		svc := NewUserService(db, testConfig())

		_, err := svc.GetUser(9999)
		assert.ErrorIs(t, err, ErrNotFound)

		_, err = svc.UpdateUser(9999, &UpdateUserRequest{Role: models.RoleAdmin})
		assert.ErrorIs(t, err, ErrNotFound)

		err = svc.DeleteUser(9999)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}
