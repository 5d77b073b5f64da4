// Package database provides database connection management, migrations, and
// data access methods for the IFPass API.
package database

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/eduardobaptist/ifpass-api/internal/config"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"

	"github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// ErrDuplicate is returned when an insert violates a uniqueness constraint
var ErrDuplicate = errors.New("duplicate record")

// Database represents the database connection and operations
type Database struct {
	db     *sql.DB
	dbType string
}

// New creates a new database connection
func New(cfg *config.Config) (*Database, error) {
	var db *sql.DB
	var err error

	switch cfg.Database.Type {
	case "sqlite":
		db, err = sql.Open("sqlite3", cfg.Database.SQLite.Path+"?_foreign_keys=on")
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite database: %w", err)
		}
		// SQLite only allows one writer at a time
		db.SetMaxOpenConns(1)
	case "postgres":
		db, err = sql.Open("postgres", cfg.GetDSN())
		if err != nil {
			return nil, fmt.Errorf("failed to open PostgreSQL database: %w", err)
		}
		db.SetMaxOpenConns(cfg.Database.Postgres.MaxOpenConns)
		db.SetMaxIdleConns(cfg.Database.Postgres.MaxIdleConns)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", cfg.Database.Type)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &Database{
		db:     db,
		dbType: cfg.Database.Type,
	}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Migrate runs database migrations
func (d *Database) Migrate() error {
	var migrationFiles []string
	if d.dbType == "postgres" {
		migrationFiles = []string{
			"migrations/000001_init_schema.postgres.up.sql",
		}
	} else {
		migrationFiles = []string{
			"migrations/000001_init_schema.up.sql",
		}
	}

	for _, migrationFile := range migrationFiles {
		content, err := migrationsFS.ReadFile(migrationFile)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", migrationFile, err)
		}

		// Remove comments and split into statements
		var statements []string
		lines := strings.Split(string(content), "\n")
		var currentStmt strings.Builder

		for _, line := range lines {
			line = strings.TrimSpace(line)
			if strings.HasPrefix(line, "--") || line == "" {
				continue
			}

			currentStmt.WriteString(line)
			currentStmt.WriteString("\n")

			if strings.HasSuffix(line, ";") {
				stmt := strings.TrimSpace(currentStmt.String())
				if stmt != "" {
					statements = append(statements, stmt)
				}
				currentStmt.Reset()
			}
		}

		for _, stmt := range statements {
			if _, err := d.db.Exec(stmt); err != nil {
				// Ignore "already exists" errors for idempotent migrations
				if !strings.Contains(err.Error(), "already exists") {
					return fmt.Errorf("migration %s failed: %w\nStatement: %s", migrationFile, err, stmt)
				}
			}
		}
	}

	return nil
}

// DB returns the underlying database connection for direct queries
func (d *Database) DB() *sql.DB {
	return d.db
}

// isUniqueViolation reports whether err is a uniqueness constraint violation
// from either backend
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// User operations

// CreateUser creates a new user and assigns its generated ID.
// Returns ErrDuplicate if the email is already registered.
func (d *Database) CreateUser(user *models.User) error {
	if d.dbType == "postgres" {
		query := `INSERT INTO users (full_name, email, password_hash, type, role, created_at)
		          VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
		err := d.db.QueryRow(query,
			user.FullName, user.Email, user.PasswordHash, user.Type, user.Role, user.CreatedAt,
		).Scan(&user.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	}

	query := `INSERT INTO users (full_name, email, password_hash, type, role, created_at)
	          VALUES (?, ?, ?, ?, ?, ?)`
	res, err := d.db.Exec(query,
		user.FullName, user.Email, user.PasswordHash, user.Type, user.Role, user.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	user.ID, err = res.LastInsertId()
	return err
}

const userColumns = `id, full_name, email, password_hash, type, role, created_at, updated_at`

func scanUser(row *sql.Row) (*models.User, error) {
	var user models.User
	err := row.Scan(
		&user.ID, &user.FullName, &user.Email, &user.PasswordHash,
		&user.Type, &user.Role, &user.CreatedAt, &user.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUser retrieves a user by ID
func (d *Database) GetUser(id int64) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	}
	return scanUser(d.db.QueryRow(query, id))
}

// GetUserByEmail retrieves a user by email
func (d *Database) GetUserByEmail(email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	}
	return scanUser(d.db.QueryRow(query, email))
}

// ListUsers retrieves all users, newest first
func (d *Database) ListUsers() ([]*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users ORDER BY created_at DESC`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		var user models.User
		err := rows.Scan(
			&user.ID, &user.FullName, &user.Email, &user.PasswordHash,
			&user.Type, &user.Role, &user.CreatedAt, &user.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		users = append(users, &user)
	}

	return users, rows.Err()
}

// UpdateUser persists changes to full_name, type, and role
func (d *Database) UpdateUser(user *models.User) error {
	query := `UPDATE users SET full_name = ?, type = ?, role = ?, updated_at = ? WHERE id = ?`
	if d.dbType == "postgres" {
		query = `UPDATE users SET full_name = $1, type = $2, role = $3, updated_at = $4 WHERE id = $5`
	}

	res, err := d.db.Exec(query, user.FullName, user.Type, user.Role, time.Now(), user.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// DeleteUser deletes a user by ID
func (d *Database) DeleteUser(id int64) error {
	query := `DELETE FROM users WHERE id = ?`
	if d.dbType == "postgres" {
		query = `DELETE FROM users WHERE id = $1`
	}

	res, err := d.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Event operations

const eventColumns = `id, user_id, name, type, description, date, location, capacity, created_at, updated_at`

// CreateEvent creates a new event and assigns its generated ID
func (d *Database) CreateEvent(event *models.Event) error {
	if d.dbType == "postgres" {
		query := `INSERT INTO events (user_id, name, type, description, date, location, capacity, created_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
		return d.db.QueryRow(query,
			event.UserID, event.Name, event.Type, event.Description,
			event.Date, event.Location, event.Capacity, event.CreatedAt,
		).Scan(&event.ID)
	}

	query := `INSERT INTO events (user_id, name, type, description, date, location, capacity, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := d.db.Exec(query,
		event.UserID, event.Name, event.Type, event.Description,
		event.Date, event.Location, event.Capacity, event.CreatedAt,
	)
	if err != nil {
		return err
	}

	event.ID, err = res.LastInsertId()
	return err
}

// GetEvent retrieves an event by ID
func (d *Database) GetEvent(id int64) (*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + eventColumns + ` FROM events WHERE id = $1`
	}

	var event models.Event
	err := d.db.QueryRow(query, id).Scan(
		&event.ID, &event.UserID, &event.Name, &event.Type, &event.Description,
		&event.Date, &event.Location, &event.Capacity, &event.CreatedAt, &event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &event, nil
}

// ListEvents retrieves all events ordered by date
func (d *Database) ListEvents() ([]*models.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events ORDER BY date ASC`

	rows, err := d.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*models.Event
	for rows.Next() {
		var event models.Event
		err := rows.Scan(
			&event.ID, &event.UserID, &event.Name, &event.Type, &event.Description,
			&event.Date, &event.Location, &event.Capacity, &event.CreatedAt, &event.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		events = append(events, &event)
	}

	return events, rows.Err()
}

// UpdateEvent persists changes to an event's editable fields
func (d *Database) UpdateEvent(event *models.Event) error {
	query := `UPDATE events SET name = ?, type = ?, description = ?, date = ?, location = ?, capacity = ?, updated_at = ?
	          WHERE id = ?`
	if d.dbType == "postgres" {
		query = `UPDATE events SET name = $1, type = $2, description = $3, date = $4, location = $5, capacity = $6, updated_at = $7
		         WHERE id = $8`
	}

	res, err := d.db.Exec(query,
		event.Name, event.Type, event.Description, event.Date,
		event.Location, event.Capacity, time.Now(), event.ID,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// DeleteEvent deletes an event by ID
func (d *Database) DeleteEvent(id int64) error {
	query := `DELETE FROM events WHERE id = ?`
	if d.dbType == "postgres" {
		query = `DELETE FROM events WHERE id = $1`
	}

	res, err := d.db.Exec(query, id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// CountConfirmedSubscriptions returns the number of confirmed subscriptions
// for an event, used for capacity checks
func (d *Database) CountConfirmedSubscriptions(eventID int64) (int64, error) {
	query := `SELECT COUNT(*) FROM subscriptions WHERE event_id = ? AND status = ?`
	if d.dbType == "postgres" {
		query = `SELECT COUNT(*) FROM subscriptions WHERE event_id = $1 AND status = $2`
	}

	var count int64
	err := d.db.QueryRow(query, eventID, models.StatusConfirmed).Scan(&count)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Subscription operations

const subscriptionColumns = `id, user_id, event_id, status, checked_in_at, created_at, updated_at`

// CreateSubscription creates a new subscription and assigns its generated ID.
// Returns ErrDuplicate if the user is already subscribed to the event.
func (d *Database) CreateSubscription(sub *models.Subscription) error {
	if d.dbType == "postgres" {
		query := `INSERT INTO subscriptions (user_id, event_id, status, created_at)
		          VALUES ($1, $2, $3, $4) RETURNING id`
		err := d.db.QueryRow(query, sub.UserID, sub.EventID, sub.Status, sub.CreatedAt).Scan(&sub.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	}

	query := `INSERT INTO subscriptions (user_id, event_id, status, created_at)
	          VALUES (?, ?, ?, ?)`
	res, err := d.db.Exec(query, sub.UserID, sub.EventID, sub.Status, sub.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	sub.ID, err = res.LastInsertId()
	return err
}

// GetSubscription retrieves a subscription by ID
func (d *Database) GetSubscription(id int64) (*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE id = $1`
	}

	var sub models.Subscription
	err := d.db.QueryRow(query, id).Scan(
		&sub.ID, &sub.UserID, &sub.EventID, &sub.Status,
		&sub.CheckedInAt, &sub.CreatedAt, &sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// ListSubscriptionsByUser retrieves a user's subscriptions, newest first
func (d *Database) ListSubscriptionsByUser(userID int64) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = ? ORDER BY created_at DESC`
	if d.dbType == "postgres" {
		query = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE user_id = $1 ORDER BY created_at DESC`
	}
	return d.querySubscriptions(query, userID)
}

// ListSubscriptionsByEvent retrieves all subscriptions for an event
func (d *Database) ListSubscriptionsByEvent(eventID int64) ([]*models.Subscription, error) {
	query := `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE event_id = ? ORDER BY created_at ASC`
	if d.dbType == "postgres" {
		query = `SELECT ` + subscriptionColumns + ` FROM subscriptions WHERE event_id = $1 ORDER BY created_at ASC`
	}
	return d.querySubscriptions(query, eventID)
}

func (d *Database) querySubscriptions(query string, arg int64) ([]*models.Subscription, error) {
	rows, err := d.db.Query(query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var subs []*models.Subscription
	for rows.Next() {
		var sub models.Subscription
		err := rows.Scan(
			&sub.ID, &sub.UserID, &sub.EventID, &sub.Status,
			&sub.CheckedInAt, &sub.CreatedAt, &sub.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		subs = append(subs, &sub)
	}

	return subs, rows.Err()
}

// UpdateSubscriptionStatus persists a subscription's status and check-in time
func (d *Database) UpdateSubscriptionStatus(sub *models.Subscription) error {
	query := `UPDATE subscriptions SET status = ?, checked_in_at = ?, updated_at = ? WHERE id = ?`
	if d.dbType == "postgres" {
		query = `UPDATE subscriptions SET status = $1, checked_in_at = $2, updated_at = $3 WHERE id = $4`
	}

	res, err := d.db.Exec(query, sub.Status, sub.CheckedInAt, time.Now(), sub.ID)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}

// Certificate operations

const certificateColumns = `id, user_id, event_id, subscription_id, verification_token, certificate_number,
	signature, issued_at, verified_at, verification_count, created_at, updated_at`

// CreateCertificate creates a new certificate and assigns its generated ID.
// Returns ErrDuplicate when the verification token, certificate number, or
// the (user, event) pair collides with an existing row.
func (d *Database) CreateCertificate(cert *models.Certificate) error {
	if d.dbType == "postgres" {
		query := `INSERT INTO certificates
		          (user_id, event_id, subscription_id, verification_token, certificate_number, signature, issued_at, created_at)
		          VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
		err := d.db.QueryRow(query,
			cert.UserID, cert.EventID, cert.SubscriptionID, cert.VerificationToken,
			cert.CertificateNumber, cert.Signature, cert.IssuedAt, cert.CreatedAt,
		).Scan(&cert.ID)
		if err != nil {
			if isUniqueViolation(err) {
				return ErrDuplicate
			}
			return err
		}
		return nil
	}

	query := `INSERT INTO certificates
	          (user_id, event_id, subscription_id, verification_token, certificate_number, signature, issued_at, created_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := d.db.Exec(query,
		cert.UserID, cert.EventID, cert.SubscriptionID, cert.VerificationToken,
		cert.CertificateNumber, cert.Signature, cert.IssuedAt, cert.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		return err
	}

	cert.ID, err = res.LastInsertId()
	return err
}

func (d *Database) scanCertificate(row *sql.Row) (*models.Certificate, error) {
	var cert models.Certificate
	err := row.Scan(
		&cert.ID, &cert.UserID, &cert.EventID, &cert.SubscriptionID,
		&cert.VerificationToken, &cert.CertificateNumber, &cert.Signature,
		&cert.IssuedAt, &cert.VerifiedAt, &cert.VerificationCount,
		&cert.CreatedAt, &cert.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &cert, nil
}

// GetCertificate retrieves a certificate by ID
func (d *Database) GetCertificate(id int64) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + certificateColumns + ` FROM certificates WHERE id = $1`
	}
	return d.scanCertificate(d.db.QueryRow(query, id))
}

// GetCertificateByToken retrieves a certificate by verification token
func (d *Database) GetCertificateByToken(token string) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE verification_token = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + certificateColumns + ` FROM certificates WHERE verification_token = $1`
	}
	return d.scanCertificate(d.db.QueryRow(query, token))
}

// GetCertificateByUserAndEvent retrieves the certificate issued for a
// (user, event) pair
func (d *Database) GetCertificateByUserAndEvent(userID, eventID int64) (*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE user_id = ? AND event_id = ?`
	if d.dbType == "postgres" {
		query = `SELECT ` + certificateColumns + ` FROM certificates WHERE user_id = $1 AND event_id = $2`
	}
	return d.scanCertificate(d.db.QueryRow(query, userID, eventID))
}

// ListCertificatesByUser retrieves a user's certificates, newest issued first
func (d *Database) ListCertificatesByUser(userID int64) ([]*models.Certificate, error) {
	query := `SELECT ` + certificateColumns + ` FROM certificates WHERE user_id = ? ORDER BY issued_at DESC`
	if d.dbType == "postgres" {
		query = `SELECT ` + certificateColumns + ` FROM certificates WHERE user_id = $1 ORDER BY issued_at DESC`
	}

	rows, err := d.db.Query(query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var certs []*models.Certificate
	for rows.Next() {
		var cert models.Certificate
		err := rows.Scan(
			&cert.ID, &cert.UserID, &cert.EventID, &cert.SubscriptionID,
			&cert.VerificationToken, &cert.CertificateNumber, &cert.Signature,
			&cert.IssuedAt, &cert.VerifiedAt, &cert.VerificationCount,
			&cert.CreatedAt, &cert.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		certs = append(certs, &cert)
	}

	return certs, rows.Err()
}

// RecordVerification stamps a successful verification: sets verified_at and
// increments verification_count in a single statement so concurrent
// verifications never lose updates
func (d *Database) RecordVerification(id int64) error {
	query := `UPDATE certificates SET verified_at = ?, verification_count = verification_count + 1, updated_at = ?
	          WHERE id = ?`
	if d.dbType == "postgres" {
		query = `UPDATE certificates SET verified_at = $1, verification_count = verification_count + 1, updated_at = $2
		         WHERE id = $3`
	}

	now := time.Now()
	res, err := d.db.Exec(query, now, now, id)
	if err != nil {
		return err
	}

	rowsAffected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return sql.ErrNoRows
	}

	return nil
}
