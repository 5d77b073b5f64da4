package service

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/eduardobaptist/ifpass-api/internal/crypto"
	"github.com/eduardobaptist/ifpass-api/internal/database"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"
)

// maxIssueAttempts bounds retries when generated certificate identifiers
// collide with existing rows
const maxIssueAttempts = 3

// CertificateService issues and verifies signed attendance certificates
type CertificateService struct {
	db     *database.Database
	signer *crypto.Signer
}

// NewCertificateService creates a new certificate service
func NewCertificateService(db *database.Database, signer *crypto.Signer) *CertificateService {
	return &CertificateService{
		db:     db,
		signer: signer,
	}
}

// IssueResult is the outcome of an issuance request
type IssueResult struct {
	Certificate *models.Certificate
	// AlreadyIssued is true when the certificate existed before this request
	AlreadyIssued bool
}

// Issue mints a certificate for an attended subscription. Issuance is
// idempotent: if a certificate already exists for the subscription's
// (user, event) pair the existing one is returned.
func (s *CertificateService) Issue(subscriptionID int64) (*IssueResult, error) {
	sub, err := s.db.GetSubscription(subscriptionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	if !sub.HasAttended() {
		return nil, ErrNotCheckedIn
	}

	existing, err := s.db.GetCertificateByUserAndEvent(sub.UserID, sub.EventID)
	if err == nil {
		return &IssueResult{Certificate: existing, AlreadyIssued: true}, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to look up certificate: %w", err)
	}

	for attempt := 0; attempt < maxIssueAttempts; attempt++ {
		cert, err := s.buildCertificate(sub)
		if err != nil {
			return nil, err
		}

		err = s.db.CreateCertificate(cert)
		if err == nil {
			return &IssueResult{Certificate: cert}, nil
		}
		if !errors.Is(err, database.ErrDuplicate) {
			return nil, fmt.Errorf("failed to store certificate: %w", err)
		}

		// A concurrent request may have won the insert for this
		// (user, event) pair; in that case the existing certificate is the
		// answer. Otherwise the generated token or number collided and a
		// fresh attempt is needed.
		existing, lookupErr := s.db.GetCertificateByUserAndEvent(sub.UserID, sub.EventID)
		if lookupErr == nil {
			return &IssueResult{Certificate: existing, AlreadyIssued: true}, nil
		}
		if !errors.Is(lookupErr, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to look up certificate: %w", lookupErr)
		}
	}

	return nil, ErrIssuanceFailed
}

// buildCertificate constructs an unsaved certificate record for a
// subscription: fresh token, number, and signature over the token
func (s *CertificateService) buildCertificate(sub *models.Subscription) (*models.Certificate, error) {
	token, err := crypto.GenerateVerificationToken()
	if err != nil {
		return nil, err
	}

	number, err := crypto.GenerateCertificateNumber()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &models.Certificate{
		UserID:            sub.UserID,
		EventID:           sub.EventID,
		SubscriptionID:    sql.NullInt64{Int64: sub.ID, Valid: true},
		VerificationToken: token,
		CertificateNumber: number,
		Signature:         s.signer.Sign(token),
		IssuedAt:          now,
		CreatedAt:         now,
	}, nil
}

// VerificationResult carries a verified certificate together with the
// context a third party needs to assess it
type VerificationResult struct {
	Certificate  *models.Certificate
	Event        *models.Event
	Subscription *models.Subscription
	User         *models.User
}

// Verify authenticates a certificate by its public token and records the
// verification. Despite being read-like this is a command: every successful
// call stamps verified_at and increments the verification counter.
func (s *CertificateService) Verify(token string) (*VerificationResult, error) {
	cert, err := s.db.GetCertificateByToken(token)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to look up certificate: %w", err)
	}

	if !s.signer.Verify(cert.VerificationToken, cert.Signature) {
		return nil, ErrInvalidSignature
	}

	if err := s.db.RecordVerification(cert.ID); err != nil {
		return nil, fmt.Errorf("failed to record verification: %w", err)
	}

	// Re-read so the response reflects the updated count and timestamp
	cert, err = s.db.GetCertificate(cert.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload certificate: %w", err)
	}

	return s.buildResult(cert)
}

func (s *CertificateService) buildResult(cert *models.Certificate) (*VerificationResult, error) {
	result := &VerificationResult{Certificate: cert}

	event, err := s.db.GetEvent(cert.EventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	result.Event = event

	user, err := s.db.GetUser(cert.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}
	result.User = user

	if cert.SubscriptionID.Valid {
		sub, err := s.db.GetSubscription(cert.SubscriptionID.Int64)
		if err == nil {
			result.Subscription = sub
		} else if !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("failed to load subscription: %w", err)
		}
	}

	return result, nil
}

// GetCertificate returns a certificate by ID with its display context
func (s *CertificateService) GetCertificate(id int64) (*VerificationResult, error) {
	cert, err := s.db.GetCertificate(id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return s.buildResult(cert)
}

// CertificateSummary is a certificate enriched with its event and
// subscription for listings
type CertificateSummary struct {
	Certificate  *models.Certificate
	Event        *models.Event
	Subscription *models.Subscription
}

// ListByUser returns a user's certificates with event context, newest
// issued first
func (s *CertificateService) ListByUser(userID int64) ([]*CertificateSummary, error) {
	certs, err := s.db.ListCertificatesByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	summaries := make([]*CertificateSummary, len(certs))
	for i, cert := range certs {
		summary := &CertificateSummary{Certificate: cert}

		event, err := s.db.GetEvent(cert.EventID)
		if err != nil {
			return nil, fmt.Errorf("failed to load event: %w", err)
		}
		summary.Event = event

		if cert.SubscriptionID.Valid {
			if sub, err := s.db.GetSubscription(cert.SubscriptionID.Int64); err == nil {
				summary.Subscription = sub
			}
		}

		summaries[i] = summary
	}

	return summaries, nil
}
