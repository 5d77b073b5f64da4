package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/eduardobaptist/ifpass-api/internal/api/middleware"
	"github.com/eduardobaptist/ifpass-api/internal/database/models"
	"github.com/eduardobaptist/ifpass-api/internal/service"
)

// CertificateHandler handles certificate issuance and validation
type CertificateHandler struct {
	certService         *service.CertificateService
	subscriptionService *service.SubscriptionService
	logger              *zap.Logger
}

// NewCertificateHandler creates a new certificate handler
func NewCertificateHandler(certService *service.CertificateService, subscriptionService *service.SubscriptionService, logger *zap.Logger) *CertificateHandler {
	return &CertificateHandler{
		certService:         certService,
		subscriptionService: subscriptionService,
		logger:              logger,
	}
}

// IssueRequest represents a request to issue a certificate
type IssueRequest struct {
	SubscriptionID int64 `json:"subscription_id" binding:"required"`
}

// certificateResponse shapes a certificate for its owner, including the
// public verification token and signature
func certificateResponse(cert *models.Certificate, event *models.Event) gin.H {
	resp := gin.H{
		"id":                 cert.ID,
		"certificate_number": cert.CertificateNumber,
		"verification_token": cert.VerificationToken,
		"signature":          cert.Signature,
		"issued_at":          cert.IssuedAt,
		"verified_at":        nullTime(cert.VerifiedAt),
		"verification_count": cert.VerificationCount,
	}
	if event != nil {
		resp["event"] = gin.H{
			"id":   event.ID,
			"name": event.Name,
			"date": event.Date,
		}
	}
	return resp
}

// Issue issues a certificate for an attended subscription. Issuance is
// idempotent: a repeated request returns the existing certificate.
func (h *CertificateHandler) Issue(c *gin.Context) {
	var req IssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub, err := h.subscriptionService.GetSubscription(req.SubscriptionID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		return
	}

	if sub.UserID != middleware.UserID(c) && !middleware.CanManageEvents(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to issue a certificate for this subscription"})
		return
	}

	result, err := h.certService.Issue(req.SubscriptionID)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "subscription not found"})
		case errors.Is(err, service.ErrNotCheckedIn):
			c.JSON(http.StatusBadRequest, gin.H{"error": "certificate requires an attended subscription"})
		default:
			h.logger.Error("Failed to issue certificate", zap.Int64("subscription_id", req.SubscriptionID), zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to issue certificate"})
		}
		return
	}

	cert := result.Certificate

	var event *models.Event
	if ev, err := h.certService.GetCertificate(cert.ID); err == nil {
		event = ev.Event
	}

	if result.AlreadyIssued {
		c.JSON(http.StatusOK, gin.H{
			"certificate": certificateResponse(cert, event),
			"message":     "certificate already issued",
		})
		return
	}

	h.logger.Info("Certificate issued",
		zap.Int64("id", cert.ID),
		zap.String("certificate_number", cert.CertificateNumber),
		zap.Int64("subscription_id", req.SubscriptionID))

	c.JSON(http.StatusCreated, gin.H{
		"certificate": certificateResponse(cert, event),
		"message":     "certificate issued successfully",
	})
}

// validatedResponse shapes a successfully validated certificate for a third
// party. The verification token and signature are deliberately not echoed.
func validatedResponse(result *service.VerificationResult) gin.H {
	cert := result.Certificate
	resp := gin.H{
		"valid": true,
		"certificate": gin.H{
			"id":                 cert.ID,
			"certificate_number": cert.CertificateNumber,
			"issued_at":          cert.IssuedAt,
			"verified_at":        nullTime(cert.VerifiedAt),
			"verification_count": cert.VerificationCount,
		},
		"event": eventResponse(result.Event),
		"user": gin.H{
			"id":        result.User.ID,
			"full_name": nullString(result.User.FullName),
			"email":     result.User.Email,
		},
	}
	if result.Subscription != nil {
		resp["subscription"] = subscriptionResponse(result.Subscription)
	}
	return resp
}

// Validate authenticates a certificate by its verification token. This
// endpoint is public, and each successful call is counted.
func (h *CertificateHandler) Validate(c *gin.Context) {
	token := c.Query("token")
	if token == "" && c.Request.Method == http.MethodPost {
		var req struct {
			Token string `json:"token"`
		}
		if err := c.ShouldBindJSON(&req); err == nil {
			token = req.Token
		}
	}
	if token == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"valid": false,
			"error": "verification token is required",
		})
		return
	}

	result, err := h.certService.Verify(token)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{
				"valid": false,
				"error": "certificate not found",
			})
		case errors.Is(err, service.ErrInvalidSignature):
			h.logger.Warn("Certificate signature mismatch", zap.String("token", token))
			c.JSON(http.StatusBadRequest, gin.H{
				"valid": false,
				"error": "certificate signature is invalid; the record may have been tampered with",
			})
		default:
			h.logger.Error("Failed to validate certificate", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{
				"valid": false,
				"error": "failed to validate certificate",
			})
		}
		return
	}

	c.JSON(http.StatusOK, validatedResponse(result))
}

// MyCertificates lists the caller's certificates, newest first
func (h *CertificateHandler) MyCertificates(c *gin.Context) {
	summaries, err := h.certService.ListByUser(middleware.UserID(c))
	if err != nil {
		h.logger.Error("Failed to list certificates", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list certificates"})
		return
	}

	resp := make([]gin.H, len(summaries))
	for i, summary := range summaries {
		item := certificateResponse(summary.Certificate, summary.Event)
		if summary.Subscription != nil {
			item["subscription"] = subscriptionResponse(summary.Subscription)
		}
		resp[i] = item
	}

	c.JSON(http.StatusOK, gin.H{"certificates": resp})
}

// GetCertificate returns one of the caller's certificates by ID
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid certificate id"})
		return
	}

	result, err := h.certService.GetCertificate(id)
	if err != nil {
		if errors.Is(err, service.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "certificate not found"})
			return
		}
		h.logger.Error("Failed to get certificate", zap.Int64("id", id), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to get certificate"})
		return
	}

	if result.Certificate.UserID != middleware.UserID(c) && !middleware.CanManageEvents(c) {
		c.JSON(http.StatusForbidden, gin.H{"error": "you do not have permission to view this certificate"})
		return
	}

	resp := certificateResponse(result.Certificate, result.Event)
	if result.Subscription != nil {
		resp["subscription"] = subscriptionResponse(result.Subscription)
	}

	c.JSON(http.StatusOK, gin.H{"certificate": resp})
}
