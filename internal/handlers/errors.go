package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tripnest/booking-service/internal/booking"
	"github.com/tripnest/booking-service/internal/models"
	"github.com/tripnest/booking-service/internal/services"
	"github.com/tripnest/booking-service/pkg/tourapi"
)

// gateErrors are state machine rejections: the request is well formed but
// not allowed in the draft's current state
var gateErrors = []struct {
	err  error
	code string
}{
	{booking.ErrMemberPreVerified, "MEMBER_PRE_VERIFIED"},
	{booking.ErrAlreadyVerified, "ALREADY_VERIFIED"},
	{booking.ErrNoOTPRequest, "NO_OTP_REQUEST"},
	{booking.ErrPhoneLocked, "PHONE_LOCKED"},
	{booking.ErrNotTourDraft, "NOT_TOUR_DRAFT"},
}

// respondError maps a service error to its status and ErrorResponse body
func respondError(c *gin.Context, logger *logrus.Logger, err error) {
	if vErr, ok := booking.AsValidationError(err); ok {
		c.JSON(http.StatusUnprocessableEntity, models.ErrorResponse{
			Error:   "validation_failed",
			Message: vErr.Message,
			Code:    vErr.Code,
			Field:   vErr.Field,
		})
		return
	}

	switch {
	case errors.Is(err, services.ErrDraftNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "Booking draft not found. Please start a new booking.",
			Code:    "DRAFT_NOT_FOUND",
		})
		return
	case errors.Is(err, tourapi.ErrNotFound):
		c.JSON(http.StatusNotFound, models.ErrorResponse{
			Error:   "not_found",
			Message: "This tour is not available for booking.",
			Code:    "TOUR_NOT_FOUND",
		})
		return
	case errors.Is(err, booking.ErrSubmitInProgress):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "conflict",
			Message: "Your booking is being submitted. Please wait.",
			Code:    "SUBMIT_IN_PROGRESS",
		})
		return
	case errors.Is(err, booking.ErrDraftFinalized):
		c.JSON(http.StatusConflict, models.ErrorResponse{
			Error:   "conflict",
			Message: "This booking has already been submitted. Start a new booking to book again.",
			Code:    "DRAFT_FINALIZED",
		})
		return
	}

	for _, gate := range gateErrors {
		if errors.Is(err, gate.err) {
			c.JSON(http.StatusBadRequest, models.ErrorResponse{
				Error:   "invalid_state",
				Message: gate.err.Error(),
				Code:    gate.code,
			})
			return
		}
	}

	var rateLimitErr *services.RateLimitError
	if errors.As(err, &rateLimitErr) {
		retryAfter := max(int(time.Until(rateLimitErr.RetryAfter).Seconds()), 1)
		c.Header("Retry-After", strconv.Itoa(retryAfter))
		c.JSON(http.StatusTooManyRequests, models.ErrorResponse{
			Error:   "rate_limit_exceeded",
			Message: rateLimitErr.Message,
			Code:    "RATE_LIMIT_" + strings.ToUpper(rateLimitErr.Type),
		})
		return
	}

	var remoteErr *services.RemoteError
	if errors.As(err, &remoteErr) {
		status, code := http.StatusBadGateway, "REMOTE_UNAVAILABLE"
		if remoteErr.Rejected() {
			status, code = http.StatusBadRequest, "REMOTE_REJECTED"
		}
		logger.WithError(err).WithField("op", remoteErr.Op).Warn("Travel API call failed")
		c.JSON(status, models.ErrorResponse{
			Error:   "remote_error",
			Message: remoteErr.Message,
			Code:    code,
		})
		return
	}

	_ = c.Error(err)
	logger.WithError(err).Error("Unhandled booking form error")
	c.JSON(http.StatusInternalServerError, models.ErrorResponse{
		Error:   "internal_error",
		Message: tourapi.GenericFailureMessage,
	})
}

// badRequest responds to a malformed body or parameter
func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, models.ErrorResponse{
		Error:   "invalid_request",
		Message: message,
		Code:    "INVALID_REQUEST",
	})
}
