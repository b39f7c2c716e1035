package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/tripnest/booking-service/internal/booking"
	"github.com/tripnest/booking-service/pkg/tourapi"
)

// TourAPI is the remote travel agency API as the booking form uses it
type TourAPI interface {
	GetTourPeriods(ctx context.Context, tourID string) ([]tourapi.TravelPeriod, error)
	GetFlashSaleItem(ctx context.Context, itemID int64) (*tourapi.FlashSaleItem, error)
	RequestOTP(ctx context.Context, phone string) (*tourapi.OTPRequestResponse, error)
	VerifyOTP(ctx context.Context, requestID int64, code string) (*tourapi.OTPVerifyResponse, error)
	CreateBooking(ctx context.Context, token string, req tourapi.CreateBookingRequest) (*tourapi.BookingResult, error)
	CreateFlashSaleBooking(ctx context.Context, token string, req tourapi.CreateFlashSaleBookingRequest) (*tourapi.BookingResult, error)
	ListSalesAgents(ctx context.Context) ([]tourapi.SalesAgent, error)
}

// RemoteError is a travel API failure surfaced to the booking form.
// Message is safe to show to the customer.
type RemoteError struct {
	Op      string
	Message string
	Err     error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

// Rejected reports whether the API refused the request itself, as opposed
// to being unreachable or failing server side
func (e *RemoteError) Rejected() bool {
	var apiErr *tourapi.APIError
	return errors.As(e.Err, &apiErr) && apiErr.StatusCode < http.StatusInternalServerError
}

func remoteError(op string, err error) *RemoteError {
	return &RemoteError{Op: op, Message: tourapi.UserMessage(err), Err: err}
}

// Requester is the caller of a booking form operation
type Requester struct {
	Member    *booking.Member // nil for guests
	Token     string          // member access token forwarded to the booking call
	IPAddress string
	UserAgent string
}

func (r Requester) memberID() string {
	if r.Member == nil {
		return ""
	}
	return r.Member.ID
}

func (r Requester) meta() RequestMeta {
	return RequestMeta{
		MemberID:  r.memberID(),
		IPAddress: r.IPAddress,
		UserAgent: r.UserAgent,
	}
}

// DraftState is a draft as returned to the handler layer
type DraftState struct {
	ID        string
	Draft     booking.Draft
	DebugCode string // development only
}

// BookingFormConfig holds the booking form settings
type BookingFormConfig struct {
	Policy          booking.PricingPolicy
	ExposeDebugCode bool
}

// BookingFormService runs the booking modal: it owns draft sessions, applies
// the booking reducers and is the only caller of the travel API
type BookingFormService struct {
	api     TourAPI
	store   *DraftStore
	limiter OTPRateLimiter
	audit   *AuditService
	config  BookingFormConfig
	logger  *logrus.Logger
}

// NewBookingFormService creates a new booking form service
func NewBookingFormService(
	api TourAPI,
	store *DraftStore,
	limiter OTPRateLimiter,
	audit *AuditService,
	config BookingFormConfig,
	logger *logrus.Logger,
) *BookingFormService {
	return &BookingFormService{
		api:     api,
		store:   store,
		limiter: limiter,
		audit:   audit,
		config:  config,
		logger:  logger,
	}
}

// ListPeriods returns the travel periods of a tour
func (s *BookingFormService) ListPeriods(ctx context.Context, tourID string) ([]tourapi.TravelPeriod, error) {
	periods, err := s.api.GetTourPeriods(ctx, tourID)
	if err != nil {
		if errors.Is(err, tourapi.ErrNotFound) {
			return nil, err
		}
		return nil, remoteError("list periods", err)
	}
	return periods, nil
}

// ListSalesAgents returns the sales referral list. The list is optional, so
// failures yield an empty list.
func (s *BookingFormService) ListSalesAgents(ctx context.Context) []tourapi.SalesAgent {
	agents, err := s.api.ListSalesAgents(ctx)
	if err != nil {
		s.logger.WithError(err).Warn("Failed to load sales agents, continuing without")
		return []tourapi.SalesAgent{}
	}
	if agents == nil {
		return []tourapi.SalesAgent{}
	}
	return agents
}

// OpenTourDraft opens a draft for a tour with its current periods
func (s *BookingFormService) OpenTourDraft(ctx context.Context, tourID string, req Requester) (DraftState, error) {
	periods, err := s.ListPeriods(ctx, tourID)
	if err != nil {
		return DraftState{}, err
	}

	draft := booking.NewTourDraft(tourID, periods, req.Member, s.config.Policy)
	session := s.store.Create(req.memberID(), draft)

	s.logger.WithFields(logrus.Fields{
		"draft_id": session.ID(),
		"tour_id":  tourID,
		"member":   req.Member != nil,
		"periods":  len(periods),
	}).Info("Booking draft opened")

	return DraftState{ID: session.ID(), Draft: draft}, nil
}

// OpenFlashSaleDraft opens a draft for a flash sale item
func (s *BookingFormService) OpenFlashSaleDraft(ctx context.Context, itemID int64, req Requester) (DraftState, error) {
	item, err := s.api.GetFlashSaleItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, tourapi.ErrNotFound) {
			return DraftState{}, err
		}
		return DraftState{}, remoteError("load flash sale", err)
	}
	if err := booking.FlashSaleAvailable(*item); err != nil {
		return DraftState{}, err
	}

	draft := booking.NewFlashSaleDraft(*item, req.Member, s.config.Policy)
	session := s.store.Create(req.memberID(), draft)

	s.logger.WithFields(logrus.Fields{
		"draft_id":      session.ID(),
		"flash_sale_id": itemID,
		"member":        req.Member != nil,
	}).Info("Flash sale draft opened")

	return DraftState{ID: session.ID(), Draft: draft}, nil
}

// GetDraft returns the current state of a draft
func (s *BookingFormService) GetDraft(id string, req Requester) (DraftState, error) {
	session, err := s.store.Get(id, req.memberID())
	if err != nil {
		return DraftState{}, err
	}
	return DraftState{ID: id, Draft: session.Snapshot()}, nil
}

// SelectPeriod selects a travel period of a tour draft
func (s *BookingFormService) SelectPeriod(id string, req Requester, periodID int64) (DraftState, error) {
	return s.update(id, req, func(d booking.Draft) (booking.Draft, error) {
		return d.SelectPeriod(periodID)
	})
}

// SetPassengers replaces the passenger quantities
func (s *BookingFormService) SetPassengers(id string, req Requester, q tourapi.PassengerQuantities) (DraftState, error) {
	return s.update(id, req, func(d booking.Draft) (booking.Draft, error) {
		return d.SetPassengers(q)
	})
}

// SetRooms replaces the room quantities
func (s *BookingFormService) SetRooms(id string, req Requester, r tourapi.RoomQuantities) (DraftState, error) {
	return s.update(id, req, func(d booking.Draft) (booking.Draft, error) {
		return d.SetRooms(r)
	})
}

// SetContact replaces the contact fields
func (s *BookingFormService) SetContact(id string, req Requester, c booking.Contact) (DraftState, error) {
	return s.update(id, req, func(d booking.Draft) (booking.Draft, error) {
		return d.SetContact(c)
	})
}

// SetConsent sets the terms consent flag
func (s *BookingFormService) SetConsent(id string, req Requester, consent bool) (DraftState, error) {
	return s.update(id, req, func(d booking.Draft) (booking.Draft, error) {
		return d.SetConsent(consent)
	})
}

// RequestOTP sends a verification code to the guest's contact phone. The
// session stays locked for the remote call so a phone edit cannot race it.
func (s *BookingFormService) RequestOTP(ctx context.Context, id string, req Requester) (DraftState, error) {
	session, err := s.store.Get(id, req.memberID())
	if err != nil {
		return DraftState{}, err
	}

	var debugCode string
	var remoteErr error

	draft, err := session.Update(func(d booking.Draft) (booking.Draft, error) {
		phone, err := d.OTPRequestAllowed()
		if err != nil {
			return d, err
		}

		slot, err := s.limiter.ReserveOTPRequest(phone, req.IPAddress)
		if err != nil {
			var rateLimitErr *RateLimitError
			if errors.As(err, &rateLimitErr) {
				s.safeAudit("rate limit violation", s.audit.LogRateLimitViolation(id, phone, req.meta(), rateLimitErr.Type, rateLimitErr.RetryAfter))
				return d, err
			}
			// the limiter store being down must not block bookings
			s.logger.WithError(err).Error("OTP rate limit check failed")
			slot = noSlot{}
		}

		resp, err := s.api.RequestOTP(ctx, phone)
		if err != nil {
			slot.Release()
			remoteErr = remoteError("request otp", err)
			s.safeAudit("otp request", s.audit.LogOTPRequest(id, phone, req.meta(), false, err.Error()))
			return d.OTPRequestFailed(tourapi.UserMessage(err)), nil
		}

		if err := slot.Commit(); err != nil {
			s.logger.WithError(err).Error("Failed to record OTP request")
		}
		s.safeAudit("otp request", s.audit.LogOTPRequest(id, phone, req.meta(), true, ""))

		if s.config.ExposeDebugCode {
			debugCode = resp.DebugCode
		}
		return d.OTPSent(phone, resp.OTPRequestID, resp.ExpiresInSeconds), nil
	})

	state := DraftState{ID: id, Draft: draft, DebugCode: debugCode}
	if err != nil {
		return state, err
	}
	return state, remoteErr
}

// VerifyOTP checks the code the guest received
func (s *BookingFormService) VerifyOTP(ctx context.Context, id string, req Requester, code string) (DraftState, error) {
	session, err := s.store.Get(id, req.memberID())
	if err != nil {
		return DraftState{}, err
	}

	var remoteErr error

	draft, err := session.Update(func(d booking.Draft) (booking.Draft, error) {
		cleaned, err := d.VerifyAllowed(code)
		if err != nil {
			return d, err
		}

		phone := d.Verification.Phone
		if _, err := s.api.VerifyOTP(ctx, d.Verification.RequestID, cleaned); err != nil {
			remoteErr = remoteError("verify otp", err)
			s.safeAudit("otp verification", s.audit.LogOTPVerification(id, phone, req.meta(), false, err.Error()))
			return d.VerifyFailed(tourapi.UserMessage(err)), nil
		}

		s.safeAudit("otp verification", s.audit.LogOTPVerification(id, phone, req.meta(), true, ""))
		return d.Verified(), nil
	})

	state := DraftState{ID: id, Draft: draft}
	if err != nil {
		return state, err
	}
	return state, remoteErr
}

// Submit validates the draft and makes the single booking creation call.
// The session is not locked during the call; the submitting phase refuses
// a second submit and any edit meanwhile.
func (s *BookingFormService) Submit(ctx context.Context, id string, req Requester) (DraftState, error) {
	session, err := s.store.Get(id, req.memberID())
	if err != nil {
		return DraftState{}, err
	}

	draft, err := session.Update(func(d booking.Draft) (booking.Draft, error) {
		return d.BeginSubmit()
	})
	if err != nil {
		return DraftState{ID: id, Draft: draft}, err
	}

	logger := s.logger.WithFields(logrus.Fields{
		"draft_id": id,
		"product":  draft.Title(),
		"member":   draft.IsMember(),
	})
	total := draft.Pricing().GrandTotal

	// a client disconnect must not abandon a booking the API may already hold
	result, callErr := s.createBooking(context.WithoutCancel(ctx), req.Token, draft)
	if callErr != nil {
		message := tourapi.UserMessage(callErr)
		logger.WithError(callErr).Warn("Booking submission failed")
		s.safeAudit("booking submission", s.audit.LogBookingSubmission(id, req.meta(), draft.Title(), total, "", callErr.Error()))

		failed, err := session.Update(func(d booking.Draft) (booking.Draft, error) {
			return d.SubmitFailed(message), nil
		})
		if err != nil {
			failed = draft.SubmitFailed(message)
		}
		return DraftState{ID: id, Draft: failed}, remoteError("create booking", callErr)
	}

	logger.WithField("booking_code", result.BookingCode).Info("Booking created")
	s.safeAudit("booking submission", s.audit.LogBookingSubmission(id, req.meta(), draft.Title(), total, result.BookingCode, ""))

	done, err := session.Update(func(d booking.Draft) (booking.Draft, error) {
		return d.SubmitSucceeded(*result), nil
	})
	if err != nil {
		// closed while the call was in flight; the booking still exists
		done = draft.SubmitSucceeded(*result)
	}
	return DraftState{ID: id, Draft: done}, nil
}

// CloseDraft discards a draft
func (s *BookingFormService) CloseDraft(id string, req Requester) error {
	return s.store.Close(id, req.memberID())
}

func (s *BookingFormService) createBooking(ctx context.Context, token string, d booking.Draft) (*tourapi.BookingResult, error) {
	if d.Kind == booking.KindFlashSale {
		return s.api.CreateFlashSaleBooking(ctx, token, d.FlashSaleBookingRequest())
	}
	return s.api.CreateBooking(ctx, token, d.TourBookingRequest())
}

func (s *BookingFormService) update(id string, req Requester, fn func(booking.Draft) (booking.Draft, error)) (DraftState, error) {
	session, err := s.store.Get(id, req.memberID())
	if err != nil {
		return DraftState{}, err
	}
	draft, err := session.Update(fn)
	return DraftState{ID: id, Draft: draft}, err
}

// safeAudit logs audit failures without failing the operation
func (s *BookingFormService) safeAudit(event string, err error) {
	if err != nil {
		s.logger.WithError(err).WithField("event", event).Warn("Failed to write audit log")
	}
}
