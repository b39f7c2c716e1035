package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/tripnest/booking-service/internal/middleware"
	"github.com/tripnest/booking-service/internal/models"
	"github.com/tripnest/booking-service/internal/services"
	"github.com/tripnest/booking-service/internal/utils"
)

// BookingDraftHandler handles the booking modal endpoints
type BookingDraftHandler struct {
	formService *services.BookingFormService
	logger      *logrus.Logger
}

// NewBookingDraftHandler creates a new BookingDraftHandler
func NewBookingDraftHandler(formService *services.BookingFormService, logger *logrus.Logger) *BookingDraftHandler {
	return &BookingDraftHandler{
		formService: formService,
		logger:      logger,
	}
}

// requester identifies the caller from the auth middleware and the request
func requester(c *gin.Context) services.Requester {
	req := services.Requester{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
	if memberCtx, ok := middleware.GetMemberContext(c); ok {
		member := memberCtx.Member
		req.Member = &member
		req.Token = memberCtx.Token
	}
	return req
}

func (h *BookingDraftHandler) respondDraft(c *gin.Context, status int, state services.DraftState) {
	c.JSON(status, models.NewDraftView(state.ID, state.Draft, state.DebugCode))
}

// ============================================================================
// CATALOG - GET /api/v1/tours/:tour_id/periods, GET /api/v1/sales-agents
// ============================================================================

// ListPeriods returns the travel periods of a tour
// @Summary List tour periods
// @Tags Booking
// @Produce json
// @Param tour_id path string true "Tour ID"
// @Success 200 {object} models.PeriodsResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /tours/{tour_id}/periods [get]
func (h *BookingDraftHandler) ListPeriods(c *gin.Context) {
	tourID := c.Param("tour_id")

	periods, err := h.formService.ListPeriods(c.Request.Context(), tourID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, models.PeriodsResponse{
		TourID:  tourID,
		Periods: models.NewPeriodViews(periods),
	})
}

// ListSalesAgents returns the optional sales referral list
// @Summary List sales agents
// @Tags Booking
// @Produce json
// @Success 200 {object} models.SalesAgentsResponse
// @Router /sales-agents [get]
func (h *BookingDraftHandler) ListSalesAgents(c *gin.Context) {
	c.JSON(http.StatusOK, models.SalesAgentsResponse{
		Agents: h.formService.ListSalesAgents(c.Request.Context()),
	})
}

// ============================================================================
// DRAFT LIFECYCLE - POST/GET/DELETE /api/v1/booking-drafts[/:id]
// ============================================================================

// OpenDraft opens a booking draft for a tour or a flash sale item
// @Summary Open booking draft
// @Tags Booking
// @Accept json
// @Produce json
// @Param Authorization header string false "Bearer token (members)"
// @Param request body models.OpenDraftRequest true "Tour or flash sale item"
// @Success 201 {object} models.DraftView
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse "Flash sale closed or sold out"
// @Router /booking-drafts [post]
func (h *BookingDraftHandler) OpenDraft(c *gin.Context) {
	var req models.OpenDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request body: "+err.Error())
		return
	}

	tourID := strings.TrimSpace(req.TourID)
	if (tourID == "") == (req.FlashSaleItemID == 0) {
		badRequest(c, "Provide either tour_id or flash_sale_item_id")
		return
	}

	var (
		state services.DraftState
		err   error
	)
	if tourID != "" {
		state, err = h.formService.OpenTourDraft(c.Request.Context(), tourID, requester(c))
	} else {
		state, err = h.formService.OpenFlashSaleDraft(c.Request.Context(), req.FlashSaleItemID, requester(c))
	}
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.respondDraft(c, http.StatusCreated, state)
}

// GetDraft returns the current state of a draft
// @Summary Get booking draft
// @Tags Booking
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} models.DraftView
// @Failure 404 {object} models.ErrorResponse
// @Router /booking-drafts/{id} [get]
func (h *BookingDraftHandler) GetDraft(c *gin.Context) {
	state, err := h.formService.GetDraft(c.Param("id"), requester(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondDraft(c, http.StatusOK, state)
}

// CloseDraft discards a draft
// @Summary Close booking draft
// @Tags Booking
// @Param id path string true "Draft ID"
// @Success 204
// @Failure 404 {object} models.ErrorResponse
// @Router /booking-drafts/{id} [delete]
func (h *BookingDraftHandler) CloseDraft(c *gin.Context) {
	if err := h.formService.CloseDraft(c.Param("id"), requester(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ============================================================================
// FORM FIELDS - PUT /api/v1/booking-drafts/:id/{period,passengers,rooms,contact,consent}
// ============================================================================

// SelectPeriod selects the travel period
func (h *BookingDraftHandler) SelectPeriod(c *gin.Context) {
	var req models.SelectPeriodRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "period_id is required")
		return
	}

	state, err := h.formService.SelectPeriod(c.Param("id"), requester(c), req.PeriodID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondDraft(c, http.StatusOK, state)
}

// SetPassengers replaces the passenger quantities
func (h *BookingDraftHandler) SetPassengers(c *gin.Context) {
	var req models.PassengersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid passenger quantities: "+err.Error())
		return
	}

	state, err := h.formService.SetPassengers(c.Param("id"), requester(c), req.Quantities())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondDraft(c, http.StatusOK, state)
}

// SetRooms replaces the room quantities
func (h *BookingDraftHandler) SetRooms(c *gin.Context) {
	var req models.RoomsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid room quantities: "+err.Error())
		return
	}

	state, err := h.formService.SetRooms(c.Param("id"), requester(c), req.Quantities())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondDraft(c, http.StatusOK, state)
}

// SetContact replaces the contact fields
func (h *BookingDraftHandler) SetContact(c *gin.Context) {
	var req models.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid contact details: "+err.Error())
		return
	}

	state, err := h.formService.SetContact(c.Param("id"), requester(c), req.Contact())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondDraft(c, http.StatusOK, state)
}

// SetConsent sets the terms consent flag
func (h *BookingDraftHandler) SetConsent(c *gin.Context) {
	var req models.ConsentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "consent is required")
		return
	}

	state, err := h.formService.SetConsent(c.Param("id"), requester(c), *req.Consent)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondDraft(c, http.StatusOK, state)
}

// ============================================================================
// VERIFICATION & SUBMIT - POST /api/v1/booking-drafts/:id/{otp/request,otp/verify,submit}
// ============================================================================

// RequestOTP sends a verification code to the guest's contact phone
// @Summary Request phone verification code
// @Tags Booking
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} models.DraftView
// @Failure 400 {object} models.ErrorResponse "Member draft, already verified, or rejected by the travel API"
// @Failure 422 {object} models.ErrorResponse "Invalid phone"
// @Failure 429 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /booking-drafts/{id}/otp/request [post]
func (h *BookingDraftHandler) RequestOTP(c *gin.Context) {
	state, err := h.formService.RequestOTP(c.Request.Context(), c.Param("id"), requester(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondDraft(c, http.StatusOK, state)
}

// VerifyOTP checks the code the guest received
// @Summary Verify phone code
// @Tags Booking
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param request body models.VerifyOTPRequest true "Six digit code"
// @Success 200 {object} models.DraftView
// @Failure 400 {object} models.ErrorResponse
// @Failure 422 {object} models.ErrorResponse "Malformed code"
// @Failure 502 {object} models.ErrorResponse
// @Router /booking-drafts/{id}/otp/verify [post]
func (h *BookingDraftHandler) VerifyOTP(c *gin.Context) {
	var req models.VerifyOTPRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "code is required")
		return
	}

	state, err := h.formService.VerifyOTP(c.Request.Context(), c.Param("id"), requester(c), req.Code)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondDraft(c, http.StatusOK, state)
}

// Submit creates the booking
// @Summary Submit booking
// @Tags Booking
// @Produce json
// @Param Authorization header string false "Bearer token (members)"
// @Param id path string true "Draft ID"
// @Success 201 {object} models.DraftView "phase=success with the booking result"
// @Failure 400 {object} models.ErrorResponse "Rejected by the travel API"
// @Failure 409 {object} models.ErrorResponse "Submission in progress or already booked"
// @Failure 422 {object} models.ErrorResponse "First failing pre-submit check"
// @Failure 502 {object} models.ErrorResponse
// @Router /booking-drafts/{id}/submit [post]
func (h *BookingDraftHandler) Submit(c *gin.Context) {
	state, err := h.formService.Submit(c.Request.Context(), c.Param("id"), requester(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	h.respondDraft(c, http.StatusCreated, state)
}

// RegisterRoutes mounts the booking endpoints on an /api/v1 group that
// already runs the optional auth middleware
func (h *BookingDraftHandler) RegisterRoutes(v1 *gin.RouterGroup) {
	v1.GET("/tours/:tour_id/periods", h.ListPeriods)
	v1.GET("/sales-agents", h.ListSalesAgents)

	drafts := v1.Group("/booking-drafts")
	{
		drafts.POST("", h.OpenDraft)
		drafts.GET("/:id", h.GetDraft)
		drafts.DELETE("/:id", h.CloseDraft)
		drafts.PUT("/:id/period", h.SelectPeriod)
		drafts.PUT("/:id/passengers", h.SetPassengers)
		drafts.PUT("/:id/rooms", h.SetRooms)
		drafts.PUT("/:id/contact", h.SetContact)
		drafts.PUT("/:id/consent", h.SetConsent)
		drafts.POST("/:id/otp/request", h.RequestOTP)
		drafts.POST("/:id/otp/verify", h.VerifyOTP)
		drafts.POST("/:id/submit", h.Submit)
	}
}
