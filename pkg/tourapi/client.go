package tourapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/tidwall/gjson"
)

// GenericFailureMessage is shown when the travel API gives no usable message
const GenericFailureMessage = "We could not complete your request right now. Please try again."

var (
	// ErrNotFound indicates the travel API has no such tour or item
	ErrNotFound = errors.New("resource not found")

	// ErrUnavailable indicates a transport failure talking to the travel API
	ErrUnavailable = errors.New("travel API unavailable")
)

// APIError is a failure reported by the travel API itself
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("travel API error (status %d): %s", e.StatusCode, e.Message)
}

// UserMessage returns the message to surface to the booking form for err
func UserMessage(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return GenericFailureMessage
}

// HTTPClient is the subset of *http.Client the client needs
type HTTPClient interface {
	Do(*http.Request) (*http.Response, error)
}

// Option configures a Client
type Option func(*Client)

// Client talks to the travel agency's booking API
type Client struct {
	httpClient HTTPClient
	baseURL    string
	logger     *logrus.Logger
}

// WithBaseURL sets the API root, e.g. https://api.example.com/v1
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		c.baseURL = baseURL
	}
}

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(httpClient HTTPClient) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithTimeout sets the timeout of the default HTTP client
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient = &http.Client{Timeout: timeout}
	}
}

// WithLogger sets the logger used for request tracing
func WithLogger(logger *logrus.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// NewClient creates a travel API client
func NewClient(opts ...Option) *Client {
	client := &Client{
		httpClient: &http.Client{Timeout: 15 * time.Second},
		baseURL:    "http://localhost:9000/api",
		logger:     logrus.StandardLogger(),
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// GetTourPeriods fetches the travel periods of a tour with their offers
func (c *Client) GetTourPeriods(ctx context.Context, tourID string) ([]TravelPeriod, error) {
	if tourID == "" {
		return nil, fmt.Errorf("tour ID cannot be empty")
	}

	status, raw, err := c.do(ctx, http.MethodGet, "/tours/"+url.PathEscape(tourID)+"/periods", "", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status != http.StatusOK {
		return nil, c.apiError(status, raw)
	}

	var resp periodsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse periods response: %w", err)
	}
	return resp.Periods, nil
}

// GetFlashSaleItem fetches a single flash sale item
func (c *Client) GetFlashSaleItem(ctx context.Context, itemID int64) (*FlashSaleItem, error) {
	status, raw, err := c.do(ctx, http.MethodGet, "/flash-sales/items/"+strconv.FormatInt(itemID, 10), "", nil)
	if err != nil {
		return nil, err
	}
	if status == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if status != http.StatusOK {
		return nil, c.apiError(status, raw)
	}

	var resp flashSaleItemResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse flash sale response: %w", err)
	}
	if resp.Item == nil {
		return nil, ErrNotFound
	}
	return resp.Item, nil
}

// RequestOTP asks the API to send a verification code to phone
func (c *Client) RequestOTP(ctx context.Context, phone string) (*OTPRequestResponse, error) {
	status, raw, err := c.do(ctx, http.MethodPost, "/otp/request", "", OTPRequest{Phone: phone})
	if err != nil {
		return nil, err
	}

	var resp OTPRequestResponse
	if err := json.Unmarshal(raw, &resp); err != nil || status >= 300 || !resp.Success {
		return nil, c.apiError(status, raw)
	}
	// without a request id the code can never be verified
	if resp.OTPRequestID == 0 {
		return nil, &APIError{StatusCode: http.StatusBadGateway, Message: GenericFailureMessage}
	}
	return &resp, nil
}

// VerifyOTP checks a code against an outstanding OTP request
func (c *Client) VerifyOTP(ctx context.Context, requestID int64, code string) (*OTPVerifyResponse, error) {
	status, raw, err := c.do(ctx, http.MethodPost, "/otp/verify", "", OTPVerifyRequest{
		OTPRequestID: requestID,
		Code:         code,
	})
	if err != nil {
		return nil, err
	}

	var resp OTPVerifyResponse
	if err := json.Unmarshal(raw, &resp); err != nil || status >= 300 || !resp.Success {
		return nil, c.apiError(status, raw)
	}
	return &resp, nil
}

// CreateBooking creates a tour booking. token is the member's access token
// and is empty for guest bookings.
func (c *Client) CreateBooking(ctx context.Context, token string, req CreateBookingRequest) (*BookingResult, error) {
	return c.createBooking(ctx, "/bookings", token, req)
}

// CreateFlashSaleBooking creates a flash sale booking
func (c *Client) CreateFlashSaleBooking(ctx context.Context, token string, req CreateFlashSaleBookingRequest) (*BookingResult, error) {
	return c.createBooking(ctx, "/flash-sale-bookings", token, req)
}

// ListSalesAgents returns the sales referral list
func (c *Client) ListSalesAgents(ctx context.Context) ([]SalesAgent, error) {
	status, raw, err := c.do(ctx, http.MethodGet, "/sales-agents", "", nil)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, c.apiError(status, raw)
	}

	var resp salesAgentsResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse sales agents response: %w", err)
	}
	return resp.Agents, nil
}

func (c *Client) createBooking(ctx context.Context, path, token string, payload interface{}) (*BookingResult, error) {
	status, raw, err := c.do(ctx, http.MethodPost, path, token, payload)
	if err != nil {
		return nil, err
	}

	var resp BookingResponse
	if err := json.Unmarshal(raw, &resp); err != nil || status >= 300 || !resp.Success || resp.Booking == nil {
		return nil, c.apiError(status, raw)
	}
	return resp.Booking, nil
}

// do sends one request and returns the status code and raw body.
// Transport failures are wrapped in ErrUnavailable.
func (c *Client) do(ctx context.Context, method, path, token string, payload interface{}) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"method": method,
			"path":   path,
		}).WithError(err).Warn("Travel API request failed")
		return 0, nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("%w: failed to read response: %v", ErrUnavailable, err)
	}

	c.logger.WithFields(logrus.Fields{
		"method":     method,
		"path":       path,
		"status":     resp.StatusCode,
		"latency_ms": time.Since(start).Milliseconds(),
	}).Debug("Travel API request completed")

	return resp.StatusCode, raw, nil
}

func (c *Client) apiError(status int, raw []byte) *APIError {
	message := extractMessage(raw)
	if message == "" {
		message = GenericFailureMessage
	}
	return &APIError{StatusCode: status, Message: message}
}

// messagePaths are the places error bodies of the travel API and its
// gateways have been seen to carry a human readable message
var messagePaths = []string{"message", "error.message", "error", "errors.0.message", "detail"}

func extractMessage(raw []byte) string {
	if len(raw) == 0 || !gjson.ValidBytes(raw) {
		return ""
	}
	for _, path := range messagePaths {
		result := gjson.GetBytes(raw, path)
		if result.Type == gjson.String && result.String() != "" {
			return result.String()
		}
	}
	return ""
}
