// Package schedulingapi is the HTTP client for the clinic's scheduling
// backend. It implements booking.SchedulingBackend; the flow engine only
// consumes its output and never implements slot generation itself.
package schedulingapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"clinicbook/models"
	"clinicbook/services/booking"
)

// Client talks to the scheduling backend over JSON/HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient builds a backend client.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// do issues one request and decodes the response into out (when non-nil).
// Rejections become *booking.BackendError carrying the structured reason code
// when the backend sent one, or just the raw message for legacy backends.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return c.rejection(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// rejection parses an error body. Newer backends return
// {"reason": "...", "message": "..."}; older ones return {"error": "..."} or
// plain text. Both shapes must keep working.
func (c *Client) rejection(resp *http.Response) error {
	raw, _ := io.ReadAll(resp.Body)

	var structured struct {
		Reason  string `json:"reason"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	message := string(raw)
	reason := ""
	if err := json.Unmarshal(raw, &structured); err == nil {
		reason = structured.Reason
		switch {
		case structured.Message != "":
			message = structured.Message
		case structured.Error != "":
			message = structured.Error
		}
	}
	return &booking.BackendError{
		StatusCode: resp.StatusCode,
		ReasonCode: reason,
		Message:    message,
	}
}

// ListAppointmentTypes returns the clinic's bookable types, filtered for the
// patient by the backend.
func (c *Client) ListAppointmentTypes(ctx context.Context, clinicID, patientID string) ([]models.AppointmentType, map[string]string, error) {
	query := url.Values{}
	if patientID != "" {
		query.Set("patientId", patientID)
	}
	var out struct {
		Types            []models.AppointmentType `json:"types"`
		TypeInstructions map[string]string        `json:"typeInstructions"`
	}
	path := fmt.Sprintf("/clinics/%s/appointment-types", url.PathEscape(clinicID))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, nil, fmt.Errorf("failed to list appointment types: %w", err)
	}
	return out.Types, out.TypeInstructions, nil
}

// ListPractitioners returns the practitioners offering one appointment type.
func (c *Client) ListPractitioners(ctx context.Context, clinicID, appointmentTypeID, patientID string) ([]models.Practitioner, error) {
	query := url.Values{}
	query.Set("appointmentTypeId", appointmentTypeID)
	if patientID != "" {
		query.Set("patientId", patientID)
	}
	var out struct {
		Practitioners []models.Practitioner `json:"practitioners"`
	}
	path := fmt.Sprintf("/clinics/%s/practitioners", url.PathEscape(clinicID))
	if err := c.do(ctx, http.MethodGet, path, query, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list practitioners: %w", err)
	}
	return out.Practitioners, nil
}

// GetAvailability returns the slots of one date.
func (c *Client) GetAvailability(ctx context.Context, req booking.AvailabilityRequest) ([]models.TimeSlot, error) {
	var out struct {
		Slots []models.TimeSlot `json:"slots"`
	}
	if err := c.do(ctx, http.MethodPost, "/availability", nil, req, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch availability: %w", err)
	}
	return out.Slots, nil
}

// GetAvailabilityBatch returns the slots of many dates in one call.
func (c *Client) GetAvailabilityBatch(ctx context.Context, req booking.AvailabilityBatchRequest) (map[models.CalendarDate][]models.TimeSlot, error) {
	var out struct {
		Results []struct {
			Date  models.CalendarDate `json:"date"`
			Slots []models.TimeSlot   `json:"slots"`
		} `json:"results"`
	}
	if err := c.do(ctx, http.MethodPost, "/availability/batch", nil, req, &out); err != nil {
		return nil, fmt.Errorf("failed to fetch availability batch: %w", err)
	}
	results := make(map[models.CalendarDate][]models.TimeSlot, len(out.Results))
	for _, r := range out.Results {
		results[r.Date] = r.Slots
	}
	return results, nil
}

// CreateAppointment submits a booking (single slot or pending multi-slot).
func (c *Client) CreateAppointment(ctx context.Context, req booking.CreateAppointmentRequest) (*models.CreatedAppointment, error) {
	var out models.CreatedAppointment
	if err := c.do(ctx, http.MethodPost, "/appointments", nil, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RescheduleAppointment moves an existing appointment.
func (c *Client) RescheduleAppointment(ctx context.Context, appointmentID string, req booking.RescheduleRequest) error {
	path := fmt.Sprintf("/appointments/%s/reschedule", url.PathEscape(appointmentID))
	return c.do(ctx, http.MethodPost, path, nil, req, nil)
}

// CreateAvailabilityNotification registers a notify-me request.
func (c *Client) CreateAvailabilityNotification(ctx context.Context, req models.AvailabilityNotificationRequest) error {
	if err := c.do(ctx, http.MethodPost, "/availability-notifications", nil, req, nil); err != nil {
		return fmt.Errorf("failed to create availability notification: %w", err)
	}
	return nil
}

// GetClinicBookingPolicy returns the clinic's booking restriction policy.
func (c *Client) GetClinicBookingPolicy(ctx context.Context, clinicID string) (models.BookingPolicy, error) {
	var out models.BookingPolicy
	path := fmt.Sprintf("/clinics/%s/booking-policy", url.PathEscape(clinicID))
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return models.BookingPolicy{}, fmt.Errorf("failed to fetch booking policy: %w", err)
	}
	return out, nil
}
