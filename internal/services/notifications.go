package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/harentsoaR/wellness-api/internal/models"
)

// NotificationService sends appointment SMS through Textbelt. Sends run in
// the background so they never hold up an API response.
type NotificationService struct {
	apiKey string
	url    string
	client *http.Client
	logger zerolog.Logger
	wg     sync.WaitGroup
}

func NewNotificationService(apiKey, url string, logger zerolog.Logger) *NotificationService {
	return &NotificationService{
		apiKey: apiKey,
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger.With().Str("component", "notifications").Logger(),
	}
}

func (s *NotificationService) AppointmentCreated(ctx context.Context, user *models.User, apt *models.Appointment, providerName string) {
	body := fmt.Sprintf(
		"Appointment requested: %s with %s on %s at %s. Fee: %.2f.",
		apt.ServiceName, providerName, apt.AppointmentDate, apt.AppointmentTime, apt.Fee,
	)
	s.send(ctx, user, body)
}

func (s *NotificationService) AppointmentStatusChanged(ctx context.Context, user *models.User, apt *models.Appointment) {
	body := fmt.Sprintf(
		"Your %s appointment on %s at %s is now %s.",
		apt.ServiceName, apt.AppointmentDate, apt.AppointmentTime, apt.Status,
	)
	s.send(ctx, user, body)
}

// Wait blocks until in-flight sends finish. Used on shutdown.
func (s *NotificationService) Wait() {
	s.wg.Wait()
}

func (s *NotificationService) send(ctx context.Context, user *models.User, message string) {
	if user.Phone == "" {
		s.logger.Debug().Str("user_id", user.ID.Hex()).Msg("SMS not sent: user has no phone number")
		return
	}
	if s.apiKey == "" {
		s.logger.Debug().Str("user_id", user.ID.Hex()).Msg("SMS not sent: TEXTBELT_API_KEY not configured")
		return
	}

	// The request context ends with the response; the send must outlive it.
	ctx = context.WithoutCancel(ctx)
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.sendSMS(ctx, user.Phone, message); err != nil {
			s.logger.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("failed to send SMS")
			return
		}
		s.logger.Info().Str("user_id", user.ID.Hex()).Msg("SMS sent")
	}()
}

type textbeltResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (s *NotificationService) sendSMS(ctx context.Context, phone, message string) error {
	postBody, err := json.Marshal(map[string]string{
		"phone":   phone,
		"message": message,
		"key":     s.apiKey,
	})
	if err != nil {
		return fmt.Errorf("encode textbelt request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(postBody))
	if err != nil {
		return fmt.Errorf("build textbelt request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("textbelt request: %w", err)
	}
	defer resp.Body.Close()

	var result textbeltResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode textbelt response (status %d): %w", resp.StatusCode, err)
	}
	if !result.Success {
		return fmt.Errorf("textbelt rejected message: %s", result.Error)
	}
	return nil
}
