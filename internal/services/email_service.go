package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"reviewreminder/internal/config"
	"reviewreminder/internal/reminder"

	"github.com/rs/zerolog"
	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"golang.org/x/time/rate"
)

const sendEndpoint = "/v3/mail/send"

// ErrNoRecipient is returned when a reminder has no delivery address
var ErrNoRecipient = errors.New("reminder has no recipient address")

// EmailService delivers reminders through SendGrid. It implements reminder.Notifier.
type EmailService struct {
	request   rest.Request
	fromEmail string
	fromName  string
	limiter   *rate.Limiter
	log       zerolog.Logger
}

func NewEmailService(cfg config.SendGrid, log zerolog.Logger) *EmailService {
	request := sendgrid.GetRequest(cfg.APIKey, sendEndpoint, cfg.APIHost)
	request.Method = rest.Post

	limit := rate.Inf
	burst := 1
	if cfg.RatePerSec > 0 {
		limit = rate.Limit(cfg.RatePerSec)
		burst = int(math.Max(1, math.Ceil(cfg.RatePerSec)))
	}

	return &EmailService{
		request:   request,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		limiter:   rate.NewLimiter(limit, burst),
		log:       log.With().Str("component", "email").Logger(),
	}
}

// Send emails one reminder. The idempotency key from the payload travels as a
// SendGrid custom arg so webhook consumers can spot duplicates.
func (s *EmailService) Send(ctx context.Context, address string, eventType reminder.EventType, payload reminder.Payload) error {
	if strings.TrimSpace(address) == "" {
		return ErrNoRecipient
	}
	if err := s.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("send rate limit: %w", err)
	}

	message := s.buildMessage(address, eventType, payload)

	// SendWithContext writes the body into the client, so each send gets its own copy.
	client := &sendgrid.Client{Request: s.request}
	response, err := client.SendWithContext(ctx, message)
	if err != nil {
		return fmt.Errorf("failed to send %s to %s: %w", eventType, address, err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("failed to send %s to %s: %d %s", eventType, address, response.StatusCode, strings.TrimSpace(response.Body))
	}

	s.log.Debug().
		Str("event_type", string(eventType)).
		Str("assignment_id", payload[reminder.PayloadAssignmentID]).
		Int("status", response.StatusCode).
		Msg("reminder email accepted")
	return nil
}

func (s *EmailService) buildMessage(address string, eventType reminder.EventType, payload reminder.Payload) *mail.SGMailV3 {
	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(payload[reminder.PayloadRecipientName], address)

	subject, lead := reminderCopy(eventType)
	due := payload[reminder.PayloadDueAt]
	if t, err := time.Parse(time.RFC3339, due); err == nil {
		due = t.Format("Mon Jan 2, 3:04 PM MST")
	}
	id := payload[reminder.PayloadAssignmentID]

	plainContent := fmt.Sprintf("Hello %s, %s Assignment %s is due %s.",
		payload[reminder.PayloadRecipientName], lead, id, due)
	htmlContent := fmt.Sprintf("<p>Hello %s,</p><p>%s Assignment <strong>%s</strong> is due %s.</p>",
		payload[reminder.PayloadRecipientName], lead, id, due)

	message := mail.NewSingleEmail(from, subject, to, plainContent, htmlContent)
	message.SetCustomArg("event_type", string(eventType))
	message.SetCustomArg(reminder.PayloadAssignmentID, id)
	if key := payload[reminder.PayloadIdempotencyKey]; key != "" {
		message.SetCustomArg(reminder.PayloadIdempotencyKey, key)
	}
	return message
}

func reminderCopy(eventType reminder.EventType) (subject, lead string) {
	switch eventType {
	case reminder.EventDue24h:
		return "Reminder: your review is due tomorrow", "Your review is due in 24 hours."
	case reminder.EventDue6h:
		return "Reminder: your review is due in 6 hours", "Your review is due in 6 hours."
	case reminder.EventOverdue:
		return "Your review is overdue", "Your review is past its due time."
	default:
		return "Review reminder", "This is a reminder about your review."
	}
}
