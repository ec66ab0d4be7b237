package handlers

import (
	"context"
	"crypto/subtle"
	"errors"
	"net/http"

	"reviewreminder/internal/reminder"
	"reviewreminder/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// TriggerSecretHeader carries the shared secret for the trigger endpoint
const TriggerSecretHeader = "X-Trigger-Secret"

// ReminderRunner is the part of the reminder worker the handlers use
type ReminderRunner interface {
	RunOnce(ctx context.Context) (reminder.CycleReport, error)
	LastReport() (reminder.CycleReport, bool)
}

// handleError provides a consistent way to handle and log errors
func handleError(c *gin.Context, log zerolog.Logger, status int, message string, err error) {
	log.Error().Err(err).Int("status", status).Str("path", c.FullPath()).Msg(message)
	c.JSON(status, gin.H{"error": message})
}

// HomeHandler handles requests to the root path "/"
func HomeHandler(c *gin.Context) {
	c.String(http.StatusOK, "Review reminder service")
}

// HealthHandler reports whether the database answers
func HealthHandler(ping func() error, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := ping(); err != nil {
			handleError(c, log, http.StatusServiceUnavailable, "Database unavailable", err)
			return
		}
		c.String(http.StatusOK, "OK")
	}
}

// TriggerReminders runs one reminder cycle and returns its report. The cycle
// is detached from the request, so a dropped connection does not cut it short.
// A cycle that could not list assignments answers 503, an overlapping
// trigger answers 409.
func TriggerReminders(runner ReminderRunner, secret string, log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret != "" && subtle.ConstantTimeCompare([]byte(c.GetHeader(TriggerSecretHeader)), []byte(secret)) != 1 {
			log.Warn().Str("client_ip", utils.GetRealClientIP(c)).Msg("rejected reminder trigger")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid trigger secret"})
			return
		}

		log.Info().Str("client_ip", utils.GetRealClientIP(c)).Msg("reminder cycle triggered over HTTP")
		// A cycle runs to completion even if the caller hangs up.
		report, err := runner.RunOnce(context.WithoutCancel(c.Request.Context()))
		switch {
		case errors.Is(err, reminder.ErrCycleInProgress):
			c.JSON(http.StatusConflict, gin.H{"error": "Reminder cycle already running"})
		case err != nil:
			log.Error().Err(err).Str("cycle_id", report.ID).Msg("reminder cycle failed")
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Reminder cycle failed", "report": report})
		default:
			c.JSON(http.StatusOK, gin.H{"report": report})
		}
	}
}

// LastReport returns the report of the most recent cycle
func LastReport(runner ReminderRunner) gin.HandlerFunc {
	return func(c *gin.Context) {
		report, ok := runner.LastReport()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "No reminder cycle has run yet"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"report": report, "ok": report.OK()})
	}
}
