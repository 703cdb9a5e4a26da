// Package notify delivers fire-and-forget event notifications to an
// external webhook sink (the social/feed layer). Failures never propagate
// to the caller; they are logged and dropped.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const (
	EventReservationCreated   = "reservation.created"
	EventReservationConfirmed = "reservation.confirmed"
	EventReservationCancelled = "reservation.cancelled"
	EventPostCreated          = "post.created"
	EventInvitePending        = "invite.pending"
	EventInviteAccepted       = "invite.accepted"
	EventInviteRejected       = "invite.rejected"
)

// Client posts JSON events to a configured webhook URL. A client with an
// empty URL is valid and silently drops everything.
type Client struct {
	webhookURL string
	httpClient *http.Client
	timeout    time.Duration
}

// NewClient creates a webhook client with the given timeout.
func NewClient(webhookURL string, timeoutMS int) *Client {
	timeout := time.Duration(timeoutMS) * time.Millisecond
	return &Client{
		webhookURL: webhookURL,
		httpClient: &http.Client{Timeout: timeout},
		timeout:    timeout,
	}
}

type payload struct {
	Event      string         `json:"event"`
	OccurredAt time.Time      `json:"occurred_at"`
	Data       map[string]any `json:"data"`
}

// Post sends one event. It never returns an error; all failures are logged
// at WARN level so notification trouble cannot affect the write path.
func (c *Client) Post(ctx context.Context, event string, data map[string]any) {
	if c.webhookURL == "" {
		return
	}

	body, err := json.Marshal(payload{
		Event:      event,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	})
	if err != nil {
		log.Warn().Err(err).Str("event", event).Msg("Failed to marshal webhook payload")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.webhookURL, bytes.NewReader(body))
	if err != nil {
		log.Warn().Err(err).Str("event", event).Msg("Failed to create webhook request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() == context.DeadlineExceeded || isTimeoutError(err) {
			log.Warn().Err(err).Dur("timeout", c.timeout).Str("event", event).Msg("Webhook notification timed out")
		} else {
			log.Warn().Err(err).Str("event", event).Msg("Failed to send webhook notification")
		}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		log.Warn().Int("status_code", resp.StatusCode).Str("event", event).Msg("Webhook returned an error status")
		return
	}

	log.Debug().Str("event", event).Msg("Webhook notification sent")
}

// ReservationEvent posts a reservation lifecycle event.
func (c *Client) ReservationEvent(ctx context.Context, event string, reservationID, fieldID uuid.UUID, status string) {
	c.Post(ctx, event, map[string]any{
		"reservation_id": reservationID.String(),
		"field_id":       fieldID.String(),
		"status":         status,
	})
}

// PostEvent posts a match post creation event.
func (c *Client) PostEvent(ctx context.Context, postID, reservationID uuid.UUID, maxParticipants int) {
	c.Post(ctx, EventPostCreated, map[string]any{
		"post_id":          postID.String(),
		"reservation_id":   reservationID.String(),
		"max_participants": maxParticipants,
	})
}

// InviteEvent posts an invitation lifecycle event.
func (c *Client) InviteEvent(ctx context.Context, event string, postID, candidateID uuid.UUID) {
	c.Post(ctx, event, map[string]any{
		"post_id":           postID.String(),
		"candidate_user_id": candidateID.String(),
	})
}

func isTimeoutError(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
