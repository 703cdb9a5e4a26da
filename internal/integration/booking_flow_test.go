package integration

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/pitchside/pitchside/internal/app"
	"github.com/pitchside/pitchside/internal/config"
	"github.com/stretchr/testify/require"
)

type successEnvelope struct {
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
}

func testConfig() *config.Config {
	return &config.Config{
		Env:              "dev",
		HTTPAddr:         ":0",
		BaseURL:          "http://localhost",
		DBDSN:            "unused",
		JWTSecret:        "test-secret",
		LogLevel:         "error",
		RateLimitRPM:     120,
		SessionDays:      7,
		SlotMinutes:      30,
		DayOpenHour:      8,
		DayCloseHour:     23,
		RosterMin:        2,
		RosterMax:        22,
		WebhookTimeoutMS: 2000,
	}
}

func doJSON(t *testing.T, client *http.Client, method, url, token string, body any, wantStatus int) successEnvelope {
	t.Helper()

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Equal(t, wantStatus, resp.StatusCode, "unexpected status for %s %s: %s", method, url, string(raw))

	var envelope successEnvelope
	if wantStatus < 400 {
		require.NoError(t, json.Unmarshal(raw, &envelope))
	}
	return envelope
}

// signupAndLogin registers a user and returns their bearer token and ID.
func signupAndLogin(t *testing.T, client *http.Client, baseURL, email, name string) (string, uuid.UUID) {
	t.Helper()

	doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/signup", "", map[string]any{
		"email":        email,
		"password":     "password123",
		"display_name": name,
	}, http.StatusCreated)

	resp := doJSON(t, client, http.MethodPost, baseURL+"/api/v1/auth/login", "", map[string]any{
		"email":    email,
		"password": "password123",
	}, http.StatusOK)

	var parsed struct {
		Token string `json:"token"`
		User  struct {
			ID uuid.UUID `json:"id"`
		} `json:"user"`
	}
	require.NoError(t, json.Unmarshal(resp.Data, &parsed))
	require.NotEmpty(t, parsed.Token)
	return parsed.Token, parsed.User.ID
}

func TestBookingFlow_ReservationToFullRoster(t *testing.T) {
	pool, cleanup := newTestDB(t)
	t.Cleanup(cleanup)

	srv := httptest.NewServer(app.NewRouter(pool, testConfig()))
	t.Cleanup(srv.Close)

	client := &http.Client{}

	ownerToken, _ := signupAndLogin(t, client, srv.URL, "owner@example.com", "Field Owner")
	customerToken, _ := signupAndLogin(t, client, srv.URL, "customer@example.com", "Customer")
	candToken1, candID1 := signupAndLogin(t, client, srv.URL, "cand1@example.com", "Candidate One")
	candToken2, _ := signupAndLogin(t, client, srv.URL, "cand2@example.com", "Candidate Two")
	candToken3, _ := signupAndLogin(t, client, srv.URL, "cand3@example.com", "Candidate Three")

	// Owner registers a field.
	fieldResp := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/fields", ownerToken, map[string]any{
		"name":  "Center Court",
		"slug":  "center-court",
		"sport": "futsal",
	}, http.StatusCreated)
	var fieldParsed struct {
		Field struct {
			ID uuid.UUID `json:"id"`
		} `json:"field"`
	}
	require.NoError(t, json.Unmarshal(fieldResp.Data, &fieldParsed))
	fieldID := fieldParsed.Field.ID

	// Customer claims [10:00, 11:00).
	resResp := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/reservations", customerToken, map[string]any{
		"field_id":  fieldID,
		"starts_at": "2026-09-12T10:00:00Z",
		"ends_at":   "2026-09-12T11:00:00Z",
	}, http.StatusCreated)
	var resParsed struct {
		Reservation struct {
			ID     uuid.UUID `json:"id"`
			Status string    `json:"status"`
		} `json:"reservation"`
	}
	require.NoError(t, json.Unmarshal(resResp.Data, &resParsed))
	require.Equal(t, "PENDING", resParsed.Reservation.Status)
	reservationID := resParsed.Reservation.ID

	// Overlapping window is refused; the touching one is not.
	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/reservations", candToken1, map[string]any{
		"field_id":  fieldID,
		"starts_at": "2026-09-12T10:30:00Z",
		"ends_at":   "2026-09-12T11:30:00Z",
	}, http.StatusConflict)
	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/reservations", candToken1, map[string]any{
		"field_id":  fieldID,
		"starts_at": "2026-09-12T11:00:00Z",
		"ends_at":   "2026-09-12T12:00:00Z",
	}, http.StatusCreated)

	// The availability grid shows the claimed slots.
	availResp := doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/fields/"+fieldID.String()+"/availability?date=2026-09-12", "", nil, http.StatusOK)
	var availParsed struct {
		Slots []struct {
			StartsAt string `json:"starts_at"`
			Status   string `json:"status"`
		} `json:"slots"`
	}
	require.NoError(t, json.Unmarshal(availResp.Data, &availParsed))
	claimed := map[string]string{}
	for _, slot := range availParsed.Slots {
		claimed[slot.StartsAt] = slot.Status
	}
	require.Equal(t, "CLAIMED", claimed["2026-09-12T10:00:00Z"])
	require.Equal(t, "CLAIMED", claimed["2026-09-12T10:30:00Z"])
	require.Equal(t, "FREE", claimed["2026-09-12T09:30:00Z"])

	// A post needs a confirmed reservation.
	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/posts", customerToken, map[string]any{
		"reservation_id":   reservationID,
		"content":          "need two more",
		"max_participants": 3,
	}, http.StatusUnprocessableEntity)

	// Only the field owner confirms.
	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/reservations/"+reservationID.String()+"/confirm", customerToken, nil, http.StatusForbidden)
	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/reservations/"+reservationID.String()+"/confirm", ownerToken, nil, http.StatusOK)

	postResp := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/posts", customerToken, map[string]any{
		"reservation_id":   reservationID,
		"content":          "need two more",
		"max_participants": 3,
	}, http.StatusCreated)
	var postParsed struct {
		Post struct {
			ID                  uuid.UUID `json:"id"`
			CurrentParticipants int       `json:"current_participants"`
		} `json:"post"`
	}
	require.NoError(t, json.Unmarshal(postResp.Data, &postParsed))
	require.Equal(t, 1, postParsed.Post.CurrentParticipants)
	postID := postParsed.Post.ID

	// Fill the roster: one nominated, one self-requested.
	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/posts/"+postID.String()+"/invitations", customerToken, map[string]any{
		"candidate_user_id": candID1,
	}, http.StatusCreated)
	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/posts/"+postID.String()+"/invitations/accept", candToken1, nil, http.StatusOK)

	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/posts/"+postID.String()+"/join", candToken2, nil, http.StatusCreated)
	acceptResp := doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/posts/"+postID.String()+"/invitations/accept", candToken2, nil, http.StatusOK)
	var acceptParsed struct {
		Post struct {
			CurrentParticipants int `json:"current_participants"`
		} `json:"post"`
	}
	require.NoError(t, json.Unmarshal(acceptResp.Data, &acceptParsed))
	require.Equal(t, 3, acceptParsed.Post.CurrentParticipants)

	// Full: nomination refused, late joiner can request nothing.
	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/posts/"+postID.String()+"/join", candToken3, nil, http.StatusConflict)

	// The roster lists one accepted nominee and one accepted self-request.
	rosterResp := doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/posts/"+postID.String()+"/players", "", nil, http.StatusOK)
	var rosterParsed struct {
		Roster struct {
			Accepted []struct {
				Origin string `json:"origin"`
			} `json:"accepted"`
			Pending []any `json:"pending"`
		} `json:"roster"`
	}
	require.NoError(t, json.Unmarshal(rosterResp.Data, &rosterParsed))
	require.Len(t, rosterParsed.Roster.Accepted, 2)
	require.Empty(t, rosterParsed.Roster.Pending)

	// Cancelling the reservation orphans the post and closes the roster.
	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/reservations/"+reservationID.String()+"/cancel", customerToken, nil, http.StatusOK)

	getResp := doJSON(t, client, http.MethodGet, srv.URL+"/api/v1/posts/"+postID.String(), "", nil, http.StatusOK)
	var orphanParsed struct {
		Post struct {
			OrphanedAt *string `json:"orphaned_at"`
		} `json:"post"`
	}
	require.NoError(t, json.Unmarshal(getResp.Data, &orphanParsed))
	require.NotNil(t, orphanParsed.Post.OrphanedAt)

	doJSON(t, client, http.MethodPost, srv.URL+"/api/v1/posts/"+postID.String()+"/join", candToken3, nil, http.StatusUnprocessableEntity)
}
