package detect

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"proctord/internal/domain"
)

func TestClientReport(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/events", r.URL.Path)
		assert.Equal(t, "Bearer tok-123", r.Header.Get("Authorization"))

		var payload struct {
			EventType string `json:"event_type"`
			Details   string `json:"details"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "blur", payload.EventType)

		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"data": domain.Outcome{
				Violations: 2,
				Action:     domain.ActionWarn,
				Message:    "Final Warning",
				SessionID:  9,
			},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok-123")
	out, err := c.Report(context.Background(), domain.EventBlur, "Window blur detected")
	require.NoError(t, err)
	assert.Equal(t, 2, out.Violations)
	assert.Equal(t, domain.ActionWarn, out.Action)
	assert.Equal(t, int64(9), out.SessionID)
}

func TestClientReportServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": false,
			"error":   "User not authenticated",
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "stale")
	_, err := c.Report(context.Background(), domain.EventBlur, "")
	require.Error(t, err)
	assert.EqualError(t, err, "User not authenticated")
}

func TestClientReportUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close()

	c := NewClient(srv.URL, "tok")
	_, err := c.Report(context.Background(), domain.EventBlur, "")
	require.Error(t, err)
}

func TestClientSubmit(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/results", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "data": map[string]string{"message": "Result saved"}})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	err := c.Submit(context.Background(), domain.ExamResult{
		UserID: 42, Score: 0, TotalQuestions: 10, TimeTaken: 45, Status: domain.StatusCheated,
	})
	require.NoError(t, err)

	assert.Equal(t, domain.StatusCheated, got["status"])
	assert.Equal(t, float64(0), got["score"])
	// The server identifies the user from the token and rejects unknown
	// fields, so identity must never ride in the body.
	assert.NotContains(t, got, "user_id")
}

func TestSignalEventTypes(t *testing.T) {
	cases := []struct {
		kind SignalKind
		want domain.EventType
		ok   bool
	}{
		{SignalVisibilityHidden, domain.EventVisibilityChange, true},
		{SignalWindowBlur, domain.EventBlur, true},
		{SignalFocusWhileHidden, domain.EventVisibilityChange, true},
		{SignalVisibilityPoll, domain.EventVisibilityChange, true},
		{SignalFullscreenExit, domain.EventFullscreenExit, true},
		{SignalCursorLeave, domain.EventCursorLeave, true},
		{SignalDevtoolsShortcut, domain.EventDevtoolsShortcut, true},
		{SignalContextMenu, "", false},
	}
	for _, tc := range cases {
		got, ok := tc.kind.EventType()
		assert.Equal(t, tc.ok, ok, string(tc.kind))
		assert.Equal(t, tc.want, got, string(tc.kind))
	}

	assert.True(t, SignalDevtoolsShortcut.SuppressDefault())
	assert.True(t, SignalContextMenu.SuppressDefault())
	assert.False(t, SignalWindowBlur.SuppressDefault())
}
