package wsobserver

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/sentrywatch/threatwatch/internal/bus"
	"github.com/sentrywatch/threatwatch/internal/common"
	"github.com/sentrywatch/threatwatch/internal/models"
)

func TestServeStreamsEventsUntilComplete(t *testing.T) {
	observers := bus.NewObserverRegistry()
	handler := NewHandler(observers, common.GetLogger())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.Serve(w, r, "job-1")
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	// Give the server goroutine time to subscribe before publishing.
	time.Sleep(20 * time.Millisecond)

	observers.Publish("job-1", models.NewProgressEvent("job-1", 50, "halfway"))
	observers.Publish("job-1", models.NewCompleteEvent("job-1", 3, 0, 1.5))

	var progress, complete models.Event
	require.NoError(t, conn.ReadJSON(&progress))
	require.Equal(t, models.EventTypeProgress, progress.Type)

	require.NoError(t, conn.ReadJSON(&complete))
	require.Equal(t, models.EventTypeComplete, complete.Type)
	require.Equal(t, 3, complete.TotalFindings)

	// Server should close the connection after a complete event.
	conn.SetReadDeadline(time.Now().Add(time.Second))
	_, _, err = conn.ReadMessage()
	require.Error(t, err)
}

func TestServeClosesOnSupersede(t *testing.T) {
	observers := bus.NewObserverRegistry()
	handler := NewHandler(observers, common.GetLogger())

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		handler.Serve(w, r, "job-2")
	}))
	defer server.Close()

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	defer conn.Close()

	time.Sleep(20 * time.Millisecond)
	_ = observers.Subscribe("job-2") // second subscriber supersedes the handler's sink

	var event models.Event
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, models.EventTypeSuperseded, event.Type)
}
