package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/armolymp/webSocket-python-react-native/internal/connection"
)

func TestRecorder(t *testing.T) {
	m := New()

	m.HandleOpened()
	m.HandleOpened()
	m.HandleClosed(true)
	m.HandleClosed(false)
	m.HandleClosed(false)
	m.MessageReceived(9)
	m.MessageReceived(11)
	m.HandleFailed(connection.ErrorConnectionRefused)
	m.HandleAbandoned()
	m.SetHolding(true)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.HandlesOpened))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlesClosed.WithLabelValues("local")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.HandlesClosed.WithLabelValues("remote")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.MessagesReceived))
	assert.Equal(t, 20.0, testutil.ToFloat64(m.BytesReceived))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Failures.WithLabelValues("connection_refused")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandlesAbandoned))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.HandleHeld))

	m.SetHolding(false)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.HandleHeld))
}

func TestNew_IndependentRegistries(t *testing.T) {
	// Each New owns its registry, so two instances must not collide.
	a := New()
	b := New()

	a.HandleOpened()

	assert.Equal(t, 1.0, testutil.ToFloat64(a.HandlesOpened))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.HandlesOpened))
}

func TestHandler(t *testing.T) {
	m := New()
	m.MessageReceived(5)

	server := httptest.NewServer(m.Handler())
	defer server.Close()

	resp, err := http.Get(server.URL)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Contains(t, string(body), "wsdemo_messages_received_total 1")
	assert.Contains(t, string(body), "wsdemo_received_bytes_total 5")
	assert.Contains(t, string(body), "go_goroutines")
}
