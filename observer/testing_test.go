package observer

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/multiversemmo/MultiversePlatform-sub002/models"
	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/require"
	"golang.org/x/net/websocket"
)

// frame is a decoded server message. It has the union of the fields of all
// the server messages.
type frame struct {
	Type        MsgType             `json:"type"`
	RequestID   uint32              `json:"request_id"`
	PerceiverID uint64              `json:"perceiver_id"`
	News        []models.ObjectView `json:"news"`
	Frees       []uint64            `json:"frees"`
	ErrorType   string              `json:"error_type"`
	Message     string              `json:"message"`
}

// newTestingEnv starts a server handling observers and returns a function
// that dials it.
func newTestingEnv(t *testing.T, newHandler func() Handler) (func() *websocket.Conn, func()) {
	var mutex sync.Mutex
	logger := t.Log

	logs.Encoder = func(v any) ([]byte, error) {
		return json.MarshalIndent(v, "", "  ")
	}

	logs.SetLogger(func(e logs.Entry) {
		mutex.Lock()
		defer mutex.Unlock()

		if logger != nil {
			logger(e)
		}
	})

	errors.Encoder = json.Marshal

	ctx, cancel := context.WithCancel(context.Background())

	server := httptest.NewServer(websocket.Server{
		Handshake: func(c *websocket.Config, r *http.Request) error {
			return nil
		},
		Handler: func(conn *websocket.Conn) {
			defer conn.Close()

			handler := newHandler()
			defer handler.Close()

			Handle(ctx, conn, handler)
		},
	})

	dial := func() *websocket.Conn {
		config, err := websocket.NewConfig(
			strings.ReplaceAll(server.URL, "http://", "ws://"),
			"http://localhost",
		)
		require.NoError(t, err)

		config.Header.Set("User-Agent", "observer-test")
		config.Header.Set(HeaderClientID, "test-client")

		conn, err := websocket.DialConfig(config)
		require.NoError(t, err)
		return conn
	}

	return dial, func() {
		cancel()
		server.Close()

		mutex.Lock()
		defer mutex.Unlock()
		logger = nil
	}
}

func sendJSON(t *testing.T, conn *websocket.Conn, v any) {
	data, err := json.Marshal(v)
	require.NoError(t, err)

	err = websocket.Message.Send(conn, string(data))
	require.NoError(t, err)
}

func receiveFrame(t *testing.T, conn *websocket.Conn) frame {
	err := conn.SetReadDeadline(time.Now().Add(time.Second * 2))
	require.NoError(t, err)

	var data []byte
	err = websocket.Message.Receive(conn, &data)
	require.NoError(t, err)

	var f frame
	err = json.Unmarshal(data, &f)
	require.NoError(t, err)
	return f
}
