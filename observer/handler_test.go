package observer

import (
	"context"
	"testing"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/multiversemmo/MultiversePlatform-sub002/featureflag"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/multiversemmo/MultiversePlatform-sub002/models"
	"github.com/multiversemmo/MultiversePlatform-sub002/quadtree"
	"github.com/stretchr/testify/require"
)

func newTestWorld() *models.World {
	tree := quadtree.New(geometry.MustGeometry(0, 1000, 0, 1000), quadtree.WithName("observer-test"))
	return models.NewWorld(tree, time.Millisecond*10)
}

func newTestHandler(w *models.World, flags ...string) func() Handler {
	ids := &models.SequentialIDGenerator{}

	return func() Handler {
		var h Handler = &WatchHandler{
			Tree:              w.Tree(),
			PerceiverIDs:      ids,
			ClientIdleTimeout: time.Minute,
			FeatureFlags:      featureflag.New(flags),
		}

		h = HandlerWithLogs(h, time.Millisecond*100)
		h = HandlerWithMetrics(h, "test")
		return h
	}
}

func TestHandlerHandlePing(t *testing.T) {
	w := newTestWorld()
	defer w.Close()

	dial, close := newTestingEnv(t, newTestHandler(w))
	defer close()

	conn := dial()
	defer conn.Close()

	sendJSON(t, conn, PingRequest{Type: MsgTypePingRequest, RequestID: 7})

	res := receiveFrame(t, conn)
	require.Equal(t, MsgTypePingResponse, res.Type)
	require.Equal(t, uint32(7), res.RequestID)
}

func TestHandlerHandleWatch(t *testing.T) {
	w := newTestWorld()
	defer w.Close()

	mob := models.NewWorldObject(w.NewObjectID(), "mob", geometry.NewPoint(100, 0, 100))
	require.NoError(t, w.Spawn(mob))

	dial, close := newTestingEnv(t, newTestHandler(w))
	defer close()

	conn := dial()
	defer conn.Close()

	sendJSON(t, conn, WatchRequest{
		Type:      MsgTypeWatchRequest,
		RequestID: 1,
		MinX:      0,
		MaxX:      200,
		MinZ:      0,
		MaxZ:      200,
	})

	res := receiveFrame(t, conn)
	require.Equal(t, MsgTypeWatchResponse, res.Type)
	require.Equal(t, uint32(1), res.RequestID)
	require.NotZero(t, res.PerceiverID)
	perceiverID := res.PerceiverID

	res = receiveFrame(t, conn)
	require.Equal(t, MsgTypeNewsAndFrees, res.Type)
	require.Equal(t, perceiverID, res.PerceiverID)
	require.Equal(t, []models.ObjectView{mob.View()}, res.News)
	require.Empty(t, res.Frees)
	require.Len(t, w.Tree().FixedPerceivers(), 1)

	require.NoError(t, w.Move(mob, geometry.NewPoint(800, 0, 800)))

	res = receiveFrame(t, conn)
	require.Equal(t, MsgTypeNewsAndFrees, res.Type)
	require.Empty(t, res.News)
	require.Equal(t, []uint64{mob.ID()}, res.Frees)

	sendJSON(t, conn, UnwatchRequest{Type: MsgTypeUnwatchRequest, RequestID: 2})

	res = receiveFrame(t, conn)
	require.Equal(t, MsgTypeUnwatchResponse, res.Type)
	require.Equal(t, uint32(2), res.RequestID)
	require.Equal(t, perceiverID, res.PerceiverID)
	require.Empty(t, w.Tree().FixedPerceivers())
}

func TestHandlerHandleWatchReplacesPreviousArea(t *testing.T) {
	w := newTestWorld()
	defer w.Close()

	dial, close := newTestingEnv(t, newTestHandler(w))
	defer close()

	conn := dial()
	defer conn.Close()

	for i := uint32(1); i <= 2; i++ {
		sendJSON(t, conn, WatchRequest{
			Type:      MsgTypeWatchRequest,
			RequestID: i,
			MaxX:      100,
			MaxZ:      100,
		})

		res := receiveFrame(t, conn)
		require.Equal(t, MsgTypeWatchResponse, res.Type)
		require.Equal(t, i, res.RequestID)
	}

	require.Len(t, w.Tree().FixedPerceivers(), 1)
}

func TestHandlerHandleWatchClipsAreaToWorld(t *testing.T) {
	w := newTestWorld()
	defer w.Close()

	mob := models.NewWorldObject(w.NewObjectID(), "mob", geometry.NewPoint(100, 0, 100))
	require.NoError(t, w.Spawn(mob))

	dial, close := newTestingEnv(t, newTestHandler(w))
	defer close()

	conn := dial()
	defer conn.Close()

	sendJSON(t, conn, WatchRequest{
		Type:      MsgTypeWatchRequest,
		RequestID: 1,
		MinX:      -500,
		MaxX:      200,
		MinZ:      -500,
		MaxZ:      200,
	})

	res := receiveFrame(t, conn)
	require.Equal(t, MsgTypeWatchResponse, res.Type)

	res = receiveFrame(t, conn)
	require.Equal(t, MsgTypeNewsAndFrees, res.Type)
	require.Equal(t, []models.ObjectView{mob.View()}, res.News)

	perceivers := w.Tree().FixedPerceivers()
	require.Len(t, perceivers, 1)
	require.Equal(t, geometry.MustGeometry(0, 200, 0, 200), perceivers[0].Geometry())
}

func TestHandlerHandleWatchErrors(t *testing.T) {
	tests := []struct {
		scenario  string
		flags     []string
		req       WatchRequest
		errorType string
	}{
		{
			scenario:  "empty area",
			req:       WatchRequest{MinX: 100, MaxX: 100, MinZ: 0, MaxZ: 10},
			errorType: ErrTypeInvalidArea,
		},
		{
			scenario:  "area outside the world",
			req:       WatchRequest{MinX: 5000, MaxX: 6000, MinZ: 0, MaxZ: 10},
			errorType: ErrTypeInvalidArea,
		},
		{
			scenario:  "stream disabled",
			flags:     []string{featureflag.FlagDisableObserverStream.String()},
			req:       WatchRequest{MinX: 0, MaxX: 100, MinZ: 0, MaxZ: 100},
			errorType: ErrTypeStreamDisabled,
		},
	}

	for _, test := range tests {
		t.Run(test.scenario, func(t *testing.T) {
			w := newTestWorld()
			defer w.Close()

			dial, close := newTestingEnv(t, newTestHandler(w, test.flags...))
			defer close()

			conn := dial()
			defer conn.Close()

			req := test.req
			req.Type = MsgTypeWatchRequest
			req.RequestID = 3
			sendJSON(t, conn, req)

			res := receiveFrame(t, conn)
			require.Equal(t, MsgTypeError, res.Type)
			require.Equal(t, uint32(3), res.RequestID)
			require.Equal(t, test.errorType, res.ErrorType)
			require.Empty(t, w.Tree().FixedPerceivers())
		})
	}
}

func TestHandlerInvalidMessages(t *testing.T) {
	w := newTestWorld()
	defer w.Close()

	dial, close := newTestingEnv(t, newTestHandler(w))
	defer close()

	conn := dial()
	defer conn.Close()

	t.Run("not json", func(t *testing.T) {
		sendJSON(t, conn, "hello")

		res := receiveFrame(t, conn)
		require.Equal(t, MsgTypeError, res.Type)
		require.Equal(t, ErrTypeMsgInvalid, res.ErrorType)
	})

	t.Run("unknown type", func(t *testing.T) {
		sendJSON(t, conn, map[string]any{"type": "dance"})

		res := receiveFrame(t, conn)
		require.Equal(t, MsgTypeError, res.Type)
		require.Equal(t, ErrTypeMsgInvalid, res.ErrorType)
	})

	t.Run("connection still usable", func(t *testing.T) {
		sendJSON(t, conn, PingRequest{Type: MsgTypePingRequest, RequestID: 9})

		res := receiveFrame(t, conn)
		require.Equal(t, MsgTypePingResponse, res.Type)
	})
}

func TestHandlerDisconnectRemovesPerceiver(t *testing.T) {
	w := newTestWorld()
	defer w.Close()

	dial, close := newTestingEnv(t, newTestHandler(w))
	defer close()

	conn := dial()
	sendJSON(t, conn, WatchRequest{
		Type:      MsgTypeWatchRequest,
		RequestID: 1,
		MaxX:      500,
		MaxZ:      500,
	})

	res := receiveFrame(t, conn)
	require.Equal(t, MsgTypeWatchResponse, res.Type)
	require.Len(t, w.Tree().FixedPerceivers(), 1)

	conn.Close()

	require.Eventually(t, func() bool {
		return len(w.Tree().FixedPerceivers()) == 0
	}, time.Second*2, time.Millisecond*10)
}

func TestHandlerIdleTimeout(t *testing.T) {
	w := newTestWorld()
	defer w.Close()

	dial, close := newTestingEnv(t, func() Handler {
		return &WatchHandler{
			Tree:              w.Tree(),
			PerceiverIDs:      &models.SequentialIDGenerator{},
			ClientIdleTimeout: time.Millisecond * 50,
		}
	})
	defer close()

	conn := dial()
	defer conn.Close()

	sendJSON(t, conn, WatchRequest{
		Type:      MsgTypeWatchRequest,
		RequestID: 1,
		MaxX:      500,
		MaxZ:      500,
	})
	res := receiveFrame(t, conn)
	require.Equal(t, MsgTypeWatchResponse, res.Type)

	require.Eventually(t, func() bool {
		return len(w.Tree().FixedPerceivers()) == 0
	}, time.Second*2, time.Millisecond*10)
}

func TestHandlerSendQueueFull(t *testing.T) {
	h := &handler{
		ctx:            context.Background(),
		sendChan:       make(chan Msg, 1),
		disconnectChan: make(chan error, 8),
	}

	h.sendMsg(Msg{Type: MsgTypePingResponse})
	require.Empty(t, h.disconnectChan)

	sent := make(chan struct{})
	go func() {
		h.sendMsg(Msg{Type: MsgTypeNewsAndFrees})
		close(sent)
	}()

	select {
	case <-sent:
	case <-time.After(time.Second * 2):
		require.FailNow(t, "sending on a full queue blocked")
	}

	require.Len(t, h.sendChan, 1)
	err := <-h.disconnectChan
	require.True(t, errors.IsType(err, ErrTypeSendQueueFull))
}

func TestHandlerSlowClientDoesNotBlockMoves(t *testing.T) {
	w := newTestWorld()
	defer w.Close()

	mob := models.NewWorldObject(w.NewObjectID(), "mob", geometry.NewPoint(100, 0, 100))
	require.NoError(t, w.Spawn(mob))

	dial, close := newTestingEnv(t, newTestHandler(w))
	defer close()

	conn := dial()
	defer conn.Close()

	sendJSON(t, conn, WatchRequest{
		Type:      MsgTypeWatchRequest,
		RequestID: 1,
		MaxX:      500,
		MaxZ:      500,
	})

	require.Eventually(t, func() bool {
		return len(w.Tree().FixedPerceivers()) == 1
	}, time.Second*2, time.Millisecond*10)

	// The client never reads again while the mob keeps entering and
	// leaving the watched area.
	moved := make(chan error, 1)
	go func() {
		locs := []geometry.Point{
			geometry.NewPoint(900, 0, 900),
			geometry.NewPoint(100, 0, 100),
		}

		for i := 0; i < 50000; i++ {
			if err := w.Move(mob, locs[i%2]); err != nil {
				moved <- err
				return
			}
		}
		moved <- nil
	}()

	select {
	case err := <-moved:
		require.NoError(t, err)
	case <-time.After(time.Second * 20):
		require.FailNow(t, "moves are blocked by the observer")
	}
}
