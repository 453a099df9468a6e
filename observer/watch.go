package observer

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"github.com/google/uuid"
	"github.com/multiversemmo/MultiversePlatform-sub002/featureflag"
	"github.com/multiversemmo/MultiversePlatform-sub002/geometry"
	"github.com/multiversemmo/MultiversePlatform-sub002/models"
	"github.com/multiversemmo/MultiversePlatform-sub002/quadtree"
	"golang.org/x/net/websocket"
)

const (
	HeaderClientID = "X-Client-ID"

	ErrTypeStreamDisabled = "observer-stream-disabled"
	ErrTypeInvalidArea    = "observer-invalid-area"
)

// WatchHandler streams the objects seen by a fixed perceiver covering the
// area requested by the client.
type WatchHandler struct {
	// The tree where perceivers are registered.
	Tree *quadtree.QuadTree

	// The ids given to perceivers.
	PerceiverIDs *models.SequentialIDGenerator

	ClientIdleTimeout time.Duration
	FeatureFlags      featureflag.FeatureFlag

	conn     *websocket.Conn
	clientID string

	mutex     sync.Mutex
	perceiver *quadtree.FixedPerceiver
	observer  *models.Observer
}

func (h *WatchHandler) HandleConnect(conn *websocket.Conn) {
	h.clientID = conn.Request().Header.Get(HeaderClientID)
	if h.clientID == "" {
		h.clientID = uuid.NewString()
	}
	h.conn = conn
}

func (h *WatchHandler) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req PingRequest
	if err := msg.DataTo(&req); err != nil {
		return err
	}

	respond.Send(&PingResponse{
		Type:      MsgTypePingResponse,
		RequestID: req.RequestID,
	})
	return nil
}

func (h *WatchHandler) HandleWatch(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req WatchRequest
	if err := msg.DataTo(&req); err != nil {
		respond.SendMsg(errorMsg(0, err))
		return nil
	}

	if h.FeatureFlags.IsSet(featureflag.FlagDisableObserverStream) {
		respond.SendMsg(errorMsg(req.RequestID, errors.New("observer stream is disabled").
			WithType(ErrTypeStreamDisabled)))
		return nil
	}

	requested, err := geometry.NewGeometry(req.MinX, req.MaxX, req.MinZ, req.MaxZ)
	if err != nil {
		respond.SendMsg(errorMsg(req.RequestID, errors.New("invalid watch area").
			WithType(ErrTypeInvalidArea).
			Wrap(err)))
		return nil
	}

	area, ok := h.Tree.Geometry().Intersection(requested)
	if !ok {
		respond.SendMsg(errorMsg(req.RequestID, errors.New("watch area is outside the world").
			WithType(ErrTypeInvalidArea).
			WithTag("area", requested.String()).
			WithTag("world", h.Tree.Geometry().String())))
		return nil
	}

	h.unwatch()

	id := uint64(h.PerceiverIDs.New())
	observer := models.NewObserver(id, func(news []models.ObjectView, frees []uint64) {
		h.FeatureFlags.IfSet(featureflag.FlagLogNewsAndFrees, func() {
			logs.WithTag("client_id", h.clientID).
				WithTag("perceiver_id", id).
				WithTag("news", len(news)).
				WithTag("frees", len(frees)).
				Info("observer news and frees")
		})

		respond.Send(&NewsAndFrees{
			Type:        MsgTypeNewsAndFrees,
			PerceiverID: id,
			News:        news,
			Frees:       frees,
		})
	})

	perceiver := quadtree.NewFixedPerceiver(id, area)
	perceiver.RegisterCallback(observer.HandleNewsAndFrees)

	h.mutex.Lock()
	h.perceiver = perceiver
	h.observer = observer
	h.mutex.Unlock()

	respond.Send(&WatchResponse{
		Type:        MsgTypeWatchResponse,
		RequestID:   req.RequestID,
		PerceiverID: id,
	})

	h.Tree.AddFixedPerceiver(perceiver)
	return nil
}

func (h *WatchHandler) HandleUnwatch(ctx context.Context, respond ResponseSender, msg Msg) error {
	var req UnwatchRequest
	if err := msg.DataTo(&req); err != nil {
		respond.SendMsg(errorMsg(0, err))
		return nil
	}

	id := h.unwatch()
	respond.Send(&UnwatchResponse{
		Type:        MsgTypeUnwatchResponse,
		RequestID:   req.RequestID,
		PerceiverID: id,
	})
	return nil
}

func (h *WatchHandler) HandleDisconnect(err error) {
	h.unwatch()
}

// unwatch removes the current perceiver from the tree and returns its id. It
// returns 0 when nothing was watched.
func (h *WatchHandler) unwatch() uint64 {
	h.mutex.Lock()
	perceiver := h.perceiver
	h.perceiver = nil
	h.observer = nil
	h.mutex.Unlock()

	if perceiver == nil {
		return 0
	}

	h.Tree.RemoveFixedPerceiver(perceiver)
	h.PerceiverIDs.Reuse(uint32(perceiver.ID()))
	return perceiver.ID()
}

// Observer returns the observer of the current watch. It returns nil when
// nothing is watched.
func (h *WatchHandler) Observer() *models.Observer {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.observer
}

func (h *WatchHandler) Receiver() Receiver {
	return func() (Msg, int, error) {
		return Receive(h.conn)
	}
}

func (h *WatchHandler) Sender() Sender {
	return func(msg Msg) (int, error) {
		return Send(h.conn, msg)
	}
}

func (h *WatchHandler) Close() {
	h.unwatch()
}

func (h *WatchHandler) IdleTimeout() time.Duration {
	return h.ClientIdleTimeout
}

func (h *WatchHandler) GetClientID() string {
	return h.clientID
}
