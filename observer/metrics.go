package observer

import (
	"context"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"golang.org/x/net/websocket"
)

const (
	errTypeLabel = "error_type"
	msgTypeLabel = "msg_type"
	worldLabel   = "world"
)

var (
	wsConnectedObservers = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "observer_ws_connected_clients",
		Help: "The number of connected observers.",
	}, []string{
		worldLabel,
	})

	wsReceivedMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observer_ws_received_msgs",
		Help: "The number of messages received from observer connections.",
	}, []string{
		worldLabel,
		msgTypeLabel,
	})

	wsReceivedBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observer_ws_received_bytes",
		Help: "The number of bytes received from observer connections.",
	}, []string{
		worldLabel,
		msgTypeLabel,
	})

	wsReceiveError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observer_ws_receive_errors",
		Help: "The errors that occured while receiving an observer message.",
	}, []string{
		worldLabel,
		errTypeLabel,
	})

	wsSentMsgs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observer_ws_sent_msgs",
		Help: "The number of messages sent to observer connections.",
	}, []string{
		worldLabel,
		msgTypeLabel,
	})

	wsSentBytes = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observer_ws_sent_bytes",
		Help: "The number of bytes sent to observer connections.",
	}, []string{
		worldLabel,
		msgTypeLabel,
	})

	wsSendError = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "observer_ws_send_errors",
		Help: "The errors that occured while sending an observer message.",
	}, []string{
		worldLabel,
		errTypeLabel,
		msgTypeLabel,
	})

	wsMsgLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name: "observer_ws_msg_latency",
		Help: "The time to process an observer msg.",
	}, []string{
		worldLabel,
		msgTypeLabel,
	})
)

func HandlerWithMetrics(h Handler, world string) Handler {
	return &handlerWithMetrics{
		Handler: h,
		world:   world,
	}
}

type handlerWithMetrics struct {
	Handler

	world string
}

func (h *handlerWithMetrics) HandleConnect(conn *websocket.Conn) {
	wsConnectedObservers.
		With(prometheus.Labels{
			worldLabel: h.world,
		}).
		Inc()

	h.Handler.HandleConnect(conn)
}

func (h *handlerWithMetrics) HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandlePing(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandleWatch(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandleWatch(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandleUnwatch(ctx context.Context, respond ResponseSender, msg Msg) error {
	return h.measureLatency(msg, func() error {
		return h.Handler.HandleUnwatch(ctx, respond, msg)
	})
}

func (h *handlerWithMetrics) HandleDisconnect(err error) {
	wsConnectedObservers.
		With(prometheus.Labels{
			worldLabel: h.world,
		}).
		Dec()

	h.Handler.HandleDisconnect(err)
}

func (h *handlerWithMetrics) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil {
			wsReceiveError.
				With(prometheus.Labels{
					worldLabel:   h.world,
					errTypeLabel: errors.Type(err),
				}).
				Inc()
		} else {
			wsReceivedMsgs.
				With(prometheus.Labels{
					worldLabel:   h.world,
					msgTypeLabel: msg.TypeString(),
				}).
				Inc()
		}

		if n != 0 {
			wsReceivedBytes.
				With(prometheus.Labels{
					worldLabel:   h.world,
					msgTypeLabel: msg.TypeString(),
				}).
				Add(float64(n))
		}

		return msg, n, err
	}
}

func (h *handlerWithMetrics) Sender() Sender {
	sender := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil {
			wsSendError.
				With(prometheus.Labels{
					worldLabel:   h.world,
					msgTypeLabel: msgType,
					errTypeLabel: errors.Type(err),
				}).
				Inc()
		}

		if n != 0 {
			wsSentMsgs.
				With(prometheus.Labels{
					worldLabel:   h.world,
					msgTypeLabel: msgType,
				}).
				Inc()
			wsSentBytes.
				With(prometheus.Labels{
					worldLabel:   h.world,
					msgTypeLabel: msgType,
				}).
				Add(float64(n))
		}

		return n, err
	}
}

func (h *handlerWithMetrics) measureLatency(msg Msg, f func() error) error {
	start := time.Now()
	err := f()

	wsMsgLatency.With(prometheus.Labels{
		worldLabel:   h.world,
		msgTypeLabel: msg.TypeString(),
	}).Observe(time.Since(start).Seconds())

	return err
}
