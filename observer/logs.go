package observer

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

func HandlerWithLogs(h Handler, summaryInterval time.Duration) Handler {
	ctx, cancel := context.WithCancel(context.Background())

	handler := &handlerWithLogs{
		Handler:            h,
		summaryInterval:    summaryInterval,
		closeSummaryWorker: cancel,
		counter:            make(map[string]int),
	}

	go handler.startSummaryWorker(ctx)
	return handler
}

type handlerWithLogs struct {
	Handler

	userAgent     string
	xForwardedFor string

	summaryInterval    time.Duration
	closeSummaryWorker func()
	counterMutex       sync.Mutex
	counter            map[string]int
}

func (h *handlerWithLogs) HandleConnect(conn *websocket.Conn) {
	h.Handler.HandleConnect(conn)

	req := conn.Request()
	h.userAgent = req.UserAgent()
	h.xForwardedFor = req.Header.Get("X-Forwarded-For")

	logs.WithTag("client_id", h.GetClientID()).
		WithTag("user_agent", h.userAgent).
		WithTag("x_forwarded_for", h.xForwardedFor).
		Info("new observer is connected")
}

func (h *handlerWithLogs) HandleWatch(ctx context.Context, respond ResponseSender, msg Msg) error {
	if err := h.Handler.HandleWatch(ctx, respond, msg); err != nil {
		return err
	}

	var req WatchRequest
	// Decoding already succeeded in the wrapped handler.
	msg.DataTo(&req)

	logs.WithTag("client_id", h.GetClientID()).
		WithTag("request_id", req.RequestID).
		WithTag("min_x", req.MinX).
		WithTag("max_x", req.MaxX).
		WithTag("min_z", req.MinZ).
		WithTag("max_z", req.MaxZ).
		Info("observer is watching an area")
	return nil
}

func (h *handlerWithLogs) HandleDisconnect(err error) {
	h.Handler.HandleDisconnect(err)

	entry := logs.WithTag("client_id", h.GetClientID())
	if err != nil {
		entry = entry.WithTag("reason", err.Error())
	}
	entry.Info("observer disconnected")
}

func (h *handlerWithLogs) Receiver() Receiver {
	receive := h.Handler.Receiver()

	return func() (Msg, int, error) {
		msg, n, err := receive()
		if err != nil && !isConnClosed(err) {
			logs.WithTag("client_id", h.GetClientID()).
				Error(errors.New("receiving message failed").Wrap(err))
		} else if err == nil {
			logs.WithTag("client_id", h.GetClientID()).
				WithTag("msg_type", msg.TypeString()).
				Debug("message received")
			h.incCounter(msg.TypeString())
		}
		return msg, n, err
	}
}

func (h *handlerWithLogs) Sender() Sender {
	sender := h.Handler.Sender()

	return func(msg Msg) (int, error) {
		msgType := msg.TypeString()

		n, err := sender(msg)
		if err != nil && !isConnClosed(err) {
			logs.WithTag("client_id", h.GetClientID()).
				WithTag("msg_type", msgType).
				Error(errors.New("sending message failed").Wrap(err))
		} else if err == nil {
			logs.WithTag("client_id", h.GetClientID()).
				WithTag("msg_type", msgType).
				Debug("message sent")
		}
		return n, err
	}
}

func (h *handlerWithLogs) Close() {
	h.Handler.Close()
	h.closeSummaryWorker()
	h.logSummary()
}

func (h *handlerWithLogs) startSummaryWorker(ctx context.Context) {
	ticker := time.NewTicker(h.summaryInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			h.logSummary()
		}
	}
}

func (h *handlerWithLogs) incCounter(msgType string) {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	h.counter[msgType]++
}

func (h *handlerWithLogs) logSummary() {
	h.counterMutex.Lock()
	defer h.counterMutex.Unlock()

	if len(h.counter) == 0 {
		return
	}

	entry := logs.
		WithTag("client_id", h.GetClientID()).
		WithTag("time_interval", h.summaryInterval)

	for k, v := range h.counter {
		entry = entry.WithTag(k, v)
		delete(h.counter, k)
	}

	entry.Info("inbound message summary")
}

func isConnClosed(err error) bool {
	return stderrors.Is(err, io.EOF) || stderrors.Is(err, net.ErrClosed)
}
