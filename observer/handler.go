package observer

import (
	"context"
	"sync"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/aukilabs/go-tooling/pkg/logs"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeSendQueueFull = "observer-send-queue-full"

	sendChanSize    = 512
	receiveChanSize = 64
)

// Handler represents an observer connection handler.
type Handler interface {
	// Handles a client connection.
	HandleConnect(conn *websocket.Conn)

	// Handles a ping request.
	HandlePing(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to watch an area of the world. A previous watch is
	// replaced.
	HandleWatch(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a request to stop watching.
	HandleUnwatch(ctx context.Context, respond ResponseSender, msg Msg) error

	// Handles a client's disconnection.
	HandleDisconnect(error)

	// Creates a message receiver used to receive incoming messages.
	Receiver() Receiver

	// Creates a message sender used to send queued messages.
	Sender() Sender

	// Closes the handler and releases its allocated resources.
	Close()

	// The time a client is idle before being disconnected.
	IdleTimeout() time.Duration

	// Get ClientID
	GetClientID() string
}

// Handle handles the given connection until it is closed, idle or ctx is
// canceled.
func Handle(ctx context.Context, conn *websocket.Conn, h Handler) {
	handler := handler{
		Conn:    conn,
		Handler: h,
	}

	handler.Handle(ctx)
}

type handler struct {
	// The WebSocket connection.
	Conn *websocket.Conn

	// The observer handler.
	Handler Handler

	ctx            context.Context
	sendChan       chan Msg
	receiveChan    chan Msg
	sender         Sender
	receiver       Receiver
	disconnectChan chan error
}

func (h *handler) Handle(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	h.ctx = ctx

	h.Handler.HandleConnect(h.Conn)

	h.disconnectChan = make(chan error, 8)
	defer func() {
		for len(h.disconnectChan) != 0 {
			<-h.disconnectChan
		}
	}()

	var wg sync.WaitGroup

	h.sendChan = make(chan Msg, sendChanSize)
	h.sender = h.Handler.Sender()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startSending(ctx)
	}()

	h.receiveChan = make(chan Msg, receiveChanSize)
	h.receiver = h.Handler.Receiver()

	wg.Add(1)
	go func() {
		defer wg.Done()
		h.startReceiving(ctx)
	}()

	idleTimeout := h.Handler.IdleTimeout()
	idleTimer := time.NewTimer(idleTimeout)
	defer idleTimer.Stop()

	var responder = responseSender{
		send:    h.send,
		sendMsg: h.sendMsg,
	}

	disconnected := false

	for ctx.Err() == nil {
		select {
		case <-ctx.Done():
			// the parent context is done, the disconnection is handled
			// after the loop

		case <-idleTimer.C:
			h.disconnect(errors.New("idle connection").WithTag("duration", idleTimeout))

		case msg := <-h.receiveChan:
			idleTimer.Stop()
			idleTimer.Reset(idleTimeout)

			if err := h.handleMessage(ctx, msg, responder); err != nil {
				h.disconnect(errors.New("handling message failed").Wrap(err))
			}

		case err := <-h.disconnectChan:
			disconnected = true
			h.handleDisconnect(err)
			if ctx.Err() == nil {
				// cancel context so go routines can cleanly exit
				cancel()
			}
		}
	}

	if !disconnected {
		h.handleDisconnect(ctx.Err())
	}
	wg.Wait()
}

func (h *handler) send(v TypedMsg) {
	msg, err := MsgFromTyped(v)
	if err != nil {
		logs.WithTag("client_id", h.Handler.GetClientID()).
			WithTag("msg_type", v.GetType()).
			Debug(err.Error())
		return
	}
	h.sendMsg(msg)
}

// sendMsg queues a message without blocking. Perceiver callbacks call it
// from the goroutines moving world objects, so a client that does not keep up
// with its queue is disconnected.
func (h *handler) sendMsg(msg Msg) {
	select {
	case h.sendChan <- msg:
	case <-h.ctx.Done():
	default:
		h.disconnect(errors.New("send queue is full").
			WithType(ErrTypeSendQueueFull).
			WithTag("msg_type", msg.TypeString()).
			WithTag("queue_size", cap(h.sendChan)))
	}
}

func (h *handler) startSending(ctx context.Context) {
	defer func() {
		for len(h.sendChan) != 0 {
			<-h.sendChan
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case msg := <-h.sendChan:
			if _, err := h.sender(msg); err != nil {
				h.disconnect(errors.New("sending message failed").Wrap(err))
				return
			}
		}
	}
}

func (h *handler) startReceiving(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		default:
			msg, _, err := h.receiver()
			if errors.IsType(err, ErrTypeMsgInvalid) {
				h.sendMsg(errorMsg(0, err))
				continue
			}
			if err != nil {
				h.disconnect(errors.New("receiving message failed").Wrap(err))
				return
			}

			select {
			case h.receiveChan <- msg:
			case <-ctx.Done():
				return
			}
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, msg Msg, responder ResponseSender) error {
	switch msg.Type {
	case MsgTypePingRequest:
		return h.Handler.HandlePing(ctx, responder, msg)

	case MsgTypeWatchRequest:
		return h.Handler.HandleWatch(ctx, responder, msg)

	case MsgTypeUnwatchRequest:
		return h.Handler.HandleUnwatch(ctx, responder, msg)

	default:
		responder.Send(&ErrorResponse{
			Type:      MsgTypeError,
			ErrorType: ErrTypeMsgInvalid,
			Message:   "unsupported message type: " + msg.TypeString(),
		})
		return nil
	}
}

func (h *handler) disconnect(err error) {
	select {
	case h.disconnectChan <- err:
	default:
	}
}

func (h *handler) handleDisconnect(err error) {
	h.Conn.Close()
	h.Handler.HandleDisconnect(err)
}

func errorMsg(requestID uint32, err error) Msg {
	msg, _ := MsgFromTyped(&ErrorResponse{
		Type:      MsgTypeError,
		RequestID: requestID,
		ErrorType: errors.Type(err),
		Message:   err.Error(),
	})
	return msg
}

type responseSender struct {
	send    func(TypedMsg)
	sendMsg func(Msg)
}

func (r responseSender) Send(msg TypedMsg) {
	r.send(msg)
}

func (r responseSender) SendMsg(msg Msg) {
	r.sendMsg(msg)
}
