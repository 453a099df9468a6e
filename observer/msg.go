package observer

import (
	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/multiversemmo/MultiversePlatform-sub002/models"
	"github.com/segmentio/encoding/json"
	"golang.org/x/net/websocket"
)

const (
	ErrTypeMsgInvalid = "observer-msg-invalid"
)

type MsgType string

const (
	MsgTypeWatchRequest    MsgType = "watch"
	MsgTypeWatchResponse   MsgType = "watch_response"
	MsgTypeUnwatchRequest  MsgType = "unwatch"
	MsgTypeUnwatchResponse MsgType = "unwatch_response"
	MsgTypeNewsAndFrees    MsgType = "news_and_frees"
	MsgTypePingRequest     MsgType = "ping"
	MsgTypePingResponse    MsgType = "pong"
	MsgTypeError           MsgType = "error"
)

// Msg is a JSON message exchanged with an observer client. Data holds the
// whole encoded frame, type included.
type Msg struct {
	Type MsgType
	Data []byte
}

// DataTo decodes the message into v.
func (m Msg) DataTo(v any) error {
	if err := json.Unmarshal(m.Data, v); err != nil {
		return errors.New("decoding message failed").
			WithType(ErrTypeMsgInvalid).
			WithTag("msg_type", m.Type).
			Wrap(err)
	}
	return nil
}

func (m Msg) TypeString() string {
	if m.Type == "" {
		return "unknown"
	}
	return string(m.Type)
}

// TypedMsg is a message payload that knows its type.
type TypedMsg interface {
	GetType() MsgType
}

// MsgFromTyped encodes a payload into a message.
func MsgFromTyped(v TypedMsg) (Msg, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Msg{}, errors.New("encoding message failed").
			WithTag("msg_type", v.GetType()).
			Wrap(err)
	}

	return Msg{
		Type: v.GetType(),
		Data: data,
	}, nil
}

// MsgFromBytes decodes the type of a raw frame.
func MsgFromBytes(data []byte) (Msg, error) {
	var header struct {
		Type MsgType `json:"type"`
	}
	if err := json.Unmarshal(data, &header); err != nil {
		return Msg{}, errors.New("decoding message header failed").
			WithType(ErrTypeMsgInvalid).
			Wrap(err)
	}

	if header.Type == "" {
		return Msg{}, errors.New("message without type").
			WithType(ErrTypeMsgInvalid)
	}

	return Msg{
		Type: header.Type,
		Data: data,
	}, nil
}

// Receive reads a message from the connection. The returned int is the
// number of bytes read.
func Receive(conn *websocket.Conn) (Msg, int, error) {
	var data []byte
	if err := websocket.Message.Receive(conn, &data); err != nil {
		return Msg{}, 0, err
	}

	msg, err := MsgFromBytes(data)
	return msg, len(data), err
}

// Send writes a message to the connection. The returned int is the number of
// bytes written.
func Send(conn *websocket.Conn, msg Msg) (int, error) {
	if err := websocket.Message.Send(conn, string(msg.Data)); err != nil {
		return 0, err
	}
	return len(msg.Data), nil
}

// A function that receives a message.
type Receiver func() (Msg, int, error)

// A function that sends a message.
type Sender func(Msg) (int, error)

// ResponseSender queues messages to be sent to the client.
type ResponseSender interface {
	Send(TypedMsg)
	SendMsg(Msg)
}

type WatchRequest struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id"`
	MinX      int     `json:"min_x"`
	MaxX      int     `json:"max_x"`
	MinZ      int     `json:"min_z"`
	MaxZ      int     `json:"max_z"`
}

func (m *WatchRequest) GetType() MsgType { return MsgTypeWatchRequest }

type WatchResponse struct {
	Type        MsgType `json:"type"`
	RequestID   uint32  `json:"request_id"`
	PerceiverID uint64  `json:"perceiver_id"`
}

func (m *WatchResponse) GetType() MsgType { return MsgTypeWatchResponse }

type UnwatchRequest struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id"`
}

func (m *UnwatchRequest) GetType() MsgType { return MsgTypeUnwatchRequest }

type UnwatchResponse struct {
	Type        MsgType `json:"type"`
	RequestID   uint32  `json:"request_id"`
	PerceiverID uint64  `json:"perceiver_id,omitempty"`
}

func (m *UnwatchResponse) GetType() MsgType { return MsgTypeUnwatchResponse }

// NewsAndFrees is pushed each time the objects seen by the watched area
// change.
type NewsAndFrees struct {
	Type        MsgType             `json:"type"`
	PerceiverID uint64              `json:"perceiver_id"`
	News        []models.ObjectView `json:"news,omitempty"`
	Frees       []uint64            `json:"frees,omitempty"`
}

func (m *NewsAndFrees) GetType() MsgType { return MsgTypeNewsAndFrees }

type PingRequest struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id"`
}

func (m *PingRequest) GetType() MsgType { return MsgTypePingRequest }

type PingResponse struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id"`
}

func (m *PingResponse) GetType() MsgType { return MsgTypePingResponse }

type ErrorResponse struct {
	Type      MsgType `json:"type"`
	RequestID uint32  `json:"request_id"`
	ErrorType string  `json:"error_type,omitempty"`
	Message   string  `json:"message"`
}

func (m *ErrorResponse) GetType() MsgType { return MsgTypeError }
