package observer

import (
	"testing"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/stretchr/testify/require"
)

func TestMsgFromBytes(t *testing.T) {
	t.Run("decodes type", func(t *testing.T) {
		msg, err := MsgFromBytes([]byte(`{"type":"watch","request_id":4,"min_x":1,"max_x":2,"min_z":3,"max_z":4}`))
		require.NoError(t, err)
		require.Equal(t, MsgTypeWatchRequest, msg.Type)

		var req WatchRequest
		err = msg.DataTo(&req)
		require.NoError(t, err)
		require.Equal(t, WatchRequest{
			Type:      MsgTypeWatchRequest,
			RequestID: 4,
			MinX:      1,
			MaxX:      2,
			MinZ:      3,
			MaxZ:      4,
		}, req)
	})

	t.Run("missing type", func(t *testing.T) {
		_, err := MsgFromBytes([]byte(`{"request_id":4}`))
		require.Error(t, err)
		require.Equal(t, ErrTypeMsgInvalid, errors.Type(err))
	})

	t.Run("not json", func(t *testing.T) {
		_, err := MsgFromBytes([]byte(`hello`))
		require.Error(t, err)
		require.Equal(t, ErrTypeMsgInvalid, errors.Type(err))
	})

	t.Run("bad field", func(t *testing.T) {
		msg, err := MsgFromBytes([]byte(`{"type":"watch","min_x":"left"}`))
		require.NoError(t, err)

		var req WatchRequest
		err = msg.DataTo(&req)
		require.Error(t, err)
		require.Equal(t, ErrTypeMsgInvalid, errors.Type(err))
	})
}

func TestMsgFromTyped(t *testing.T) {
	msg, err := MsgFromTyped(&PingResponse{Type: MsgTypePingResponse, RequestID: 2})
	require.NoError(t, err)
	require.Equal(t, MsgTypePingResponse, msg.Type)
	require.JSONEq(t, `{"type":"pong","request_id":2}`, string(msg.Data))
	require.Equal(t, "pong", msg.TypeString())
	require.Equal(t, "unknown", Msg{}.TypeString())
}
