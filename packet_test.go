package udpx

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	cases := []packet{
		{Tag: TagUnsequenced, Body: []byte("hi")},
		{Tag: TagRequest, Seq: 7},
		{Tag: TagHandshake, Seq: -12345},
		{Tag: TagHandshakeAck, Seq: 99},
		{Tag: TagSequenced, Seq: 1, Ack: 2, Body: []byte("payload")},
		{Tag: TagKeepAlive, Seq: 5, Ack: 6},
		{Tag: TagDisconnect, Seq: 1, Ack: 1},
	}

	for _, want := range cases {
		got, err := decode(encode(want))
		require.NoError(t, err)
		require.Equal(t, want.Tag, got.Tag)
		require.Equal(t, want.Seq, got.Seq)
		require.Equal(t, want.Ack, got.Ack)
		if len(want.Body) == 0 {
			require.Empty(t, got.Body)
		} else {
			require.Equal(t, want.Body, got.Body)
		}
	}
}

func TestDecodeRejectsEmpty(t *testing.T) {
	_, err := decode(nil)
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestDecodeRejectsUnknownTag(t *testing.T) {
	_, err := decode([]byte{0xFF, 0, 0, 0, 0})
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestDecodeRejectsTruncatedFrame(t *testing.T) {
	full := encode(packet{Tag: TagSequenced, Seq: 1, Ack: 2})
	_, err := decode(full[:len(full)-1])
	require.ErrorIs(t, err, ErrMalformedPacket)
}

func TestDecodeUnsequencedHasNoHeaderFields(t *testing.T) {
	got, err := decode(encode(packet{Tag: TagUnsequenced, Body: []byte("x")}))
	require.NoError(t, err)
	require.Zero(t, got.Seq)
	require.Zero(t, got.Ack)
	require.Equal(t, []byte("x"), got.Body)
}
