package proto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var headerBytes = hex2Bytes(`04 0F 0890 0000002A`)

func TestHeader_Encode(t *testing.T) {
	h := Header{
		Version: ProtocolVersion,
		Type:    TypeFlowMod,
		Length:  HeaderSize + flowEntrySize,
		Xid:     42,
	}
	assert.Equal(t, headerBytes, encodeEncoder(h))
}

func TestHeader_Decode(t *testing.T) {
	h := decodeHeader(headerBytes)
	assert.Equal(t, TypeFlowMod, h.Type)
	assert.Equal(t, uint32(42), h.Xid)
	assert.Equal(t, flowEntrySize, h.BodyLength())
}

func TestPkt_Length(t *testing.T) {
	pkt := Pkt(9, &EchoReply{Data: []byte{1, 2, 3}})
	assert.Equal(t, uint16(HeaderSize+3), pkt.Header.Length)
	assert.Equal(t, hex2Bytes(`04 03 000B 00000009 010203`), pkt.Bytes())
}

func TestFrameDecoder_Stream(t *testing.T) {
	data := append(Pkt(1, &EchoRequest{}).Bytes(), Pkt(2, &EchoRequest{Data: []byte("hi")}).Bytes()...)
	frames, err := feedFrames(t, data)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, uint32(1), frames[0].Header.Xid)
	assert.Empty(t, frames[0].Body)
	assert.Equal(t, uint32(2), frames[1].Header.Xid)
	assert.Equal(t, []byte("hi"), frames[1].Body)

	pkt, err := frames[1].Parse()
	require.NoError(t, err)
	assert.Equal(t, &EchoRequest{Data: []byte("hi")}, pkt.Message)
}

func TestFrameDecoder_BadVersion(t *testing.T) {
	_, err := feedFrames(t, hex2Bytes(`01 02 0008 00000001`))
	assert.ErrorIs(t, err, ErrBadVersion)
}

func TestFrameDecoder_BadLength(t *testing.T) {
	_, err := feedFrames(t, hex2Bytes(`04 02 0004 00000001`))
	assert.ErrorIs(t, err, ErrBadLength)

	_, err = feedFrames(t, hex2Bytes(`04 02 FFFF 00000001`))
	assert.ErrorIs(t, err, ErrBadLength)
}

func TestParsePacket_Truncated(t *testing.T) {
	_, err := ParsePacket(hex2Bytes(`04 02 0010 00000001 00`))
	assert.ErrorIs(t, err, ErrBadLength)

	_, err = ParsePacket(hex2Bytes(`04 02`))
	assert.ErrorIs(t, err, ErrShortBody)
}

func TestParseMessage_UnknownType(t *testing.T) {
	msg, err := ParseMessage(Header{Version: ProtocolVersion, Type: TypeBarrierRequest}, []byte{0xAA})
	require.NoError(t, err)
	assert.Equal(t, &Raw{Kind: TypeBarrierRequest, Data: []byte{0xAA}}, msg)
}
