package proto

import (
	"encoding/hex"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func hex2Bytes(data string) []byte {
	data = strings.ReplaceAll(data, "\n", "")
	data = strings.ReplaceAll(data, "\t", "")
	data = strings.ReplaceAll(data, " ", "")
	value, err := hex.DecodeString(data)
	if err != nil {
		panic(fmt.Sprintf("Failed reading hex data: %s", err))
	}

	return value
}

func encodeEncoder(enc Encoder) []byte {
	buf := make([]byte, enc.RequiredSize())
	enc.Encode(buf)
	return buf
}

// feedFrames feeds data into a fresh FrameDecoder and returns every frame it
// emitted, along with the first error observed.
func feedFrames(t *testing.T, data []byte) ([]Frame, error) {
	t.Helper()
	dec := FrameDecoder.New()
	var frames []Frame
	for _, b := range data {
		f, err := dec.Feed(b)
		if err != nil {
			return frames, err
		}
		if f != nil {
			frames = append(frames, *f)
		}
	}
	return frames, nil
}

func roundTrip(t *testing.T, msg Message) Message {
	t.Helper()
	pkt, err := ParsePacket(Pkt(7, msg).Bytes())
	require.NoError(t, err)
	require.Equal(t, uint32(7), pkt.Header.Xid)
	require.Equal(t, msg.Type(), pkt.Header.Type)
	return pkt.Message
}
