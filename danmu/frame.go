package danmu

import (
	"encoding/binary"
	"strings"
)

const (
	// packetType tags every client-originated packet. The gateway rejects
	// control frames with any other tag.
	packetType = 689

	// headerSize is the fixed preamble: length twice, then the type tag.
	headerSize = 12

	// noiseThreshold filters protocol preambles and keepalive echoes out of
	// inbound blobs; real messages are always longer.
	noiseThreshold = 12
)

// EncodePacket wraps an STT payload in the gateway's binary framing: a
// little-endian 32-bit length (payload + 9) written twice, a 4-byte type tag,
// then the UTF-8 payload. The byte layout is load-bearing for interop and
// must not change.
func EncodePacket(payload string) []byte {
	body := []byte(payload)
	buf := make([]byte, headerSize+len(body))
	length := uint32(len(body) + 9)
	binary.LittleEndian.PutUint32(buf[0:4], length)
	binary.LittleEndian.PutUint32(buf[4:8], length)
	binary.LittleEndian.PutUint32(buf[8:12], packetType)
	copy(buf[headerSize:], body)
	return buf
}

// SplitFrames cuts an inbound transport blob into individual frame payloads.
// The gateway separates frames with NUL bytes; segments at or under the noise
// threshold are preambles or heartbeat echoes and are discarded here rather
// than surfaced downstream.
func SplitFrames(blob []byte) []string {
	segments := strings.Split(string(blob), "\x00")
	frames := make([]string, 0, len(segments))
	for _, seg := range segments {
		if len(seg) > noiseThreshold {
			frames = append(frames, seg)
		}
	}
	return frames
}
