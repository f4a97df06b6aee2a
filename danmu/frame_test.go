package danmu

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"
)

func TestEncodePacketLayout(t *testing.T) {
	payload := "type@=mrkl/"
	pkt := EncodePacket(payload)

	if len(pkt) != headerSize+len(payload) {
		t.Fatalf("packet length = %d, want %d", len(pkt), headerSize+len(payload))
	}
	wantLen := uint32(len(payload) + 9)
	if got := binary.LittleEndian.Uint32(pkt[0:4]); got != wantLen {
		t.Errorf("first length field = %d, want %d", got, wantLen)
	}
	if got := binary.LittleEndian.Uint32(pkt[4:8]); got != wantLen {
		t.Errorf("second length field = %d, want %d", got, wantLen)
	}
	if got := binary.LittleEndian.Uint32(pkt[8:12]); got != packetType {
		t.Errorf("type tag = %d, want %d", got, packetType)
	}
	if !bytes.Equal(pkt[headerSize:], []byte(payload)) {
		t.Errorf("body = %q, want %q", pkt[headerSize:], payload)
	}
}

func TestEncodePacketEmptyPayload(t *testing.T) {
	pkt := EncodePacket("")
	if len(pkt) != headerSize {
		t.Fatalf("packet length = %d, want %d", len(pkt), headerSize)
	}
	if got := binary.LittleEndian.Uint32(pkt[0:4]); got != 9 {
		t.Errorf("length field = %d, want 9", got)
	}
}

func TestSplitFramesDropsNoise(t *testing.T) {
	long1 := "type@=chatmsg/txt@=hello/"
	long2 := "type@=uenter/nn@=somebody/"
	blob := []byte("short\x00" + long1 + "\x00\x00tiny\x00" + long2 + "\x00")

	frames := SplitFrames(blob)
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2: %v", len(frames), frames)
	}
	if frames[0] != long1 || frames[1] != long2 {
		t.Errorf("frames = %v", frames)
	}
}

func TestSplitFramesBoundary(t *testing.T) {
	exactly12 := "123456789012"
	thirteen := "1234567890123"
	blob := []byte(exactly12 + "\x00" + thirteen)

	frames := SplitFrames(blob)
	if len(frames) != 1 || frames[0] != thirteen {
		t.Errorf("frames = %v, want only the 13-byte segment", frames)
	}
}

func TestSplitFramesAllNoise(t *testing.T) {
	if frames := SplitFrames([]byte("\x00\x00ok\x00")); len(frames) != 0 {
		t.Errorf("expected no frames, got %v", frames)
	}
}

func TestBackoffGrowth(t *testing.T) {
	b := DefaultBackoff()

	// Attempt 5 doubles to 16s; jitter adds [0,1s).
	d := b.Delay(5)
	if d < 16*time.Second || d >= 17*time.Second {
		t.Errorf("attempt 5 delay = %v, want [16s,17s)", d)
	}

	// Attempt 20 is capped at 60s.
	d = b.Delay(20)
	if d < 60*time.Second || d >= 61*time.Second {
		t.Errorf("attempt 20 delay = %v, want [60s,61s)", d)
	}

	// Attempt 1 is the base.
	d = b.Delay(1)
	if d < time.Second || d >= 2*time.Second {
		t.Errorf("attempt 1 delay = %v, want [1s,2s)", d)
	}
}

func TestBackoffZeroValueDefaults(t *testing.T) {
	var b Backoff
	if d := b.Delay(0); d < time.Second || d >= 2*time.Second {
		t.Errorf("zero-value attempt 0 delay = %v, want [1s,2s)", d)
	}
}

func TestSessionDefaults(t *testing.T) {
	s := NewSession(SessionConfig{Room: "317422"}, func(string) {})
	if s.cfg.HeartbeatInterval != 30*time.Second {
		t.Errorf("heartbeat default = %v", s.cfg.HeartbeatInterval)
	}
	if s.cfg.MaxReconnectAttempts != 50 {
		t.Errorf("max attempts default = %d", s.cfg.MaxReconnectAttempts)
	}
	if len(s.cfg.Endpoints) != 3 {
		t.Errorf("endpoint default = %v", s.cfg.Endpoints)
	}
	if got := s.State(); got != StateDisconnected {
		t.Errorf("initial state = %v", got)
	}
}

func TestSessionCloseIdempotent(t *testing.T) {
	s := NewSession(SessionConfig{Room: "1"}, func(string) {})
	s.Close()
	s.Close() // must not panic
}

func TestStateString(t *testing.T) {
	cases := map[State]string{
		StateDisconnected: "disconnected",
		StateConnecting:   "connecting",
		StateConnected:    "connected",
		StateReconnecting: "reconnecting",
		StateClosed:       "closed",
		State(99):         "unknown",
	}
	for st, want := range cases {
		if got := st.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", st, got, want)
		}
	}
}
