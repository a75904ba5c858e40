package wire

import (
	"bytes"
	"testing"
)

func TestWriteReadFrame_RoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello")

	if err := WriteFrame(&buf, OpHandshake, payload); err != nil {
		t.Fatalf("WriteFrame() failed: %v", err)
	}

	op, got, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame() failed: %v", err)
	}
	if op != OpHandshake {
		t.Errorf("op = %v, want OpHandshake", op)
	}
	if !bytes.Equal(got, payload) {
		t.Errorf("payload = %q, want %q", got, payload)
	}
}

func TestWriteReadFrame_EmptyPayload(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, OpPing, nil); err != nil {
		t.Fatalf("WriteFrame() failed: %v", err)
	}

	op, payload, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame() failed: %v", err)
	}
	if op != OpPing {
		t.Errorf("op = %v, want OpPing", op)
	}
	if len(payload) != 0 {
		t.Errorf("payload length = %d, want 0", len(payload))
	}
}

func TestParseHeader_RejectsOversizedLength(t *testing.T) {
	h := Header{Op: OpHandshake, Length: MaxFrameSize + 1}
	if _, err := ParseHeader(h.Marshal()); err == nil {
		t.Error("ParseHeader() accepted a frame length exceeding MaxFrameSize")
	}
}

func TestParseHeader_RejectsShortBuffer(t *testing.T) {
	if _, err := ParseHeader([]byte{0x01, 0x02}); err == nil {
		t.Error("ParseHeader() accepted a header shorter than HeaderSize")
	}
}
