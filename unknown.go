package beaconadv

import "bytes"

// UnknownFrame holds a payload that is structurally framed (known
// header magic) but carries a discriminator no codec here understands.
// It passes the bytes through untouched.
type UnknownFrame struct {
	payload []byte
}

func newUnknownFrame(payload []byte) *UnknownFrame {
	return &UnknownFrame{payload: bytes.Clone(payload)}
}

func (f *UnknownFrame) Type() FrameType {
	return FrameTypeUnknown
}

func (f *UnknownFrame) Payload() []byte {
	return bytes.Clone(f.payload)
}

func (f *UnknownFrame) Valid() bool {
	return len(f.payload) >= headerSize
}

func (f *UnknownFrame) Update(other Frame) []Field {
	if bytes.Equal(f.payload, other.Payload()) {
		return nil
	}
	f.payload = bytes.Clone(other.Payload())
	return []Field{FieldPayload}
}
