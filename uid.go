package beaconadv

import (
	"bytes"
	"errors"
	"math/big"
)

const (
	namespaceIDLength = 10
	instanceIDLength  = 6

	uidFrameLength = headerSize + 17
	// Some transmitters append the two reserved-for-future-use bytes.
	uidFrameRFULength = headerSize + 19
)

// UIDFrame is an Eddystone-UID advertisement: calibrated ranging power
// plus a 10-byte namespace id and a 6-byte instance id. The codec is
// symmetric, every decoded field is reconstructable.
type UIDFrame struct {
	payload     []byte
	rangingData int8
	namespaceID []byte
	instanceID  []byte
}

var _ Frame = (*UIDFrame)(nil)

func newUIDFrame(payload []byte) *UIDFrame {
	f := &UIDFrame{payload: bytes.Clone(payload)}
	f.decode()
	return f
}

// NewUIDFrame builds a frame from typed field values and synthesizes
// its payload. The id lengths are fixed by the Eddystone specification;
// anything else is programmer misuse and returns an error.
func NewUIDFrame(rangingData int8, namespaceID, instanceID []byte) (_ *UIDFrame, err error) {
	defer deferWrap(&err)

	if len(namespaceID) != namespaceIDLength {
		err = errors.New("namespace id must be exactly 10 bytes")
		return
	}
	if len(instanceID) != instanceIDLength {
		err = errors.New("instance id must be exactly 6 bytes")
		return
	}

	f := &UIDFrame{
		rangingData: rangingData,
		namespaceID: bytes.Clone(namespaceID),
		instanceID:  bytes.Clone(instanceID),
	}
	f.encode()
	return f, nil
}

func (f *UIDFrame) Type() FrameType {
	return FrameTypeUID
}

func (f *UIDFrame) Payload() []byte {
	return bytes.Clone(f.payload)
}

func (f *UIDFrame) Valid() bool {
	if len(f.payload) < headerSize || !bytes.Equal(f.payload[:2], eddystoneHeader) || f.payload[2] != eddystoneTypeUID {
		return false
	}
	return len(f.payload) == uidFrameLength || len(f.payload) == uidFrameRFULength
}

func (f *UIDFrame) Update(other Frame) []Field {
	f.payload = bytes.Clone(other.Payload())
	return f.decode()
}

// decode derives the typed fields from the payload. It writes backing
// storage directly, never through the setters, so it cannot trigger a
// re-encode. An invalid payload leaves prior field values untouched.
func (f *UIDFrame) decode() []Field {
	if !f.Valid() {
		return nil
	}

	var changed []Field

	// 3
	if v := signedByte(f.payload[headerSize]); v != f.rangingData {
		f.rangingData = v
		changed = append(changed, FieldRangingData)
	}

	// 4-13
	if ns := f.payload[headerSize+1 : headerSize+11]; !bytes.Equal(ns, f.namespaceID) {
		f.namespaceID = bytes.Clone(ns)
		changed = append(changed, FieldNamespaceID)
	}

	// 14-19
	if inst := f.payload[headerSize+11 : headerSize+17]; !bytes.Equal(inst, f.instanceID) {
		f.instanceID = bytes.Clone(inst)
		changed = append(changed, FieldInstanceID)
	}

	return changed
}

// encode rebuilds the payload from the typed fields, writing the buffer
// directly so no decode is triggered. Mis-sized ids leave the payload
// empty rather than failing.
func (f *UIDFrame) encode() {
	if len(f.namespaceID) != namespaceIDLength || len(f.instanceID) != instanceIDLength {
		f.payload = nil
		return
	}

	buf := make([]byte, 0, uidFrameRFULength)

	// 0-2
	buf = append(buf, eddystoneHeader...)
	buf = append(buf, eddystoneTypeUID)

	// 3
	buf = append(buf, byte(f.rangingData))

	// 4-13
	buf = append(buf, f.namespaceID...)

	// 14-19
	buf = append(buf, f.instanceID...)

	// 20-21 RFU, always zero
	buf = append(buf, 0x00, 0x00)

	f.payload = buf
}

// RangingData is the calibrated transmit power in dBm at 0 m.
func (f *UIDFrame) RangingData() int8 {
	return f.rangingData
}

func (f *UIDFrame) NamespaceID() []byte {
	return bytes.Clone(f.namespaceID)
}

func (f *UIDFrame) InstanceID() []byte {
	return bytes.Clone(f.instanceID)
}

// NamespaceIDAsNumber views the namespace id as an 80-bit unsigned
// number, most significant byte first.
func (f *UIDFrame) NamespaceIDAsNumber() *big.Int {
	return new(big.Int).SetBytes(f.namespaceID)
}

// InstanceIDAsNumber views the instance id as a 48-bit unsigned number,
// most significant byte first.
func (f *UIDFrame) InstanceIDAsNumber() uint64 {
	var v uint64
	for _, b := range f.instanceID {
		v = v<<8 | uint64(b)
	}
	return v
}

func (f *UIDFrame) SetRangingData(v int8) []Field {
	if v == f.rangingData {
		return nil
	}
	f.rangingData = v
	f.encode()
	return []Field{FieldRangingData}
}

func (f *UIDFrame) SetNamespaceID(id []byte) (_ []Field, err error) {
	defer deferWrap(&err)

	if len(id) != namespaceIDLength {
		err = errors.New("namespace id must be exactly 10 bytes")
		return
	}
	if bytes.Equal(id, f.namespaceID) {
		return nil, nil
	}
	f.namespaceID = bytes.Clone(id)
	f.encode()
	return []Field{FieldNamespaceID}, nil
}

func (f *UIDFrame) SetInstanceID(id []byte) (_ []Field, err error) {
	defer deferWrap(&err)

	if len(id) != instanceIDLength {
		err = errors.New("instance id must be exactly 6 bytes")
		return
	}
	if bytes.Equal(id, f.instanceID) {
		return nil, nil
	}
	f.instanceID = bytes.Clone(id)
	f.encode()
	return []Field{FieldInstanceID}, nil
}
