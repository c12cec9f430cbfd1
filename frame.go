package beaconadv

import "bytes"

// Advertisement payloads carry the 16-bit service UUID followed by a
// frame discriminator byte; field offsets below count from the start
// of that header.
const headerSize = 3

var (
	eddystoneHeader = []byte{0xAA, 0xFE}
	estimoteHeader  = []byte{0x9A, 0xFE}
)

const (
	eddystoneTypeUID byte = 0x00
	eddystoneTypeURL byte = 0x10
	eddystoneTypeTLM byte = 0x20

	// Estimote discriminator bytes carry the protocol version in the
	// upper nibble and the frame type in the lower nibble.
	telemetryFrameType byte = 0x02
)

//go:generate go tool stringer -type=FrameType -trimprefix=FrameType

// FrameType identifies the concrete variant a payload decoded into.
// Frames are classified once and never re-classified afterwards.
type FrameType byte

const (
	FrameTypeUnknown FrameType = iota
	FrameTypeUID
	FrameTypeTelemetry
)

// Field names a typed frame field for change notification. Decode and
// setter operations report the set of fields whose value actually
// changed, in payload byte-offset order.
type Field string

const (
	FieldPayload                    Field = "payload"
	FieldRangingData                Field = "rangingData"
	FieldNamespaceID                Field = "namespaceId"
	FieldInstanceID                 Field = "instanceId"
	FieldProtocolVersion            Field = "protocolVersion"
	FieldIdentifier                 Field = "identifier"
	FieldSubFrameType               Field = "subFrameType"
	FieldAcceleration               Field = "acceleration"
	FieldPrevMotionStateDuration    Field = "prevMotionStateDuration"
	FieldCurrentMotionStateDuration Field = "currentMotionStateDuration"
	FieldMoving                     Field = "moving"
	FieldMagneticField              Field = "magneticField"
	FieldAmbientLight               Field = "ambientLight"
	FieldUptime                     Field = "uptime"
	FieldTemperature                Field = "temperature"
	FieldBatteryVoltage             Field = "batteryVoltage"
	FieldBatteryLevel               Field = "batteryLevel"
	FieldFirmwareError              Field = "firmwareError"
	FieldClockError                 Field = "clockError"
)

// Frame is one beacon advertisement payload interpreted according to a
// specific format. A frame exclusively owns its payload buffer; callers
// must serialize access to a given instance.
type Frame interface {
	// Type reports the variant selected at classification time.
	Type() FrameType

	// Payload returns a copy of the raw on-wire bytes; mutating the
	// returned slice never touches frame state. For symmetric variants the
	// payload is rebuilt whenever a field setter changes a value; an
	// encoder missing required fields leaves it empty.
	Payload() []byte

	// Valid reports whether the payload carries the variant's header
	// magic, a known discriminator and the required length.
	Valid() bool

	// Update replaces the frame's payload with other's and re-decodes,
	// returning the fields whose decoded value differs from before.
	// Invalid payloads leave previously decoded values untouched.
	Update(other Frame) []Field
}

// Classify inspects the header bytes of a raw advertisement payload and
// selects a frame variant. The second return is false when the payload
// matches neither family (too short or wrong magic); malformed input is
// never an error, just a non-match.
func Classify(payload []byte) (Frame, bool) {
	if len(payload) < headerSize {
		return nil, false
	}

	switch {
	case bytes.Equal(payload[:2], eddystoneHeader):
		switch payload[2] {
		case eddystoneTypeUID:
			return newUIDFrame(payload), true
		default:
			// URL and TLM are defined discriminators but carry no codec
			// here, so they land in the passthrough holder with the rest.
			return newUnknownFrame(payload), true
		}
	case bytes.Equal(payload[:2], estimoteHeader):
		// Only the lower nibble discriminates, the upper nibble is the
		// protocol version and belongs to the telemetry decoder.
		switch bits(payload[2], 0x0F) {
		case telemetryFrameType:
			return newTelemetryFrame(payload), true
		default:
			return newUnknownFrame(payload), true
		}
	default:
		return nil, false
	}
}
