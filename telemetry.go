package beaconadv

import (
	"bytes"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

const (
	telemetryFrameLength = headerSize + 19
	identifierLength     = 8

	maxProtocolVersion = 2

	// 14-bit battery voltage reading when the beacon has not measured
	// yet. Never surfaced as a real voltage.
	batteryVoltageUnmeasured uint16 = 0x3FFF
	// Battery level reading when unmeasured (protocol version >= 1).
	batteryLevelUnmeasured byte = 0xFF
)

// SubFrame selects which half of the Estimote telemetry data a payload
// carries. The two halves alternate between advertisements.
type SubFrame byte

const (
	SubFrameA SubFrame = 0
	SubFrameB SubFrame = 1
)

// Vector is a three-axis sensor reading.
type Vector struct {
	X, Y, Z float64
}

func (v Vector) String() string {
	return fmt.Sprintf("{%g; %g; %g}", v.X, v.Y, v.Z)
}

//go:generate go tool stringer -type=DurationUnit -trimprefix=Unit

type DurationUnit byte

const (
	UnitSeconds DurationUnit = iota
	UnitMinutes
	UnitHours
	UnitDays
	UnitWeeks
)

// Duration is a coarse magnitude+unit timespan as beacons report them.
type Duration struct {
	Value int
	Unit  DurationUnit
}

func (d Duration) String() string {
	unit := strings.ToLower(d.Unit.String())
	if d.Value == 1 {
		unit = strings.TrimSuffix(unit, "s")
	}
	return fmt.Sprintf("%d %s", d.Value, unit)
}

// parseMotionStateDuration decodes a 6-bit magnitude plus 2-bit unit
// code. Unit code 3 doubles up: magnitudes below 32 are days, 32 and
// above are weeks counted from 32.
func parseMotionStateDuration(b byte) Duration {
	value := int(bits(b, 0x3F))
	switch b >> 6 {
	case 0:
		return Duration{Value: value, Unit: UnitSeconds}
	case 1:
		return Duration{Value: value, Unit: UnitMinutes}
	case 2:
		return Duration{Value: value, Unit: UnitHours}
	default:
		if value < 32 {
			return Duration{Value: value, Unit: UnitDays}
		}
		return Duration{Value: value - 32, Unit: UnitWeeks}
	}
}

var uptimeUnits = [4]DurationUnit{UnitSeconds, UnitMinutes, UnitHours, UnitDays}

// TelemetryFrame is an Estimote telemetry advertisement. Which sensor
// fields a decode populates depends on the protocol version and the
// subframe; fields the current payload does not carry keep their
// previous value. Only the header, protocol version and identifier are
// reconstructable through encode, the sensor fields are decode-only.
type TelemetryFrame struct {
	payload []byte

	protocolVersion uint8
	identifier      string
	subFrameType    SubFrame

	acceleration               Vector
	prevMotionStateDuration    Duration
	currentMotionStateDuration Duration
	moving                     bool

	magneticField Vector
	ambientLight  float64
	uptime        Duration
	temperature   float64

	batteryVoltage    uint16
	hasBatteryVoltage bool
	batteryLevel      byte
	hasBatteryLevel   bool

	firmwareError bool
	clockError    bool
}

var _ Frame = (*TelemetryFrame)(nil)

func newTelemetryFrame(payload []byte) *TelemetryFrame {
	f := &TelemetryFrame{payload: bytes.Clone(payload)}
	f.decode()
	return f
}

// NewTelemetryFrame builds a frame from an 8-byte hex identifier and
// synthesizes the partial payload encode supports.
func NewTelemetryFrame(protocolVersion uint8, identifier string) (_ *TelemetryFrame, err error) {
	defer deferWrap(&err)

	if protocolVersion > maxProtocolVersion {
		err = errors.New("unsupported protocol version")
		return
	}
	id, err := hex.DecodeString(identifier)
	if err != nil {
		return
	}
	if len(id) != identifierLength {
		err = errors.New("identifier must be exactly 8 hex-encoded bytes")
		return
	}

	f := &TelemetryFrame{
		protocolVersion: protocolVersion,
		identifier:      strings.ToLower(identifier),
	}
	f.encode()
	return f, nil
}

func (f *TelemetryFrame) Type() FrameType {
	return FrameTypeTelemetry
}

func (f *TelemetryFrame) Payload() []byte {
	return bytes.Clone(f.payload)
}

func (f *TelemetryFrame) Valid() bool {
	if len(f.payload) < headerSize || !bytes.Equal(f.payload[:2], estimoteHeader) || bits(f.payload[2], 0x0F) != telemetryFrameType {
		return false
	}
	return len(f.payload) == telemetryFrameLength
}

func (f *TelemetryFrame) Update(other Frame) []Field {
	f.payload = bytes.Clone(other.Payload())
	return f.decode()
}

// decode derives the typed fields from the payload in byte-offset
// order, writing backing storage directly so no re-encode is
// triggered. An invalid payload leaves prior field values untouched.
func (f *TelemetryFrame) decode() []Field {
	if !f.Valid() {
		return nil
	}

	var changed []Field
	p := f.payload

	// 2 upper nibble
	version := p[2] >> 4
	if version != f.protocolVersion {
		f.protocolVersion = version
		changed = append(changed, FieldProtocolVersion)
	}
	if version > maxProtocolVersion {
		// Later protocol revisions are not parsed; everything below the
		// version nibble keeps its previous value.
		return changed
	}

	// 3-10
	if id := hex.EncodeToString(p[3:11]); id != f.identifier {
		f.identifier = id
		changed = append(changed, FieldIdentifier)
	}

	// 11
	sub := SubFrame(bits(p[11], 0x03))
	if sub != f.subFrameType {
		f.subFrameType = sub
		changed = append(changed, FieldSubFrameType)
	}

	switch sub {
	case SubFrameA:
		changed = f.decodeSubFrameA(p, version, changed)
	case SubFrameB:
		changed = f.decodeSubFrameB(p, version, changed)
	}

	return changed
}

func (f *TelemetryFrame) decodeSubFrameA(p []byte, version uint8, changed []Field) []Field {
	// 12-14, raw*2/127 g per axis
	accel := Vector{
		X: float64(signedByte(p[12])) * 2 / 127.0,
		Y: float64(signedByte(p[13])) * 2 / 127.0,
		Z: float64(signedByte(p[14])) * 2 / 127.0,
	}
	if accel != f.acceleration {
		f.acceleration = accel
		changed = append(changed, FieldAcceleration)
	}

	// 15
	if d := parseMotionStateDuration(p[15]); d != f.prevMotionStateDuration {
		f.prevMotionStateDuration = d
		changed = append(changed, FieldPrevMotionStateDuration)
	}

	// 16
	if d := parseMotionStateDuration(p[16]); d != f.currentMotionStateDuration {
		f.currentMotionStateDuration = d
		changed = append(changed, FieldCurrentMotionStateDuration)
	}

	// 17 bit 0
	if moving := bits(p[17], 0x01) == 1; moving != f.moving {
		f.moving = moving
		changed = append(changed, FieldMoving)
	}

	// GPIO pin levels (17 bits 4-7) are reported but not retained as
	// durable fields, see GPIOStates.
	slog.Debug("telemetry gpio pin states",
		slog.String("identifier", f.identifier),
		slog.Any("pins", f.GPIOStates()))

	switch version {
	case 2:
		// 17 bits 2-3
		changed = f.setErrorFlags(bits(p[17], 0x04) != 0, bits(p[17], 0x08) != 0, changed)
	case 1:
		// 18 bits 0-1
		changed = f.setErrorFlags(bits(p[18], 0x01) != 0, bits(p[18], 0x02) != 0, changed)
	}
	// Version 0 carries the error flags in subframe B instead.

	return changed
}

func (f *TelemetryFrame) decodeSubFrameB(p []byte, version uint8, changed []Field) []Field {
	// 12-14, raw*2/128 per axis, 0 when uncalibrated
	mag := Vector{
		X: float64(signedByte(p[12])) * 2 / 128.0,
		Y: float64(signedByte(p[13])) * 2 / 128.0,
		Z: float64(signedByte(p[14])) * 2 / 128.0,
	}
	if mag != f.magneticField {
		f.magneticField = mag
		changed = append(changed, FieldMagneticField)
	}

	// 15, 4-bit exponent and 4-bit mantissa
	light := float64(uint32(1)<<(p[15]>>4)) * float64(bits(p[15], 0x0F)) * 0.72
	if light != f.ambientLight {
		f.ambientLight = light
		changed = append(changed, FieldAmbientLight)
	}

	// 16 plus 17 low nibble magnitude, 17 bits 4-5 unit
	uptime := Duration{
		Value: int(uint16(p[16]) | uint16(bits(p[17], 0x0F))<<8),
		Unit:  uptimeUnits[bits(p[17], 0x30)>>4],
	}
	if uptime != f.uptime {
		f.uptime = uptime
		changed = append(changed, FieldUptime)
	}

	// 12-bit two's complement in sixteenths of a degree, assembled from
	// 19 bits 0-1 (high), 18 (middle) and 17 bits 6-7 (low)
	rawTemp := uint32(bits(p[19], 0x03))<<10 | uint32(p[18])<<2 | uint32(bits(p[17], 0xC0))>>6
	temp := float64(signedN(rawTemp, 12)) / 16.0
	if temp != f.temperature {
		f.temperature = temp
		changed = append(changed, FieldTemperature)
	}

	// 19 bits 2-7 (high) and 20, 14 bits total
	voltage := uint16(p[19]>>2)<<8 | uint16(p[20])
	if voltage != batteryVoltageUnmeasured && (!f.hasBatteryVoltage || voltage != f.batteryVoltage) {
		f.batteryVoltage = voltage
		f.hasBatteryVoltage = true
		changed = append(changed, FieldBatteryVoltage)
	}

	switch version {
	case 0:
		// 21 bits 0-1
		changed = f.setErrorFlags(bits(p[21], 0x01) != 0, bits(p[21], 0x02) != 0, changed)
	default:
		// 21
		if level := p[21]; level != batteryLevelUnmeasured && (!f.hasBatteryLevel || level != f.batteryLevel) {
			f.batteryLevel = level
			f.hasBatteryLevel = true
			changed = append(changed, FieldBatteryLevel)
		}
	}

	return changed
}

func (f *TelemetryFrame) setErrorFlags(firmware, clock bool, changed []Field) []Field {
	if firmware != f.firmwareError {
		f.firmwareError = firmware
		changed = append(changed, FieldFirmwareError)
	}
	if clock != f.clockError {
		f.clockError = clock
		changed = append(changed, FieldClockError)
	}
	return changed
}

// encode rebuilds only the header, version nibble and identifier; the
// sensor fields are not reconstructable from this side. A malformed
// identifier leaves the payload empty rather than failing.
func (f *TelemetryFrame) encode() {
	id, err := hex.DecodeString(f.identifier)
	if err != nil || len(id) != identifierLength {
		f.payload = nil
		return
	}

	buf := make([]byte, 0, headerSize+identifierLength)

	// 0-2
	buf = append(buf, estimoteHeader...)
	buf = append(buf, f.protocolVersion<<4|telemetryFrameType)

	// 3-10
	buf = append(buf, id...)

	f.payload = buf
}

func (f *TelemetryFrame) ProtocolVersion() uint8 {
	return f.protocolVersion
}

// Identifier is the hex form of the first 8 bytes of the beacon id.
func (f *TelemetryFrame) Identifier() string {
	return f.identifier
}

func (f *TelemetryFrame) SubFrameType() SubFrame {
	return f.subFrameType
}

// Acceleration is the last subframe A reading in g per axis.
func (f *TelemetryFrame) Acceleration() Vector {
	return f.acceleration
}

func (f *TelemetryFrame) PrevMotionStateDuration() Duration {
	return f.prevMotionStateDuration
}

func (f *TelemetryFrame) CurrentMotionStateDuration() Duration {
	return f.currentMotionStateDuration
}

func (f *TelemetryFrame) Moving() bool {
	return f.moving
}

// MagneticField is the last subframe B reading, normalized per axis.
// All zero means the magnetometer is uncalibrated.
func (f *TelemetryFrame) MagneticField() Vector {
	return f.magneticField
}

// AmbientLight is the last subframe B reading in lux.
func (f *TelemetryFrame) AmbientLight() float64 {
	return f.ambientLight
}

func (f *TelemetryFrame) Uptime() Duration {
	return f.uptime
}

// Temperature is the last subframe B reading in degrees Celsius.
func (f *TelemetryFrame) Temperature() float64 {
	return f.temperature
}

// BatteryVoltage returns the last measured voltage in mV. The second
// return is false until the beacon has reported a real measurement.
func (f *TelemetryFrame) BatteryVoltage() (uint16, bool) {
	return f.batteryVoltage, f.hasBatteryVoltage
}

// BatteryLevel returns the last measured battery percentage (protocol
// version >= 1). The second return is false until a real measurement
// arrives.
func (f *TelemetryFrame) BatteryLevel() (byte, bool) {
	return f.batteryLevel, f.hasBatteryLevel
}

func (f *TelemetryFrame) FirmwareError() bool {
	return f.firmwareError
}

func (f *TelemetryFrame) ClockError() bool {
	return f.clockError
}

// GPIOStates derives the four pin levels from the current payload
// (subframe A, flag byte bits 4-7, high = true). The levels are
// recomputed per call rather than stored, so they emit no change
// signals.
func (f *TelemetryFrame) GPIOStates() [4]bool {
	var states [4]bool
	if !f.Valid() || SubFrame(bits(f.payload[11], 0x03)) != SubFrameA {
		return states
	}
	for i := range states {
		states[i] = bits(f.payload[17], byte(1)<<(4+i)) != 0
	}
	return states
}

func (f *TelemetryFrame) SetIdentifier(identifier string) (_ []Field, err error) {
	defer deferWrap(&err)

	id, err := hex.DecodeString(identifier)
	if err != nil {
		return
	}
	if len(id) != identifierLength {
		err = errors.New("identifier must be exactly 8 hex-encoded bytes")
		return
	}

	identifier = strings.ToLower(identifier)
	if identifier == f.identifier {
		return nil, nil
	}
	f.identifier = identifier
	f.encode()
	return []Field{FieldIdentifier}, nil
}
