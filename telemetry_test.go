package beaconadv

import (
	"encoding/hex"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"testing"
)

func TestTelemetrySubFrameA(t *testing.T) {
	t.Parallel()

	// v1, subframe A: full-scale acceleration, 5 minutes previous and 1
	// week current motion state, moving, both error flags set.
	b := must(hex.DecodeString(`9AFE120102030405060708007F7F7F45E10103000000`))
	f := mustClassify(t, b).(*TelemetryFrame)

	require.True(t, f.Valid())
	assert.Equal(t, uint8(1), f.ProtocolVersion())
	assert.Equal(t, "0102030405060708", f.Identifier())
	assert.Equal(t, SubFrameA, f.SubFrameType())

	assert.Equal(t, "{2; 2; 2}", f.Acceleration().String())
	assert.Equal(t, Duration{Value: 5, Unit: UnitMinutes}, f.PrevMotionStateDuration())
	assert.Equal(t, "5 minutes", f.PrevMotionStateDuration().String())
	assert.Equal(t, Duration{Value: 1, Unit: UnitWeeks}, f.CurrentMotionStateDuration())
	assert.Equal(t, "1 week", f.CurrentMotionStateDuration().String())
	assert.True(t, f.Moving())
	assert.True(t, f.FirmwareError())
	assert.True(t, f.ClockError())

	// Subframe B fields were never carried, so they stay at defaults.
	_, ok := f.BatteryVoltage()
	assert.False(t, ok)
	assert.Zero(t, f.AmbientLight())
}

func TestTelemetrySubFrameAVersion2Flags(t *testing.T) {
	t.Parallel()

	// v2 carries the error flags in bits 2-3 of the flags byte.
	b := must(hex.DecodeString(`9AFE220102030405060708007F7F7F45E10D00000000`))
	f := mustClassify(t, b).(*TelemetryFrame)

	assert.Equal(t, uint8(2), f.ProtocolVersion())
	assert.True(t, f.Moving())
	assert.True(t, f.FirmwareError())
	assert.True(t, f.ClockError())
}

func TestTelemetrySubFrameAVersion0NoFlags(t *testing.T) {
	t.Parallel()

	// v0 subframe A carries no error flags even with those bits set.
	b := must(hex.DecodeString(`9AFE0201020304050607080000000000000D00000000`))
	f := mustClassify(t, b).(*TelemetryFrame)

	assert.Equal(t, uint8(0), f.ProtocolVersion())
	assert.True(t, f.Moving())
	assert.False(t, f.FirmwareError())
	assert.False(t, f.ClockError())
}

func TestTelemetryMotionFlag(t *testing.T) {
	t.Parallel()

	// Bit 0 only: 0x02 is not moving, 0x03 is.
	b := must(hex.DecodeString(`9AFE0201020304050607080000000000000200000000`))
	f := mustClassify(t, b).(*TelemetryFrame)
	assert.False(t, f.Moving())

	b2 := must(hex.DecodeString(`9AFE0201020304050607080000000000000300000000`))
	assert.Equal(t, []Field{FieldMoving}, f.Update(newTelemetryFrame(b2)))
	assert.True(t, f.Moving())
}

func TestTelemetryGPIOStates(t *testing.T) {
	t.Parallel()

	b := must(hex.DecodeString(`9AFE020102030405060708000000000000A100000000`))
	f := mustClassify(t, b).(*TelemetryFrame)

	assert.Equal(t, [4]bool{false, true, false, true}, f.GPIOStates())

	// Subframe B payloads report no pin levels.
	b2 := must(hex.DecodeString(`9AFE020102030405060708010000000000A100000000`))
	f.Update(newTelemetryFrame(b2))
	assert.Equal(t, [4]bool{}, f.GPIOStates())
}

func TestTelemetrySubFrameB(t *testing.T) {
	t.Parallel()

	// v0, subframe B: saturated light sensor, 100 minutes uptime,
	// 21.5 degrees, 3000 mV battery, clock error flag.
	b := must(hex.DecodeString(`9AFE0201020304050607080180007FFF6410562CB802`))
	f := mustClassify(t, b).(*TelemetryFrame)

	require.True(t, f.Valid())
	assert.Equal(t, SubFrameB, f.SubFrameType())

	assert.Equal(t, "{-2; 0; 1.984375}", f.MagneticField().String())
	assert.InDelta(t, 353894.4, f.AmbientLight(), 1e-6)
	assert.Equal(t, Duration{Value: 100, Unit: UnitMinutes}, f.Uptime())
	assert.InDelta(t, 21.5, f.Temperature(), 1e-9)

	voltage, ok := f.BatteryVoltage()
	require.True(t, ok)
	assert.Equal(t, uint16(3000), voltage)

	// v0 keeps the error flags in the last subframe B byte.
	assert.False(t, f.FirmwareError())
	assert.True(t, f.ClockError())

	// Battery level only exists from v1 on.
	_, ok = f.BatteryLevel()
	assert.False(t, ok)
}

func TestTelemetryDecodeOrder(t *testing.T) {
	t.Parallel()

	b := must(hex.DecodeString(`9AFE0201020304050607080180007FFF6410562CB802`))
	f := &TelemetryFrame{}

	assert.Equal(t, []Field{
		FieldIdentifier,
		FieldSubFrameType,
		FieldMagneticField,
		FieldAmbientLight,
		FieldUptime,
		FieldTemperature,
		FieldBatteryVoltage,
		FieldClockError,
	}, f.Update(newTelemetryFrame(b)))

	// A second pass over the same bytes signals nothing.
	assert.Empty(t, f.Update(newTelemetryFrame(b)))
}

func TestTelemetryBatteryVoltageUnmeasured(t *testing.T) {
	t.Parallel()

	// All 14 voltage bits set means unmeasured, never 16383 mV.
	b := must(hex.DecodeString(`9AFE0201020304050607080180007FFF641056FCFF02`))
	f := mustClassify(t, b).(*TelemetryFrame)

	_, ok := f.BatteryVoltage()
	assert.False(t, ok)
	assert.InDelta(t, 21.5, f.Temperature(), 1e-9)

	// A real measurement afterwards must survive a later sentinel.
	measured := must(hex.DecodeString(`9AFE0201020304050607080180007FFF6410562CB802`))
	assert.Contains(t, f.Update(newTelemetryFrame(measured)), FieldBatteryVoltage)

	changed := f.Update(newTelemetryFrame(b))
	assert.NotContains(t, changed, FieldBatteryVoltage)
	voltage, ok := f.BatteryVoltage()
	require.True(t, ok)
	assert.Equal(t, uint16(3000), voltage)
}

func TestTelemetryBatteryLevel(t *testing.T) {
	t.Parallel()

	b := must(hex.DecodeString(`9AFE1201020304050607080100000000000000000063`))
	f := mustClassify(t, b).(*TelemetryFrame)

	level, ok := f.BatteryLevel()
	require.True(t, ok)
	assert.Equal(t, byte(0x63), level)

	// 0xFF means unmeasured, the previous level survives.
	unmeasured := must(hex.DecodeString(`9AFE12010203040506070801000000000000000000FF`))
	changed := f.Update(newTelemetryFrame(unmeasured))
	assert.NotContains(t, changed, FieldBatteryLevel)
	level, ok = f.BatteryLevel()
	require.True(t, ok)
	assert.Equal(t, byte(0x63), level)
}

func TestTelemetryNegativeTemperature(t *testing.T) {
	t.Parallel()

	b := must(hex.DecodeString(`9AFE02010203040506070801000000000000FC030000`))
	f := mustClassify(t, b).(*TelemetryFrame)

	assert.InDelta(t, -1.0, f.Temperature(), 1e-9)
}

func TestTelemetryUnsupportedVersionStopsDecode(t *testing.T) {
	t.Parallel()

	b := must(hex.DecodeString(`9AFE120102030405060708007F7F7F45E10103000000`))
	f := mustClassify(t, b).(*TelemetryFrame)

	// Version nibble 3 stops the decode after the version field; the
	// identifier bytes differ but the prior value stays.
	v3 := must(hex.DecodeString(`9AFE32FFFFFFFFFFFFFFFF017F7F7F45E10103000000`))
	assert.Equal(t, []Field{FieldProtocolVersion}, f.Update(newTelemetryFrame(v3)))

	assert.Equal(t, uint8(3), f.ProtocolVersion())
	assert.Equal(t, "0102030405060708", f.Identifier())
	assert.Equal(t, SubFrameA, f.SubFrameType())
	assert.Equal(t, "{2; 2; 2}", f.Acceleration().String())
}

func TestTelemetryInvalidUpdateKeepsFields(t *testing.T) {
	t.Parallel()

	b := must(hex.DecodeString(`9AFE120102030405060708007F7F7F45E10103000000`))
	f := mustClassify(t, b).(*TelemetryFrame)

	// Wrong length: decode is a no-op.
	assert.Empty(t, f.Update(newUnknownFrame(must(hex.DecodeString(`9AFE1201`)))))
	assert.False(t, f.Valid())
	assert.Equal(t, "0102030405060708", f.Identifier())
	assert.True(t, f.Moving())
}

func TestTelemetryPartialEncode(t *testing.T) {
	t.Parallel()

	// Encode reconstructs header, version nibble and identifier only;
	// the sensor fields are decode-only, so the result is shorter than
	// a full on-wire frame and reports as not valid.
	f, err := NewTelemetryFrame(1, "0102030405060708")
	require.NoError(t, err)

	assert.Equal(t, must(hex.DecodeString(`9AFE120102030405060708`)), f.Payload())
	assert.False(t, f.Valid())
}

func TestTelemetrySetIdentifier(t *testing.T) {
	t.Parallel()

	f, err := NewTelemetryFrame(2, "0102030405060708")
	require.NoError(t, err)

	changed, err := f.SetIdentifier("0102030405060708")
	require.NoError(t, err)
	assert.Empty(t, changed)

	changed, err = f.SetIdentifier("AABBCCDDEEFF0011")
	require.NoError(t, err)
	assert.Equal(t, []Field{FieldIdentifier}, changed)
	assert.Equal(t, must(hex.DecodeString(`9AFE22AABBCCDDEEFF0011`)), f.Payload())

	_, err = f.SetIdentifier("zz")
	require.Error(t, err)
}

func TestNewTelemetryFrameRejectsBadInput(t *testing.T) {
	t.Parallel()

	_, err := NewTelemetryFrame(3, "0102030405060708")
	require.Error(t, err)

	_, err = NewTelemetryFrame(0, "0102")
	require.Error(t, err)

	_, err = NewTelemetryFrame(0, "not hex")
	require.Error(t, err)
}

func TestParseMotionStateDuration(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw      byte
		expected Duration
	}{
		{0x05, Duration{Value: 5, Unit: UnitSeconds}},
		{0x45, Duration{Value: 5, Unit: UnitMinutes}},
		{0x85, Duration{Value: 5, Unit: UnitHours}},
		{0xC5, Duration{Value: 5, Unit: UnitDays}},
		{0xDF, Duration{Value: 31, Unit: UnitDays}},
		{0xE0, Duration{Value: 0, Unit: UnitWeeks}},
		{0xE1, Duration{Value: 1, Unit: UnitWeeks}},
		{0xFF, Duration{Value: 31, Unit: UnitWeeks}},
	}

	for _, tc := range tests {
		assert.Equal(t, tc.expected, parseMotionStateDuration(tc.raw), "raw 0x%02X", tc.raw)
	}
}
