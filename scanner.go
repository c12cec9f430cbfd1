package beaconadv

import (
	"context"
	"log/slog"
	"sync"
	"tinygo.org/x/bluetooth"
)

var (
	eddystoneServiceUUID = bluetooth.New16BitUUID(0xFEAA)
	estimoteServiceUUID  = bluetooth.New16BitUUID(0xFE9A)
)

// FieldObserver is invoked synchronously, exactly once per field whose
// decoded value actually changed, in payload byte-offset order.
type FieldObserver func(frame Frame, field Field)

// Scanner tracks one frame per sighted beacon and feeds payload
// updates through the codec, notifying the observer of field changes.
// Payloads can come from the built-in BLE scan or from any other
// transport via Observe.
type Scanner struct {
	adapter  *bluetooth.Adapter
	observer FieldObserver

	mu     sync.Mutex
	frames map[string]Frame
}

func NewScanner(adapter *bluetooth.Adapter, observer FieldObserver) *Scanner {
	return &Scanner{
		adapter:  adapter,
		observer: observer,
		frames:   make(map[string]Frame),
	}
}

// Scan subscribes to BLE advertisements and feeds every Eddystone and
// Estimote service-data payload through Observe until ctx is done. The
// service-data header bytes stripped by the radio layer are restored
// so payloads match the on-wire layout the codec expects.
func (s *Scanner) Scan(ctx context.Context) (err error) {
	defer deferWrap(&err)

	stop := context.AfterFunc(ctx, func() {
		_ = s.adapter.StopScan()
	})
	defer stop()

	return s.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
		// Address.String() is the one beacon identity every tinygo
		// target provides, MAC-addressed or not.
		address := result.Address.String()
		for _, sd := range result.ServiceData() {
			var header []byte
			switch sd.UUID {
			case eddystoneServiceUUID:
				header = eddystoneHeader
			case estimoteServiceUUID:
				header = estimoteHeader
			default:
				continue
			}

			payload := make([]byte, 0, len(header)+len(sd.Data))
			payload = append(payload, header...)
			payload = append(payload, sd.Data...)

			slog.Debug("Got beacon advertisement",
				slog.String("address", address),
				logHex("payload", payload))

			s.Observe(address, payload)
		}
	})
}

// Observe feeds one raw advertisement payload for the beacon at
// address (the scan layer passes the adapter's address string).
// Payloads matching neither family are dropped; a recognized payload
// updates the tracked frame for the address, re-classifying only when
// the variant changed.
func (s *Scanner) Observe(address string, payload []byte) {
	candidate, ok := Classify(payload)
	if !ok {
		return
	}

	s.mu.Lock()
	frame, seen := s.frames[address]
	if !seen || frame.Type() != candidate.Type() {
		frame = emptyFrame(candidate.Type())
		s.frames[address] = frame
	}
	changed := frame.Update(candidate)
	s.mu.Unlock()

	if s.observer == nil {
		return
	}
	for _, field := range changed {
		s.observer(frame, field)
	}
}

// Frame returns the tracked frame for an address, if any.
func (s *Scanner) Frame(address string) (Frame, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	frame, ok := s.frames[address]
	return frame, ok
}

func emptyFrame(t FrameType) Frame {
	switch t {
	case FrameTypeUID:
		return &UIDFrame{}
	case FrameTypeTelemetry:
		return &TelemetryFrame{}
	default:
		return &UnknownFrame{}
	}
}
