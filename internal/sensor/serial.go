package sensor

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/neuromotion-data/tremor/internal/monitoring"
)

// DefaultBaudRate matches the firmware shipped on the accelerometer
// bridge MCUs.
const DefaultBaudRate = 115200

// SerialSource reads accelerometer samples from a microcontroller bridge
// that streams one "x,y,z" CSV line per sample over a serial port. A
// reader goroutine drains the port into a small channel so Read never
// blocks the sampling loop.
type SerialSource struct {
	name     string
	portName string
	baudRate int

	port      serial.Port
	readings  chan Reading
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewSerialSource creates a source for the named sensor on the given
// port. A baudRate of 0 selects DefaultBaudRate.
func NewSerialSource(name, portName string, baudRate int) *SerialSource {
	if baudRate == 0 {
		baudRate = DefaultBaudRate
	}
	return &SerialSource{
		name:     name,
		portName: portName,
		baudRate: baudRate,
		readings: make(chan Reading, 64),
		done:     make(chan struct{}),
	}
}

// Initialize opens the serial port and starts the reader goroutine.
func (s *SerialSource) Initialize() error {
	mode := &serial.Mode{
		BaudRate: s.baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(s.portName, mode)
	if err != nil {
		return fmt.Errorf("open %s for sensor %s: %w", s.portName, s.name, err)
	}
	s.port = port

	s.wg.Add(1)
	go s.readLoop()
	return nil
}

func (s *SerialSource) readLoop() {
	defer s.wg.Done()

	scan := bufio.NewScanner(s.port)
	for scan.Scan() {
		select {
		case <-s.done:
			return
		default:
		}

		r, err := parseLine(scan.Text())
		if err != nil {
			monitoring.Logf("sensor %s: %v", s.name, err)
			continue
		}
		r.Timestamp = float64(time.Now().UnixNano()) / 1e9

		// Drop the oldest buffered reading rather than stall the port.
		select {
		case s.readings <- r:
		default:
			select {
			case <-s.readings:
			default:
			}
			s.readings <- r
		}
	}
	if err := scan.Err(); err != nil {
		select {
		case <-s.done:
		default:
			monitoring.Logf("sensor %s: serial read stopped: %v", s.name, err)
		}
	}
}

// parseLine parses an "x,y,z" CSV sample line into a Reading.
func parseLine(line string) (Reading, error) {
	segments := strings.Split(strings.TrimSpace(line), ",")
	if len(segments) != 3 {
		return Reading{}, fmt.Errorf("malformed sample line %q", line)
	}
	var vals [3]float64
	for i, seg := range segments {
		v, err := strconv.ParseFloat(strings.TrimSpace(seg), 64)
		if err != nil {
			return Reading{}, fmt.Errorf("malformed sample value %q in line %q", seg, line)
		}
		vals[i] = v
	}
	return Reading{X: vals[0], Y: vals[1], Z: vals[2]}, nil
}

// Read returns the next buffered reading, or nil when none has arrived
// since the last call.
func (s *SerialSource) Read() (*Reading, error) {
	select {
	case r := <-s.readings:
		return &r, nil
	default:
		return nil, nil
	}
}

// Close stops the reader and releases the port. Calling Close more
// than once is safe; later calls are no-ops.
func (s *SerialSource) Close() error {
	var err error
	s.closeOnce.Do(func() {
		close(s.done)
		if s.port != nil {
			err = s.port.Close()
		}
		s.wg.Wait()
	})
	return err
}
