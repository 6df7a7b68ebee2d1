package main

import (
	"fmt"

	"github.com/tve/meshclock/max31855"
	"github.com/tve/meshclock/spimux"
	"periph.io/x/periph/conn/gpio/gpioreg"
	"periph.io/x/periph/conn/spi"
	"periph.io/x/periph/conn/spi/spireg"
	"periph.io/x/periph/host"
)

// source is one thermocouple reading source, in millicelsius.
type source interface {
	Read() (milliC int32, err error)
}

// fabricatedSource cycles through a fixed set of readings; it needs no
// hardware and is meshsensor's default, same role cmd/meshsim's loss/jitter
// knobs play for the clock demo.
type fabricatedSource struct {
	readings []int32
	i        int
}

func newFabricatedSource() *fabricatedSource {
	return &fabricatedSource{readings: []int32{21250, 21375, 21500, 21625}}
}

func (f *fabricatedSource) Read() (int32, error) {
	v := f.readings[f.i%len(f.readings)]
	f.i++
	return v, nil
}

// hardwareSource reads a real MAX31855 over SPI, sharing the bus with
// another chip-select device through spimux the way the teacher's
// cmd/rfm-check shares one SPI bus between an rfm69 and an rfm96 over a
// demuxed chip select. Here the second spimux leg is left unused: a
// deployment that also carries a radio on this bus would pass spimux's
// other Conn to that radio driver instead of opening its own port.
type hardwareSource struct {
	dev *max31855.Dev
}

// newHardwareSource opens busName (e.g. "SPI0.0") and selPinName (the
// spimux demux select GPIO) via periph's registries, wires them through
// spimux.New, and builds a max31855.Dev on the resulting leg, following the
// same Configure/Speed-then-mux sequence as the teacher's cmd/rfm-check.
func newHardwareSource(busName, selPinName string) (*hardwareSource, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("meshsensor: periph host.Init: %w", err)
	}
	port, err := spireg.Open(busName)
	if err != nil {
		return nil, fmt.Errorf("meshsensor: cannot open SPI bus %q: %w", busName, err)
	}
	if err := port.Configure(spi.Mode0, 8); err != nil {
		return nil, fmt.Errorf("meshsensor: configure SPI bus %q: %w", busName, err)
	}
	if err := port.Speed(1 * 1000 * 1000); err != nil {
		return nil, fmt.Errorf("meshsensor: set SPI bus %q speed: %w", busName, err)
	}
	selPin := gpioreg.ByName(selPinName)
	if selPin == nil {
		return nil, fmt.Errorf("meshsensor: cannot find select pin %q", selPinName)
	}
	tcConn, _ := spimux.New(port, selPin)
	dev, err := max31855.New(tcConn)
	if err != nil {
		return nil, fmt.Errorf("meshsensor: max31855.New: %w", err)
	}
	return &hardwareSource{dev: dev}, nil
}

func (h *hardwareSource) Read() (int32, error) {
	thermC, _, err := h.dev.Temperature()
	if err != nil {
		return 0, err
	}
	return int32(thermC.Float64() * 1000), nil
}
