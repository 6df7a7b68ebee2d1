package main

import (
	"fmt"
	"time"

	"github.com/tve/meshclock/hw"
	"github.com/tve/meshclock/radio"
	"github.com/tve/meshclock/radio/rfm69adapter"
	"github.com/tve/meshclock/radio/simradio"
	"github.com/tve/meshclock/sx1231"
)

// buildRadio constructs the transport meshnode drives from its config.
// "sim" needs no hardware and is the default, so meshnode runs with nothing
// configured; "rfm69" builds a real HopeRF RFM69 radio via hw's embd-backed
// SPI/GPIO and radio/rfm69adapter. A periph-backed "lora" radio follows the
// same shape through radio/loraadapter, wired up by whatever host owns the
// spi.ConnCloser/gpio.PinIn pair -- left to the caller rather than built
// here since periph's bus/pin opening is platform specific.
func buildRadio(cfg RadioConfig, log func(string, ...interface{})) (radio.Radio, error) {
	switch cfg.Type {
	case "", "sim":
		addr := [6]byte{0, 0, 0, 0, 0, byte(cfg.SimNodeID)}
		medium := simradio.NewMedium(cfg.SimLossRate, time.Duration(cfg.SimJitterMs)*time.Millisecond)
		return simradio.New(medium, addr), nil

	case "rfm69":
		return rfm69adapter.New(func() (*sx1231.Radio, error) {
			dev := hw.NewSPI()
			intr := hw.NewGPIO(cfg.IntrPin)
			if intr == nil {
				return nil, fmt.Errorf("meshnode: cannot open interrupt pin %s", cfg.IntrPin)
			}
			opts := sx1231.RadioOpts{
				Freq:    cfg.Freq,
				PABoost: cfg.Power > 17,
				Logger:  sx1231.LogPrintf(log),
			}
			return sx1231.New(dev, intr, opts)
		}), nil

	default:
		return nil, fmt.Errorf("meshnode: unknown radio type %q", cfg.Type)
	}
}
