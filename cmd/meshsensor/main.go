// Command meshsensor demonstrates the receive discriminator's delegated
// mode (§4.5, scenario 6): a mesh clock node that shares its radio with a
// host sensor-reporting protocol built on max31855 thermocouple readings.
// Clock frames and sensor frames ride the same simulated broadcast medium;
// the receive callback installed here hands every frame to HandleFrame,
// which sorts them by the 3-byte "MCK" magic, and only the frames it
// reports as non-clock frames go on to the sensor decoder.
package main

import (
	"encoding/binary"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/tve/meshclock"
	"github.com/tve/meshclock/monoclock"
	"github.com/tve/meshclock/radio"
	"github.com/tve/meshclock/radio/simradio"
)

// sensorMagic distinguishes this demo's sensor payloads from clock frames;
// any prefix other than frame's "MCK" passes through the discriminator
// untouched.
var sensorMagic = [3]byte{'T', 'M', 'P'}

// encodeSensorFrame packs a millicelsius reading behind sensorMagic.
func encodeSensorFrame(milliC int32) []byte {
	buf := make([]byte, 3+4)
	copy(buf, sensorMagic[:])
	binary.LittleEndian.PutUint32(buf[3:], uint32(milliC))
	return buf
}

// decodeSensorFrame is the inverse of encodeSensorFrame; ok is false for
// anything that isn't one of this demo's sensor frames (including, in
// principle, a clock frame - though the discriminator never forwards
// those here).
func decodeSensorFrame(buf []byte) (milliC int32, ok bool) {
	if len(buf) != 7 || buf[0] != sensorMagic[0] || buf[1] != sensorMagic[1] || buf[2] != sensorMagic[2] {
		return 0, false
	}
	return int32(binary.LittleEndian.Uint32(buf[3:])), true
}

func main() {
	runFor := flag.Duration("run-for", 15*time.Second, "how long to run the demo")
	hardware := flag.Bool("hardware", false, "read a real MAX31855 over SPI instead of fabricating readings")
	spiBus := flag.String("spi-bus", "SPI0.0", "periph SPI bus name, when -hardware is set")
	selPin := flag.String("select-pin", "GPIO25", "spimux chip-select demux GPIO name, when -hardware is set")
	flag.Parse()

	var tc source
	if *hardware {
		hw, err := newHardwareSource(*spiBus, *selPin)
		if err != nil {
			log.Fatalf("meshsensor: %s", err)
		}
		tc = hw
	} else {
		tc = newFabricatedSource()
	}

	medium := simradio.NewMedium(0, time.Millisecond)

	clockAddr := [6]byte{0, 0, 0, 0, 0, 1}
	sensorAddr := [6]byte{0, 0, 0, 0, 0, 2}

	clockRadio := simradio.New(medium, clockAddr)
	cfg := meshclock.DefaultConfig()
	cfg.ClockSource = monoclock.NewSafe()
	core, err := meshclock.New(cfg, clockRadio, meshclock.Opts{
		Logger: func(format string, v ...interface{}) { log.Printf("clock: "+format, v...) },
		Rand:   rand.New(rand.NewSource(1)),
	})
	if err != nil {
		log.Fatalf("meshclock.New: %s", err)
	}
	if err := core.Begin(false); err != nil {
		log.Fatalf("core.Begin: %s", err)
	}
	// Delegated mode (§4.5): the host owns the radio's receive callback and
	// continues its own dispatch only for frames HandleFrame did not consume.
	clockRadio.RegisterRecvCb(func(f radio.Frame) {
		if core.HandleFrame(f.Src, f.Bytes) {
			return
		}
		if milliC, ok := decodeSensorFrame(f.Bytes); ok {
			log.Printf("clock: received sensor reading %.2fC from %x", float64(milliC)/1000, f.Src)
		}
	})

	sensorRadio := simradio.New(medium, sensorAddr)
	if err := sensorRadio.Begin(); err != nil {
		log.Fatalf("sensorRadio.Begin: %s", err)
	}
	if err := sensorRadio.AddPeer(radio.BroadcastAddr, 0, false); err != nil {
		log.Fatalf("sensorRadio.AddPeer: %s", err)
	}

	deadline := time.Now().Add(*runFor)
	ticker := time.NewTicker(200 * time.Millisecond)
	defer ticker.Stop()
	i := 0
	for range ticker.C {
		core.Tick()
		if i%10 == 0 {
			reading, err := tc.Read()
			if err != nil {
				log.Printf("sensor: reading failed: %s", err)
			} else if err := sensorRadio.Send(radio.BroadcastAddr, encodeSensorFrame(reading)); err != nil {
				log.Printf("sensor: send failed: %s", err)
			} else {
				fmt.Printf("sensor: broadcast %.2fC\n", float64(reading)/1000)
			}
		}
		i++
		if time.Now().After(deadline) {
			break
		}
	}
}
