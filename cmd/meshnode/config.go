package main

import (
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
	"github.com/tve/meshclock/meshbridge"
)

// Config is the on-disk configuration for meshnode, loaded the same way the
// teacher's cmd/mqttradio loads mqttradio.toml: BurntSushi/toml into a
// struct with plain (or toml-tagged) field names, path given by -config.
type Config struct {
	Debug bool

	// Clock covers the §3 configuration block.
	Clock ClockConfig

	Radio   RadioConfig
	Mqtt    meshbridge.Config
	Metrics MetricsConfig
}

// ClockConfig mirrors meshclock.Config's TOML tags.
type ClockConfig struct {
	Interval           int     `toml:"interval"`
	SlewAlpha          float64 `toml:"slew_alpha"`
	LargeStepThreshold int64   `toml:"large_step_threshold"`
	SyncTimeout        int     `toml:"sync_timeout"`
	JitterPercent      int     `toml:"jitter_percent"`
	TxDelay            int64   `toml:"tx_delay"`
}

// RadioConfig selects and configures the radio transport. Type is one of
// "sim" (radio/simradio, for local testing with no hardware; also the
// choice when Type is empty) or "rfm69" (radio/rfm69adapter over sx1231).
// buildRadio rejects any other value, "lora" included: a radio/loraadapter
// over sx1276 is not built from this config.
type RadioConfig struct {
	Type string `toml:"type"`

	// sim
	SimLossRate   float64 `toml:"sim_loss_rate"`
	SimJitterMs   int     `toml:"sim_jitter_ms"`
	SimNodeID     int     `toml:"sim_node_id"`

	// rfm69 / lora (shared hardware config shape, same fields the
	// teacher's cmd/mqttradio.RadioConfig used)
	SpiBus   int    `toml:"spi_bus"`
	SpiCS    int    `toml:"spi_cs"`
	IntrPin  string `toml:"intr_pin"`
	Freq     uint32 `toml:"freq"`
	Sync     string `toml:"sync"`
	Rate     string `toml:"rate"`
	Power    int    `toml:"power"`
}

// MetricsConfig controls the Prometheus HTTP listener, grounded on
// gnmi-writer's MetricsAddr field.
type MetricsConfig struct {
	Addr string `toml:"addr"` // empty disables the listener
}

// DefaultConfig mirrors meshclock.DefaultConfig's values in TOML-loadable
// form, plus a local sim radio so meshnode runs out of the box with no
// hardware or broker configured.
func DefaultConfig() Config {
	return Config{
		Clock: ClockConfig{
			Interval:           1000,
			SlewAlpha:          0.25,
			LargeStepThreshold: 10000,
			SyncTimeout:        5000,
			JitterPercent:      10,
			TxDelay:            1000,
		},
		Radio: RadioConfig{
			Type: "sim",
		},
	}
}

func loadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("meshnode: cannot access config file: %w", err)
	}
	if _, err := toml.Decode(string(raw), &cfg); err != nil {
		return cfg, fmt.Errorf("meshnode: cannot parse config file: %w", err)
	}
	return cfg, nil
}
