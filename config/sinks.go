package config

import (
	"fmt"
	"time"
)

type BatchConfig struct {
	MaxBytes  int      `toml:"max_bytes"`
	MaxEvents int      `toml:"max_events"`
	Timeout   Duration `toml:"timeout"`
}

// SinkConfig describes one statsd destination. Zero batch bounds fall back
// to the sink defaults.
type SinkConfig struct {
	Name      string      `toml:"name"`
	Mode      string      `toml:"mode"`
	Address   string      `toml:"address"`
	Namespace string      `toml:"namespace"`
	ChanSize  int         `toml:"chan_size"`
	NamePass  []string    `toml:"namepass"`
	NameDrop  []string    `toml:"namedrop"`
	Batch     BatchConfig `toml:"batch"`
}

func (sc *SinkConfig) Validate() error {
	if sc.Mode == "" {
		sc.Mode = "udp"
	}
	switch sc.Mode {
	case "udp", "tcp", "unix":
	default:
		return fmt.Errorf("sink %s: unknown mode %q", sc.Address, sc.Mode)
	}

	if sc.Address == "" {
		return fmt.Errorf("sink has no address")
	}

	if sc.Name == "" {
		sc.Name = sc.Mode + "://" + sc.Address
	}

	if sc.Batch.MaxBytes < 0 || sc.Batch.MaxEvents < 0 || sc.Batch.Timeout < 0 {
		return fmt.Errorf("sink %s: batch bounds must not be negative", sc.Name)
	}

	return nil
}

func (bc BatchConfig) TimeoutDuration() time.Duration {
	return time.Duration(bc.Timeout)
}
