package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSinkConfigValidateDefaults(t *testing.T) {
	sc := SinkConfig{Address: "statsd.example.com:8125"}
	require.NoError(t, sc.Validate())
	assert.Equal(t, "udp", sc.Mode)
	assert.Equal(t, "udp://statsd.example.com:8125", sc.Name)
}

func TestSinkConfigValidateErrors(t *testing.T) {
	cases := []struct {
		name string
		sc   SinkConfig
		want string
	}{
		{
			name: "no address",
			sc:   SinkConfig{Mode: "udp"},
			want: "no address",
		},
		{
			name: "unknown mode",
			sc:   SinkConfig{Mode: "icmp", Address: "127.0.0.1:8125"},
			want: "unknown mode",
		},
		{
			name: "negative batch bound",
			sc: SinkConfig{
				Mode:    "udp",
				Address: "127.0.0.1:8125",
				Batch:   BatchConfig{MaxBytes: -1},
			},
			want: "must not be negative",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := c.sc.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.want)
		})
	}
}
