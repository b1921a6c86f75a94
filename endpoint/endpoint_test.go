package endpoint

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultsToHTTPS(t *testing.T) {
	cases := []string{
		"statsd.example.com:8125",
		"statsd.example.com",
		"statsd.example.com/base",
	}

	for _, raw := range cases {
		t.Run(raw, func(t *testing.T) {
			e, err := New(raw)
			require.NoError(t, err)
			assert.Equal(t, "https", e.Scheme())
		})
	}
}

func TestNewKeepsExplicitScheme(t *testing.T) {
	e, err := New("http://collector.example.com:9090/push")
	require.NoError(t, err)

	assert.Equal(t, "http", e.Scheme())
	assert.Equal(t, "collector.example.com:9090", e.Authority())
	assert.Equal(t, "collector.example.com", e.Host())
	assert.Equal(t, "/push", e.Path())
	assert.Equal(t, "http://collector.example.com:9090/push", e.String())
}

func TestNewRejections(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want error
	}{
		{"query string", "http://host/path?x=1", ErrHasQuery},
		{"bare question mark", "http://host/path?", ErrHasQuery},
		{"no authority", "https:///path", ErrMissingAuthority},
		{"path only", "/just/a/path", ErrMissingAuthority},
		{"empty", "", ErrMissingAuthority},
		{"bad escape", "http://host/%zz", ErrInvalidFormat},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := New(c.raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, c.want)
		})
	}
}

func TestBuildAddressJoinsWithSingleSlash(t *testing.T) {
	withSlash, err := New("http://host:1234/a/")
	require.NoError(t, err)
	without, err := New("http://host:1234/a")
	require.NoError(t, err)

	u1, err := withSlash.BuildAddress("/x", "")
	require.NoError(t, err)
	u2, err := without.BuildAddress("x", "")
	require.NoError(t, err)

	assert.Equal(t, u1, u2)
	assert.Equal(t, "http://host:1234/a/x", u1)
}

func TestBuildAddressQueryHandling(t *testing.T) {
	e, err := New("http://host/base")
	require.NoError(t, err)

	full, err := e.BuildAddress("x", "k=v")
	require.NoError(t, err)
	assert.Equal(t, "http://host/base/x?k=v", full)

	bare, err := e.BuildAddress("x", "")
	require.NoError(t, err)
	assert.NotContains(t, bare, "?")
}

func TestBuildAddressEmptySegments(t *testing.T) {
	e, err := New("http://host")
	require.NoError(t, err)

	root, err := e.BuildAddress("", "")
	require.NoError(t, err)
	assert.Equal(t, "http://host/", root)

	rel, err := e.BuildAddress("v1/push", "")
	require.NoError(t, err)
	assert.Equal(t, "http://host/v1/push", rel)
}

func TestHostPanicsWithoutAuthority(t *testing.T) {
	assert.Panics(t, func() {
		var e Endpoint
		e.Host()
	})
}
