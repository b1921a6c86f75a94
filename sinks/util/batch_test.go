package util

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBatchSettingsNormalize(t *testing.T) {
	s, err := BatchSettings{}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, DefaultBatchMaxBytes, s.MaxBytes)
	assert.Equal(t, DefaultBatchMaxEvents, s.MaxEvents)
	assert.Equal(t, DefaultBatchTimeout, s.Timeout)

	s, err = BatchSettings{MaxBytes: 512, MaxEvents: 10, Timeout: 5 * time.Second}.Normalize()
	require.NoError(t, err)
	assert.Equal(t, 512, s.MaxBytes)
	assert.Equal(t, 10, s.MaxEvents)
	assert.Equal(t, 5*time.Second, s.Timeout)

	_, err = BatchSettings{MaxBytes: -1}.Normalize()
	assert.Error(t, err)
}

func TestBatchStaysOpenAtExactByteBound(t *testing.T) {
	b := NewBatch(BatchSettings{MaxBytes: 10, MaxEvents: 100, Timeout: time.Second})

	assert.False(t, b.WouldOverflow([]byte("12345")))
	b.Append([]byte("12345"))
	assert.False(t, b.WouldOverflow([]byte("67890")))
	b.Append([]byte("67890"))

	// sitting exactly on the byte bound is not overflow
	assert.Equal(t, 10, b.Size())
	assert.False(t, b.OverBytes())
	assert.False(t, b.Full())

	// the next event is what pushes it over
	assert.True(t, b.WouldOverflow([]byte("x")))
}

func TestBatchCountBound(t *testing.T) {
	b := NewBatch(BatchSettings{MaxBytes: 1000, MaxEvents: 2, Timeout: time.Second})

	b.Append([]byte("a"))
	assert.False(t, b.Full())
	b.Append([]byte("b"))
	assert.True(t, b.Full())
}

func TestBatchOversizedEvent(t *testing.T) {
	b := NewBatch(BatchSettings{MaxBytes: 5, MaxEvents: 100, Timeout: time.Second})

	big := []byte("0123456789")
	assert.True(t, b.WouldOverflow(big))
	assert.True(t, b.Empty())

	b.Append(big)
	assert.True(t, b.OverBytes())
	assert.Equal(t, 1, b.Events())
}

func TestBatchTakeResets(t *testing.T) {
	b := NewBatch(BatchSettings{MaxBytes: 100, MaxEvents: 100, Timeout: time.Second})

	b.Append([]byte("one:1|c\n"))
	b.Append([]byte("two:2|c\n"))

	payload, events := b.Take()
	assert.Equal(t, 2, events)
	assert.True(t, bytes.Equal([]byte("one:1|c\ntwo:2|c\n"), payload))

	assert.True(t, b.Empty())
	assert.Equal(t, 0, b.Size())

	payload, events = b.Take()
	assert.Zero(t, events)
	assert.Empty(t, payload)
}
