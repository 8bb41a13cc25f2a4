package dlheap

import (
	"bytes"
	"testing"

	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitState(t *testing.T) {
	x := newTestHeap(t)
	assert.Equal(t, binAddr(unsortedIdx), x.top, `top starts as the unsorted sentinel`)
	assert.True(t, x.contiguous)
	assert.Equal(t, int64(DefaultPageSize), x.pagesize)
	assert.Equal(t, int64(DefaultTrimThreshold), x.trimThreshold)
	assert.Equal(t, int64(DefaultTopPad), x.topPad)
	assert.Equal(t, int64(DefaultMapThreshold), x.mapThreshold)
	assert.Equal(t, DefaultMapMax, x.mapMax)
	assert.Equal(t, request2size(DefaultMaxFast), x.maxFastSize())
	for i := range x.fastbins {
		assert.Zero(t, x.fastbins[i])
	}
	assert.Zero(t, x.lastRemainder)
}

func TestWithLoggerNilIsSilent(t *testing.T) {
	x := New(&MemCore{}, WithLogger(nil))
	p, err := x.Malloc(400000)
	require.NoError(t, err)
	x.Free(p)
	x.Trim(0)
	assert.Zero(t, x.Stats().MapCount)
}

func TestSystemEventsLogged(t *testing.T) {
	var buf bytes.Buffer
	logger := stumpy.L.New(
		stumpy.L.WithStumpy(
			stumpy.WithWriter(&buf),
			stumpy.WithTimeField(``),
		),
		stumpy.L.WithLevel(logiface.LevelDebug),
	)
	x := New(&MemCore{}, WithLogger(logger.Logger()))

	a, err := x.Malloc(24)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `heap extended`)

	b, err := x.Malloc(400000)
	require.NoError(t, err)
	assert.Contains(t, buf.String(), `direct mapping`)

	x.Free(b)
	x.Free(a)
	c, err := x.Malloc(100000)
	require.NoError(t, err)
	x.Free(c)
	require.True(t, x.Trim(0))
	assert.Contains(t, buf.String(), `trimmed`)
}
