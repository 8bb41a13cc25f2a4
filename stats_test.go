package dlheap

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatsFresh(t *testing.T) {
	x := newTestHeap(t)
	s := x.Stats()
	assert.Equal(t, Stats{OrdBlocks: 1}, s, `only the zero-sized top`)
}

func TestStatsAccounting(t *testing.T) {
	x := newTestHeap(t)
	a, err := x.Malloc(1000) // chunk size 1008
	require.NoError(t, err)

	s := x.Stats()
	assert.Equal(t, int64(4096), s.SbrkBytes)
	assert.Equal(t, int64(1008), s.InUseBytes)
	assert.Equal(t, int64(3088), s.TopBytes)
	assert.Equal(t, s.TopBytes, s.OrdBytes)
	assert.Equal(t, int64(4096), s.MaxTotalBytes)

	b, err := x.Malloc(400000)
	require.NoError(t, err)
	s = x.Stats()
	assert.Equal(t, 1, s.MapCount)
	assert.Equal(t, int64(401408), s.MapBytes)
	assert.Equal(t, int64(4096+401408), s.MaxTotalBytes)

	x.Free(b)
	s = x.Stats()
	assert.Zero(t, s.MapCount)
	assert.Zero(t, s.MapBytes)
	assert.Equal(t, int64(4096+401408), s.MaxTotalBytes, `high-water mark sticks`)

	x.Free(a)
	s = x.Stats()
	assert.Zero(t, s.InUseBytes)
	assert.Equal(t, s.SbrkBytes, s.OrdBytes+s.FastBytes)
}

func TestStatsFastBins(t *testing.T) {
	x := newTestHeap(t)
	var ps []Ptr
	for i := 0; i < 4; i++ {
		p, _ := x.Malloc(24)
		ps = append(ps, p)
	}
	for _, p := range ps {
		x.Free(p)
	}
	s := x.Stats()
	assert.Equal(t, 4, s.FastBlocks)
	assert.Equal(t, int64(4*minSize), s.FastBytes)
	assert.Zero(t, s.InUseBytes)

	x.consolidate()
	s = x.Stats()
	assert.Zero(t, s.FastBlocks)
	assert.Zero(t, s.FastBytes)
}

func TestStatsSizeInvariant(t *testing.T) {
	// the bytes obtained by extension are exactly the chunks of the
	// contiguous region, walked end to end
	x := newTestHeap(t)
	var live []Ptr
	for i := 0; i < 40; i++ {
		p, err := x.Malloc(int64(i%7) * 100)
		require.NoError(t, err)
		live = append(live, p)
		if i%3 == 0 {
			x.Free(live[0])
			live = live[1:]
		}
		var sum int64
		for _, c := range walkTopRegion(t, x) {
			sum += c.size
		}
		require.Equal(t, x.Stats().SbrkBytes, sum)
	}
}

func TestUsableSize(t *testing.T) {
	x := newTestHeap(t)
	assert.Zero(t, x.UsableSize(0))

	p, _ := x.Malloc(100)
	assert.Equal(t, int64(112-sizeSz), x.UsableSize(p))
	assert.Len(t, x.Bytes(p), 112-sizeSz)

	_, _ = x.Malloc(24) // keep p away from top
	x.Free(p)
	x.consolidate()
	assert.Zero(t, x.UsableSize(p), `freed chunks report zero`)

	assert.Nil(t, x.Bytes(0))
}

func TestTuneBounds(t *testing.T) {
	x := newTestHeap(t)
	tests := []struct {
		name  string
		param Param
		value int64
		want  bool
	}{
		{`max fast in range`, ParamMaxFast, MaxFastBound, true},
		{`max fast zero`, ParamMaxFast, 0, true},
		{`max fast negative`, ParamMaxFast, -1, false},
		{`max fast above ceiling`, ParamMaxFast, MaxFastBound + 1, false},
		{`trim threshold`, ParamTrimThreshold, 8192, true},
		{`trim threshold negative`, ParamTrimThreshold, -1, false},
		{`top pad`, ParamTopPad, 4096, true},
		{`top pad negative`, ParamTopPad, -1, false},
		{`map threshold`, ParamMapThreshold, 1 << 20, true},
		{`map threshold negative`, ParamMapThreshold, -1, false},
		{`map max`, ParamMapMax, 16, true},
		{`map max negative`, ParamMapMax, -1, false},
		{`unknown param`, Param(99), 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, x.Tune(tt.param, tt.value))
		})
	}
}

func TestTuneMaxFastZeroDisablesFastBins(t *testing.T) {
	x := newTestHeap(t)
	require.True(t, x.Tune(ParamMaxFast, 0))
	a, _ := x.Malloc(24)
	_, _ = x.Malloc(24) // spacer
	x.Free(a)
	s := x.Stats()
	assert.Zero(t, s.FastBlocks, `nothing qualifies for the fast bins`)
	assert.False(t, x.haveFastChunks())
	// the freed chunk went through the ordinary path instead
	assert.Equal(t, mem2chunk(int64(a)), x.bk(binAddr(unsortedIdx)))
}

func TestTuneTopPad(t *testing.T) {
	x := newTestHeap(t)
	require.True(t, x.Tune(ParamTopPad, 1<<16))
	_, err := x.Malloc(24)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, x.Stats().SbrkBytes, int64(1<<16), `extension padded`)
}
