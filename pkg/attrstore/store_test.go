package attrstore

import (
	"context"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edp1096/spicelib/pkg/library"
	"github.com/edp1096/spicelib/pkg/netlist"
)

const drivers = `* MFR: Acme
* FS: 28
* QTS: 0.35
.subckt WOOF8 p n
R1 p n 6
.ends WOOF8

* FS: 45
* QTS: 0.5
.subckt MID5 p n
R1 p n 6
.ends MID5

* FS: 900
.subckt TW25 p n
R1 p n 4
.ends TW25

.subckt PLAIN a b
R1 a b 1
.ends PLAIN
`

func newSnapshot(t *testing.T) *library.Snapshot {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "drivers.lib"), []byte(drivers), 0o644))
	cat, err := library.Index(context.Background(), []string{dir})
	require.NoError(t, err)
	return cat.Snapshot()
}

func openStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "attrs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func ptr(v float64) *float64 { return &v }

func TestStoreSyncAndGeneration(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	snap := newSnapshot(t)

	gen, err := s.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), gen)

	stale, err := s.Stale(ctx, snap)
	require.NoError(t, err)
	assert.True(t, stale)

	require.NoError(t, s.Sync(ctx, snap))

	gen, err = s.Generation(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Generation, gen)

	stale, err = s.Stale(ctx, snap)
	require.NoError(t, err)
	assert.False(t, stale)

	// definitions without derived parameters are not stored
	names, err := s.Query(ctx, nil, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"MID5", "TW25", "WOOF8"}, names)
}

func TestStoreSyncReplaces(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	require.NoError(t, s.Sync(ctx, newSnapshot(t)))
	require.NoError(t, s.Sync(ctx, newSnapshot(t)))

	names, err := s.Query(ctx, nil, 0)
	require.NoError(t, err)
	assert.Len(t, names, 3)
}

func TestStoreQuery(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)
	require.NoError(t, s.Sync(ctx, newSnapshot(t)))

	tests := []struct {
		name   string
		ranges []Range
		limit  int
		want   []string
	}{
		{"upper bound", []Range{{Key: "fs", Max: ptr(50)}}, 0, []string{"MID5", "WOOF8"}},
		{"lower bound", []Range{{Key: "FS", Min: ptr(100)}}, 0, []string{"TW25"}},
		{"closed range", []Range{{Key: "fs", Min: ptr(30), Max: ptr(1000)}}, 0, []string{"MID5", "TW25"}},
		{"two params", []Range{{Key: "fs", Max: ptr(50)}, {Key: "qts", Max: ptr(0.4)}}, 0, []string{"WOOF8"}},
		{"missing param", []Range{{Key: "qts"}}, 0, []string{"MID5", "WOOF8"}},
		{"limit", []Range{{Key: "fs"}}, 2, []string{"MID5", "TW25"}},
		{"no match", []Range{{Key: "vas", Min: ptr(1)}}, 0, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.Query(ctx, tt.ranges, tt.limit)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseRange(t *testing.T) {
	tests := []struct {
		expr    string
		want    string
		wantErr bool
	}{
		{"fs=20:40", "fs in [20, 40]", false},
		{"FS=:40", "fs in [-inf, 40]", false},
		{"qts=0.3:", "qts in [0.3, +inf]", false},
		{"re=6", "re in [6, 6]", false},
		{"le=1m:2m", "le in [0.001, 0.002]", false},
		{"fs", "", true},
		{"=1:2", "", true},
		{"fs=abc:2", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			r, err := ParseRange(tt.expr, netlist.ParseValue)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, r.String())
		})
	}
}

func TestParseRangeUsesParser(t *testing.T) {
	r, err := ParseRange("x=1:2", func(s string) (float64, error) {
		v, err := strconv.ParseFloat(s, 64)
		return v * 10, err
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, *r.Min)
	assert.Equal(t, 20.0, *r.Max)
}
