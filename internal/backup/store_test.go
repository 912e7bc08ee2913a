package backup

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/abitlab/itmo-advisor-go/internal/logger"
)

func testLogger() *logger.Logger {
	return logger.New("error")
}

func TestKeyFor(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 8, 25, 10, 30, 0, 0, time.UTC)

	tests := []struct {
		name   string
		prefix string
		want   string
	}{
		{"with prefix", "snapshots", "snapshots/kb-20260825T103000Z.db.zst"},
		{"nested prefix", "backups/itmo", "backups/itmo/kb-20260825T103000Z.db.zst"},
		{"empty prefix", "", "kb-20260825T103000Z.db.zst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store := NewStore(nil, tt.prefix, testLogger(), nil)
			assert.Equal(t, tt.want, store.keyFor(ts))
		})
	}
}

func TestKeyFor_NormalizesToUTC(t *testing.T) {
	t.Parallel()
	store := NewStore(nil, "snapshots", testLogger(), nil)

	msk := time.FixedZone("MSK", 3*60*60)
	ts := time.Date(2026, 8, 25, 13, 30, 0, 0, msk)

	assert.Equal(t, "snapshots/kb-20260825T103000Z.db.zst", store.keyFor(ts))
}

func TestKeyFor_OrderMatchesChronology(t *testing.T) {
	t.Parallel()
	store := NewStore(nil, "snapshots", testLogger(), nil)

	older := store.keyFor(time.Date(2026, 8, 25, 23, 59, 59, 0, time.UTC))
	newer := store.keyFor(time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC))

	assert.Less(t, older, newer, "later snapshots must sort after earlier ones")
}

func TestListPrefix(t *testing.T) {
	t.Parallel()

	store := NewStore(nil, "snapshots", testLogger(), nil)
	assert.Equal(t, "snapshots/kb-", store.listPrefix())

	bare := NewStore(nil, "", testLogger(), nil)
	assert.Equal(t, "kb-", bare.listPrefix())
}

func TestNewestKey(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		keys []string
		want string
	}{
		{"empty", nil, ""},
		{"single", []string{"snapshots/kb-20260825T060000Z.db.zst"}, "snapshots/kb-20260825T060000Z.db.zst"},
		{
			"unordered",
			[]string{
				"snapshots/kb-20260825T120000Z.db.zst",
				"snapshots/kb-20260825T180000Z.db.zst",
				"snapshots/kb-20260825T060000Z.db.zst",
			},
			"snapshots/kb-20260825T180000Z.db.zst",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, newestKey(tt.keys))
		})
	}
}

func TestStaleKeys(t *testing.T) {
	t.Parallel()

	keys := []string{
		"snapshots/kb-20260825T180000Z.db.zst",
		"snapshots/kb-20260825T060000Z.db.zst",
		"snapshots/kb-20260825T120000Z.db.zst",
		"snapshots/kb-20260824T060000Z.db.zst",
	}

	tests := []struct {
		name string
		keep int
		want []string
	}{
		{"keep more than available", 10, nil},
		{"keep exactly available", 4, nil},
		{
			"keep two",
			2,
			[]string{
				"snapshots/kb-20260824T060000Z.db.zst",
				"snapshots/kb-20260825T060000Z.db.zst",
			},
		},
		{
			"keep zero removes everything",
			0,
			[]string{
				"snapshots/kb-20260824T060000Z.db.zst",
				"snapshots/kb-20260825T060000Z.db.zst",
				"snapshots/kb-20260825T120000Z.db.zst",
				"snapshots/kb-20260825T180000Z.db.zst",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, staleKeys(keys, tt.keep))
		})
	}
}

func TestStaleKeys_NegativeKeep(t *testing.T) {
	t.Parallel()

	keys := []string{"snapshots/kb-20260825T060000Z.db.zst"}
	assert.Equal(t, keys, staleKeys(keys, -1))
}

func TestStaleKeys_DoesNotMutateInput(t *testing.T) {
	t.Parallel()

	keys := []string{
		"snapshots/kb-20260825T180000Z.db.zst",
		"snapshots/kb-20260825T060000Z.db.zst",
	}
	_ = staleKeys(keys, 1)

	assert.Equal(t, "snapshots/kb-20260825T180000Z.db.zst", keys[0], "caller slice must stay unsorted")
}
