package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/persistwin/persistwin/internal/snapshot"
	"github.com/persistwin/persistwin/internal/topology"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "layouts.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testMonitors() []topology.Monitor {
	return []topology.Monitor{
		{
			Name:    "eDP-1",
			Rect:    topology.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080},
			Scale:   1.0,
			Primary: true,
		},
		{
			Name:  "DP-1",
			Rect:  topology.Rect{Left: 1920, Top: 0, Right: 4480, Bottom: 1440},
			Scale: 1.25,
		},
	}
}

func testRecords() []snapshot.Record {
	return []snapshot.Record{
		{
			Identity: snapshot.Identity{
				ProcessPath: "/usr/bin/kitty",
				Class:       "kitty",
				Title:       "vim",
			},
			Rect:    topology.Rect{Left: 100, Top: 50, Right: 900, Bottom: 650},
			State:   snapshot.StateNormal,
			Monitor: "eDP-1",
			OffsetX: 100,
			OffsetY: 50,
			Scale:   1.0,
		},
		{
			Identity: snapshot.Identity{
				ProcessPath: "/usr/lib/firefox/firefox",
				Class:       "Navigator",
				Title:       "docs",
			},
			Rect:    topology.Rect{Left: 2120, Top: 80, Right: 3400, Bottom: 1100},
			State:   snapshot.StateMaximized,
			Monitor: "DP-1",
			OffsetX: 200,
			OffsetY: 80,
			Scale:   1.25,
		},
	}
}

func TestUpsertGetRoundTrip(t *testing.T) {
	s := openTestStore(t)
	fp := topology.Fingerprint("00000000deadbeef")

	require.NoError(t, s.UpsertLayout(fp, testMonitors(), testRecords()))

	got, found, err := s.GetLayout(fp)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 2)

	assert.Equal(t, testRecords(), got)
}

func TestGetLayout_UnknownFingerprint(t *testing.T) {
	s := openTestStore(t)

	got, found, err := s.GetLayout(topology.Fingerprint("ffffffffffffffff"))
	require.NoError(t, err)
	assert.False(t, found)
	assert.Empty(t, got)
}

func TestUpsert_ReplacesWholesale(t *testing.T) {
	s := openTestStore(t)
	fp := topology.Fingerprint("00000000deadbeef")

	require.NoError(t, s.UpsertLayout(fp, testMonitors(), testRecords()))

	// Commit again with only one window; the other record must be gone.
	replacement := testRecords()[:1]
	replacement[0].Rect = topology.Rect{Left: 0, Top: 0, Right: 640, Bottom: 480}
	replacement[0].OffsetX = 0
	replacement[0].OffsetY = 0
	require.NoError(t, s.UpsertLayout(fp, testMonitors(), replacement))

	got, found, err := s.GetLayout(fp)
	require.NoError(t, err)
	require.True(t, found)
	require.Len(t, got, 1)
	assert.Equal(t, replacement[0], got[0])
}

func TestUpsert_EmptyLayoutIsKnown(t *testing.T) {
	s := openTestStore(t)
	fp := topology.Fingerprint("00000000deadbeef")

	require.NoError(t, s.UpsertLayout(fp, testMonitors(), nil))

	got, found, err := s.GetLayout(fp)
	require.NoError(t, err)
	assert.True(t, found, "a committed empty layout is still a known topology")
	assert.Empty(t, got)
}

func TestUpsert_RejectsZeroFingerprint(t *testing.T) {
	s := openTestStore(t)

	err := s.UpsertLayout("", testMonitors(), testRecords())
	assert.Error(t, err)
}

func TestLayoutsAreIndependentPerFingerprint(t *testing.T) {
	s := openTestStore(t)
	fpDocked := topology.Fingerprint("1111111111111111")
	fpUndocked := topology.Fingerprint("2222222222222222")

	require.NoError(t, s.UpsertLayout(fpDocked, testMonitors(), testRecords()))
	require.NoError(t, s.UpsertLayout(fpUndocked, testMonitors()[:1], testRecords()[:1]))

	docked, found, err := s.GetLayout(fpDocked)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, docked, 2)

	undocked, found, err := s.GetLayout(fpUndocked)
	require.NoError(t, err)
	require.True(t, found)
	assert.Len(t, undocked, 1)
}

func TestListLayouts(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertLayout("1111111111111111", testMonitors(), testRecords()))
	require.NoError(t, s.UpsertLayout("2222222222222222", testMonitors()[:1], testRecords()[:1]))

	infos, err := s.ListLayouts()
	require.NoError(t, err)
	require.Len(t, infos, 2)

	byFP := make(map[string]LayoutInfo, len(infos))
	for _, info := range infos {
		byFP[info.Fingerprint] = info
	}
	assert.Equal(t, 2, byFP["1111111111111111"].WindowCount)
	assert.Equal(t, 1, byFP["2222222222222222"].WindowCount)
	assert.NotEmpty(t, byFP["1111111111111111"].Description)
}

func TestPruneLayout(t *testing.T) {
	s := openTestStore(t)
	fp := topology.Fingerprint("00000000deadbeef")

	require.NoError(t, s.UpsertLayout(fp, testMonitors(), testRecords()))

	pruned, err := s.PruneLayout(fp)
	require.NoError(t, err)
	assert.True(t, pruned)

	_, found, err := s.GetLayout(fp)
	require.NoError(t, err)
	assert.False(t, found)

	// Pruning again reports nothing deleted.
	pruned, err = s.PruneLayout(fp)
	require.NoError(t, err)
	assert.False(t, pruned)
}

func TestOtherLayoutsSurvivePrune(t *testing.T) {
	s := openTestStore(t)

	require.NoError(t, s.UpsertLayout("1111111111111111", testMonitors(), testRecords()))
	require.NoError(t, s.UpsertLayout("2222222222222222", testMonitors()[:1], testRecords()[:1]))

	_, err := s.PruneLayout("1111111111111111")
	require.NoError(t, err)

	_, found, err := s.GetLayout("2222222222222222")
	require.NoError(t, err)
	assert.True(t, found)
}
