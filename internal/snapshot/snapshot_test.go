package snapshot

import (
	"testing"

	"github.com/persistwin/persistwin/internal/topology"
)

func testMonitors() []topology.Monitor {
	return []topology.Monitor{
		{
			Name:     "eDP-1",
			Rect:     topology.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1080},
			WorkArea: topology.Rect{Left: 0, Top: 0, Right: 1920, Bottom: 1050},
			Scale:    1.0,
			Primary:  true,
		},
		{
			Name:     "DP-1",
			Rect:     topology.Rect{Left: 1920, Top: 0, Right: 4480, Bottom: 1440},
			WorkArea: topology.Rect{Left: 1920, Top: 0, Right: 4480, Bottom: 1440},
			Scale:    1.25,
		},
	}
}

func firefox(id uint32, title string, rect topology.Rect) Window {
	return Window{
		ID: id,
		Identity: Identity{
			ProcessPath: "/usr/lib/firefox/firefox",
			Class:       "Navigator",
			Title:       title,
		},
		Rect:  rect,
		State: StateNormal,
	}
}

func TestBuild_AnnotatesOwningMonitor(t *testing.T) {
	windows := []Window{
		firefox(1, "docs", topology.Rect{Left: 100, Top: 200, Right: 900, Bottom: 800}),
		firefox(2, "mail", topology.Rect{Left: 2120, Top: 80, Right: 3000, Bottom: 900}),
	}

	records := Build(windows, testMonitors())
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2", len(records))
	}

	if records[0].Monitor != "eDP-1" || records[0].OffsetX != 100 || records[0].OffsetY != 200 {
		t.Fatalf("laptop record misannotated: %+v", records[0])
	}
	if records[0].Scale != 1.0 {
		t.Fatalf("laptop record scale = %v, want 1.0", records[0].Scale)
	}

	if records[1].Monitor != "DP-1" || records[1].OffsetX != 200 || records[1].OffsetY != 80 {
		t.Fatalf("external record misannotated: %+v", records[1])
	}
	if records[1].Scale != 1.25 {
		t.Fatalf("external record scale = %v, want 1.25", records[1].Scale)
	}
}

func TestBuild_DuplicateIdentityKeepsLastObserved(t *testing.T) {
	first := topology.Rect{Left: 0, Top: 0, Right: 800, Bottom: 600}
	second := topology.Rect{Left: 400, Top: 300, Right: 1200, Bottom: 900}

	windows := []Window{
		firefox(1, "docs", first),
		firefox(2, "docs", second), // same path+class+title
	}

	records := Build(windows, testMonitors())
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1 after duplicate collapse", len(records))
	}
	if records[0].Rect != second {
		t.Fatalf("kept rect %v, want last observed %v", records[0].Rect, second)
	}
}

func TestBuild_DifferentTitlesAreDistinct(t *testing.T) {
	windows := []Window{
		firefox(1, "docs", topology.Rect{Left: 0, Top: 0, Right: 800, Bottom: 600}),
		firefox(2, "mail", topology.Rect{Left: 100, Top: 100, Right: 900, Bottom: 700}),
	}

	records := Build(windows, testMonitors())
	if len(records) != 2 {
		t.Fatalf("got %d records, want 2 distinct identities", len(records))
	}
}

func TestBuild_NoMonitorsStillProducesRecords(t *testing.T) {
	windows := []Window{
		firefox(1, "docs", topology.Rect{Left: 50, Top: 60, Right: 850, Bottom: 660}),
	}

	records := Build(windows, nil)
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
	if records[0].Monitor != "" {
		t.Fatalf("expected no owning monitor, got %q", records[0].Monitor)
	}
	if records[0].Scale != 1.0 {
		t.Fatalf("default scale = %v, want 1.0", records[0].Scale)
	}
}

func TestIdentity_Keys(t *testing.T) {
	a := Identity{ProcessPath: "/usr/bin/kitty", Class: "kitty", Title: "vim"}
	b := Identity{ProcessPath: "/usr/bin/kitty", Class: "kitty", Title: "htop"}

	if a.Key() == b.Key() {
		t.Fatal("full keys must differ when titles differ")
	}
	if a.PairKey() != b.PairKey() {
		t.Fatal("pair keys must ignore the title")
	}
}
