package topology

import "testing"

func twoMonitorSetup() []Monitor {
	return []Monitor{laptopScreen(), externalScreen()}
}

func TestRect_Dimensions(t *testing.T) {
	r := Rect{Left: 100, Top: 50, Right: 900, Bottom: 650}
	if r.Width() != 800 {
		t.Fatalf("Width() = %d, want 800", r.Width())
	}
	if r.Height() != 600 {
		t.Fatalf("Height() = %d, want 600", r.Height())
	}
	if got := r.String(); got != "800x600+100+50" {
		t.Fatalf("String() = %q", got)
	}
}

func TestRect_Intersects(t *testing.T) {
	a := Rect{Left: 0, Top: 0, Right: 100, Bottom: 100}
	cases := []struct {
		name string
		b    Rect
		want bool
	}{
		{"overlapping", Rect{Left: 50, Top: 50, Right: 150, Bottom: 150}, true},
		{"contained", Rect{Left: 10, Top: 10, Right: 20, Bottom: 20}, true},
		{"touching edge", Rect{Left: 100, Top: 0, Right: 200, Bottom: 100}, false},
		{"disjoint", Rect{Left: 500, Top: 500, Right: 600, Bottom: 600}, false},
	}
	for _, tc := range cases {
		if got := a.Intersects(tc.b); got != tc.want {
			t.Errorf("%s: Intersects = %v, want %v", tc.name, got, tc.want)
		}
	}
}

func TestMonitorAt(t *testing.T) {
	monitors := twoMonitorSetup()

	if m := MonitorAt(monitors, 500, 500); m == nil || m.Name != "eDP-1" {
		t.Fatalf("expected eDP-1 at (500,500), got %+v", m)
	}
	if m := MonitorAt(monitors, 3000, 700); m == nil || m.Name != "DP-1" {
		t.Fatalf("expected DP-1 at (3000,700), got %+v", m)
	}
	if m := MonitorAt(monitors, -100, -100); m != nil {
		t.Fatalf("expected nil outside every monitor, got %+v", m)
	}
}

func TestMonitorFor_CenterWins(t *testing.T) {
	monitors := twoMonitorSetup()

	// Center on the external monitor even though the rect starts on the laptop.
	r := Rect{Left: 1800, Top: 100, Right: 2600, Bottom: 700}
	if m := MonitorFor(monitors, r); m == nil || m.Name != "DP-1" {
		t.Fatalf("expected DP-1 to own center-spanning rect, got %+v", m)
	}
}

func TestMonitorFor_OffscreenFallsBackToOverlap(t *testing.T) {
	monitors := twoMonitorSetup()

	// Center is off-screen but the rect still overlaps the laptop.
	r := Rect{Left: -700, Top: 100, Right: 100, Bottom: 400}
	if m := MonitorFor(monitors, r); m == nil || m.Name != "eDP-1" {
		t.Fatalf("expected overlap fallback to eDP-1, got %+v", m)
	}
}

func TestMonitorFor_FullyOffscreenUsesPrimary(t *testing.T) {
	monitors := twoMonitorSetup()

	r := Rect{Left: -5000, Top: -5000, Right: -4000, Bottom: -4500}
	if m := MonitorFor(monitors, r); m == nil || !m.Primary {
		t.Fatalf("expected primary for fully off-screen rect, got %+v", m)
	}
}

func TestMonitorFor_EmptySet(t *testing.T) {
	if m := MonitorFor(nil, Rect{Right: 10, Bottom: 10}); m != nil {
		t.Fatalf("expected nil for empty monitor set, got %+v", m)
	}
}

func TestCapture_BundlesFingerprint(t *testing.T) {
	monitors := twoMonitorSetup()
	snap, err := Capture(monitors)
	if err != nil {
		t.Fatalf("Capture: %v", err)
	}
	if snap.Fingerprint.IsZero() {
		t.Fatal("Capture returned zero fingerprint")
	}
	if len(snap.Monitors) != 2 {
		t.Fatalf("Capture kept %d monitors, want 2", len(snap.Monitors))
	}
}
