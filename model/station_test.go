package model

import "testing"

func TestFindStation(t *testing.T) {
	s, ok := FindStation(DefaultStations, "CliqHop")
	if !ok {
		t.Fatal("expected cliqhop to be found")
	}
	if s.Name != "Cliqhop" {
		t.Errorf("unexpected station name %q", s.Name)
	}

	if _, ok := FindStation(DefaultStations, "nope"); ok {
		t.Error("unknown station should not be found")
	}
}

func TestStationIndex(t *testing.T) {
	if idx := StationIndex(DefaultStations, "groovesalad"); idx != 0 {
		t.Errorf("expected index 0, got %d", idx)
	}
	if idx := StationIndex(DefaultStations, "missing"); idx != -1 {
		t.Errorf("expected -1, got %d", idx)
	}
}

func TestInitialStation(t *testing.T) {
	tests := []struct {
		name      string
		stations  []Station
		preferred string
		wantID    string
		wantOK    bool
	}{
		{"preferred exists", DefaultStations, "defcon", "defcon", true},
		{"falls back to default", DefaultStations, "gone", DefaultStationID, true},
		{"falls back to first", []Station{{ID: "a"}, {ID: "b"}}, "x", "a", true},
		{"empty catalog", nil, "x", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, ok := InitialStation(tt.stations, tt.preferred)
			if ok != tt.wantOK {
				t.Fatalf("ok: want %v, got %v", tt.wantOK, ok)
			}
			if s.ID != tt.wantID {
				t.Errorf("id: want %q, got %q", tt.wantID, s.ID)
			}
		})
	}
}

func TestTrackString(t *testing.T) {
	if got := (Track{Title: "T1", Artist: "A1"}).String(); got != "T1 - A1" {
		t.Errorf("unexpected %q", got)
	}
	if got := (Track{}).String(); got != "Unknown Track - Unknown Artist" {
		t.Errorf("unexpected %q", got)
	}
}
