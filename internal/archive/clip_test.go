package archive_test

import (
	"testing"
	"time"

	"github.com/ypk/ringwatch/internal/archive"
)

func TestParseClipName(t *testing.T) {
	clip, ok := archive.ParseClipName("20240115_143000_Front_Door_motion_abc123.mp4")
	if !ok {
		t.Fatal("expected filename to parse")
	}
	if clip.Device != "Front Door" {
		t.Errorf("device = %q, want %q", clip.Device, "Front Door")
	}
	if clip.Kind != "Motion" {
		t.Errorf("kind = %q, want %q", clip.Kind, "Motion")
	}
	if clip.Date != "01/15/2024" {
		t.Errorf("date = %q, want %q", clip.Date, "01/15/2024")
	}
	if clip.Time != "14:30:00" {
		t.Errorf("time = %q, want %q", clip.Time, "14:30:00")
	}
	if clip.EventID != "abc123" {
		t.Errorf("event id = %q, want %q", clip.EventID, "abc123")
	}
}

func TestParseClipNameSingleWordDevice(t *testing.T) {
	clip, ok := archive.ParseClipName("20240301_090501_Garage_ding_7.mp4")
	if !ok {
		t.Fatal("expected filename to parse")
	}
	if clip.Device != "Garage" {
		t.Errorf("device = %q, want %q", clip.Device, "Garage")
	}
	if clip.Kind != "Ding" {
		t.Errorf("kind = %q, want %q", clip.Kind, "Ding")
	}
	if clip.Time != "09:05:01" {
		t.Errorf("time = %q, want %q", clip.Time, "09:05:01")
	}
}

func TestParseClipNameRejectsMalformed(t *testing.T) {
	bad := []string{
		"",
		"notavideo.txt",
		"20240115_143000_Front_Door_motion_abc123.avi",
		"justaname.mp4",
		"20240115_143000_x.mp4",               // too few segments
		"2024x115_143000_Door_motion_1.mp4",   // non-digit date
		"20240115_14300_Door_motion_1.mp4",    // short time
		"20240115_143000_snapshot.jpg",        // snapshot sidecar
	}
	for _, name := range bad {
		if _, ok := archive.ParseClipName(name); ok {
			t.Errorf("ParseClipName(%q) parsed, want rejection", name)
		}
	}
}

func TestClipNameRoundTrip(t *testing.T) {
	at := time.Date(2024, 1, 15, 14, 30, 0, 0, time.UTC)
	name := archive.ClipName(at, "Front Door", "motion", 987654)

	if name != "20240115_143000_Front_Door_motion_987654.mp4" {
		t.Fatalf("ClipName = %q", name)
	}

	clip, ok := archive.ParseClipName(name)
	if !ok {
		t.Fatal("generated name must parse")
	}
	if clip.Device != "Front Door" || clip.Kind != "Motion" || clip.EventID != "987654" {
		t.Errorf("round trip mismatch: %+v", clip)
	}
}

func TestClipNameSanitizesDeviceName(t *testing.T) {
	at := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	name := archive.ClipName(at, "Back/Side Gate", "ding", 1)
	if name != "20240601_080000_Back_Side_Gate_ding_1.mp4" {
		t.Fatalf("ClipName = %q", name)
	}
}
