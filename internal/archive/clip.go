package archive

import (
	"fmt"
	"strings"
	"time"
)

// Clip filenames encode everything the viewer needs:
// {yyyymmdd_hhmmss}_{device}_{kind}_{eventID}.mp4
const nameTimeLayout = "20060102_150405"

// Clip is one archived recording, parsed back from its filename.
type Clip struct {
	Filename string
	Device   string
	Kind     string
	EventID  string
	Date     string // MM/DD/YYYY
	Time     string // HH:MM:SS
	Size     int64
	ModTime  time.Time
}

// ClipName builds the deterministic filename for an event's recording.
func ClipName(at time.Time, deviceName, kind string, eventID int64) string {
	return fmt.Sprintf("%s_%s_%s_%d.mp4",
		at.Format(nameTimeLayout), sanitizeName(deviceName), kind, eventID)
}

// sanitizeName makes a device name safe for use in a filename.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, " ", "_")
	name = strings.ReplaceAll(name, "/", "_")
	return name
}

// ParseClipName recovers device, kind, date and time from a clip filename.
// The second return is false when the name does not follow the convention.
func ParseClipName(filename string) (Clip, bool) {
	base, found := strings.CutSuffix(filename, ".mp4")
	if !found {
		return Clip{}, false
	}

	parts := strings.Split(base, "_")
	if len(parts) < 5 {
		return Clip{}, false
	}

	dateStr, timeStr := parts[0], parts[1]
	if len(dateStr) != 8 || len(timeStr) != 6 || !allDigits(dateStr) || !allDigits(timeStr) {
		return Clip{}, false
	}

	device := strings.Join(parts[2:len(parts)-2], " ")
	kind := parts[len(parts)-2]

	return Clip{
		Filename: filename,
		Device:   device,
		Kind:     capitalize(kind),
		EventID:  parts[len(parts)-1],
		Date:     fmt.Sprintf("%s/%s/%s", dateStr[4:6], dateStr[6:8], dateStr[0:4]),
		Time:     fmt.Sprintf("%s:%s:%s", timeStr[0:2], timeStr[2:4], timeStr[4:6]),
	}, true
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
