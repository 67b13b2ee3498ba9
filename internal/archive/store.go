// Package archive stores downloaded recordings under a size quota and
// lists them for the viewer. Filenames are the only index; nothing else
// is persisted.
package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	gib = 1 << 30

	// evictionTarget is the fraction of the quota cleanup shrinks usage
	// to, leaving headroom so back-to-back downloads don't thrash the
	// boundary.
	evictionTarget = 0.9

	downloadChunkSize = 8192
)

// ErrOutsideArchive is returned by Resolve for names that would escape
// the archive directory.
var ErrOutsideArchive = errors.New("archive: name resolves outside archive directory")

// Stats summarizes the archive directory contents.
type Stats struct {
	Count      int
	TotalBytes int64
	Oldest     time.Time
	Newest     time.Time
}

// Store is the archive directory plus its quota. The monitor process
// writes through it; the viewer process only reads.
type Store struct {
	root     string
	maxBytes int64
	http     *resty.Client
}

// NewStore creates the archive directory if needed. maxStorageGB bounds
// the total size of everything under it.
func NewStore(root string, maxStorageGB float64) (*Store, error) {
	if err := os.MkdirAll(root, 0755); err != nil {
		return nil, fmt.Errorf("create archive dir: %w", err)
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Store{
		root:     abs,
		maxBytes: int64(maxStorageGB * gib),
		http:     resty.New().SetTimeout(5 * time.Minute),
	}, nil
}

// Root returns the absolute archive directory path.
func (s *Store) Root() string {
	return s.root
}

// MaxBytes returns the configured quota in bytes.
func (s *Store) MaxBytes() int64 {
	return s.maxBytes
}

// Usage returns the total size of all files under the archive directory.
func (s *Store) Usage() (int64, error) {
	var total int64
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		total += info.Size()
		return nil
	})
	return total, err
}

// EnforceQuota deletes oldest-by-mtime files until usage is at or below
// 90% of the quota. A no-op while usage is within the quota. Returns the
// number of files removed.
func (s *Store) EnforceQuota() (int, error) {
	usage, err := s.Usage()
	if err != nil {
		return 0, err
	}
	if usage <= s.maxBytes {
		return 0, nil
	}

	slog.Info("archive over quota, evicting oldest files",
		"usage_bytes", usage, "max_bytes", s.maxBytes)

	entries, err := os.ReadDir(s.root)
	if err != nil {
		return 0, err
	}

	type candidate struct {
		path    string
		size    int64
		modTime time.Time
	}
	var files []candidate
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, candidate{
			path:    filepath.Join(s.root, e.Name()),
			size:    info.Size(),
			modTime: info.ModTime(),
		})
	}
	sort.Slice(files, func(i, j int) bool {
		return files[i].modTime.Before(files[j].modTime)
	})

	target := int64(float64(s.maxBytes) * evictionTarget)
	removed := 0
	for _, f := range files {
		if usage <= target {
			break
		}
		if err := os.Remove(f.path); err != nil {
			slog.Warn("archive eviction failed", "file", f.path, "error", err)
			continue
		}
		usage -= f.size
		removed++
		slog.Info("evicted old recording", "file", filepath.Base(f.path), "size_bytes", f.size)
	}
	return removed, nil
}

// SaveClip enforces the quota and then streams the recording at url into
// the archive under the deterministic clip name. Returns the written path.
func (s *Store) SaveClip(ctx context.Context, url, deviceName, kind string, eventID int64, at time.Time) (string, error) {
	if _, err := s.EnforceQuota(); err != nil {
		slog.Warn("quota enforcement failed, downloading anyway", "error", err)
	}

	name := ClipName(at, deviceName, kind, eventID)
	dest := filepath.Join(s.root, name)

	resp, err := s.http.R().
		SetContext(ctx).
		SetDoNotParseResponse(true).
		Get(url)
	if err != nil {
		return "", fmt.Errorf("download recording: %w", err)
	}
	body := resp.RawBody()
	defer body.Close()
	if resp.IsError() {
		return "", fmt.Errorf("download recording: status %d", resp.StatusCode())
	}

	// Write to a .part file first so the viewer never lists a clip that
	// is still streaming in.
	part := dest + ".part"
	f, err := os.Create(part)
	if err != nil {
		return "", fmt.Errorf("create clip file: %w", err)
	}

	buf := make([]byte, downloadChunkSize)
	_, copyErr := io.CopyBuffer(f, body, buf)
	closeErr := f.Close()
	if copyErr != nil || closeErr != nil {
		os.Remove(part)
		if copyErr != nil {
			return "", fmt.Errorf("write clip: %w", copyErr)
		}
		return "", fmt.Errorf("write clip: %w", closeErr)
	}

	if err := os.Rename(part, dest); err != nil {
		os.Remove(part)
		return "", fmt.Errorf("finalize clip: %w", err)
	}
	return dest, nil
}

// SaveSnapshot writes a JPEG still next to the clips.
func (s *Store) SaveSnapshot(deviceName string, at time.Time, data []byte) (string, error) {
	name := fmt.Sprintf("%s_%s_snapshot.jpg", at.Format(nameTimeLayout), sanitizeName(deviceName))
	dest := filepath.Join(s.root, name)
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return "", fmt.Errorf("write snapshot: %w", err)
	}
	return dest, nil
}

// Resolve validates a clip name from an untrusted source and returns its
// absolute path inside the archive, or ErrOutsideArchive.
func (s *Store) Resolve(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.Contains(name, "..") {
		return "", ErrOutsideArchive
	}
	path := filepath.Join(s.root, name)
	rel, err := filepath.Rel(s.root, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", ErrOutsideArchive
	}
	info, err := os.Stat(path)
	if err != nil {
		return "", err
	}
	if !info.Mode().IsRegular() {
		return "", ErrOutsideArchive
	}
	return path, nil
}

// List returns the archived clips newest-first plus aggregate stats.
func (s *Store) List() ([]Clip, Stats, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, Stats{}, err
	}

	var clips []Clip
	var stats Stats
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".mp4") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}

		clip, ok := ParseClipName(e.Name())
		if !ok {
			clip = Clip{Filename: e.Name(), Device: "Unknown", Kind: "Unknown", Date: "Unknown", Time: "Unknown"}
		}
		clip.Size = info.Size()
		clip.ModTime = info.ModTime()
		clips = append(clips, clip)

		stats.Count++
		stats.TotalBytes += info.Size()
		if stats.Oldest.IsZero() || info.ModTime().Before(stats.Oldest) {
			stats.Oldest = info.ModTime()
		}
		if info.ModTime().After(stats.Newest) {
			stats.Newest = info.ModTime()
		}
	}

	// Filenames start with the timestamp, so lexical descending order is
	// newest-first.
	sort.Slice(clips, func(i, j int) bool {
		return clips[i].Filename > clips[j].Filename
	})
	return clips, stats, nil
}
