// Package monitor runs the polling loop: it compares each device's event
// history against the last-seen event ID, notifies on anything new, and
// hands recordings to the archive.
package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ypk/ringwatch/internal/archive"
	"github.com/ypk/ringwatch/internal/notify"
	"github.com/ypk/ringwatch/internal/ring"
)

// DeviceAPI is the slice of the ring client the monitor needs.
type DeviceAPI interface {
	Devices(ctx context.Context) ([]ring.Device, error)
	History(ctx context.Context, deviceID int64, limit int) ([]ring.Event, error)
	RecordingURL(ctx context.Context, eventID int64) (string, error)
	Snapshot(ctx context.Context, deviceID int64) ([]byte, error)
}

type Options struct {
	Interval     time.Duration
	HistoryLimit int

	// ReadyWait is the single best-effort delay before checking whether a
	// recording finished processing. No retry is scheduled after it.
	ReadyWait time.Duration

	// DisconnectThreshold is the number of consecutive failed cycles that
	// flips the connection state to down.
	DisconnectThreshold int

	// StatsEvery logs archive statistics every N successful cycles when
	// archiving is enabled. Zero disables the stats line.
	StatsEvery int
}

// Monitor owns all polling state. The last-seen map and the
// connection-health counters are in-memory only; a restart re-reads the
// boundary from current history.
type Monitor struct {
	api      DeviceAPI
	notifier notify.Notifier
	store    *archive.Store // nil when video downloads are disabled
	opts     Options

	lastSeen        map[int64]int64
	consecutiveErrs int
	connected       bool
	downSince       time.Time
	cycles          int
}

func New(api DeviceAPI, notifier notify.Notifier, store *archive.Store, opts Options) *Monitor {
	if opts.Interval <= 0 {
		opts.Interval = 10 * time.Second
	}
	if opts.HistoryLimit <= 0 {
		opts.HistoryLimit = 5
	}
	if opts.DisconnectThreshold <= 0 {
		opts.DisconnectThreshold = 3
	}
	if opts.StatsEvery == 0 {
		opts.StatsEvery = 100
	}
	return &Monitor{
		api:       api,
		notifier:  notifier,
		store:     store,
		opts:      opts,
		lastSeen:  make(map[int64]int64),
		connected: true,
	}
}

// Run blocks until ctx is cancelled. It initializes last-seen tracking
// from current history (so pre-existing events are never notified), sends
// a started notification, polls every interval, and sends a stopped
// notification on the way out.
func (m *Monitor) Run(ctx context.Context) error {
	if err := m.initTracking(ctx); err != nil {
		return fmt.Errorf("initialize event tracking: %w", err)
	}

	m.send(ctx, m.startedMessage())
	slog.Info("monitor running",
		"interval", m.opts.Interval,
		"history_limit", m.opts.HistoryLimit,
		"video_downloads", m.store != nil)

	ticker := time.NewTicker(m.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			// Parent context is gone; give the final send its own deadline.
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			m.send(stopCtx, m.stoppedMessage())
			slog.Info("monitor stopped")
			return nil
		case <-ticker.C:
			m.tick(ctx)
		}
	}
}

func (m *Monitor) initTracking(ctx context.Context) error {
	devices, err := m.api.Devices(ctx)
	if err != nil {
		return err
	}
	for _, d := range devices {
		events, err := m.api.History(ctx, d.ID, 1)
		if err != nil {
			return fmt.Errorf("history for %q: %w", d.Name(), err)
		}
		if len(events) > 0 {
			m.lastSeen[d.ID] = events[0].ID
			slog.Info("tracking device", "device", d.Name(), "last_event_id", events[0].ID)
		} else {
			slog.Info("tracking device", "device", d.Name(), "last_event_id", "none")
		}
	}
	return nil
}

// tick runs one polling cycle and the connection-health bookkeeping
// around it. Errors never escape; they only feed the failure counter.
func (m *Monitor) tick(ctx context.Context) {
	if err := m.poll(ctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		m.consecutiveErrs++
		slog.Warn("poll cycle failed", "consecutive_errors", m.consecutiveErrs, "error", err)
		if m.connected && m.consecutiveErrs >= m.opts.DisconnectThreshold {
			m.connected = false
			m.downSince = time.Now()
			slog.Warn("connection lost, will notify when restored")
		}
		return
	}

	if !m.connected {
		now := time.Now()
		downFor := humanDuration(now.Sub(m.downSince))
		slog.Info("connection restored", "downtime", downFor)
		m.send(ctx, notify.Message{
			Title: "Ring Connection Restored",
			Body: fmt.Sprintf(
				"Connection restored at %s\n\nLost connection at: %s\nDowntime: %s\n\nMonitoring resumed. Any events during downtime were not recorded.",
				now.Format("2006-01-02 15:04:05"),
				m.downSince.Format("2006-01-02 15:04:05"),
				downFor),
			Priority: notify.PriorityHigh,
		})
		m.connected = true
		m.downSince = time.Time{}
	}
	m.consecutiveErrs = 0

	m.cycles++
	if m.store != nil && m.opts.StatsEvery > 0 && m.cycles%m.opts.StatsEvery == 0 {
		if _, stats, err := m.store.List(); err == nil {
			slog.Info("archive stats",
				"clips", stats.Count,
				"bytes", stats.TotalBytes,
				"max_bytes", m.store.MaxBytes())
		}
	}
}

func (m *Monitor) poll(ctx context.Context) error {
	devices, err := m.api.Devices(ctx)
	if err != nil {
		return err
	}
	for _, d := range devices {
		events, err := m.api.History(ctx, d.ID, m.opts.HistoryLimit)
		if err != nil {
			return err
		}
		m.checkDevice(ctx, d, events)
	}
	return nil
}

// checkDevice processes the history batch for one device. events arrive
// newest first. Entries strictly newer than the last-seen ID are handled
// oldest first; last-seen always advances to the newest ID in the batch.
func (m *Monitor) checkDevice(ctx context.Context, d ring.Device, events []ring.Event) {
	if len(events) == 0 {
		return
	}
	latest := events[0].ID

	last, seen := m.lastSeen[d.ID]
	if !seen {
		// First observation: record the boundary only, never replay the
		// pre-existing history.
		m.lastSeen[d.ID] = latest
		return
	}
	if latest == last {
		return
	}

	var fresh []ring.Event
	for _, e := range events {
		if e.ID <= last {
			break
		}
		fresh = append(fresh, e)
	}
	for i := len(fresh) - 1; i >= 0; i-- {
		m.processEvent(ctx, d, fresh[i])
	}
	m.lastSeen[d.ID] = latest
}

func (m *Monitor) processEvent(ctx context.Context, d ring.Device, e ring.Event) {
	slog.Info("new event",
		"device", d.Name(), "kind", e.Kind, "event_id", e.ID, "created_at", e.CreatedAt)

	msg := notify.Format(d.Name(), e.Kind, e.CreatedAt)

	if m.store != nil {
		if data, err := m.api.Snapshot(ctx, d.ID); err != nil {
			slog.Debug("snapshot capture failed", "device", d.Name(), "error", err)
		} else if path, err := m.store.SaveSnapshot(d.Name(), e.CreatedAt, data); err != nil {
			slog.Warn("save snapshot", "device", d.Name(), "error", err)
		} else {
			msg.ImagePath = path
		}

		if e.Kind == ring.KindDing || e.Kind == ring.KindMotion {
			if _, ok := m.archiveClip(ctx, d, e); ok {
				msg.Body += "\n\nVideo saved locally"
			}
		}
	}

	m.send(ctx, msg)
}

// archiveClip waits once for the recording to finish processing, then
// downloads it. Not-ready is a skip, not an error; download failures are
// logged and the notification proceeds without video.
func (m *Monitor) archiveClip(ctx context.Context, d ring.Device, e ring.Event) (string, bool) {
	if m.opts.ReadyWait > 0 {
		select {
		case <-ctx.Done():
			return "", false
		case <-time.After(m.opts.ReadyWait):
		}
	}
	if e.Recording.Status != ring.RecordingReady {
		slog.Info("recording not ready, skipping download", "event_id", e.ID, "status", e.Recording.Status)
		return "", false
	}

	url, err := m.api.RecordingURL(ctx, e.ID)
	if err != nil {
		slog.Warn("resolve recording url", "event_id", e.ID, "error", err)
		return "", false
	}
	path, err := m.store.SaveClip(ctx, url, d.Name(), e.Kind, e.ID, e.CreatedAt)
	if err != nil {
		slog.Warn("download recording", "event_id", e.ID, "error", err)
		return "", false
	}
	slog.Info("recording saved", "event_id", e.ID, "path", path)
	return path, true
}

func (m *Monitor) send(ctx context.Context, msg notify.Message) {
	if err := m.notifier.Send(ctx, msg); err != nil {
		slog.Error("notification delivery failed", "title", msg.Title, "error", err)
	}
}

func (m *Monitor) startedMessage() notify.Message {
	body := "Ring monitor is now active and watching your devices."
	if m.store != nil {
		body += "\n\nVideo recording enabled"
	}
	return notify.Message{Title: "Ring Monitor Started", Body: body, Priority: notify.PriorityNormal}
}

func (m *Monitor) stoppedMessage() notify.Message {
	body := "Ring monitor has been stopped."
	if m.store != nil {
		if _, stats, err := m.store.List(); err == nil {
			body += fmt.Sprintf("\n\nVideos: %d | Storage: %.2fGB / %.2fGB",
				stats.Count,
				float64(stats.TotalBytes)/(1<<30),
				float64(m.store.MaxBytes())/(1<<30))
		}
	}
	return notify.Message{Title: "Ring Monitor Stopped", Body: body, Priority: notify.PriorityLow}
}

// humanDuration renders a downtime span the way a person would say it.
func humanDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	seconds := int(d.Seconds()) % 60
	if minutes > 0 {
		return fmt.Sprintf("%d %s and %d %s",
			minutes, plural("minute", minutes), seconds, plural("second", seconds))
	}
	return fmt.Sprintf("%d %s", seconds, plural("second", seconds))
}

func plural(unit string, n int) string {
	if n == 1 {
		return unit
	}
	return unit + "s"
}
