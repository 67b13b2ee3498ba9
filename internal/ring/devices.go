package ring

import (
	"context"
	"fmt"
	"strconv"
	"time"
)

// Event kinds reported in device history.
const (
	KindDing     = "ding"
	KindMotion   = "motion"
	KindOnDemand = "on_demand"
)

// RecordingReady is the recording status that means the clip can be
// downloaded.
const RecordingReady = "ready"

// Device is a registered doorbell or camera.
type Device struct {
	ID          int64  `json:"id"`
	Description string `json:"description"`
	Kind        string `json:"kind"`

	// Doorbell is true for doorbots, false for stickup cams.
	Doorbell bool `json:"-"`
}

// Name returns the display name shown in the Ring app.
func (d Device) Name() string {
	return d.Description
}

// Event is one entry of a device's history. Immutable once observed;
// IDs increase monotonically per account.
type Event struct {
	ID        int64     `json:"id"`
	Kind      string    `json:"kind"`
	CreatedAt time.Time `json:"created_at"`
	Answered  bool      `json:"answered"`
	Recording struct {
		Status string `json:"status"`
	} `json:"recording"`
}

type deviceListResponse struct {
	Doorbots    []Device `json:"doorbots"`
	StickupCams []Device `json:"stickup_cams"`
}

// Devices enumerates the account's doorbells and cameras. The list is
// fetched fresh on every call; nothing is cached.
func (c *Client) Devices(ctx context.Context) ([]Device, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	var out deviceListResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/clients_api/ring_devices")
	if err != nil {
		return nil, fmt.Errorf("list devices: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("list devices: status %d: %s", resp.StatusCode(), resp.String())
	}

	devices := make([]Device, 0, len(out.Doorbots)+len(out.StickupCams))
	for _, d := range out.Doorbots {
		d.Doorbell = true
		devices = append(devices, d)
	}
	devices = append(devices, out.StickupCams...)
	return devices, nil
}

// History fetches the device's most recent events, newest first.
func (c *Client) History(ctx context.Context, deviceID int64, limit int) ([]Event, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	var events []Event
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("limit", strconv.Itoa(limit)).
		SetResult(&events).
		Get(fmt.Sprintf("/clients_api/doorbots/%d/history", deviceID))
	if err != nil {
		return nil, fmt.Errorf("history for device %d: %w", deviceID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("history for device %d: status %d: %s", deviceID, resp.StatusCode(), resp.String())
	}
	return events, nil
}

type recordingResponse struct {
	URL string `json:"url"`
}

// RecordingURL resolves the pre-signed download URL for an event's clip.
func (c *Client) RecordingURL(ctx context.Context, eventID int64) (string, error) {
	if err := c.ensureToken(ctx); err != nil {
		return "", err
	}

	var out recordingResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("disable_redirect", "true").
		SetResult(&out).
		Get(fmt.Sprintf("/clients_api/dings/%d/recording", eventID))
	if err != nil {
		return "", fmt.Errorf("recording url for event %d: %w", eventID, err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("recording url for event %d: status %d: %s", eventID, resp.StatusCode(), resp.String())
	}
	if out.URL == "" {
		return "", fmt.Errorf("no recording url for event %d", eventID)
	}
	return out.URL, nil
}

// Snapshot fetches the device's latest still image as JPEG bytes.
func (c *Client) Snapshot(ctx context.Context, deviceID int64) ([]byte, error) {
	if err := c.ensureToken(ctx); err != nil {
		return nil, err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		Get(fmt.Sprintf("/clients_api/snapshots/image/%d", deviceID))
	if err != nil {
		return nil, fmt.Errorf("snapshot for device %d: %w", deviceID, err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("snapshot for device %d: status %d", deviceID, resp.StatusCode())
	}
	if len(resp.Body()) == 0 {
		return nil, fmt.Errorf("snapshot for device %d: empty body", deviceID)
	}
	return resp.Body(), nil
}
