package notify

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const defaultPushoverURL = "https://api.pushover.net/1/messages.json"

// Pushover sends push notifications through the Pushover message API.
type Pushover struct {
	userKey  string
	apiToken string
	url      string
	http     *resty.Client
	limiter  *rate.Limiter
}

// NewPushover builds a Pushover notifier. url overrides the API endpoint
// and may be empty.
func NewPushover(userKey, apiToken, url string) *Pushover {
	if url == "" {
		url = defaultPushoverURL
	}
	return &Pushover{
		userKey:  userKey,
		apiToken: apiToken,
		url:      url,
		http:     resty.New().SetTimeout(10 * time.Second),
		// Pushover asks clients to stay at or below ~2 messages per second.
		limiter: rate.NewLimiter(2, 4),
	}
}

func (p *Pushover) Send(ctx context.Context, msg Message) error {
	if err := p.limiter.Wait(ctx); err != nil {
		return err
	}

	req := p.http.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"token":    p.apiToken,
			"user":     p.userKey,
			"title":    msg.Title,
			"message":  msg.Body,
			"priority": strconv.Itoa(msg.Priority),
			"sound":    "pushover",
		})

	if msg.ImagePath != "" {
		if _, err := os.Stat(msg.ImagePath); err == nil {
			req.SetFile("attachment", msg.ImagePath)
		}
	}

	resp, err := req.Post(p.url)
	if err != nil {
		return fmt.Errorf("pushover: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("pushover: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
