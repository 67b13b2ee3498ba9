package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const defaultTwilioURL = "https://api.twilio.com"

// Twilio sends alerts as SMS through the Twilio messages API. SMS has no
// titles or attachments, so the title is folded into the body and images
// are dropped.
type Twilio struct {
	accountSID string
	authToken  string
	from       string
	to         string
	url        string
	http       *resty.Client
	limiter    *rate.Limiter
}

// NewTwilio builds a Twilio notifier. url overrides the API base and may
// be empty.
func NewTwilio(accountSID, authToken, from, to, url string) *Twilio {
	if url == "" {
		url = defaultTwilioURL
	}
	return &Twilio{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		to:         to,
		url:        url,
		http:       resty.New().SetTimeout(10 * time.Second),
		limiter:    rate.NewLimiter(1, 2),
	}
}

func (t *Twilio) Send(ctx context.Context, msg Message) error {
	if err := t.limiter.Wait(ctx); err != nil {
		return err
	}

	body := msg.Title
	if msg.Body != "" {
		body += "\n" + msg.Body
	}

	resp, err := t.http.R().
		SetContext(ctx).
		SetBasicAuth(t.accountSID, t.authToken).
		SetFormData(map[string]string{
			"From": t.from,
			"To":   t.to,
			"Body": body,
		}).
		Post(fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.url, t.accountSID))
	if err != nil {
		return fmt.Errorf("twilio: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("twilio: status %d: %s", resp.StatusCode(), resp.String())
	}
	return nil
}
