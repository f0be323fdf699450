// mailgun.go

package mail

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/communityshare/server/internal/config"
)

const mailgunAPIBase = "https://api.mailgun.net/v3"

type Mailgun struct {
	client  *http.Client
	domain  string
	apiKey  string
	from    string
	baseURL string
}

func NewMailgun(cfg config.MailConfig) *Mailgun {
	return &Mailgun{
		client:  &http.Client{Timeout: 10 * time.Second},
		domain:  cfg.MailgunDomain,
		apiKey:  cfg.MailgunAPIKey,
		from:    cfg.FromAddress,
		baseURL: mailgunAPIBase,
	}
}

func (m *Mailgun) Send(ctx context.Context, msg Message) error {
	form := url.Values{}
	form.Set("from", m.from)
	form.Set("to", msg.To)
	form.Set("subject", msg.Subject)
	form.Set("text", msg.Text)

	endpoint := fmt.Sprintf("%s/%s/messages", m.baseURL, m.domain)

	req, err := http.NewRequestWithContext(
		ctx,
		http.MethodPost,
		endpoint,
		strings.NewReader(form.Encode()),
	)
	if err != nil {
		return fmt.Errorf("build mailgun request: %w", err)
	}

	req.SetBasicAuth("api", m.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf(
			"mailgun responded %d: %s", resp.StatusCode, string(body),
		)
	}

	return nil
}
