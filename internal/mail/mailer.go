// mailer.go

package mail

import (
	"context"
	"log/slog"

	"github.com/communityshare/server/internal/config"
)

// Message is one outbound email.
type Message struct {
	To      string
	Subject string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// New selects the mailer implementation from config. Unknown types fall
// back to the dummy mailer so a misconfigured environment degrades to
// logging instead of failing requests.
func New(cfg config.MailConfig, logger *slog.Logger) Mailer {
	switch cfg.Type {
	case "mailgun":
		return NewMailgun(cfg)
	default:
		return NewDummy(cfg, logger)
	}
}

type Dummy struct {
	from   string
	logger *slog.Logger
}

func NewDummy(cfg config.MailConfig, logger *slog.Logger) *Dummy {
	return &Dummy{from: cfg.FromAddress, logger: logger}
}

func (d *Dummy) Send(_ context.Context, msg Message) error {
	d.logger.Info("mail (dummy)",
		"from", d.from,
		"to", msg.To,
		"subject", msg.Subject,
		"text", msg.Text,
	)
	return nil
}
