// Package mail delivers plain-text notification email through Resend or SMTP.
package mail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrNotConfigured means no provider, or the selected provider lacks credentials.
var ErrNotConfigured = errors.New("email provider not configured")

// Message is a single plain-text email.
type Message struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	Text    string
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
	Provider() string
}

// Provider names.
const (
	ProviderResend = "resend"
	ProviderSMTP   = "smtp"
)

// Options selects and configures a provider.
type Options struct {
	Provider string

	ResendAPIKey   string
	ResendEndpoint string

	SMTPHost   string
	SMTPPort   int
	SMTPSecure bool
	SMTPUser   string
	SMTPPass   string

	HTTPClient *http.Client
}

// New returns the Sender for opts.Provider, or ErrNotConfigured when the
// provider is unset, unknown, or missing its credentials.
func New(opts Options) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(opts.Provider)) {
	case ProviderResend:
		if opts.ResendAPIKey == "" {
			return nil, fmt.Errorf("%w: RESEND_API_KEY is empty", ErrNotConfigured)
		}
		return NewResend(opts.ResendAPIKey, opts.ResendEndpoint, opts.HTTPClient), nil
	case ProviderSMTP:
		if opts.SMTPHost == "" {
			return nil, fmt.Errorf("%w: SMTP_HOST is empty", ErrNotConfigured)
		}
		return NewSMTP(SMTPConfig{
			Host:     opts.SMTPHost,
			Port:     opts.SMTPPort,
			Secure:   opts.SMTPSecure,
			Username: opts.SMTPUser,
			Password: opts.SMTPPass,
		}), nil
	case "":
		return nil, fmt.Errorf("%w: EMAIL_PROVIDER is empty", ErrNotConfigured)
	default:
		return nil, fmt.Errorf("%w: unknown EMAIL_PROVIDER %q", ErrNotConfigured, opts.Provider)
	}
}
