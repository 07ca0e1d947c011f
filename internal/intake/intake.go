// Package intake handles demo requests from the public marketing site:
// bot filtering, field validation and delivery to the sales inbox.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/looply/looply/internal/mail"
	"github.com/looply/looply/internal/metrics"
	"github.com/looply/looply/internal/validate"
)

// Errors returned by Submit.
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrMisconfigured  = errors.New("lead delivery is not configured")
	ErrSendFailed     = errors.New("lead delivery failed")
)

// Form is a normalized demo request.
type Form struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Message string
	Website string // honeypot, left empty by humans
	// StartedAt is when the form was rendered (unix ms); zero when not sent.
	StartedAt int64
}

// ParseForm reads a JSON request body. Fields that are not strings are
// treated as empty; only malformed JSON is an error.
func ParseForm(body []byte) (Form, error) {
	if !gjson.ValidBytes(body) {
		return Form{}, ErrInvalidRequest
	}
	doc := gjson.ParseBytes(body)

	form := Form{
		Name:    str(doc, "name"),
		Email:   validate.Email(str(doc, "email")),
		Phone:   str(doc, "phone"),
		Company: str(doc, "company"),
		Message: str(doc, "message"),
		Website: str(doc, "website"),
	}
	if started := doc.Get("startedAt"); started.Type == gjson.Number {
		form.StartedAt = started.Int()
	}
	return form, nil
}

func str(doc gjson.Result, field string) string {
	v := doc.Get(field)
	if v.Type != gjson.String {
		return ""
	}
	return validate.Text(v.Str)
}

// FieldErrors maps form fields to user facing messages.
type FieldErrors map[string]string

// Validate checks the form fields.
func Validate(f Form) FieldErrors {
	errs := FieldErrors{}

	if !validate.IsName(f.Name) {
		errs["name"] = "Name must be at least 2 characters."
	}
	switch {
	case !validate.IsEmail(f.Email):
		errs["email"] = "Please enter a valid email address."
	case validate.IsDisposableEmail(f.Email):
		errs["email"] = "Please use a work email address."
	}
	if utf8.RuneCountInString(f.Message) < validate.MinMessageLength {
		errs["message"] = "Message must be at least 5 characters."
	}
	if utf8.RuneCountInString(f.Phone) > validate.MaxPhoneLength {
		errs["phone"] = "Phone looks too long."
	}
	if utf8.RuneCountInString(f.Company) > validate.MaxCompanyLength {
		errs["company"] = "Company looks too long."
	}

	if len(errs) == 0 {
		return nil
	}
	return errs
}

// ValidationError carries per-field messages.
type ValidationError struct {
	Fields FieldErrors
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid demo request: %d field(s)", len(e.Fields))
}

// Config configures a Service.
type Config struct {
	To          string
	From        string
	MinFillTime time.Duration
}

// Service validates demo requests and mails them to the sales inbox.
type Service struct {
	sender  mail.Sender
	cfg     Config
	metrics metrics.Recorder
	logger  *slog.Logger
	now     func() time.Time
}

// NewService creates a Service. sender may be nil when no provider is
// configured; requests then fail with ErrMisconfigured.
func NewService(sender mail.Sender, cfg Config, recorder metrics.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if logger == nil {
		logger = slog.Default()
	}
	cfg.To = strings.TrimSpace(cfg.To)
	cfg.From = strings.TrimSpace(cfg.From)
	return &Service{
		sender:  sender,
		cfg:     cfg,
		metrics: recorder,
		logger:  logger,
		now:     time.Now,
	}
}

// Configured reports whether a provider, recipient and sender are all set.
func (s *Service) Configured() bool {
	return s.sender != nil && s.cfg.To != "" && s.cfg.From != ""
}

// isBot reports whether the honeypot was filled or the form was submitted
// faster than a person could type it.
func (s *Service) isBot(f Form) (bool, string) {
	if f.Website != "" {
		return true, "honeypot"
	}
	if f.StartedAt > 0 && s.cfg.MinFillTime > 0 {
		elapsed := s.now().Sub(time.UnixMilli(f.StartedAt))
		if elapsed < s.cfg.MinFillTime {
			return true, "too_fast"
		}
	}
	return false, ""
}

// Submit filters, validates and delivers a demo request. Bot submissions
// return nil without sending anything.
func (s *Service) Submit(ctx context.Context, f Form, ip, requestID string) error {
	if bot, reason := s.isBot(f); bot {
		s.metrics.IncIntake(metrics.IntakeHoneypot)
		s.logger.Info("demo request dropped",
			slog.String("request_id", requestID),
			slog.String("reason", reason),
		)
		return nil
	}

	if fields := Validate(f); fields != nil {
		s.metrics.IncIntake(metrics.IntakeInvalid)
		return &ValidationError{Fields: fields}
	}

	if !s.Configured() {
		provider := "unset"
		if s.sender != nil {
			provider = s.sender.Provider()
		}
		s.logger.Error("demo request delivery misconfigured",
			slog.String("request_id", requestID),
			slog.String("provider", provider),
		)
		s.metrics.IncIntake(metrics.IntakeFailed)
		return ErrMisconfigured
	}

	msg := mail.Message{
		From:    s.cfg.From,
		To:      s.cfg.To,
		ReplyTo: f.Email,
		Subject: "Looply demo request — " + f.Name,
		Text:    Body(f, ip),
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.logger.Error("demo request send failed",
			slog.String("request_id", requestID),
			slog.String("provider", s.sender.Provider()),
			slog.String("error", err.Error()),
		)
		s.metrics.IncIntake(metrics.IntakeFailed)
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	s.metrics.IncIntake(metrics.IntakeSent)
	return nil
}

// Body renders the notification text.
func Body(f Form, ip string) string {
	var b strings.Builder
	b.WriteString("New demo request\n\n")
	b.WriteString("Name: " + f.Name + "\n")
	b.WriteString("Email: " + f.Email + "\n")
	b.WriteString("Phone: " + orDash(f.Phone) + "\n")
	b.WriteString("Company: " + orDash(f.Company) + "\n")
	b.WriteString("IP: " + ip + "\n\n")
	b.WriteString("Message:\n" + f.Message + "\n")
	return b.String()
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
