// Package dto provides Data Transfer Objects for API requests and responses.
//
// Request bodies are probed with gjson rather than decoded into structs:
// string fields that arrive with any other JSON type are treated as empty,
// and numeric fields accept either numbers or numeric strings.
package dto

import (
	"math"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/looply/looply/internal/model"
	"github.com/looply/looply/internal/repository"
	"github.com/looply/looply/internal/service"
)

// ParseBody parses a JSON request body. ok is false when body is not valid JSON.
func ParseBody(body []byte) (doc gjson.Result, ok bool) {
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, false
	}
	return gjson.ParseBytes(body), true
}

// String returns the trimmed string at path, or "" for any other type.
func String(doc gjson.Result, path string) string {
	v := doc.Get(path)
	if v.Type != gjson.String {
		return ""
	}
	return strings.TrimSpace(v.Str)
}

// Number returns the finite number at path. Numeric strings are accepted.
func Number(doc gjson.Result, path string) *float64 {
	v := doc.Get(path)
	var n float64
	switch v.Type {
	case gjson.Number:
		n = v.Num
	case gjson.String:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(v.Str), 64)
		if err != nil {
			return nil
		}
		n = parsed
	default:
		return nil
	}
	if math.IsNaN(n) || math.IsInf(n, 0) {
		return nil
	}
	return &n
}

// Details renders an event details value. Strings pass through; other
// truthy values are stored as JSON; missing, null, false, 0 and "" are empty.
func Details(doc gjson.Result, path string) string {
	v := doc.Get(path)
	switch v.Type {
	case gjson.String:
		return v.Str
	case gjson.Null, gjson.False:
		return ""
	case gjson.Number:
		if v.Num == 0 {
			return ""
		}
	}
	return service.EventDetails(v.Value())
}

// RegisterInput decodes POST /api/app/register.
func RegisterInput(doc gjson.Result) service.RegisterInput {
	input := service.RegisterInput{
		Email:      String(doc, "email"),
		TrialStart: Number(doc, "trialStart"),
		TrialDays:  Number(doc, "trialDays"),
	}
	if name := String(doc, "name"); name != "" {
		input.Name = &name
	}
	if plan := String(doc, "plan"); plan != "" {
		input.Plan = &plan
	}
	return input
}

// CreateLeadInput decodes POST /api/app/leads.
func CreateLeadInput(doc gjson.Result) service.CreateLeadInput {
	return service.CreateLeadInput{
		OwnerEmail: String(doc, "ownerEmail"),
		Name:       String(doc, "name"),
		Email:      String(doc, "email"),
		Phone:      String(doc, "phone"),
		Company:    String(doc, "company"),
		Message:    String(doc, "message"),
		Source:     String(doc, "source"),
		Origin:     model.Origin(String(doc, "origin")),
	}
}

// CreateEventInput decodes POST /api/app/leads/{id}/events.
func CreateEventInput(doc gjson.Result, leadID string) service.CreateEventInput {
	return service.CreateEventInput{
		OwnerEmail: String(doc, "ownerEmail"),
		LeadID:     leadID,
		Type:       String(doc, "type"),
		Title:      String(doc, "title"),
		Details:    Details(doc, "details"),
	}
}

// WebhookLeadInput decodes POST /api/webhook/leads.
func WebhookLeadInput(doc gjson.Result) service.WebhookLeadInput {
	return service.WebhookLeadInput{
		Name:    String(doc, "name"),
		Email:   String(doc, "email"),
		Phone:   String(doc, "phone"),
		Company: String(doc, "company"),
		Message: String(doc, "message"),
		Source:  String(doc, "source"),
	}
}

// ErrorResponse is the failure envelope.
type ErrorResponse struct {
	OK        bool              `json:"ok"`
	Error     string            `json:"error,omitempty"`
	Message   string            `json:"message,omitempty"`
	Errors    map[string]string `json:"errors,omitempty"`
	RequestID string            `json:"requestId,omitempty"`
}

// OKResponse is the bare success envelope.
type OKResponse struct {
	OK bool `json:"ok"`
}

// LeadResponse wraps a single lead.
type LeadResponse struct {
	OK   bool        `json:"ok"`
	Lead *model.Lead `json:"lead"`
}

// EventResponse wraps a single timeline event.
type EventResponse struct {
	OK    bool                 `json:"ok"`
	Event *model.TimelineEvent `json:"event"`
}

// ListResponse is one page of items with the offset of the next page.
type ListResponse[T any] struct {
	OK         bool   `json:"ok"`
	Items      []T    `json:"items"`
	NextCursor *int64 `json:"nextCursor"`
}

// ToListResponse converts a repository page.
func ToListResponse[T any](page repository.Page[T]) ListResponse[T] {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	return ListResponse[T]{OK: true, Items: items, NextCursor: page.NextCursor}
}

// APIKeyListResponse lists active keys.
type APIKeyListResponse struct {
	OK    bool                  `json:"ok"`
	Items []model.APIKeySummary `json:"items"`
}

// APIKeyCreateResponse carries the plaintext key, shown only once.
type APIKeyCreateResponse struct {
	OK bool `json:"ok"`
	model.CreatedAPIKey
}

// WebhookLeadResponse acknowledges an ingested lead.
type WebhookLeadResponse struct {
	OK        bool   `json:"ok"`
	RequestID string `json:"requestId"`
	LeadID    string `json:"leadId"`
}
