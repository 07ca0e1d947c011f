package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/looply/looply/internal/metrics"
	"github.com/looply/looply/internal/model"
	"github.com/looply/looply/internal/repository"
	"github.com/looply/looply/internal/validate"
)

// LeadService handles account, lead and timeline logic.
type LeadService struct {
	repo    *repository.Repository
	metrics metrics.Recorder
	now     func() time.Time
	newID   func() string
}

// NewLeadService creates a new LeadService.
func NewLeadService(repo *repository.Repository, recorder metrics.Recorder) *LeadService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &LeadService{
		repo:    repo,
		metrics: recorder,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

// RegisterInput defines input for registering or updating an account.
// Nil fields keep the stored value.
type RegisterInput struct {
	Email      string
	Name       *string
	Plan       *string
	TrialStart *float64
	TrialDays  *float64
}

// Register creates the user or merges the input over the stored record.
// CreatedAt is set once and never overwritten.
func (s *LeadService) Register(ctx context.Context, input RegisterInput) (*model.User, error) {
	email := validate.Email(input.Email)
	if !validate.IsEmail(email) {
		return nil, ErrInvalidEmail
	}

	existing, err := s.repo.GetUser(ctx, email)
	if err != nil && !errors.Is(err, repository.ErrUserNotFound) {
		return nil, err
	}

	now := s.now().UnixMilli()
	user := &model.User{
		Email:      email,
		Plan:       model.PlanStarter,
		TrialStart: now,
		TrialDays:  model.DefaultTrialDays,
		CreatedAt:  now,
	}
	if existing != nil {
		user.Name = existing.Name
		user.TrialStart = existing.TrialStart
		user.CreatedAt = existing.CreatedAt
		if existing.Plan != "" {
			user.Plan = existing.Plan
		}
		if existing.TrialDays > 0 {
			user.TrialDays = existing.TrialDays
		}
	}

	if input.Name != nil {
		user.Name = validate.Text(*input.Name)
	}
	if input.Plan != nil && validate.Text(*input.Plan) != "" {
		user.Plan = model.ParsePlan(*input.Plan)
	}
	if input.TrialStart != nil {
		user.TrialStart = int64(*input.TrialStart)
	}
	if input.TrialDays != nil && *input.TrialDays > 0 {
		user.TrialDays = *input.TrialDays
	}

	if err := s.repo.SaveUser(ctx, user); err != nil {
		return nil, err
	}

	if existing == nil {
		s.metrics.IncUserRegistered()
	}
	return user, nil
}

// RequireActiveUser returns the owner if they are registered and in trial.
func (s *LeadService) RequireActiveUser(ctx context.Context, ownerEmail string) (*model.User, error) {
	owner := validate.Email(ownerEmail)
	if owner == "" {
		return nil, ErrMissingOwner
	}
	return activeUser(ctx, s.repo, owner, s.now())
}

// ListLeads returns one page of the owner's leads.
func (s *LeadService) ListLeads(ctx context.Context, ownerEmail string, cursor, limit int64) (repository.Page[model.Lead], error) {
	owner := validate.Email(ownerEmail)
	if owner == "" {
		return repository.Page[model.Lead]{}, ErrMissingOwner
	}
	return s.repo.ListLeads(ctx, owner, cursor, limit)
}

// CreateLeadInput defines input for creating a lead from the dashboard.
type CreateLeadInput struct {
	OwnerEmail string
	Name       string
	Email      string
	Phone      string
	Company    string
	Message    string
	Source     string
	Origin     model.Origin
}

// CreateLead validates and stores a lead with its initial timeline.
func (s *LeadService) CreateLead(ctx context.Context, input CreateLeadInput) (*model.Lead, error) {
	owner := validate.Email(input.OwnerEmail)
	if owner == "" {
		return nil, ErrMissingOwner
	}
	name := validate.Text(input.Name)
	if !validate.IsName(name) {
		return nil, ErrInvalidName
	}
	email := validate.Email(input.Email)
	if !validate.IsEmail(email) {
		return nil, ErrInvalidEmail
	}

	now := s.now()
	if _, err := activeUser(ctx, s.repo, owner, now); err != nil {
		return nil, err
	}

	origin := input.Origin
	if origin == "" {
		origin = model.OriginManual
	}

	lead := &model.Lead{
		ID:         s.newID(),
		OwnerEmail: owner,
		Name:       name,
		Email:      email,
		Phone:      validate.Text(input.Phone),
		Company:    validate.Text(input.Company),
		Message:    validate.Text(input.Message),
		Source:     validate.Text(input.Source),
		Status:     model.LeadStatusNew,
		CreatedAt:  now.UnixMilli(),
	}
	if err := s.repo.CreateLead(ctx, lead); err != nil {
		return nil, err
	}

	events := []model.TimelineEvent{{
		Type:    model.EventLeadCreated,
		Title:   "Lead created",
		Details: jsonDetails("origin", string(origin)),
	}}
	if lead.Message != "" {
		events = append(events, model.TimelineEvent{
			Type:    model.EventLeadMessage,
			Title:   "Message captured",
			Details: lead.Message,
		})
	}
	if origin == model.OriginTest {
		events = append(events, model.TimelineEvent{
			Type:    model.EventTestSeeded,
			Title:   "Test lead seeded",
			Details: "{}",
		})
	}
	if err := s.appendEvents(ctx, lead, events); err != nil {
		return nil, err
	}

	s.metrics.IncLeadCreated(string(origin))

	return lead, nil
}

// GetLead returns the owner's lead. Leads of other owners are reported as not found.
func (s *LeadService) GetLead(ctx context.Context, ownerEmail, id string) (*model.Lead, error) {
	owner := validate.Email(ownerEmail)
	if owner == "" {
		return nil, ErrMissingOwner
	}
	return s.ownedLead(ctx, owner, id)
}

// ListEvents returns one page of a lead's timeline.
func (s *LeadService) ListEvents(ctx context.Context, ownerEmail, leadID string, cursor, limit int64) (repository.Page[model.TimelineEvent], error) {
	owner := validate.Email(ownerEmail)
	if owner == "" {
		return repository.Page[model.TimelineEvent]{}, ErrMissingOwner
	}
	if _, err := s.ownedLead(ctx, owner, leadID); err != nil {
		return repository.Page[model.TimelineEvent]{}, err
	}
	return s.repo.ListEvents(ctx, leadID, cursor, limit)
}

// CreateEventInput defines input for appending a timeline event.
type CreateEventInput struct {
	OwnerEmail string
	LeadID     string
	Type       string
	Title      string
	Details    string
}

// CreateEvent appends an event to the timeline of one of the owner's leads.
func (s *LeadService) CreateEvent(ctx context.Context, input CreateEventInput) (*model.TimelineEvent, error) {
	owner := validate.Email(input.OwnerEmail)
	if owner == "" {
		return nil, ErrMissingOwner
	}
	eventType := validate.Text(input.Type)
	if eventType == "" {
		return nil, ErrMissingType
	}
	title := validate.Text(input.Title)
	if title == "" {
		return nil, ErrMissingTitle
	}

	now := s.now()
	if _, err := activeUser(ctx, s.repo, owner, now); err != nil {
		return nil, err
	}
	lead, err := s.ownedLead(ctx, owner, input.LeadID)
	if err != nil {
		return nil, err
	}

	event := &model.TimelineEvent{
		ID:        s.newID(),
		LeadID:    lead.ID,
		Type:      eventType,
		Title:     title,
		Details:   input.Details,
		CreatedAt: now.UnixMilli(),
	}
	if err := s.repo.CreateEvent(ctx, event); err != nil {
		return nil, err
	}

	s.metrics.IncEventCreated()

	return event, nil
}

// WebhookLeadInput defines a lead pushed by an integration.
type WebhookLeadInput struct {
	Name    string
	Email   string
	Phone   string
	Company string
	Message string
	Source  string
}

// IngestWebhookLead stores a lead for an owner that the caller has already
// authenticated and checked with RequireActiveUser.
func (s *LeadService) IngestWebhookLead(ctx context.Context, ownerEmail string, input WebhookLeadInput) (*model.Lead, error) {
	name := validate.Text(input.Name)
	if !validate.IsName(name) {
		return nil, ErrInvalidName
	}
	email := validate.Email(input.Email)
	if !validate.IsEmail(email) {
		return nil, ErrInvalidEmail
	}

	source := validate.Text(input.Source)
	if source == "" {
		source = string(model.OriginWebhook)
	}

	lead := &model.Lead{
		ID:         s.newID(),
		OwnerEmail: validate.Email(ownerEmail),
		Name:       name,
		Email:      email,
		Phone:      validate.Text(input.Phone),
		Company:    validate.Text(input.Company),
		Message:    validate.Text(input.Message),
		Source:     source,
		Status:     model.LeadStatusNew,
		CreatedAt:  s.now().UnixMilli(),
	}
	if err := s.repo.CreateLead(ctx, lead); err != nil {
		return nil, err
	}

	created := model.TimelineEvent{
		Type:    model.EventLeadCreated,
		Title:   "Lead created (webhook)",
		Details: jsonDetails("source", source),
	}
	if err := s.appendEvents(ctx, lead, []model.TimelineEvent{created}); err != nil {
		return nil, err
	}

	s.metrics.IncLeadCreated(string(model.OriginWebhook))

	return lead, nil
}

func (s *LeadService) ownedLead(ctx context.Context, owner, id string) (*model.Lead, error) {
	if id == "" {
		return nil, ErrLeadNotFound
	}
	lead, err := s.repo.GetLead(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrLeadNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, err
	}
	if !lead.OwnedBy(owner) {
		return nil, ErrLeadNotFound
	}
	return lead, nil
}

// appendEvents writes events in order, stamping ids and the lead's creation time.
func (s *LeadService) appendEvents(ctx context.Context, lead *model.Lead, events []model.TimelineEvent) error {
	for i := range events {
		events[i].ID = s.newID()
		events[i].LeadID = lead.ID
		events[i].CreatedAt = lead.CreatedAt
		if err := s.repo.CreateEvent(ctx, &events[i]); err != nil {
			return fmt.Errorf("lead %s: %w", lead.ID, err)
		}
		s.metrics.IncEventCreated()
	}
	return nil
}

// jsonDetails encodes a single-field object for event details.
func jsonDetails(key, value string) string {
	b, _ := json.Marshal(map[string]string{key: value})
	return string(b)
}

// EventDetails renders a client supplied details value: strings pass
// through unchanged, anything else is stored as its JSON encoding.
func EventDetails(v any) string {
	switch d := v.(type) {
	case nil:
		return ""
	case string:
		return d
	default:
		b, err := json.Marshal(d)
		if err != nil {
			return ""
		}
		return string(b)
	}
}
