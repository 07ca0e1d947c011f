package model

// LeadStatus is the follow-up state of a lead.
type LeadStatus string

const (
	LeadStatusNew       LeadStatus = "New"
	LeadStatusContacted LeadStatus = "Contacted"
)

// Origin records which path created a lead.
type Origin string

const (
	OriginManual  Origin = "manual"
	OriginTest    Origin = "test"
	OriginWebhook Origin = "webhook"
)

// Lead is a contact captured for an owner.
type Lead struct {
	ID         string     `json:"id"`
	OwnerEmail string     `json:"ownerEmail"`
	Name       string     `json:"name"`
	Email      string     `json:"email"`
	Phone      string     `json:"phone,omitempty"`
	Company    string     `json:"company,omitempty"`
	Message    string     `json:"message,omitempty"`
	Source     string     `json:"source,omitempty"`
	Status     LeadStatus `json:"status"`
	CreatedAt  int64      `json:"createdAt"`
}

// OwnedBy reports whether the lead belongs to ownerEmail.
func (l *Lead) OwnedBy(ownerEmail string) bool {
	return l != nil && l.OwnerEmail == ownerEmail
}

// Timeline event types written by the server itself.
const (
	EventLeadCreated = "lead_created"
	EventLeadMessage = "lead_message"
	EventTestSeeded  = "test_seeded"
)

// TimelineEvent is one entry in a lead's history.
type TimelineEvent struct {
	ID        string `json:"id"`
	LeadID    string `json:"leadId"`
	Type      string `json:"type"`
	Title     string `json:"title"`
	Details   string `json:"details,omitempty"`
	CreatedAt int64  `json:"createdAt"`
}
