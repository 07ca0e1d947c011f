package model

// APIKeyRecord is the stored form of an owner API key.
// KeyHash is a salted hash; the plaintext is never persisted.
type APIKeyRecord struct {
	ID         string `json:"id"`
	OwnerEmail string `json:"ownerEmail"`
	Prefix     string `json:"prefix"`
	KeyHash    string `json:"keyHash"`
	CreatedAt  int64  `json:"createdAt"`
	RevokedAt  *int64 `json:"revokedAt,omitempty"`
}

// IsRevoked returns true if the key has been revoked.
func (k *APIKeyRecord) IsRevoked() bool {
	return k.RevokedAt != nil && *k.RevokedAt != 0
}

// APIKeySummary is the listing view of a key (without secrets).
type APIKeySummary struct {
	ID        string `json:"id"`
	Prefix    string `json:"prefix"`
	CreatedAt int64  `json:"createdAt"`
}

// Summary converts a record to its listing view.
func (k *APIKeyRecord) Summary() APIKeySummary {
	return APIKeySummary{ID: k.ID, Prefix: k.Prefix, CreatedAt: k.CreatedAt}
}

// CreatedAPIKey includes the plaintext key (shown only once).
type CreatedAPIKey struct {
	ID        string `json:"id"`
	APIKey    string `json:"apiKey"`
	Prefix    string `json:"prefix"`
	CreatedAt int64  `json:"createdAt"`
}

// AuthContext holds the identity of a request authenticated by API key.
// It is injected into the request context by the API key middleware.
type AuthContext struct {
	KeyID      string
	KeyPrefix  string
	OwnerEmail string
}
