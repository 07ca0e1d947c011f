package model

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestAPIKeyRecord_IsRevoked(t *testing.T) {
	var zero int64
	revokedAt := time.Now().UnixMilli()

	testCases := []struct {
		name      string
		revokedAt *int64
		want      bool
	}{
		{name: "active", revokedAt: nil, want: false},
		{name: "zero timestamp", revokedAt: &zero, want: false},
		{name: "revoked", revokedAt: &revokedAt, want: true},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			key := &APIKeyRecord{RevokedAt: tc.revokedAt}
			if got := key.IsRevoked(); got != tc.want {
				t.Errorf("IsRevoked() = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestAPIKeyRecord_Summary(t *testing.T) {
	key := &APIKeyRecord{
		ID:         "01HX",
		OwnerEmail: "owner@example.com",
		Prefix:     "looply_abcde",
		KeyHash:    "$argon2id$v=19$m=65536,t=3,p=4$c2FsdA$aGFzaA",
		CreatedAt:  1700000000000,
	}

	summary := key.Summary()
	if summary.ID != key.ID || summary.Prefix != key.Prefix || summary.CreatedAt != key.CreatedAt {
		t.Errorf("Summary() = %+v, fields mismatch", summary)
	}

	data, err := json.Marshal(summary)
	if err != nil {
		t.Fatalf("marshal summary: %v", err)
	}
	if strings.Contains(string(data), "keyHash") || strings.Contains(string(data), "argon2") {
		t.Errorf("summary must not expose the hash: %s", data)
	}
}

func TestAPIKeyRecord_JSONFieldNames(t *testing.T) {
	raw := `{"id":"k1","ownerEmail":"a@example.com","prefix":"looply_12345","keyHash":"h","createdAt":1,"revokedAt":2}`

	var key APIKeyRecord
	if err := json.Unmarshal([]byte(raw), &key); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if key.OwnerEmail != "a@example.com" || key.Prefix != "looply_12345" {
		t.Errorf("unexpected decode: %+v", key)
	}
	if !key.IsRevoked() {
		t.Error("record with revokedAt should be revoked")
	}
}
