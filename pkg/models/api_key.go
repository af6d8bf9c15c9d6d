package models

import (
	"time"

	"github.com/google/uuid"
)

// APIKey represents an authentication key for recruiter and service access.
// Raw keys are shown once at creation; only the bcrypt hash is stored.
// ActorID is recorded as the author of every transition made with the key.
type APIKey struct {
	ID         uuid.UUID  `db:"id"           json:"id"`
	ActorID    uuid.UUID  `db:"actor_id"     json:"actor_id"`
	Name       string     `db:"name"         json:"name"`
	KeyHash    string     `db:"key_hash"     json:"-"`
	KeyPrefix  string     `db:"key_prefix"   json:"key_prefix"`
	Scopes     []string   `db:"scopes"       json:"scopes"`
	LastUsedAt *time.Time `db:"last_used_at" json:"last_used_at,omitempty"`
	DeletedAt  *time.Time `db:"deleted_at"   json:"-"`
	CreatedAt  time.Time  `db:"created_at"   json:"created_at"`
	UpdatedAt  time.Time  `db:"updated_at"   json:"updated_at"`
}

// Scopes grantable to an API key. Admin keys manage other keys.
const (
	ScopeRecruiter = "recruiter"
	ScopeAdmin     = "admin"
)

// KnownScope reports whether s is a scope the API understands.
func KnownScope(s string) bool {
	return s == ScopeRecruiter || s == ScopeAdmin
}

// Revoked reports whether the key has been soft-deleted.
func (k *APIKey) Revoked() bool {
	return k.DeletedAt != nil
}
