package models

import (
	"errors"
)

// ErrNotFound is returned by stores when a tenant-scoped record does not exist.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned by stores when a unique (tenant, value) pair already exists.
var ErrDuplicate = errors.New("already exists")

// SummaryTypeGrounding tags summaries produced by the keyword search pipeline.
const SummaryTypeGrounding = "grounding_v1"

// Keyword is a search term registered by a tenant.
type Keyword struct {
	ID        string `json:"id"         firestore:"-"`
	TenantID  string `json:"-"          firestore:"-"`
	Keyword   string `json:"keyword"    firestore:"keyword"`
	CreatedAt string `json:"created_at" firestore:"created_at"`
}

// TenantKeywords groups every keyword of one tenant.
type TenantKeywords struct {
	TenantID string
	Keywords []string
}

// Summary is one saved news summary owned by a tenant.
// CreatedAt always holds the canonical encoding (see FormatTimestamp)
// once written by this codebase; legacy records may differ until normalized.
type Summary struct {
	ID          string         `json:"id"                 firestore:"-"`
	TenantID    string         `json:"-"                  firestore:"-"`
	Title       string         `json:"title"              firestore:"title"`
	URL         string         `json:"url"                firestore:"url"`
	Summary     string         `json:"summary"            firestore:"summary"`
	Keyword     string         `json:"keyword"            firestore:"keyword"`
	SourceName  string         `json:"source_name"        firestore:"source_name"`
	PublishedAt string         `json:"published_at"       firestore:"published_at"`
	TokenCount  int            `json:"summary_tokens"     firestore:"summaryTokens"`
	Type        string         `json:"type,omitempty"     firestore:"type,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty" firestore:"metadata,omitempty"`
	CreatedAt   string         `json:"created_at"         firestore:"created_at"`
}
