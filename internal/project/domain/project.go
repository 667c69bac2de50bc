package domain

import "time"

// Project is the tenant boundary: the ingestion credential and retention
// policy live here. The wider dashboard CRUD owns the rest of its shape.
type Project struct {
	ID                  string
	Name                string
	APIKeyID            string // public half of the ingestion key, used for lookup
	APIKeyHash          string // SHA-256 hash of the key's secret half; plaintext is never stored
	VisitsRetentionDays *int   // nil or <= 0 means page-visit retention is off
	CreatedAt           time.Time
}

// RetentionEnabled reports whether the project opted into page-visit retention.
func (p *Project) RetentionEnabled() bool {
	return p != nil && p.VisitsRetentionDays != nil && *p.VisitsRetentionDays > 0
}
