package domain

import "time"

// Visit is one page-load/navigation record reported by the SDK.
type Visit struct {
	ID         int64
	ProjectID  string
	URL        string
	Pathname   string
	Referrer   *string
	UserAgent  *string
	SessionID  *string
	UserID     *string
	DurationMS *int64
	Timestamp  time.Time
	CreatedAt  time.Time
}
