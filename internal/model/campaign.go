// internal/model/campaign.go
package model

import "time"

const (
	StatusDraft     = "draft"
	StatusActive    = "active"
	StatusCompleted = "completed"
)

const (
	MinSteps = 1
	MaxSteps = 5
)

type Campaign struct {
	ID           string    `db:"id" json:"id"`
	Name         string    `db:"name" json:"name"`
	Status       string    `db:"status" json:"status"`
	Steps        []Step    `db:"steps" json:"steps"`
	Contacts     []Contact `db:"contacts" json:"contacts"`
	TotalEmails  int       `db:"total_emails" json:"total_emails"`
	SentEmails   int       `db:"sent_emails" json:"sent_emails"`
	FailedEmails int       `db:"failed_emails" json:"failed_emails"`

	// PlannedEmails sums the recipient counts of finished runs; a run's
	// list may be narrower than Contacts when recipients are skipped.
	PlannedEmails int `db:"planned_emails" json:"planned_emails"`
	StepsRun      int `db:"steps_run" json:"steps_run"`

	StartedAt *time.Time `db:"started_at" json:"started_at,omitempty"`
	CreatedAt time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt *time.Time `db:"updated_at" json:"updated_at,omitempty"`
}

// Progress is the percentage of attempted sends against the campaign's
// planned volume. Finished steps count their actual recipient lists; steps
// still to run are estimated at the full contact list.
func (c *Campaign) Progress() int {
	remaining := len(c.Steps) - c.StepsRun
	if remaining < 0 {
		remaining = 0
	}
	planned := c.PlannedEmails + remaining*c.TotalEmails
	if planned == 0 {
		return 0
	}
	pct := (c.SentEmails + c.FailedEmails) * 100 / planned
	if pct > 100 {
		pct = 100
	}
	return pct
}
