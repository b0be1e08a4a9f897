// internal/model/step.go
package model

// Step is one message within a campaign's sequence. Step 1 is always sent
// immediately (DelayDays 0); later steps fire DelayDays after campaign start.
type Step struct {
	Index     int    `json:"index"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	DelayDays int    `json:"delay_days"`
}
