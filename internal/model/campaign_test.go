// internal/model/campaign_test.go
package model

import "testing"

func TestCampaignProgress(t *testing.T) {
	cases := []struct {
		name string
		c    Campaign
		want int
	}{
		{"nothing attempted", Campaign{TotalEmails: 4, Steps: []Step{{Index: 1}}}, 0},
		{"no contacts", Campaign{}, 0},
		{"mid first step", Campaign{
			TotalEmails: 4,
			Steps:       []Step{{Index: 1}, {Index: 2}},
			SentEmails:  2,
		}, 25},
		{"first step done", Campaign{
			TotalEmails:   4,
			Steps:         []Step{{Index: 1}, {Index: 2}},
			SentEmails:    3,
			FailedEmails:  1,
			PlannedEmails: 4,
			StepsRun:      1,
		}, 50},
		// a run that skipped recipients still reaches 100%
		{"narrowed run complete", Campaign{
			TotalEmails:   4,
			Steps:         []Step{{Index: 1}},
			SentEmails:    2,
			PlannedEmails: 2,
			StepsRun:      1,
		}, 100},
		{"all steps complete", Campaign{
			TotalEmails:   2,
			Steps:         []Step{{Index: 1}, {Index: 2}},
			SentEmails:    3,
			FailedEmails:  1,
			PlannedEmails: 4,
			StepsRun:      2,
		}, 100},
	}

	for _, tc := range cases {
		if got := tc.c.Progress(); got != tc.want {
			t.Errorf("%s: got %d%%, want %d%%", tc.name, got, tc.want)
		}
	}
}
