package main

import (
	"testing"

	"github.com/unclebandit/mailpacer-backend/internal/progress"
	"github.com/unclebandit/mailpacer-backend/internal/queue"
)

func TestTrackerAggregatesRun(t *testing.T) {
	tr := newTracker()

	events := []progress.Event{
		{Type: progress.TypeStart, Total: 3},
		{Type: progress.TypeProgress, Sent: 1, Failed: 0},
		{Type: progress.TypeWaiting, WaitSeconds: 4},
		{Type: progress.TypeProgress, Sent: 1, Failed: 1},
		{Type: progress.TypeProgress, Sent: 2, Failed: 1},
		{Type: progress.TypeComplete, Total: 3, Sent: 2, Failed: 1},
	}

	for i, ev := range events {
		done := tr.apply(queue.Envelope{SessionID: "s1", CampaignID: "c1", Event: ev})
		if i < len(events)-1 && done {
			t.Fatalf("run reported done at event %d", i)
		}
		if i == len(events)-1 && !done {
			t.Fatal("run not reported done at complete event")
		}
	}

	run := tr.get("s1")
	if run.Total != 3 || run.Sent != 2 || run.Failed != 1 || !run.Done {
		t.Errorf("unexpected totals: %+v", run)
	}
	if run.CampaignID != "c1" {
		t.Errorf("expected campaign c1, got %q", run.CampaignID)
	}
}

func TestTrackerKeepsSessionsApart(t *testing.T) {
	tr := newTracker()

	tr.apply(queue.Envelope{SessionID: "a", Event: progress.Event{Type: progress.TypeStart, Total: 2}})
	tr.apply(queue.Envelope{SessionID: "b", Event: progress.Event{Type: progress.TypeStart, Total: 5}})

	if tr.get("a").Total != 2 || tr.get("b").Total != 5 {
		t.Errorf("sessions mixed: a=%+v b=%+v", tr.get("a"), tr.get("b"))
	}
}

func TestTrackerUnknownSession(t *testing.T) {
	tr := newTracker()
	if run := tr.get("missing"); run.Done || run.Total != 0 {
		t.Errorf("expected zero totals, got %+v", run)
	}
}
