// internal/progress/event.go
package progress

import "github.com/unclebandit/mailpacer-backend/internal/model"

// Event types emitted over a session's progress stream. Per session the
// sequence is: start, then progress (one per attempt) interleaved with
// waiting (one after every attempt except the last), then exactly one
// complete. Ping events may appear anywhere and carry no payload; consumers
// must ignore them.
const (
	TypeStart    = "start"
	TypeProgress = "progress"
	TypeWaiting  = "waiting"
	TypeComplete = "complete"
	TypePing     = "ping"
)

// Event is one progress update for a delivery run. Zero-valued fields are
// omitted from the wire form, so a ping serializes as just its type.
type Event struct {
	Type         string         `json:"type"`
	Total        int            `json:"total,omitempty"`
	Processed    int            `json:"processed,omitempty"`
	Sent         int            `json:"sent,omitempty"`
	Failed       int            `json:"failed,omitempty"`
	CurrentEmail string         `json:"currentEmail,omitempty"`
	CurrentName  string         `json:"currentName,omitempty"`
	Status       string         `json:"status,omitempty"`
	Error        string         `json:"error,omitempty"`
	WaitSeconds  int            `json:"waitTime,omitempty"`
	Message      string         `json:"message,omitempty"`
	Results      *model.Summary `json:"results,omitempty"`
}
