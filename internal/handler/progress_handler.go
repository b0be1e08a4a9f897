// internal/handler/progress_handler.go
package handler

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/mailpacer-backend/internal/config"
	"github.com/unclebandit/mailpacer-backend/internal/contacts"
	appErrors "github.com/unclebandit/mailpacer-backend/internal/errors"
	"github.com/unclebandit/mailpacer-backend/internal/model"
	"github.com/unclebandit/mailpacer-backend/internal/progress"
	"github.com/unclebandit/mailpacer-backend/internal/service"
)

// ProgressHandler serves the live progress stream plus the status and bot
// integration endpoints.
type ProgressHandler struct {
	Hub     *progress.Hub
	Service *service.CampaignService
	Config  *config.Config

	startedAt time.Time
}

func NewProgressHandler(hub *progress.Hub, svc *service.CampaignService, cfg *config.Config) *ProgressHandler {
	return &ProgressHandler{
		Hub:       hub,
		Service:   svc,
		Config:    cfg,
		startedAt: time.Now(),
	}
}

// Stream pushes a session's progress events over Server-Sent Events until
// the client disconnects or the session is cleaned up. Keep-alive pings
// arrive on the same stream; clients must ignore them.
func (h *ProgressHandler) Stream(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := h.Hub.Subscribe(sessionID)
	defer h.Hub.Unsubscribe(sessionID, events)

	log.Printf("📡 SSE client connected for session: %s", sessionID)

	for {
		select {
		case <-r.Context().Done():
			log.Printf("📡 SSE client disconnected for session: %s", sessionID)
			return
		case ev, ok := <-events:
			if !ok {
				// session cleaned up
				return
			}
			data, err := json.Marshal(ev)
			if err != nil {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
		}
	}
}

// Test reports basic liveness and whether email credentials are configured.
func (h *ProgressHandler) Test(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"message":          "Server is running",
		"email_configured": h.Config.EmailConfigured(),
	})
}

// TestEmail checks the mail transport configuration.
func (h *ProgressHandler) TestEmail(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")

	if !h.Config.EmailConfigured() {
		json.NewEncoder(w).Encode(map[string]interface{}{
			"success": false,
			"message": "Email credentials not configured in .env file",
		})
		return
	}

	json.NewEncoder(w).Encode(map[string]interface{}{
		"success": true,
		"message": "Email configuration OK",
	})
}

// ====================== Bot API ======================

func (h *ProgressHandler) BotStatus(w http.ResponseWriter, r *http.Request) {
	analytics := h.Service.Analytics()

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":          true,
		"status":           "online",
		"email_configured": h.Config.EmailConfigured(),
		"active_runs":      len(h.Service.ActiveRuns()),
		"total_campaigns":  analytics["total_campaigns"],
		"server_uptime":    int(time.Since(h.startedAt).Seconds()),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *ProgressHandler) BotCampaigns(w http.ResponseWriter, r *http.Request) {
	runs := h.Service.ActiveRuns()

	views := make([]map[string]interface{}, 0, len(runs))
	for _, run := range runs {
		c := run.Campaign
		views = append(views, map[string]interface{}{
			"id":            c.ID,
			"name":          c.Name,
			"session_id":    run.SessionID,
			"step_index":    run.StepIndex,
			"started_at":    run.StartedAt,
			"total_emails":  c.TotalEmails,
			"sent_emails":   c.SentEmails,
			"failed_emails": c.FailedEmails,
			"status":        c.Status,
			"progress":      c.Progress(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":          true,
		"active_campaigns": views,
		"total_active":     len(views),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}

// BotLaunchCampaign launches a single-step campaign from the bot's payload.
// The run is tracked like a regular launch, so it shows up in the active
// campaign list and in analytics.
func (h *ProgressHandler) BotLaunchCampaign(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name         string          `json:"name"`
		Contacts     []model.Contact `json:"contacts"`
		ContactsText string          `json:"contacts_text"`
		Subject      string          `json:"subject"`
		Template     string          `json:"template"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	list := body.Contacts
	if body.ContactsText != "" {
		var err error
		list, err = contacts.ParseList(body.ContactsText)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	step := model.Step{Index: 1, Subject: body.Subject, Body: body.Template}
	result, err := h.Service.LaunchBotCampaign(body.Name, step, list)
	if err != nil {
		if appErrors.IsInvalidInput(err) {
			http.Error(w, err.Error(), http.StatusBadRequest)
		} else {
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":           true,
		"campaign_id":       result.CampaignID,
		"session_id":        result.SessionID,
		"total_emails":      result.TotalEmails,
		"estimated_minutes": result.EstimatedMinutes,
		"message":           "Campaign launched successfully",
	})
}

func (h *ProgressHandler) BotAnalytics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":   true,
		"analytics": h.Service.Analytics(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
