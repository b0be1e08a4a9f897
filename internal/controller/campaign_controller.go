// internal/controller/campaign_controller.go
package controller

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/unclebandit/mailpacer-backend/internal/contacts"
	appErrors "github.com/unclebandit/mailpacer-backend/internal/errors"
	"github.com/unclebandit/mailpacer-backend/internal/model"
	"github.com/unclebandit/mailpacer-backend/internal/service"
)

type CampaignController struct {
	CampaignService *service.CampaignService
}

// campaignPayload is shared by create and update. Contacts may arrive as a
// structured list or as pasted text; text wins when both are present.
type campaignPayload struct {
	Name         string          `json:"name"`
	Steps        []model.Step    `json:"steps"`
	Contacts     []model.Contact `json:"contacts"`
	ContactsText string          `json:"contacts_text"`
}

func (p *campaignPayload) contactList() ([]model.Contact, error) {
	if p.ContactsText != "" {
		return contacts.ParseList(p.ContactsText)
	}
	return p.Contacts, nil
}

func (c *CampaignController) CreateCampaign(w http.ResponseWriter, r *http.Request) {
	var body campaignPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	list, err := body.contactList()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.CreateCampaign(body.Name, body.Steps, list)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) UpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var body campaignPayload
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	list, err := body.contactList()
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	campaign, err := c.CampaignService.UpdateCampaign(id, body.Name, body.Steps, list)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(campaign)
}

func (c *CampaignController) DeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	if err := c.CampaignService.DeleteCampaign(id); err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{"success": true})
}

func (c *CampaignController) ListCampaigns(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("page_size"))
	status := r.URL.Query().Get("status")

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}

	campaigns, pagination, err := c.CampaignService.ListCampaigns(page, pageSize, status)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"data":       campaigns,
		"pagination": pagination,
	})
}

func (c *CampaignController) GetCampaignDetails(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	details, err := c.CampaignService.GetCampaignDetails(id)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(details)
}

// LaunchCampaign starts the campaign's first step and arms follow-ups. The
// response returns before any email goes out; progress streams per session.
func (c *CampaignController) LaunchCampaign(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	result, err := c.CampaignService.LaunchCampaign(id)
	if err != nil {
		writeServiceError(w, err)
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

// SendEmails starts a one-off single-step delivery against a pasted contact
// list and acknowledges immediately with the progress session id.
func (c *CampaignController) SendEmails(w http.ResponseWriter, r *http.Request) {
	var body struct {
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
	sessionID, err := c.CampaignService.LaunchDelivery(step, list)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"success":    true,
		"session_id": sessionID,
		"message":    "Email sending started",
	})
}

// UploadContacts parses an uploaded CSV file into contacts for preview.
func (c *CampaignController) UploadContacts(w http.ResponseWriter, r *http.Request) {
	file, _, err := r.FormFile("file")
	if err != nil {
		http.Error(w, "missing CSV file", http.StatusBadRequest)
		return
	}
	defer file.Close()

	list, err := contacts.ParseCSV(file)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"contacts": list,
		"count":    len(list),
	})
}

func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case appErrors.IsInvalidInput(err):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case appErrors.IsCampaignNotFound(err):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
