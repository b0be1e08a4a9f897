// internal/service/campaign_service.go
package service

import (
	"context"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/unclebandit/mailpacer-backend/internal/engine"
	appErrors "github.com/unclebandit/mailpacer-backend/internal/errors"
	"github.com/unclebandit/mailpacer-backend/internal/model"
	"github.com/unclebandit/mailpacer-backend/internal/progress"
	"github.com/unclebandit/mailpacer-backend/internal/queue"
	"github.com/unclebandit/mailpacer-backend/internal/repository"
	"github.com/unclebandit/mailpacer-backend/internal/scheduler"
)

type CampaignService struct {
	CampaignRepo repository.CampaignRepositoryInterface
	DeliveryRepo repository.DeliveryRepositoryInterface
	Engine       *engine.Engine
	Hub          *progress.Hub
	Scheduler    *scheduler.Scheduler // set after construction (needs RunStep)
	Relay        *queue.ProgressRelay // optional

	mu      sync.Mutex
	active  map[string]*RunState // keyed by session id
	history []*model.Campaign
}

// RunState is the live view of one in-flight delivery run, kept for the bot
// status endpoints.
type RunState struct {
	Campaign  *model.Campaign `json:"campaign"`
	SessionID string          `json:"session_id"`
	StepIndex int             `json:"step_index"`
	StartedAt time.Time       `json:"started_at"`
}

// LaunchResult is the synchronous acknowledgment of a campaign launch.
type LaunchResult struct {
	CampaignID       string `json:"campaign_id"`
	SessionID        string `json:"session_id"`
	TotalEmails      int    `json:"total_emails"`
	EstimatedMinutes int    `json:"estimated_minutes"`
}

type CampaignDetails struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Status       string                 `json:"status"`
	Steps        []model.Step           `json:"steps"`
	Contacts     []model.Contact        `json:"contacts"`
	TotalEmails  int                    `json:"total_emails"`
	SentEmails   int                    `json:"sent_emails"`
	FailedEmails int                    `json:"failed_emails"`
	StartedAt    *time.Time             `json:"started_at,omitempty"`
	CreatedAt    time.Time              `json:"created_at"`
	UpdatedAt    *time.Time             `json:"updated_at,omitempty"`
	Stats        map[string]int         `json:"stats"`
	Results      []model.DeliveryResult `json:"results"`
}

// ====================== Drafts ======================

func (s *CampaignService) CreateCampaign(name string, steps []model.Step, contacts []model.Contact) (*model.Campaign, error) {
	if strings.TrimSpace(name) == "" {
		return nil, appErrors.NewInvalidInput("campaign name is required")
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	c := &model.Campaign{
		ID:          uuid.NewString(),
		Name:        name,
		Status:      model.StatusDraft,
		Steps:       steps,
		Contacts:    contacts,
		TotalEmails: len(contacts),
	}

	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) UpdateCampaign(id, name string, steps []model.Step, contacts []model.Contact) (*model.Campaign, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if c.Status != model.StatusDraft {
		return nil, appErrors.NewInvalidInput("only draft campaigns can be edited")
	}
	if err := validateSteps(steps); err != nil {
		return nil, err
	}

	c.Name = name
	c.Steps = steps
	c.Contacts = contacts
	c.TotalEmails = len(contacts)

	if err := s.CampaignRepo.Update(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *CampaignService) DeleteCampaign(id string) error {
	if s.Scheduler != nil {
		s.Scheduler.Disarm(id)
	}
	return s.CampaignRepo.Delete(id)
}

// ListCampaigns fetches campaigns with pagination
func (s *CampaignService) ListCampaigns(page, pageSize int, status string) ([]model.Campaign, map[string]int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 20
	}
	if pageSize > 100 {
		pageSize = 100
	}
	offset := (page - 1) * pageSize

	ptrs, total, err := s.CampaignRepo.ListCampaigns(offset, pageSize, status)
	if err != nil {
		return nil, nil, err
	}

	campaigns := make([]model.Campaign, len(ptrs))
	for i, c := range ptrs {
		campaigns[i] = *c
	}

	totalPages := (total + pageSize - 1) / pageSize
	pagination := map[string]int{
		"page":        page,
		"page_size":   pageSize,
		"total_count": total,
		"total_pages": totalPages,
	}

	return campaigns, pagination, nil
}

func (s *CampaignService) GetCampaignDetails(id string) (*CampaignDetails, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}

	stats, err := s.DeliveryRepo.GetCampaignStats(id)
	if err != nil {
		return nil, err
	}
	results, err := s.DeliveryRepo.ListByCampaign(id)
	if err != nil {
		return nil, err
	}

	return &CampaignDetails{
		ID:           c.ID,
		Name:         c.Name,
		Status:       c.Status,
		Steps:        c.Steps,
		Contacts:     c.Contacts,
		TotalEmails:  c.TotalEmails,
		SentEmails:   c.SentEmails,
		FailedEmails: c.FailedEmails,
		StartedAt:    c.StartedAt,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
		Stats:        stats,
		Results:      results,
	}, nil
}

// ====================== Launch ======================

// LaunchCampaign moves a draft to active, starts step 1 immediately and arms
// the scheduler for any follow-up steps. The acknowledgment returns before
// any email is sent; progress streams per session.
func (s *CampaignService) LaunchCampaign(id string) (*LaunchResult, error) {
	c, err := s.CampaignRepo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if len(c.Contacts) == 0 {
		return nil, appErrors.NewInvalidInput("campaign has no contacts")
	}
	if err := validateSteps(c.Steps); err != nil {
		return nil, err
	}

	// MarkStarted only succeeds for a draft; when two launches race, one
	// loses there and nothing is sent twice.
	now := time.Now()
	if err := s.CampaignRepo.MarkStarted(c.ID, now); err != nil {
		return nil, err
	}

	s.mu.Lock()
	c.Status = model.StatusActive
	c.StartedAt = &now
	s.history = append(s.history, c)
	s.mu.Unlock()

	sessionID := s.RunStep(c, c.Steps[0])
	if s.Scheduler != nil && len(c.Steps) > 1 {
		s.Scheduler.Arm(c)
	}

	log.Printf("🚀 Campaign %s launched (session %s, %d contacts, %d steps)", c.ID, sessionID, len(c.Contacts), len(c.Steps))

	return &LaunchResult{
		CampaignID:       c.ID,
		SessionID:        sessionID,
		TotalEmails:      len(c.Contacts),
		EstimatedMinutes: estimatedMinutes(len(c.Contacts), s.Engine.Delay),
	}, nil
}

// LaunchDelivery starts a one-off, single-step run against an ad-hoc contact
// list. Validation failures are returned synchronously; no session is
// created in that case.
func (s *CampaignService) LaunchDelivery(step model.Step, contacts []model.Contact) (string, error) {
	if len(contacts) == 0 {
		return "", appErrors.NewInvalidInput("contact list is empty")
	}
	if strings.TrimSpace(step.Subject) == "" {
		return "", appErrors.NewInvalidInput("subject is required")
	}
	if strings.TrimSpace(step.Body) == "" {
		return "", appErrors.NewInvalidInput("template is required")
	}
	if step.Index == 0 {
		step.Index = 1
	}

	sessionID := uuid.NewString()
	if s.Relay != nil {
		s.Relay.Bind(s.Hub, sessionID, "")
	}

	go func() {
		s.Engine.Run(context.Background(), sessionID, "", step, contacts)
	}()

	log.Printf("🚀 Ad-hoc delivery started (session %s, %d contacts)", sessionID, len(contacts))
	return sessionID, nil
}

// LaunchBotCampaign creates and launches a single-step campaign from an
// ad-hoc contact list in one call. Unlike LaunchDelivery the run is tracked
// like any launched campaign: it appears in active runs, history and
// analytics.
func (s *CampaignService) LaunchBotCampaign(name string, step model.Step, contacts []model.Contact) (*LaunchResult, error) {
	if len(contacts) == 0 {
		return nil, appErrors.NewInvalidInput("contact list is empty")
	}
	if strings.TrimSpace(step.Subject) == "" {
		return nil, appErrors.NewInvalidInput("subject is required")
	}
	if strings.TrimSpace(step.Body) == "" {
		return nil, appErrors.NewInvalidInput("template is required")
	}
	if strings.TrimSpace(name) == "" {
		name = "Bot Campaign"
	}
	step.Index = 1
	step.DelayDays = 0

	c := &model.Campaign{
		ID:          uuid.NewString(),
		Name:        name,
		Status:      model.StatusDraft,
		Steps:       []model.Step{step},
		Contacts:    contacts,
		TotalEmails: len(contacts),
	}
	if err := s.CampaignRepo.Create(c); err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.CampaignRepo.MarkStarted(c.ID, now); err != nil {
		return nil, err
	}

	s.mu.Lock()
	c.Status = model.StatusActive
	c.StartedAt = &now
	s.history = append(s.history, c)
	s.mu.Unlock()

	sessionID := s.RunStep(c, step)

	log.Printf("🚀 Bot campaign %s launched (session %s, %d contacts)", c.ID, sessionID, len(contacts))

	return &LaunchResult{
		CampaignID:       c.ID,
		SessionID:        sessionID,
		TotalEmails:      len(contacts),
		EstimatedMinutes: estimatedMinutes(len(contacts), s.Engine.Delay),
	}, nil
}

// RunStep starts one step's delivery run in the background and returns the
// fresh session id. The scheduler fires follow-up steps through this method.
func (s *CampaignService) RunStep(c *model.Campaign, step model.Step) string {
	sessionID := uuid.NewString()

	if s.Relay != nil {
		s.Relay.Bind(s.Hub, sessionID, c.ID)
	}

	s.mu.Lock()
	if s.active == nil {
		s.active = make(map[string]*RunState)
	}
	s.active[sessionID] = &RunState{
		Campaign:  c,
		SessionID: sessionID,
		StepIndex: step.Index,
		StartedAt: time.Now(),
	}
	s.mu.Unlock()

	go func() {
		summary := s.Engine.Run(context.Background(), sessionID, c.ID, step, c.Contacts)
		s.finishStep(c, step, sessionID, summary)
	}()

	return sessionID
}

// finishStep records the run's outcome and completes the campaign when the
// final step has run.
func (s *CampaignService) finishStep(c *model.Campaign, step model.Step, sessionID string, summary model.Summary) {
	if err := s.DeliveryRepo.RecordRun(c.ID, sessionID, step.Index, summary.Details); err != nil {
		log.Println("⚠️ Failed to record delivery results:", err)
	}
	if err := s.CampaignRepo.AddCounters(c.ID, summary.Sent, summary.Failed, summary.Total); err != nil {
		log.Println("⚠️ Failed to update campaign counters:", err)
	}

	s.mu.Lock()
	c.SentEmails += summary.Sent
	c.FailedEmails += summary.Failed
	c.PlannedEmails += summary.Total
	c.StepsRun++
	delete(s.active, sessionID)
	lastStep := step.Index == len(c.Steps)
	if lastStep {
		c.Status = model.StatusCompleted
	}
	s.mu.Unlock()

	if lastStep {
		if err := s.CampaignRepo.UpdateStatus(c.ID, model.StatusCompleted); err != nil {
			log.Println("⚠️ Failed to mark campaign completed:", err)
		}
		log.Printf("🏁 Campaign %s completed (sent %d, failed %d)", c.ID, c.SentEmails, c.FailedEmails)
	}
}

// ====================== Bot surface ======================

// ActiveRuns snapshots the in-flight delivery runs.
func (s *CampaignService) ActiveRuns() []RunState {
	s.mu.Lock()
	defer s.mu.Unlock()

	runs := make([]RunState, 0, len(s.active))
	for _, r := range s.active {
		snapshot := *r
		c := *r.Campaign
		snapshot.Campaign = &c
		runs = append(runs, snapshot)
	}
	return runs
}

// Analytics aggregates outcomes over every campaign launched since startup.
func (s *CampaignService) Analytics() map[string]interface{} {
	s.mu.Lock()
	defer s.mu.Unlock()

	totalSent, totalFailed := 0, 0
	for _, c := range s.history {
		totalSent += c.SentEmails
		totalFailed += c.FailedEmails
	}

	successRate := 0
	if totalSent+totalFailed > 0 {
		successRate = totalSent * 100 / (totalSent + totalFailed)
	}
	avgPerCampaign := 0
	if len(s.history) > 0 {
		avgPerCampaign = totalSent / len(s.history)
	}

	recent := s.history
	if len(recent) > 10 {
		recent = recent[len(recent)-10:]
	}
	recentViews := make([]map[string]interface{}, 0, len(recent))
	for _, c := range recent {
		recentViews = append(recentViews, map[string]interface{}{
			"id":           c.ID,
			"name":         c.Name,
			"started_at":   c.StartedAt,
			"total_emails": c.TotalEmails,
			"sent_emails":  c.SentEmails,
			"status":       c.Status,
		})
	}

	return map[string]interface{}{
		"total_campaigns":             len(s.history),
		"active_runs":                 len(s.active),
		"total_emails_sent":           totalSent,
		"total_emails_failed":         totalFailed,
		"success_rate":                successRate,
		"average_emails_per_campaign": avgPerCampaign,
		"campaign_history":            recentViews,
	}
}

// ====================== Helpers ======================

func validateSteps(steps []model.Step) error {
	if len(steps) < model.MinSteps || len(steps) > model.MaxSteps {
		return appErrors.NewInvalidInput("a campaign needs between 1 and 5 steps")
	}
	for i, st := range steps {
		if st.Index != i+1 {
			return appErrors.NewInvalidInput("step indexes must be sequential starting at 1")
		}
		if strings.TrimSpace(st.Subject) == "" || strings.TrimSpace(st.Body) == "" {
			return appErrors.NewInvalidInput("every step needs a subject and a body")
		}
		if st.DelayDays < 0 {
			return appErrors.NewInvalidInput("step delay cannot be negative")
		}
	}
	if steps[0].DelayDays != 0 {
		return appErrors.NewInvalidInput("step 1 must have a delay of 0 days")
	}
	return nil
}

func estimatedMinutes(contacts int, delay time.Duration) int {
	if contacts <= 1 {
		return 1
	}
	seconds := int(delay.Seconds()) * (contacts - 1)
	return (seconds + 59) / 60
}
