package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unclebandit/mailpacer-backend/internal/engine"
	appErrors "github.com/unclebandit/mailpacer-backend/internal/errors"
	"github.com/unclebandit/mailpacer-backend/internal/mailer"
	"github.com/unclebandit/mailpacer-backend/internal/model"
	"github.com/unclebandit/mailpacer-backend/internal/progress"
	"github.com/unclebandit/mailpacer-backend/internal/scheduler"
)

// Mock repositories

type mockCampaignRepo struct {
	mu        sync.Mutex
	campaigns map[string]*model.Campaign
	statuses  []string
}

func newMockCampaignRepo() *mockCampaignRepo {
	return &mockCampaignRepo{campaigns: make(map[string]*model.Campaign)}
}

func (m *mockCampaignRepo) Create(c *model.Campaign) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.CreatedAt = time.Now()
	m.campaigns[c.ID] = c
	return nil
}

// GetByID hands out copies, like a real row scan would.
func (m *mockCampaignRepo) GetByID(id string) (*model.Campaign, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return nil, appErrors.NewCampaignNotFound(id)
	}
	snapshot := *c
	return &snapshot, nil
}

func (m *mockCampaignRepo) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := []*model.Campaign{}
	for _, c := range m.campaigns {
		if status == "" || c.Status == status {
			all = append(all, c)
		}
	}
	if offset > len(all) {
		offset = len(all)
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], len(all), nil
}

func (m *mockCampaignRepo) Update(c *model.Campaign) error { return nil }

func (m *mockCampaignRepo) UpdateStatus(id, status string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.statuses = append(m.statuses, status)
	return nil
}

// MarkStarted mirrors the conditional UPDATE: only a draft transitions.
func (m *mockCampaignRepo) MarkStarted(id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.campaigns[id]
	if !ok {
		return appErrors.NewCampaignNotFound(id)
	}
	if c.Status != model.StatusDraft {
		return appErrors.NewInvalidInput("campaign is not a draft")
	}
	c.Status = model.StatusActive
	c.StartedAt = &at
	m.statuses = append(m.statuses, model.StatusActive)
	return nil
}

func (m *mockCampaignRepo) AddCounters(id string, sent, failed, planned int) error { return nil }

func (m *mockCampaignRepo) Delete(id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.campaigns, id)
	return nil
}

func (m *mockCampaignRepo) lastStatus() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.statuses) == 0 {
		return ""
	}
	return m.statuses[len(m.statuses)-1]
}

type mockDeliveryRepo struct {
	mu      sync.Mutex
	records []model.DeliveryResult
}

func (m *mockDeliveryRepo) RecordRun(campaignID, sessionID string, stepIndex int, results []model.DeliveryResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, results...)
	return nil
}

func (m *mockDeliveryRepo) ListByCampaign(campaignID string) ([]model.DeliveryResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.DeliveryResult(nil), m.records...), nil
}

func (m *mockDeliveryRepo) GetCampaignStats(campaignID string) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := map[string]int{"total": 0, "sent": 0, "failed": 0}
	for _, r := range m.records {
		stats[r.Status]++
		stats["total"]++
	}
	return stats, nil
}

func (m *mockDeliveryRepo) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// gateSender blocks every send until released, keeping a run in flight for
// as long as a test needs to observe it.
type gateSender struct {
	release chan struct{}
}

func (g *gateSender) Send(ctx context.Context, msg mailer.Message) error {
	<-g.release
	return nil
}

type stubSender struct {
	failFor map[string]bool
}

func (s *stubSender) Send(ctx context.Context, msg mailer.Message) error {
	if s.failFor[msg.To] {
		return errors.New("rejected")
	}
	return nil
}

func newTestService(repo *mockCampaignRepo, deliveries *mockDeliveryRepo, sender mailer.Sender) *CampaignService {
	hub := progress.NewHub(time.Hour)
	svc := &CampaignService{
		CampaignRepo: repo,
		DeliveryRepo: deliveries,
		Hub:          hub,
		Engine: &engine.Engine{
			Mailer:      sender,
			Hub:         hub,
			Delay:       time.Millisecond,
			Retention:   time.Hour,
			DefaultName: "Client",
		},
	}
	svc.Scheduler = scheduler.New(scheduler.RealClock(), svc.RunStep)
	return svc
}

var validSteps = []model.Step{{Index: 1, Subject: "Hi [NUME]", Body: "Hello [NUME]", DelayDays: 0}}

var validContacts = []model.Contact{
	{Email: "ana@x.ro", Name: "Ana"},
	{Email: "bob@x.com", Name: "Bob"},
}

func TestCreateCampaignValidation(t *testing.T) {
	svc := newTestService(newMockCampaignRepo(), &mockDeliveryRepo{}, &stubSender{})

	cases := []struct {
		name  string
		steps []model.Step
	}{
		{"no steps", nil},
		{"too many steps", []model.Step{
			{Index: 1, Subject: "s", Body: "b"}, {Index: 2, Subject: "s", Body: "b", DelayDays: 1},
			{Index: 3, Subject: "s", Body: "b", DelayDays: 2}, {Index: 4, Subject: "s", Body: "b", DelayDays: 3},
			{Index: 5, Subject: "s", Body: "b", DelayDays: 4}, {Index: 6, Subject: "s", Body: "b", DelayDays: 5},
		}},
		{"step one delayed", []model.Step{{Index: 1, Subject: "s", Body: "b", DelayDays: 2}}},
		{"gap in indexes", []model.Step{{Index: 1, Subject: "s", Body: "b"}, {Index: 3, Subject: "s", Body: "b", DelayDays: 1}}},
		{"blank subject", []model.Step{{Index: 1, Subject: " ", Body: "b"}}},
	}

	for _, tc := range cases {
		_, err := svc.CreateCampaign("Test", tc.steps, validContacts)
		require.Error(t, err, tc.name)
		assert.True(t, appErrors.IsInvalidInput(err), tc.name)
	}
}

func TestCreateCampaignPersistsDraft(t *testing.T) {
	repo := newMockCampaignRepo()
	svc := newTestService(repo, &mockDeliveryRepo{}, &stubSender{})

	c, err := svc.CreateCampaign("Welcome", validSteps, validContacts)
	require.NoError(t, err)

	assert.NotEmpty(t, c.ID)
	assert.Equal(t, model.StatusDraft, c.Status)
	assert.Equal(t, 2, c.TotalEmails)

	stored, err := repo.GetByID(c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Welcome", stored.Name)
}

func TestLaunchDeliveryValidation(t *testing.T) {
	svc := newTestService(newMockCampaignRepo(), &mockDeliveryRepo{}, &stubSender{})

	cases := []struct {
		name     string
		step     model.Step
		contacts []model.Contact
	}{
		{"empty contacts", model.Step{Subject: "s", Body: "b"}, nil},
		{"missing subject", model.Step{Body: "b"}, validContacts},
		{"missing body", model.Step{Subject: "s"}, validContacts},
	}

	for _, tc := range cases {
		sessionID, err := svc.LaunchDelivery(tc.step, tc.contacts)
		require.Error(t, err, tc.name)
		assert.True(t, appErrors.IsInvalidInput(err), tc.name)
		assert.Empty(t, sessionID, tc.name)
	}
}

func TestLaunchDeliveryReturnsImmediately(t *testing.T) {
	svc := newTestService(newMockCampaignRepo(), &mockDeliveryRepo{}, &stubSender{})

	start := time.Now()
	sessionID, err := svc.LaunchDelivery(model.Step{Subject: "Hi [NUME]", Body: "b"}, validContacts)
	require.NoError(t, err)

	assert.NotEmpty(t, sessionID)
	// the acknowledgment does not wait for the paced run
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestLaunchCampaignLifecycle(t *testing.T) {
	repo := newMockCampaignRepo()
	deliveries := &mockDeliveryRepo{}
	svc := newTestService(repo, deliveries, &stubSender{failFor: map[string]bool{"bob@x.com": true}})

	c, err := svc.CreateCampaign("Welcome", validSteps, validContacts)
	require.NoError(t, err)

	result, err := svc.LaunchCampaign(c.ID)
	require.NoError(t, err)
	assert.Equal(t, c.ID, result.CampaignID)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, 2, result.TotalEmails)

	// single-step campaign completes once the run finishes
	require.Eventually(t, func() bool {
		return repo.lastStatus() == model.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 2, deliveries.count())

	details, err := svc.GetCampaignDetails(c.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, details.Stats["sent"])
	assert.Equal(t, 1, details.Stats["failed"])
}

func TestLaunchCampaignRequiresDraft(t *testing.T) {
	repo := newMockCampaignRepo()
	svc := newTestService(repo, &mockDeliveryRepo{}, &stubSender{})

	c, err := svc.CreateCampaign("Welcome", validSteps, validContacts)
	require.NoError(t, err)

	_, err = svc.LaunchCampaign(c.ID)
	require.NoError(t, err)

	// second launch sees an active (or completed) campaign
	_, err = svc.LaunchCampaign(c.ID)
	require.Error(t, err)
	assert.True(t, appErrors.IsInvalidInput(err))
}

func TestLaunchCampaignWithoutContacts(t *testing.T) {
	repo := newMockCampaignRepo()
	svc := newTestService(repo, &mockDeliveryRepo{}, &stubSender{})

	c, err := svc.CreateCampaign("Empty", validSteps, nil)
	require.NoError(t, err)

	_, err = svc.LaunchCampaign(c.ID)
	require.Error(t, err)
	assert.True(t, appErrors.IsInvalidInput(err))
}

func TestLaunchCampaignNotFound(t *testing.T) {
	svc := newTestService(newMockCampaignRepo(), &mockDeliveryRepo{}, &stubSender{})

	_, err := svc.LaunchCampaign("missing")
	require.Error(t, err)
	assert.True(t, appErrors.IsCampaignNotFound(err))
}

func TestLaunchCampaignConcurrentSingleWinner(t *testing.T) {
	repo := newMockCampaignRepo()
	svc := newTestService(repo, &mockDeliveryRepo{}, &stubSender{})

	c, err := svc.CreateCampaign("Welcome", validSteps, validContacts)
	require.NoError(t, err)

	const attempts = 8
	var wg sync.WaitGroup
	errs := make(chan error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.LaunchCampaign(c.ID)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	wins := 0
	for err := range errs {
		if err == nil {
			wins++
		} else {
			assert.True(t, appErrors.IsInvalidInput(err))
		}
	}
	assert.Equal(t, 1, wins)
}

func TestLaunchBotCampaignValidation(t *testing.T) {
	svc := newTestService(newMockCampaignRepo(), &mockDeliveryRepo{}, &stubSender{})

	cases := []struct {
		name     string
		step     model.Step
		contacts []model.Contact
	}{
		{"empty contacts", model.Step{Subject: "s", Body: "b"}, nil},
		{"missing subject", model.Step{Body: "b"}, validContacts},
		{"missing body", model.Step{Subject: "s"}, validContacts},
	}

	for _, tc := range cases {
		_, err := svc.LaunchBotCampaign("Bot blast", tc.step, tc.contacts)
		require.Error(t, err, tc.name)
		assert.True(t, appErrors.IsInvalidInput(err), tc.name)
	}
}

func TestLaunchBotCampaignTracksRun(t *testing.T) {
	repo := newMockCampaignRepo()
	gate := &gateSender{release: make(chan struct{})}
	svc := newTestService(repo, &mockDeliveryRepo{}, gate)

	result, err := svc.LaunchBotCampaign("Bot blast", model.Step{Subject: "Hi [NUME]", Body: "Hello"}, validContacts)
	require.NoError(t, err)
	assert.NotEmpty(t, result.CampaignID)
	assert.NotEmpty(t, result.SessionID)
	assert.Equal(t, 2, result.TotalEmails)

	// the run is visible to the bot surface while in flight
	runs := svc.ActiveRuns()
	require.Len(t, runs, 1)
	assert.Equal(t, result.CampaignID, runs[0].Campaign.ID)
	assert.Equal(t, result.SessionID, runs[0].SessionID)

	analytics := svc.Analytics()
	assert.Equal(t, 1, analytics["total_campaigns"])

	close(gate.release)
	require.Eventually(t, func() bool {
		return repo.lastStatus() == model.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	assert.Empty(t, svc.ActiveRuns())
	assert.Equal(t, 2, svc.Analytics()["total_emails_sent"])
}

func TestAnalyticsAggregation(t *testing.T) {
	repo := newMockCampaignRepo()
	svc := newTestService(repo, &mockDeliveryRepo{}, &stubSender{})

	c, err := svc.CreateCampaign("Welcome", validSteps, validContacts)
	require.NoError(t, err)
	_, err = svc.LaunchCampaign(c.ID)
	require.NoError(t, err)

	require.Eventually(t, func() bool {
		return repo.lastStatus() == model.StatusCompleted
	}, 2*time.Second, 10*time.Millisecond)

	analytics := svc.Analytics()
	assert.Equal(t, 1, analytics["total_campaigns"])
	assert.Equal(t, 2, analytics["total_emails_sent"])
	assert.Equal(t, 100, analytics["success_rate"])
}
