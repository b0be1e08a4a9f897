package repository

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	appErrors "github.com/unclebandit/mailpacer-backend/internal/errors"
	"github.com/unclebandit/mailpacer-backend/internal/model"
)

type CampaignRepositoryInterface interface {
	Create(c *model.Campaign) error
	GetByID(id string) (*model.Campaign, error)
	ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error)
	Update(c *model.Campaign) error
	UpdateStatus(campaignID, status string) error
	MarkStarted(campaignID string, at time.Time) error
	AddCounters(campaignID string, sent, failed, planned int) error
	Delete(campaignID string) error
}

type CampaignRepository struct {
	DB *sql.DB
}

// Steps and contacts are stored as JSONB documents on the campaign row.

func (r *CampaignRepository) Create(c *model.Campaign) error {
	c.CreatedAt = time.Now()
	if c.Status == "" {
		c.Status = model.StatusDraft
	}

	steps, err := json.Marshal(c.Steps)
	if err != nil {
		return err
	}
	contacts, err := json.Marshal(c.Contacts)
	if err != nil {
		return err
	}

	query := `
        INSERT INTO campaigns (id, name, status, steps, contacts, total_emails, sent_emails, failed_emails, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err = r.DB.Exec(query, c.ID, c.Name, c.Status, steps, contacts, c.TotalEmails, c.SentEmails, c.FailedEmails, c.CreatedAt)
	return err
}

func (r *CampaignRepository) Update(c *model.Campaign) error {
	steps, err := json.Marshal(c.Steps)
	if err != nil {
		return err
	}
	contacts, err := json.Marshal(c.Contacts)
	if err != nil {
		return err
	}

	query := `
        UPDATE campaigns
        SET name=$1, steps=$2, contacts=$3, total_emails=$4, updated_at=NOW()
        WHERE id=$5
    `
	_, err = r.DB.Exec(query, c.Name, steps, contacts, c.TotalEmails, c.ID)
	return err
}

func (r *CampaignRepository) UpdateStatus(campaignID, status string) error {
	query := `UPDATE campaigns SET status=$1, updated_at=$2 WHERE id=$3`
	_, err := r.DB.Exec(query, status, time.Now(), campaignID)
	return err
}

// MarkStarted transitions a draft to active. The draft check lives in the
// UPDATE's WHERE clause so concurrent launches cannot both pass it; the
// loser sees zero rows affected.
func (r *CampaignRepository) MarkStarted(campaignID string, at time.Time) error {
	query := `UPDATE campaigns SET status=$1, started_at=$2, updated_at=NOW() WHERE id=$3 AND status=$4`
	res, err := r.DB.Exec(query, model.StatusActive, at, campaignID, model.StatusDraft)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return appErrors.NewInvalidInput("campaign is not a draft")
	}
	return nil
}

// AddCounters folds one finished run into the campaign's cumulative
// counters. planned is the run's recipient count after skips.
func (r *CampaignRepository) AddCounters(campaignID string, sent, failed, planned int) error {
	query := `
        UPDATE campaigns
        SET sent_emails=sent_emails+$1, failed_emails=failed_emails+$2,
            planned_emails=planned_emails+$3, steps_run=steps_run+1, updated_at=NOW()
        WHERE id=$4
    `
	_, err := r.DB.Exec(query, sent, failed, planned, campaignID)
	return err
}

func (r *CampaignRepository) Delete(campaignID string) error {
	_, err := r.DB.Exec(`DELETE FROM campaigns WHERE id=$1`, campaignID)
	return err
}

func (r *CampaignRepository) GetByID(id string) (*model.Campaign, error) {
	query := `
        SELECT id, name, status, steps, contacts, total_emails, sent_emails, failed_emails, planned_emails, steps_run, started_at, created_at, updated_at
        FROM campaigns WHERE id=$1
    `
	var c model.Campaign
	var steps, contacts []byte
	err := r.DB.QueryRow(query, id).Scan(
		&c.ID, &c.Name, &c.Status, &steps, &contacts,
		&c.TotalEmails, &c.SentEmails, &c.FailedEmails,
		&c.PlannedEmails, &c.StepsRun,
		&c.StartedAt, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.NewCampaignNotFound(id)
		}
		return nil, err
	}

	if err := json.Unmarshal(steps, &c.Steps); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(contacts, &c.Contacts); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CampaignRepository) ListCampaigns(offset, limit int, status string) ([]*model.Campaign, int, error) {
	campaigns := []*model.Campaign{}
	query := `SELECT id, name, status, steps, contacts, total_emails, sent_emails, failed_emails, planned_emails, steps_run, started_at, created_at, updated_at FROM campaigns WHERE 1=1`
	args := []interface{}{}
	argPos := 1

	if status != "" {
		query += fmt.Sprintf(" AND status=$%d", argPos)
		args = append(args, status)
		argPos++
	}

	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT $%d OFFSET $%d", argPos, argPos+1)
	args = append(args, limit, offset)

	rows, err := r.DB.Query(query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	for rows.Next() {
		c := &model.Campaign{}
		var steps, contacts []byte
		if err := rows.Scan(
			&c.ID, &c.Name, &c.Status, &steps, &contacts,
			&c.TotalEmails, &c.SentEmails, &c.FailedEmails,
			&c.PlannedEmails, &c.StepsRun,
			&c.StartedAt, &c.CreatedAt, &c.UpdatedAt,
		); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(steps, &c.Steps); err != nil {
			return nil, 0, err
		}
		if err := json.Unmarshal(contacts, &c.Contacts); err != nil {
			return nil, 0, err
		}
		campaigns = append(campaigns, c)
	}

	// Count total
	countQuery := `SELECT COUNT(*) FROM campaigns WHERE 1=1`
	argsCount := []interface{}{}
	if status != "" {
		countQuery += " AND status=$1"
		argsCount = append(argsCount, status)
	}

	var total int
	if err := r.DB.QueryRow(countQuery, argsCount...).Scan(&total); err != nil {
		return nil, 0, err
	}

	return campaigns, total, nil
}

var _ CampaignRepositoryInterface = (*CampaignRepository)(nil)
