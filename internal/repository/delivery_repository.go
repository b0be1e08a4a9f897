package repository

import (
	"database/sql"

	"github.com/unclebandit/mailpacer-backend/internal/model"
)

// DeliveryRepositoryInterface persists the per-step delivery audit log.
type DeliveryRepositoryInterface interface {
	RecordRun(campaignID, sessionID string, stepIndex int, results []model.DeliveryResult) error
	ListByCampaign(campaignID string) ([]model.DeliveryResult, error)
	GetCampaignStats(campaignID string) (map[string]int, error)
}

type DeliveryRepository struct {
	DB *sql.DB
}

// RecordRun appends one run's results for a campaign step. Rows are never
// updated afterwards. The batch is written in one transaction: the audit
// log holds either the whole run or none of it.
func (r *DeliveryRepository) RecordRun(campaignID, sessionID string, stepIndex int, results []model.DeliveryResult) error {
	tx, err := r.DB.Begin()
	if err != nil {
		return err
	}

	query := `
        INSERT INTO delivery_results (campaign_id, session_id, step_index, email, name, status, last_error, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
    `
	for _, res := range results {
		if _, err := tx.Exec(query, campaignID, sessionID, stepIndex, res.Email, res.Name, res.Status, res.Error, res.Timestamp); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func (r *DeliveryRepository) ListByCampaign(campaignID string) ([]model.DeliveryResult, error) {
	query := `
        SELECT email, name, status, last_error, created_at
        FROM delivery_results
        WHERE campaign_id=$1
        ORDER BY id
    `
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []model.DeliveryResult{}
	for rows.Next() {
		var res model.DeliveryResult
		if err := rows.Scan(&res.Email, &res.Name, &res.Status, &res.Error, &res.Timestamp); err != nil {
			return nil, err
		}
		results = append(results, res)
	}
	return results, nil
}

func (r *DeliveryRepository) GetCampaignStats(campaignID string) (map[string]int, error) {
	query := `SELECT status, COUNT(*) FROM delivery_results WHERE campaign_id=$1 GROUP BY status`
	rows, err := r.DB.Query(query, campaignID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := map[string]int{"total": 0, "sent": 0, "failed": 0}
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		if _, ok := stats[status]; ok {
			stats[status] = count
		}
		stats["total"] += count
	}
	return stats, nil
}

var _ DeliveryRepositoryInterface = (*DeliveryRepository)(nil)
