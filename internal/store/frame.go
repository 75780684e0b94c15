package store

import (
	"database/sql"
	"encoding/json"
	"time"
)

// FrameResult is the stored classification of one video frame.
type FrameResult struct {
	ID         int64              `json:"id"`
	JobID      string             `json:"job_id"`
	FrameIndex int                `json:"frame"`
	Detected   bool               `json:"detected"`
	Phase      int                `json:"phase"`
	State      int                `json:"state"`
	Label      string             `json:"label"`
	Deductions map[string]float64 `json:"deductions"`
	CreatedAt  time.Time          `json:"created_at"`
}

// FrameRepository stores per-frame results.
type FrameRepository struct {
	db *sql.DB
}

// Frames returns the frame result repository for this store.
func (s *Store) Frames() *FrameRepository {
	return &FrameRepository{db: s.db}
}

// CreateBatch inserts the frame results of a job in a single transaction.
func (r *FrameRepository) CreateBatch(jobID string, frames []FrameResult) error {
	tx, err := r.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(
		`INSERT INTO frame_results (job_id, frame_index, detected, phase, state, label, deductions, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer stmt.Close()

	now := time.Now()
	for _, f := range frames {
		deductions := f.Deductions
		if deductions == nil {
			deductions = map[string]float64{}
		}
		data, err := json.Marshal(deductions)
		if err != nil {
			return err
		}
		if _, err := stmt.Exec(jobID, f.FrameIndex, f.Detected, f.Phase, f.State, f.Label, string(data), now); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// ListByJob returns the frame results of a job in frame order.
func (r *FrameRepository) ListByJob(jobID string) ([]FrameResult, error) {
	rows, err := r.db.Query(
		`SELECT id, job_id, frame_index, detected, phase, state, label, deductions, created_at
		 FROM frame_results WHERE job_id = ? ORDER BY frame_index`,
		jobID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var frames []FrameResult
	for rows.Next() {
		var f FrameResult
		var data string
		if err := rows.Scan(&f.ID, &f.JobID, &f.FrameIndex, &f.Detected, &f.Phase, &f.State, &f.Label, &data, &f.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(data), &f.Deductions); err != nil {
			return nil, err
		}
		frames = append(frames, f)
	}

	return frames, rows.Err()
}
