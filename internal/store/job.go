package store

import (
	"database/sql"
	"errors"
	"time"
)

// JobStatus is the state of an analysis job.
type JobStatus string

const (
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobFailed    JobStatus = "failed"
)

// Job records one analysis run of a video.
type Job struct {
	ID             string
	AthleteID      string
	VideoID        string
	Status         JobStatus
	Frames         int
	DetectedFrames int
	FinalPhase     int
	Error          string
	StartedAt      time.Time
	FinishedAt     *time.Time
}

// JobOutcome is what a finished job reports.
type JobOutcome struct {
	Status         JobStatus
	Frames         int
	DetectedFrames int
	FinalPhase     int
	Error          string
}

// JobRepository provides operations for analysis jobs.
type JobRepository struct {
	db *sql.DB
}

// Jobs returns the job repository for this store.
func (s *Store) Jobs() *JobRepository {
	return &JobRepository{db: s.db}
}

const jobColumns = `id, athlete_id, video_id, status, frames, detected_frames, final_phase,
	error, started_at, finished_at`

func scanJob(row interface{ Scan(...any) error }) (*Job, error) {
	j := &Job{}
	var status string
	var finished sql.NullTime
	err := row.Scan(&j.ID, &j.AthleteID, &j.VideoID, &status, &j.Frames, &j.DetectedFrames,
		&j.FinalPhase, &j.Error, &j.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	j.Status = JobStatus(status)
	if finished.Valid {
		j.FinishedAt = &finished.Time
	}
	return j, nil
}

// Create inserts a job in the running state.
func (r *JobRepository) Create(j *Job) error {
	j.Status = JobRunning
	j.StartedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO jobs (id, athlete_id, video_id, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		j.ID, j.AthleteID, j.VideoID, string(j.Status), j.StartedAt,
	)
	return err
}

// Finish stores the outcome of a job and stamps its finish time.
func (r *JobRepository) Finish(id string, o JobOutcome) error {
	result, err := r.db.Exec(
		`UPDATE jobs SET status = ?, frames = ?, detected_frames = ?, final_phase = ?, error = ?,
		 finished_at = ? WHERE id = ?`,
		string(o.Status), o.Frames, o.DetectedFrames, o.FinalPhase, o.Error, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// GetByID retrieves a job by its ID.
func (r *JobRepository) GetByID(id string) (*Job, error) {
	j, err := scanJob(r.db.QueryRow(`SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return j, nil
}

// ListByVideo returns the jobs of a video, most recent first.
func (r *JobRepository) ListByVideo(videoID string) ([]*Job, error) {
	rows, err := r.db.Query(
		`SELECT `+jobColumns+` FROM jobs WHERE video_id = ? ORDER BY started_at DESC, rowid DESC`,
		videoID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, j)
	}

	return jobs, rows.Err()
}
