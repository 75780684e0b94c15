package store

import (
	"database/sql"
	"errors"
	"time"
)

// Video is a recorded vault belonging to an athlete.
type Video struct {
	ID             string
	AthleteID      string
	URL            string
	OutputVideoURL string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// VideoRepository provides CRUD operations for videos.
type VideoRepository struct {
	db *sql.DB
}

// Videos returns the video repository for this store.
func (s *Store) Videos() *VideoRepository {
	return &VideoRepository{db: s.db}
}

const videoColumns = `id, athlete_id, video_url, output_video_url, created_at, updated_at`

func scanVideo(row interface{ Scan(...any) error }) (*Video, error) {
	v := &Video{}
	err := row.Scan(&v.ID, &v.AthleteID, &v.URL, &v.OutputVideoURL, &v.CreatedAt, &v.UpdatedAt)
	return v, err
}

// Create inserts a new video. The athlete must exist.
func (r *VideoRepository) Create(v *Video) error {
	now := time.Now()
	v.CreatedAt = now
	v.UpdatedAt = now

	_, err := r.db.Exec(
		`INSERT INTO videos (`+videoColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		v.ID, v.AthleteID, v.URL, v.OutputVideoURL, v.CreatedAt, v.UpdatedAt,
	)
	return err
}

// GetByID retrieves a video by its ID.
func (r *VideoRepository) GetByID(id string) (*Video, error) {
	v, err := scanVideo(r.db.QueryRow(`SELECT `+videoColumns+` FROM videos WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

// ListByAthlete returns an athlete's videos in upload order.
func (r *VideoRepository) ListByAthlete(athleteID string) ([]*Video, error) {
	rows, err := r.db.Query(
		`SELECT `+videoColumns+` FROM videos WHERE athlete_id = ? ORDER BY created_at, rowid`,
		athleteID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var videos []*Video
	for rows.Next() {
		v, err := scanVideo(rows)
		if err != nil {
			return nil, err
		}
		videos = append(videos, v)
	}

	return videos, rows.Err()
}

// SetOutputURL records where the annotated video was published.
func (r *VideoRepository) SetOutputURL(id, url string) error {
	result, err := r.db.Exec(
		`UPDATE videos SET output_video_url = ?, updated_at = ? WHERE id = ?`,
		url, time.Now(), id,
	)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// Delete removes a video and its jobs.
func (r *VideoRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM videos WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}
