package store

import (
	"database/sql"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested resource does not exist.
var ErrNotFound = errors.New("not found")

// Athlete is a gymnast whose vaults are analysed.
type Athlete struct {
	ID        string
	Name      string
	CreatedAt time.Time
}

// AthleteRepository provides CRUD operations for athletes.
type AthleteRepository struct {
	db *sql.DB
}

// Athletes returns the athlete repository for this store.
func (s *Store) Athletes() *AthleteRepository {
	return &AthleteRepository{db: s.db}
}

// Create inserts a new athlete into the database.
func (r *AthleteRepository) Create(a *Athlete) error {
	a.CreatedAt = time.Now()

	_, err := r.db.Exec(
		`INSERT INTO athletes (id, name, created_at) VALUES (?, ?, ?)`,
		a.ID, a.Name, a.CreatedAt,
	)
	return err
}

// GetByID retrieves an athlete by its ID.
func (r *AthleteRepository) GetByID(id string) (*Athlete, error) {
	a := &Athlete{}
	err := r.db.QueryRow(
		`SELECT id, name, created_at FROM athletes WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return a, nil
}

// List retrieves all athletes, oldest first.
func (r *AthleteRepository) List() ([]*Athlete, error) {
	rows, err := r.db.Query(`SELECT id, name, created_at FROM athletes ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var athletes []*Athlete
	for rows.Next() {
		a := &Athlete{}
		if err := rows.Scan(&a.ID, &a.Name, &a.CreatedAt); err != nil {
			return nil, err
		}
		athletes = append(athletes, a)
	}

	return athletes, rows.Err()
}

// Delete removes an athlete together with their videos and jobs.
func (r *AthleteRepository) Delete(id string) error {
	result, err := r.db.Exec(`DELETE FROM athletes WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

func requireAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
