package store

// runMigrations executes all database migrations.
func (s *Store) runMigrations() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS athletes (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Videos uploaded for an athlete. output_video_url is set once analysed.
		`CREATE TABLE IF NOT EXISTS videos (
			id TEXT PRIMARY KEY,
			athlete_id TEXT NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
			video_url TEXT NOT NULL,
			output_video_url TEXT NOT NULL DEFAULT '',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// One analysis run of a video
		`CREATE TABLE IF NOT EXISTS jobs (
			id TEXT PRIMARY KEY,
			athlete_id TEXT NOT NULL REFERENCES athletes(id) ON DELETE CASCADE,
			video_id TEXT NOT NULL REFERENCES videos(id) ON DELETE CASCADE,
			status TEXT NOT NULL CHECK(status IN ('running', 'succeeded', 'failed')),
			frames INTEGER NOT NULL DEFAULT 0,
			detected_frames INTEGER NOT NULL DEFAULT 0,
			final_phase INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			started_at DATETIME NOT NULL,
			finished_at DATETIME
		)`,

		// Per-frame classification of a job
		`CREATE TABLE IF NOT EXISTS frame_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			job_id TEXT NOT NULL REFERENCES jobs(id) ON DELETE CASCADE,
			frame_index INTEGER NOT NULL,
			detected INTEGER NOT NULL DEFAULT 0,
			phase INTEGER NOT NULL,
			state INTEGER NOT NULL,
			label TEXT NOT NULL DEFAULT '',
			deductions TEXT NOT NULL DEFAULT '{}',
			created_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)`,

		// Settings table - stores application settings as key-value pairs
		`CREATE TABLE IF NOT EXISTS settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		)`,

		`CREATE INDEX IF NOT EXISTS idx_videos_athlete_id ON videos(athlete_id)`,
		`CREATE INDEX IF NOT EXISTS idx_jobs_video_id ON jobs(video_id)`,
		`CREATE INDEX IF NOT EXISTS idx_frame_results_job_id ON frame_results(job_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.Exec(migration); err != nil {
			return err
		}
	}

	return nil
}
