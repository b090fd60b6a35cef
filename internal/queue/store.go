package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"scribed/internal/config"
	"scribed/internal/transcript"
)

// Store manages job persistence backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the jobs database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.LogDir, "jobs.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the location of the jobs database.
func (s *Store) Path() string {
	return s.path
}

// NewJobParams carries the validated submission options for a job.
type NewJobParams struct {
	InputPath      string
	SourceName     string
	Model          string
	Language       string
	Temperature    float64
	ResponseFormat transcript.ResponseFormat
	WordTimestamps bool
	CallbackURL    string
}

// NewJob inserts a pending job and assigns its identifier.
func (s *Store) NewJob(ctx context.Context, params NewJobParams) (*Job, error) {
	if params.InputPath == "" {
		return nil, errors.New("input path required")
	}
	if params.SourceName == "" {
		return nil, errors.New("source name required")
	}

	id := uuid.NewString()
	now := time.Now().UTC()
	timestamp := now.Format(time.RFC3339Nano)

	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO jobs (
            id, input_path, source_name, model, language, temperature,
            response_format, word_timestamps, callback_url, status,
            created_at, updated_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		params.InputPath,
		params.SourceName,
		params.Model,
		nullableString(params.Language),
		params.Temperature,
		string(params.ResponseFormat),
		boolToInt(params.WordTimestamps),
		nullableString(params.CallbackURL),
		StatusPending,
		timestamp,
		timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert job: %w", err)
	}

	return s.GetByID(ctx, id)
}

// GetByID fetches a job by identifier. Unknown identifiers return nil, nil.
func (s *Store) GetByID(ctx context.Context, id string) (*Job, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ?`, id)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get job: %w", err)
	}
	return job, nil
}

// Update persists changes to an existing job.
func (s *Store) Update(ctx context.Context, job *Job) error {
	if job == nil {
		return errors.New("job is nil")
	}
	job.UpdatedAt = time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs
         SET input_path = ?, source_name = ?, model = ?, language = ?,
             temperature = ?, response_format = ?, word_timestamps = ?,
             callback_url = ?, status = ?, result_json = ?, error_kind = ?,
             error_message = ?, updated_at = ?, last_heartbeat = ?
         WHERE id = ?`,
		job.InputPath,
		job.SourceName,
		job.Model,
		nullableString(job.Language),
		job.Temperature,
		string(job.ResponseFormat),
		boolToInt(job.WordTimestamps),
		nullableString(job.CallbackURL),
		job.Status,
		nullableString(job.ResultJSON),
		nullableString(job.ErrorKind),
		nullableString(job.ErrorMessage),
		job.UpdatedAt.Format(time.RFC3339Nano),
		nullableTime(job.LastHeartbeat),
		job.ID,
	)
	if err != nil {
		return fmt.Errorf("update job: %w", err)
	}
	return nil
}

// ClaimNext atomically transitions the oldest pending job to running and
// returns it. A nil job means the queue is idle.
func (s *Store) ClaimNext(ctx context.Context) (*Job, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin claim tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	row := tx.QueryRowContext(
		ctx,
		`SELECT `+jobColumns+` FROM jobs WHERE status = ? ORDER BY created_at LIMIT 1`,
		StatusPending,
	)
	job, err := scanJob(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("select pending job: %w", err)
	}

	now := time.Now().UTC()
	job.Status = StatusRunning
	job.UpdatedAt = now
	job.LastHeartbeat = &now

	res, err := tx.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, updated_at = ?, last_heartbeat = ? WHERE id = ? AND status = ?`,
		StatusRunning,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		job.ID,
		StatusPending,
	)
	if err != nil {
		return nil, fmt.Errorf("claim job: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("rows affected: %w", err)
	}
	if affected == 0 {
		// Another worker won the claim between select and update.
		return nil, nil
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit claim: %w", err)
	}
	return job, nil
}

// UpdateHeartbeat refreshes the last heartbeat timestamp for an in-flight job.
func (s *Store) UpdateHeartbeat(ctx context.Context, id string) error {
	now := time.Now().UTC()
	_, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET last_heartbeat = ?, updated_at = ? WHERE id = ?`,
		now.Format(time.RFC3339Nano),
		now.Format(time.RFC3339Nano),
		id,
	)
	if err != nil {
		return fmt.Errorf("update heartbeat: %w", err)
	}
	return nil
}

// ResetStuckRunning returns jobs left running by a crashed daemon back to
// pending so they execute again after restart.
func (s *Store) ResetStuckRunning(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE jobs SET status = ?, last_heartbeat = NULL, updated_at = ? WHERE status = ?`,
		StatusPending,
		time.Now().UTC().Format(time.RFC3339Nano),
		StatusRunning,
	)
	if err != nil {
		return 0, fmt.Errorf("reset stuck jobs: %w", err)
	}
	return res.RowsAffected()
}

// List returns jobs filtered by status set (or all jobs when no status is provided).
func (s *Store) List(ctx context.Context, statuses ...Status) ([]*Job, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + jobColumns + ` FROM jobs`
	orderClause := ` ORDER BY created_at`

	if len(statuses) == 0 {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		placeholders := makePlaceholders(len(statuses))
		args := make([]any, len(statuses))
		for i, status := range statuses {
			args[i] = status
		}
		query := baseQuery + ` WHERE status IN (` + placeholders + `)` + orderClause
		rows, err = s.db.QueryContext(ctx, query, args...)
	}
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

// Stats returns a count of jobs grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM jobs GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("job stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

// Health aggregates job counts for diagnostic output.
func (s *Store) Health(ctx context.Context) (HealthSummary, error) {
	stats, err := s.Stats(ctx)
	if err != nil {
		return HealthSummary{}, err
	}
	health := HealthSummary{}
	for status, count := range stats {
		health.Total += count
		switch status {
		case StatusPending:
			health.Pending += count
		case StatusRunning:
			health.Running += count
		case StatusCompleted:
			health.Completed += count
		case StatusFailed:
			health.Failed += count
		}
	}
	return health, nil
}

// Poll reports a job's readiness for polling clients. Unknown identifiers
// report not-ready with a null value rather than an error.
func (s *Store) Poll(ctx context.Context, id string) (PollResult, error) {
	nullValue := json.RawMessage("null")

	job, err := s.GetByID(ctx, id)
	if err != nil {
		return PollResult{}, err
	}
	if job == nil || !job.Status.IsTerminal() {
		return PollResult{Ready: false, Successful: false, Value: nullValue}, nil
	}

	if job.Status == StatusCompleted {
		value := nullValue
		if job.ResultJSON != "" {
			value = json.RawMessage(job.ResultJSON)
		}
		return PollResult{Ready: true, Successful: true, Value: value}, nil
	}

	failure, err := json.Marshal(map[string]any{
		"error": map[string]string{
			"kind":    job.ErrorKind,
			"message": job.ErrorMessage,
		},
	})
	if err != nil {
		return PollResult{}, fmt.Errorf("encode failure value: %w", err)
	}
	return PollResult{Ready: true, Successful: false, Value: failure}, nil
}

const jobColumns = "id, input_path, source_name, model, language, temperature, response_format, word_timestamps, callback_url, status, result_json, error_kind, error_message, created_at, updated_at, last_heartbeat"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		id               string
		inputPath        string
		sourceName       string
		model            string
		language         sql.NullString
		temperature      float64
		responseFormat   string
		wordTimestamps   int
		callbackURL      sql.NullString
		statusStr        string
		resultJSON       sql.NullString
		errorKind        sql.NullString
		errorMessage     sql.NullString
		createdRaw       string
		updatedRaw       string
		lastHeartbeatRaw sql.NullString
	)

	if err := scanner.Scan(
		&id,
		&inputPath,
		&sourceName,
		&model,
		&language,
		&temperature,
		&responseFormat,
		&wordTimestamps,
		&callbackURL,
		&statusStr,
		&resultJSON,
		&errorKind,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&lastHeartbeatRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		ID:             id,
		InputPath:      inputPath,
		SourceName:     sourceName,
		Model:          model,
		Language:       language.String,
		Temperature:    temperature,
		ResponseFormat: transcript.ResponseFormat(responseFormat),
		WordTimestamps: wordTimestamps != 0,
		CallbackURL:    callbackURL.String,
		Status:         Status(statusStr),
		ResultJSON:     resultJSON.String,
		ErrorKind:      errorKind.String,
		ErrorMessage:   errorMessage.String,
	}

	if created, err := parseTimeString(createdRaw); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw); err == nil {
		job.UpdatedAt = updated
	}
	if lastHeartbeatRaw.Valid {
		if heartbeat, err := parseTimeString(lastHeartbeatRaw.String); err == nil {
			job.LastHeartbeat = &heartbeat
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(time.RFC3339Nano)
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	return time.Parse(time.RFC3339Nano, value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
