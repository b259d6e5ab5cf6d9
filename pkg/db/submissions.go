package db

import (
	"database/sql"
	"fmt"
	"time"
)

// Operation is the store call a submission resulted in.
type Operation string

const (
	OperationCreate Operation = "create"
	OperationUpdate Operation = "update"
)

// Outcome is how a submission ended.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeFailure Outcome = "failure"
)

// Submission is one journal row.
type Submission struct {
	ID           int64
	Operation    Operation
	BillID       string
	Email        string
	BillName     string
	BillDate     string
	Amount       string
	FileName     string
	Outcome      Outcome
	ErrorMessage string
	SubmittedAt  time.Time
}

// Journal records bill submissions.
type Journal struct {
	conn *Connection
}

// NewJournal creates a new Journal.
func NewJournal(conn *Connection) *Journal {
	return &Journal{conn: conn}
}

// Record appends a submission to the journal.
func (j *Journal) Record(s Submission) error {
	query := `
		INSERT INTO submissions (operation, bill_id, email, bill_name, bill_date, amount, file_name, outcome, error_message)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := j.conn.Exec(query,
		string(s.Operation),
		nullString(s.BillID),
		s.Email,
		s.BillName,
		s.BillDate,
		s.Amount,
		nullString(s.FileName),
		string(s.Outcome),
		nullString(s.ErrorMessage),
	)
	if err != nil {
		return fmt.Errorf("failed to record submission: %w", err)
	}

	return nil
}

// ListByEmail returns an employee's submissions, newest first.
func (j *Journal) ListByEmail(email string) ([]Submission, error) {
	query := `
		SELECT id, operation, bill_id, email, bill_name, bill_date, amount, file_name, outcome, error_message, submitted_at
		FROM submissions
		WHERE email = ?
		ORDER BY id DESC
	`

	rows, err := j.conn.Query(query, email)
	if err != nil {
		return nil, fmt.Errorf("failed to list submissions: %w", err)
	}
	defer rows.Close()

	var submissions []Submission
	for rows.Next() {
		var s Submission
		var op, outcome string
		var billID, fileName, errMsg sql.NullString

		if err := rows.Scan(
			&s.ID,
			&op,
			&billID,
			&s.Email,
			&s.BillName,
			&s.BillDate,
			&s.Amount,
			&fileName,
			&outcome,
			&errMsg,
			&s.SubmittedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan submission: %w", err)
		}

		s.Operation = Operation(op)
		s.Outcome = Outcome(outcome)
		s.BillID = billID.String
		s.FileName = fileName.String
		s.ErrorMessage = errMsg.String
		submissions = append(submissions, s)
	}

	return submissions, rows.Err()
}

// Stats represents journal totals.
type Stats struct {
	Total          int
	Created        int
	Updated        int
	Failed         int
	LastSubmission sql.NullString
}

// GetStats retrieves journal totals.
func (j *Journal) GetStats() (*Stats, error) {
	var stats Stats

	err := j.conn.QueryRow(`SELECT COUNT(*) FROM submissions`).Scan(&stats.Total)
	if err != nil {
		return nil, fmt.Errorf("failed to get submission count: %w", err)
	}

	err = j.conn.QueryRow(`SELECT COUNT(*) FROM submissions WHERE operation = 'create' AND outcome = 'success'`).Scan(&stats.Created)
	if err != nil {
		return nil, fmt.Errorf("failed to get created count: %w", err)
	}

	err = j.conn.QueryRow(`SELECT COUNT(*) FROM submissions WHERE operation = 'update' AND outcome = 'success'`).Scan(&stats.Updated)
	if err != nil {
		return nil, fmt.Errorf("failed to get updated count: %w", err)
	}

	err = j.conn.QueryRow(`SELECT COUNT(*) FROM submissions WHERE outcome = 'failure'`).Scan(&stats.Failed)
	if err != nil {
		return nil, fmt.Errorf("failed to get failure count: %w", err)
	}

	err = j.conn.QueryRow(`SELECT MAX(submitted_at) FROM submissions`).Scan(&stats.LastSubmission)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to get last submission time: %w", err)
	}

	return &stats, nil
}

// GetMetadata retrieves a metadata value.
func (j *Journal) GetMetadata(key string) (string, error) {
	var value string
	err := j.conn.QueryRow(`SELECT value FROM journal_metadata WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get metadata: %w", err)
	}

	return value, nil
}

// SetMetadata sets a metadata value.
func (j *Journal) SetMetadata(key, value string) error {
	query := `
		INSERT INTO journal_metadata (key, value, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(key) DO UPDATE SET
			value = excluded.value,
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := j.conn.Exec(query, key, value); err != nil {
		return fmt.Errorf("failed to set metadata: %w", err)
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
