// Package db provides the SQLite submission journal: one row per attempt to
// send a bill to the store, kept locally by the front end.
package db

// Schema defines the SQL statements to create database tables.
const Schema = `
-- Submission journal
-- One row per attempt to create or update a bill through the store
CREATE TABLE IF NOT EXISTS submissions (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    operation TEXT NOT NULL,           -- 'create' or 'update'
    bill_id TEXT,                      -- id returned by (or sent to) the store
    email TEXT NOT NULL,               -- employee who submitted
    bill_name TEXT NOT NULL,
    bill_date TEXT NOT NULL,           -- YYYY-MM-DD
    amount TEXT NOT NULL,              -- decimal as text
    file_name TEXT,
    outcome TEXT NOT NULL,             -- 'success' or 'failure'
    error_message TEXT,                -- message shown to the employee on failure
    submitted_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_submissions_email
    ON submissions(email);

CREATE INDEX IF NOT EXISTS idx_submissions_outcome
    ON submissions(outcome);

-- Key-value metadata
CREATE TABLE IF NOT EXISTS journal_metadata (
    key TEXT PRIMARY KEY,
    value TEXT NOT NULL,
    updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
);
`

// InitializeSchema creates all tables if they don't exist.
func InitializeSchema(conn *Connection) error {
	if _, err := conn.Exec(Schema); err != nil {
		return err
	}
	return nil
}
