package job

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"

	"github.com/docupull/pdf2excel/internal/common"
	"github.com/docupull/pdf2excel/internal/entity"
)

// SQLiteStore persists jobs as JSON rows so they survive process restarts.
// Updates run read-modify-write inside a transaction.
type SQLiteStore struct {
	db *sql.DB
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, common.WrapError(err, "open sqlite store")
	}
	// A single writer avoids SQLITE_BUSY under concurrent job updates.
	db.SetMaxOpenConns(1)

	const ddl = `CREATE TABLE IF NOT EXISTS jobs (
		id   TEXT PRIMARY KEY,
		data TEXT NOT NULL
	)`
	if _, err := db.Exec(ddl); err != nil {
		db.Close()
		return nil, common.WrapError(err, "create jobs table")
	}
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Close() error { return s.db.Close() }

func (s *SQLiteStore) Create(job *entity.Job) error {
	data, err := json.Marshal(job)
	if err != nil {
		return common.WrapError(err, "marshal job")
	}
	_, err = s.db.Exec(`INSERT INTO jobs (id, data) VALUES (?, ?)`, job.ID, string(data))
	if err != nil {
		return common.NewAppError("JOB_INSERT", fmt.Sprintf("insert job %s", job.ID), err)
	}
	return nil
}

func (s *SQLiteStore) Get(id string) (*entity.Job, error) {
	var data string
	err := s.db.QueryRow(`SELECT data FROM jobs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.NewAppError("JOB_NOT_FOUND", fmt.Sprintf("job %s not found", id), common.ErrNotFound)
	}
	if err != nil {
		return nil, common.WrapError(err, "query job")
	}

	var job entity.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return nil, common.WrapError(err, "unmarshal job")
	}
	return &job, nil
}

func (s *SQLiteStore) Update(id string, fn func(*entity.Job)) error {
	tx, err := s.db.Begin()
	if err != nil {
		return common.WrapError(err, "begin job update")
	}
	defer tx.Rollback()

	var data string
	err = tx.QueryRow(`SELECT data FROM jobs WHERE id = ?`, id).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return common.NewAppError("JOB_NOT_FOUND", fmt.Sprintf("job %s not found", id), common.ErrNotFound)
	}
	if err != nil {
		return common.WrapError(err, "query job for update")
	}

	var job entity.Job
	if err := json.Unmarshal([]byte(data), &job); err != nil {
		return common.WrapError(err, "unmarshal job")
	}

	fn(&job)

	updated, err := json.Marshal(&job)
	if err != nil {
		return common.WrapError(err, "marshal updated job")
	}
	if _, err := tx.Exec(`UPDATE jobs SET data = ? WHERE id = ?`, string(updated), id); err != nil {
		return common.WrapError(err, "write updated job")
	}
	return tx.Commit()
}

func (s *SQLiteStore) Delete(id string) error {
	res, err := s.db.Exec(`DELETE FROM jobs WHERE id = ?`, id)
	if err != nil {
		return common.WrapError(err, "delete job")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return common.NewAppError("JOB_NOT_FOUND", fmt.Sprintf("job %s not found", id), common.ErrNotFound)
	}
	return nil
}

func (s *SQLiteStore) ListIDs() ([]string, error) {
	rows, err := s.db.Query(`SELECT id FROM jobs`)
	if err != nil {
		return nil, common.WrapError(err, "list jobs")
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, common.WrapError(err, "scan job id")
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
