package designstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/cadforge/pipeline/design"
	_ "github.com/go-sql-driver/mysql"
)

// MySQLStore is a MySQL/MariaDB-backed Store, grounded on the teacher's
// graph/store/mysql.go (connection pooling, auto-migration, DSN shape).
// Designed for deployments that want design records queryable outside the
// pipeline process (dashboards, audit trails) rather than scattered across
// a file tree.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens a MySQL connection pool and ensures the backing table
// exists. DSN format:
//
//	user:password@tcp(host:3306)/dbname?parseTime=true
func NewMySQLStore(dsn string) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("open mysql connection: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)
	db.SetConnMaxIdleTime(10 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping mysql: %w", err)
	}

	store := &MySQLStore{db: db}
	if err := store.createTable(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create table: %w", err)
	}
	return store, nil
}

func (s *MySQLStore) createTable(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS design_records (
			id VARCHAR(64) PRIMARY KEY,
			status VARCHAR(32) NOT NULL,
			data JSON NOT NULL,
			updated_at DATETIME(6) NOT NULL,
			INDEX idx_updated_at (updated_at)
		) ENGINE=InnoDB
	`)
	return err
}

// Close releases the underlying connection pool.
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// Save upserts record, serialized per id by MySQL's row-level locking on the
// primary key (§4.2 "concurrent saves of the same id are serialized; the
// last write wins").
func (s *MySQLStore) Save(ctx context.Context, record design.DesignRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO design_records (id, status, data, updated_at)
		VALUES (?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE status = VALUES(status), data = VALUES(data), updated_at = VALUES(updated_at)
	`, record.ID, string(record.Status), data, record.UpdatedAt)
	return err
}

// Load returns (zero, false, nil) on missing or corrupt rows, never an error
// (§4.2).
func (s *MySQLStore) Load(ctx context.Context, id string) (design.DesignRecord, bool, error) {
	var data []byte
	err := s.db.QueryRowContext(ctx, `SELECT data FROM design_records WHERE id = ?`, id).Scan(&data)
	if err != nil {
		return design.DesignRecord{}, false, nil
	}
	var record design.DesignRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return design.DesignRecord{}, false, nil
	}
	return record, true, nil
}

// List returns every stored record ordered by UpdatedAt descending.
func (s *MySQLStore) List(ctx context.Context) ([]design.DesignRecord, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT data FROM design_records ORDER BY updated_at DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []design.DesignRecord
	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			continue
		}
		var record design.DesignRecord
		if err := json.Unmarshal(data, &record); err != nil {
			continue
		}
		records = append(records, record)
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, rows.Err()
}
