package storage

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	_ "github.com/go-sql-driver/mysql"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database"
	migratemysql "github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite3"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/goliatone/go-listview/components/listview"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Supported drivers.
const (
	DriverSQLite   = "sqlite3"
	DriverPostgres = "postgres"
	DriverMySQL    = "mysql"
)

// SQLStore keeps table settings and export events in a SQL database. It
// implements listview.SettingsStore and listview.ExportRecorder.
type SQLStore struct {
	db     *sqlx.DB
	driver string
}

// OpenSQL connects to the database. Call Migrate before first use.
func OpenSQL(driver, dsn string) (*SQLStore, error) {
	switch driver {
	case DriverSQLite, DriverPostgres, DriverMySQL:
	default:
		return nil, fmt.Errorf("storage: unsupported driver %q", driver)
	}
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("storage: connect %s: %w", driver, err)
	}
	if driver == DriverSQLite {
		db.SetMaxOpenConns(1)
	}
	return &SQLStore{db: db, driver: driver}, nil
}

// NewSQLStore wraps an existing connection.
func NewSQLStore(db *sqlx.DB) *SQLStore {
	return &SQLStore{db: db, driver: db.DriverName()}
}

// Close releases the connection pool.
func (s *SQLStore) Close() error {
	return s.db.Close()
}

// Migrate applies the embedded schema migrations. It is a no-op when the
// schema is current.
func (s *SQLStore) Migrate() (uint, error) {
	m, err := s.migrator()
	if err != nil {
		return 0, err
	}
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("storage: migrate up: %w", err)
	}
	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("storage: migration version: %w", err)
	}
	return version, nil
}

// Rollback reverts every migration.
func (s *SQLStore) Rollback() error {
	m, err := s.migrator()
	if err != nil {
		return err
	}
	if err := m.Down(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("storage: migrate down: %w", err)
	}
	return nil
}

func (s *SQLStore) migrator() (*migrate.Migrate, error) {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("storage: migrations source: %w", err)
	}
	var driver database.Driver
	switch s.driver {
	case DriverSQLite:
		driver, err = sqlite3.WithInstance(s.db.DB, &sqlite3.Config{})
	case DriverPostgres:
		driver, err = postgres.WithInstance(s.db.DB, &postgres.Config{})
	case DriverMySQL:
		driver, err = migratemysql.WithInstance(s.db.DB, &migratemysql.Config{})
	default:
		err = fmt.Errorf("unsupported driver %q", s.driver)
	}
	if err != nil {
		return nil, fmt.Errorf("storage: migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, s.driver, driver)
	if err != nil {
		return nil, fmt.Errorf("storage: migrator: %w", err)
	}
	return m, nil
}

type settingRow struct {
	Payload string `db:"payload"`
	Version int64  `db:"version"`
}

// LoadSetting reads one setting. A payload that fails to decode is returned
// as an error.
func (s *SQLStore) LoadSetting(ctx context.Context, owner, table string) (listview.TableSetting, bool, error) {
	var row settingRow
	query := s.db.Rebind(`SELECT payload, version FROM table_settings WHERE owner = ? AND table_name = ?`)
	if err := s.db.GetContext(ctx, &row, query, owner, table); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return listview.TableSetting{}, false, nil
		}
		return listview.TableSetting{}, false, fmt.Errorf("storage: load setting: %w", err)
	}
	var setting listview.TableSetting
	if err := json.Unmarshal([]byte(row.Payload), &setting); err != nil {
		return listview.TableSetting{}, false, fmt.Errorf("storage: decode setting %s/%s: %w", owner, table, err)
	}
	setting.Table = table
	setting.Version = row.Version
	return setting, true, nil
}

// SaveSetting upserts one setting.
func (s *SQLStore) SaveSetting(ctx context.Context, owner string, setting listview.TableSetting) error {
	if strings.TrimSpace(setting.Table) == "" {
		return fmt.Errorf("storage: setting table is required")
	}
	payload, err := json.Marshal(setting)
	if err != nil {
		return fmt.Errorf("storage: encode setting: %w", err)
	}
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage: begin: %w", err)
	}
	defer tx.Rollback()

	var count int
	if err := tx.GetContext(ctx, &count, tx.Rebind(`SELECT COUNT(*) FROM table_settings WHERE owner = ? AND table_name = ?`), owner, setting.Table); err != nil {
		return fmt.Errorf("storage: lookup setting: %w", err)
	}
	updatedAt := setting.UpdatedAt.UTC()
	if count > 0 {
		_, err = tx.ExecContext(ctx, tx.Rebind(`UPDATE table_settings SET payload = ?, version = ?, updated_at = ? WHERE owner = ? AND table_name = ?`),
			string(payload), setting.Version, updatedAt, owner, setting.Table)
	} else {
		_, err = tx.ExecContext(ctx, tx.Rebind(`INSERT INTO table_settings (owner, table_name, payload, version, updated_at) VALUES (?, ?, ?, ?, ?)`),
			owner, setting.Table, string(payload), setting.Version, updatedAt)
	}
	if err != nil {
		return fmt.Errorf("storage: save setting: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage: commit: %w", err)
	}
	return nil
}

// Owners lists the owners with at least one stored setting for table.
func (s *SQLStore) Owners(ctx context.Context, table string) ([]string, error) {
	var owners []string
	query := s.db.Rebind(`SELECT owner FROM table_settings WHERE table_name = ? ORDER BY owner`)
	if err := s.db.SelectContext(ctx, &owners, query, table); err != nil {
		return nil, fmt.Errorf("storage: list owners: %w", err)
	}
	return owners, nil
}

// RecordExport stores an export audit event.
func (s *SQLStore) RecordExport(ctx context.Context, event listview.ExportEvent) error {
	query := s.db.Rebind(`INSERT INTO export_events (export_id, table_name, user_id, file_name, row_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`)
	if _, err := s.db.ExecContext(ctx, query, event.ExportID, event.Table, event.UserID, event.FileName, event.Rows, event.At.UTC()); err != nil {
		return fmt.Errorf("storage: record export: %w", err)
	}
	return nil
}

// ExportEvents returns the recorded exports for a table, newest first.
func (s *SQLStore) ExportEvents(ctx context.Context, table string) ([]listview.ExportEvent, error) {
	var rows []struct {
		ExportID string `db:"export_id"`
		Table    string `db:"table_name"`
		UserID   string `db:"user_id"`
		FileName string `db:"file_name"`
		Rows     int    `db:"row_count"`
	}
	query := s.db.Rebind(`SELECT export_id, table_name, user_id, file_name, row_count FROM export_events WHERE table_name = ? ORDER BY created_at DESC`)
	if err := s.db.SelectContext(ctx, &rows, query, table); err != nil {
		return nil, fmt.Errorf("storage: list exports: %w", err)
	}
	out := make([]listview.ExportEvent, len(rows))
	for i, row := range rows {
		out[i] = listview.ExportEvent{
			ExportID: row.ExportID,
			Table:    row.Table,
			UserID:   row.UserID,
			FileName: row.FileName,
			Rows:     row.Rows,
		}
	}
	return out, nil
}
