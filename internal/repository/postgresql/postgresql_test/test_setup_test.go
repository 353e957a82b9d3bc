package postgresql_test

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"sync"
	"testing"

	"github.com/cmlabs-hris/hris-overtime-go/internal/pkg/database"
	"github.com/cmlabs-hris/hris-overtime-go/migrations"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/stretchr/testify/require"
)

var migrateOnce sync.Once

// fixture holds the rows every repository test starts from.
type fixture struct {
	DB         *database.DB
	CompanyID  string
	UserID     string
	EmployeeID string
}

// newTestDatabase connects to TEST_DATABASE_URL, migrates it once per run and truncates the
// overtime tables. Tests are skipped when the variable is unset.
func newTestDatabase(t *testing.T) *fixture {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	var migrateErr error
	migrateOnce.Do(func() { migrateErr = migrate(dsn) })
	require.NoError(t, migrateErr)

	db, err := database.NewPostgreSQLDB(dsn, database.PoolOptions{MaxConns: 4, MinConns: 1})
	require.NoError(t, err)
	t.Cleanup(db.Close)

	ctx := context.Background()
	require.NoError(t, truncateAllTables(ctx, db))

	f := &fixture{DB: db}
	require.NoError(t, db.QueryRow(ctx,
		`INSERT INTO companies (name) VALUES ('Acme') RETURNING id`).Scan(&f.CompanyID))
	require.NoError(t, db.QueryRow(ctx,
		`INSERT INTO users (company_id, email, role) VALUES ($1, 'budi@acme.test', 'employee') RETURNING id`,
		f.CompanyID).Scan(&f.UserID))
	require.NoError(t, db.QueryRow(ctx, `
		INSERT INTO employees (user_id, company_id, employee_code, full_name, base_salary)
		VALUES ($1, $2, 'EMP-001', 'Budi Santoso', 17300000)
		RETURNING id`, f.UserID, f.CompanyID).Scan(&f.EmployeeID))

	return f
}

func migrate(dsn string) error {
	sqlDB, err := sql.Open("pgx", dsn)
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	goose.SetBaseFS(migrations.FS)
	goose.SetTableName("schema_migrations")
	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return goose.Up(sqlDB, ".")
}

func truncateAllTables(ctx context.Context, db *database.DB) error {
	tables := []string{
		"dispatch_events",
		"notifications",
		"overtime_requests",
		"holidays",
		"company_settings",
		"employee_schedule_assignments",
		"employees",
		"work_schedule_times",
		"work_schedules",
		"users",
		"companies",
	}

	for _, table := range tables {
		if _, err := db.Exec(ctx, fmt.Sprintf("TRUNCATE TABLE %s CASCADE", table)); err != nil {
			return fmt.Errorf("failed to truncate table %s: %w", table, err)
		}
	}
	return nil
}
