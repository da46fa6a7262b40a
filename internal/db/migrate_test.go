package db

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"testing/fstest"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func pgconnTag(s string) pgconn.CommandTag { return pgconn.NewCommandTag(s) }

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func TestSplitStatements(t *testing.T) {
	body := `-- header comment
CREATE TABLE a (
    id INT -- trailing comments stay
);
-- between
CREATE INDEX idx ON a (id);

INSERT INTO a VALUES (1)`

	got := SplitStatements(body)
	require.Len(t, got, 3)
	assert.Equal(t, "CREATE TABLE a (\n    id INT -- trailing comments stay\n)", got[0])
	assert.Equal(t, "CREATE INDEX idx ON a (id)", got[1])
	assert.Equal(t, "INSERT INTO a VALUES (1)", got[2])
}

func TestMigrationFiles_Embedded(t *testing.T) {
	names, err := MigrationFiles(Migrations())
	require.NoError(t, err)
	assert.Equal(t, []string{"0001_wells.sql", "0002_readings.sql"}, names)
}

func TestMigrator_AppliesPendingOnly(t *testing.T) {
	files := fstest.MapFS{
		"0001_a.sql": {Data: []byte("CREATE TABLE a (id INT);\nCREATE TABLE b (id INT);\n")},
		"0002_b.sql": {Data: []byte("ALTER TABLE a ADD COLUMN name TEXT;\n")},
		"README.md":  {Data: []byte("not a migration")},
	}
	tx := &mockTx{}
	beginner := &mockBeginner{tx: tx}
	ctx := context.Background()

	beginner.On("Exec", ctx, mock.MatchedBy(func(sql string) bool {
		return assert.Contains(t, sql, "CREATE TABLE IF NOT EXISTS _migrations")
	}), mock.Anything).Return(pgconnTag("CREATE TABLE"), nil)
	beginner.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"0001_a.sql"}).Return(&mockRow{values: []any{true}})
	beginner.On("QueryRow", ctx, mock.AnythingOfType("string"), []any{"0002_b.sql"}).Return(&mockRow{values: []any{false}})

	tx.On("Exec", ctx, "ALTER TABLE a ADD COLUMN name TEXT", mock.Anything).Return(pgconnTag("ALTER TABLE"), nil).Once()
	tx.On("Exec", ctx, "INSERT INTO _migrations (filename) VALUES ($1)", []any{"0002_b.sql"}).Return(pgconnTag("INSERT 0 1"), nil).Once()
	tx.On("Commit", ctx).Return(nil).Once()
	tx.On("Rollback", ctx).Maybe()

	applied, err := NewMigrator(beginner, files, quietLogger()).Up(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_b.sql"}, applied)
	beginner.AssertExpectations(t)
	tx.AssertExpectations(t)
}

func TestMigrator_FailureRollsBack(t *testing.T) {
	files := fstest.MapFS{"0001_bad.sql": {Data: []byte("CREATE TABLE broken (;\n")}}
	tx := &mockTx{}
	beginner := &mockBeginner{tx: tx}
	ctx := context.Background()

	beginner.On("Exec", ctx, mock.AnythingOfType("string"), mock.Anything).Return(pgconnTag("CREATE TABLE"), nil)
	beginner.On("QueryRow", ctx, mock.AnythingOfType("string"), mock.Anything).Return(&mockRow{values: []any{false}})
	tx.On("Exec", ctx, "CREATE TABLE broken (", mock.Anything).Return(pgconnTag(""), errors.New("syntax error")).Once()
	tx.On("Rollback", ctx).Once()

	applied, err := NewMigrator(beginner, files, quietLogger()).Up(ctx)
	require.ErrorContains(t, err, "0001_bad.sql")
	assert.Empty(t, applied)
	tx.AssertNotCalled(t, "Commit", mock.Anything)
	tx.AssertExpectations(t)
}

func TestPoolProbe(t *testing.T) {
	p := PoolProbe{DB: pingFunc(func(context.Context) error { return errors.New("down") })}
	assert.Equal(t, "database", p.Name())
	assert.EqualError(t, p.Check(context.Background()), "down")
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }
