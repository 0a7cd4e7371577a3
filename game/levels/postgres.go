package levels

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver
	"github.com/wricardo/clara/game/engine"
	"github.com/wricardo/clara/game/service"
	"github.com/wricardo/clara/pkg/logger"
)

const postgresSource = "postgres"

// PostgresSource stores levels in the exercises table
type PostgresSource struct {
	db *sql.DB
}

// NewPostgresSource connects to PostgreSQL and creates the schema if needed
func NewPostgresSource(ctx context.Context, connectionString string) (*PostgresSource, error) {
	db, err := sql.Open("postgres", connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test the connection
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	src := &PostgresSource{db: db}
	if err := src.initSchema(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return src, nil
}

func (p *PostgresSource) initSchema(ctx context.Context) error {
	schema := `
	CREATE TABLE IF NOT EXISTS exercises (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		"rows" INTEGER NOT NULL,
		"columns" INTEGER NOT NULL,
		content JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE DEFAULT NOW(),
		updated_at TIMESTAMP WITH TIME ZONE DEFAULT NOW()
	);
	`
	_, err := p.db.ExecContext(ctx, schema)
	return err
}

// Close closes the database connection
func (p *PostgresSource) Close() error {
	return p.db.Close()
}

// FetchLevel loads one level. An empty id selects the first level by name.
func (p *PostgresSource) FetchLevel(ctx context.Context, id string) (*engine.Level, error) {
	query := `SELECT content FROM exercises WHERE id = $1`
	args := []any{id}
	if id == "" {
		query = `SELECT content FROM exercises ORDER BY name, id LIMIT 1`
		args = nil
	}

	var content []byte
	err := p.db.QueryRowContext(ctx, query, args...).Scan(&content)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", ErrLevelNotFound, id)
		}
		return nil, fmt.Errorf("failed to load level: %w", err)
	}

	level, err := engine.ParseLevel(content)
	if err != nil {
		return nil, fmt.Errorf("stored level %s: %w", id, err)
	}
	return level, nil
}

// ListLevels returns every stored level sorted by name
func (p *PostgresSource) ListLevels(ctx context.Context) ([]*service.LevelInfo, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT id, content FROM exercises ORDER BY name, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	defer rows.Close()

	var infos []*service.LevelInfo
	for rows.Next() {
		var id string
		var content []byte
		if err := rows.Scan(&id, &content); err != nil {
			return nil, fmt.Errorf("failed to scan level: %w", err)
		}
		level, err := engine.ParseLevel(content)
		if err != nil {
			logger.Log.WithError(err).WithField("level", id).Warn("Skipping stored level")
			continue
		}
		infos = append(infos, service.NewLevelInfo(level, postgresSource))
	}
	return infos, rows.Err()
}

// SaveLevel validates and upserts a level. Levels without an id get a
// random one.
func (p *PostgresSource) SaveLevel(ctx context.Context, level *engine.Level) (*engine.Level, error) {
	if level.ID == "" {
		level.ID = uuid.NewString()
	}
	if err := engine.ValidateLevel(level); err != nil {
		return nil, err
	}
	content, err := json.Marshal(level)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal level: %w", err)
	}

	query := `
	INSERT INTO exercises (id, name, "rows", "columns", content)
	VALUES ($1, $2, $3, $4, $5)
	ON CONFLICT (id)
	DO UPDATE SET
		name = $2, "rows" = $3, "columns" = $4, content = $5,
		updated_at = NOW()
	`
	_, err = p.db.ExecContext(ctx, query, level.ID, level.Name, level.Rows, level.Columns, string(content))
	if err != nil {
		return nil, fmt.Errorf("failed to save level: %w", err)
	}
	return level, nil
}

// ImportDir copies every valid board of a directory into the table and
// returns how many were stored.
func (p *PostgresSource) ImportDir(ctx context.Context, dir string) (int, error) {
	src, err := NewDirSource(dir)
	if err != nil {
		return 0, err
	}
	infos, err := src.ListLevels(ctx)
	if err != nil {
		return 0, err
	}

	imported := 0
	for _, info := range infos {
		level, err := src.FetchLevel(ctx, info.ID)
		if err != nil {
			return imported, err
		}
		if _, err := p.SaveLevel(ctx, level); err != nil {
			return imported, fmt.Errorf("import %s: %w", info.ID, err)
		}
		imported++
		logger.Log.WithField("level", info.ID).Info("Imported level")
	}
	return imported, nil
}
