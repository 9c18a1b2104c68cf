package store

import (
	"bytes"
	"context"
	stdsql "database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	entsql "entgo.io/ent/dialect/sql"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/codeready-toolchain/dialogreplay/pkg/models"
)

// ScenarioFolder is the bot file folder scenarios are stored in.
const ScenarioFolder = "scenarios"

const scenarioSchemaURL = "https://dialogreplay.local/schema/scenario.json"

//go:embed schema/scenario.schema.json
var scenarioSchema []byte

// FixtureStore persists scenario fixtures as bot files, one JSON document per name.
type FixtureStore struct {
	db     *stdsql.DB
	botID  string
	schema *jsonschema.Schema
}

// NewFixtureStore creates a FixtureStore scoped to one bot.
func NewFixtureStore(db *stdsql.DB, botID string) (*FixtureStore, error) {
	schema, err := compileScenarioSchema()
	if err != nil {
		return nil, err
	}
	return &FixtureStore{db: db, botID: botID, schema: schema}, nil
}

func compileScenarioSchema() (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource(scenarioSchemaURL, bytes.NewReader(scenarioSchema)); err != nil {
		return nil, fmt.Errorf("add schema resource: %w", err)
	}
	schema, err := compiler.Compile(scenarioSchemaURL)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// Validate checks raw fixture content against the scenario schema.
func (s *FixtureStore) Validate(name string, raw []byte) error {
	var payload any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return &InvalidFixtureError{Name: name, Err: err}
	}
	if err := s.schema.Validate(payload); err != nil {
		return &InvalidFixtureError{Name: name, Err: err}
	}
	return nil
}

// Put writes the scenario under name, replacing any existing fixture.
func (s *FixtureStore) Put(ctx context.Context, name string, scenario *models.Scenario) error {
	fixture := *scenario
	fixture.Name = name
	if fixture.Steps == nil {
		fixture.Steps = []models.DialogStep{}
	}
	raw, err := json.Marshal(fixture)
	if err != nil {
		return fmt.Errorf("failed to encode fixture %q: %w", name, err)
	}
	if err := s.Validate(name, raw); err != nil {
		return err
	}

	query, args := builder().Insert("bot_files").
		Columns("bot_id", "folder", "name", "content", "updated_at").
		Values(s.botID, ScenarioFolder, name, string(raw), time.Now()).
		OnConflict(
			entsql.ConflictColumns("bot_id", "folder", "name"),
			entsql.ResolveWithNewValues(),
		).
		Query()
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("failed to write fixture %q: %w", name, err)
	}
	return nil
}

// Get reads one fixture. Returns ErrNotFound when absent.
func (s *FixtureStore) Get(ctx context.Context, name string) (*models.Scenario, error) {
	query, args := builder().Select("content").
		From(entsql.Table("bot_files")).
		Where(entsql.And(
			entsql.EQ("bot_id", s.botID),
			entsql.EQ("folder", ScenarioFolder),
			entsql.EQ("name", name),
		)).
		Query()

	var raw []byte
	err := s.db.QueryRowContext(ctx, query, args...).Scan(&raw)
	if errors.Is(err, stdsql.ErrNoRows) {
		return nil, fmt.Errorf("scenario %q: %w", name, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read fixture %q: %w", name, err)
	}
	return s.decode(name, raw)
}

// List returns every stored fixture ordered by name.
// Fixtures that fail validation are skipped with a warning so one broken file
// does not hide the others.
func (s *FixtureStore) List(ctx context.Context) ([]*models.Scenario, error) {
	query, args := builder().Select("name", "content").
		From(entsql.Table("bot_files")).
		Where(entsql.And(
			entsql.EQ("bot_id", s.botID),
			entsql.EQ("folder", ScenarioFolder),
		)).
		OrderBy("name").
		Query()

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list fixtures: %w", err)
	}
	defer func() { _ = rows.Close() }()

	scenarios := []*models.Scenario{}
	for rows.Next() {
		var (
			name string
			raw  []byte
		)
		if err := rows.Scan(&name, &raw); err != nil {
			return nil, fmt.Errorf("failed to scan fixture: %w", err)
		}
		scenario, err := s.decode(name, raw)
		if err != nil {
			slog.Warn("Skipping invalid scenario fixture", "name", name, "error", err)
			continue
		}
		scenarios = append(scenarios, scenario)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list fixtures: %w", err)
	}
	return scenarios, nil
}

// Delete removes one fixture. Returns ErrNotFound when absent.
func (s *FixtureStore) Delete(ctx context.Context, name string) error {
	query, args := builder().Delete("bot_files").
		Where(entsql.And(
			entsql.EQ("bot_id", s.botID),
			entsql.EQ("folder", ScenarioFolder),
			entsql.EQ("name", name),
		)).
		Query()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to delete fixture %q: %w", name, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to delete fixture %q: %w", name, err)
	}
	if n == 0 {
		return fmt.Errorf("scenario %q: %w", name, ErrNotFound)
	}
	return nil
}

// DeleteAll removes every fixture of the bot and returns how many were deleted.
func (s *FixtureStore) DeleteAll(ctx context.Context) (int, error) {
	query, args := builder().Delete("bot_files").
		Where(entsql.And(
			entsql.EQ("bot_id", s.botID),
			entsql.EQ("folder", ScenarioFolder),
		)).
		Query()

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to delete fixtures: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to delete fixtures: %w", err)
	}
	return int(n), nil
}

func (s *FixtureStore) decode(name string, raw []byte) (*models.Scenario, error) {
	if err := s.Validate(name, raw); err != nil {
		return nil, err
	}
	var scenario models.Scenario
	if err := json.Unmarshal(raw, &scenario); err != nil {
		return nil, &InvalidFixtureError{Name: name, Err: err}
	}
	scenario.Name = name
	return &scenario, nil
}
