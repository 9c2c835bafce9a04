package registry

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"

	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
)

var ErrNotFound = errors.New("feature not found")

// Store reads and seeds the feature, model, and component registries.
// Registry rows are reference data: written at seed time and by operators,
// read on every resolution.
type Store struct {
	db     *sql.DB
	logger logging.Logger
}

func NewStore(db *sql.DB, logger logging.Logger) *Store {
	return &Store{db: db, logger: logger}
}

const featureColumns = `id, feature_key, name, description, category, subcategory,
		kind, default_value, is_premium, depends_on, display_order, is_active, created_at, updated_at`

// ListFeatures returns the active registry, optionally filtered to one
// category, in display order.
func (s *Store) ListFeatures(ctx context.Context, category string) ([]models.FeatureDefinition, error) {
	query := `
		SELECT ` + featureColumns + `
		FROM steward.feature_registry
		WHERE is_active = true
		ORDER BY category, display_order
	`
	args := []interface{}{}
	if category != "" {
		query = `
			SELECT ` + featureColumns + `
			FROM steward.feature_registry
			WHERE is_active = true AND category = $1
			ORDER BY display_order
		`
		args = append(args, category)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var features []models.FeatureDefinition
	for rows.Next() {
		def, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		features = append(features, *def)
	}
	return features, rows.Err()
}

// GetFeature returns one registry row by feature key, ErrNotFound when the
// key has never been registered.
func (s *Store) GetFeature(ctx context.Context, key string) (*models.FeatureDefinition, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+featureColumns+`
		FROM steward.feature_registry
		WHERE feature_key = $1
	`, key)

	def, err := scanFeature(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return def, nil
}

// KnownKeys returns the registry rows matching the given keys, indexed by
// key. Callers diff the result against their input to find unknown keys.
func (s *Store) KnownKeys(ctx context.Context, keys []string) (map[string]models.FeatureDefinition, error) {
	known := make(map[string]models.FeatureDefinition, len(keys))
	if len(keys) == 0 {
		return known, nil
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT `+featureColumns+`
		FROM steward.feature_registry
		WHERE feature_key = ANY($1)
	`, pq.Array(keys))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		def, err := scanFeature(rows)
		if err != nil {
			return nil, err
		}
		known[def.Key] = *def
	}
	return known, rows.Err()
}

// ListModels returns the active model catalogue. Feature gating happens at
// resolution time, not here.
func (s *Store) ListModels(ctx context.Context) ([]models.ModelDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, provider, model_id, model_name, model_type,
		       supports_tools, supports_vision, max_tokens, feature_key, is_active
		FROM steward.model_registry
		WHERE is_active = true
		ORDER BY provider, display_order, model_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var descriptors []models.ModelDescriptor
	for rows.Next() {
		var m models.ModelDescriptor
		if err := rows.Scan(
			&m.ID, &m.Provider, &m.ModelID, &m.ModelName, &m.ModelType,
			&m.SupportsTools, &m.SupportsVision, &m.MaxTokens, &m.FeatureKey, &m.IsActive,
		); err != nil {
			return nil, err
		}
		descriptors = append(descriptors, m)
	}
	return descriptors, rows.Err()
}

// ListComponents returns the active component catalogue. A NULL feature key
// marks a public component that every tier sees.
func (s *Store) ListComponents(ctx context.Context) ([]models.ComponentDescriptor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, component_key, display_name, category, feature_key, is_active
		FROM steward.component_registry
		WHERE is_active = true
		ORDER BY category, component_key
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var descriptors []models.ComponentDescriptor
	for rows.Next() {
		var c models.ComponentDescriptor
		if err := rows.Scan(
			&c.ID, &c.ComponentKey, &c.DisplayName, &c.Category, &c.FeatureKey, &c.IsActive,
		); err != nil {
			return nil, err
		}
		descriptors = append(descriptors, c)
	}
	return descriptors, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanFeature(row rowScanner) (*models.FeatureDefinition, error) {
	var d models.FeatureDefinition
	err := row.Scan(
		&d.ID, &d.Key, &d.Name, &d.Description, &d.Category, &d.Subcategory,
		&d.Kind, &d.DefaultValue, &d.IsPremium, &d.DependsOn, &d.DisplayOrder,
		&d.IsActive, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	// The kind column is authoritative; the JSONB value only infers it.
	d.DefaultValue.Kind = d.Kind
	return &d, nil
}
