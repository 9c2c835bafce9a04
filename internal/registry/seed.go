package registry

import (
	"context"
	"fmt"
)

// SeedDefaults inserts any catalogue rows missing from the database and
// reports how many were added. Existing rows are never modified, so operator
// edits survive restarts. Ordering matters: models and components carry
// foreign keys into the feature registry.
func (s *Store) SeedDefaults(ctx context.Context) (int, error) {
	inserted := 0

	for _, f := range defaultFeatures() {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO steward.feature_registry
				(feature_key, name, description, category, subcategory, kind, default_value, is_premium, display_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (feature_key) DO NOTHING
		`, f.Key, f.Name, f.Description, f.Category, f.Subcategory,
			string(f.Kind), f.DefaultValue, f.IsPremium, f.DisplayOrder)
		if err != nil {
			return inserted, fmt.Errorf("seed feature %s: %w", f.Key, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	for i, m := range defaultModels() {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO steward.model_registry
				(provider, model_id, model_name, model_type, supports_tools, supports_vision, max_tokens, feature_key, display_order)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (provider, model_id) DO NOTHING
		`, m.Provider, m.ModelID, m.ModelName, m.ModelType,
			m.SupportsTools, m.SupportsVision, m.MaxTokens, m.FeatureKey, i)
		if err != nil {
			return inserted, fmt.Errorf("seed model %s/%s: %w", m.Provider, m.ModelID, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	for _, c := range defaultComponents() {
		res, err := s.db.ExecContext(ctx, `
			INSERT INTO steward.component_registry
				(component_key, display_name, category, feature_key)
			VALUES ($1, $2, $3, $4)
			ON CONFLICT (component_key) DO NOTHING
		`, c.ComponentKey, c.DisplayName, c.Category, c.FeatureKey)
		if err != nil {
			return inserted, fmt.Errorf("seed component %s: %w", c.ComponentKey, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			inserted += int(n)
		}
	}

	if inserted > 0 {
		s.logger.WithField("inserted", inserted).Info("Seeded feature catalogue defaults")
	}
	return inserted, nil
}
