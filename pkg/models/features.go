package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// FeatureKind discriminates the two feature value shapes.
type FeatureKind string

const (
	FeatureKindBoolean FeatureKind = "boolean"
	FeatureKindLimit   FeatureKind = "limit"
)

// Resolution sources for a resolved feature value.
const (
	SourceDefault    = "default"
	SourceTier       = "tier"
	SourceSuperadmin = "superadmin"
)

// FeatureValue is the tagged value carried by registry defaults and tier
// overrides. Boolean features carry enabled only; limit features carry
// enabled plus an optional numeric limit (nil = unlimited).
type FeatureValue struct {
	Kind    FeatureKind `json:"-"`
	Enabled bool        `json:"enabled"`
	Limit   *int64      `json:"value,omitempty"`
}

// BooleanValue builds a boolean feature value.
func BooleanValue(enabled bool) FeatureValue {
	return FeatureValue{Kind: FeatureKindBoolean, Enabled: enabled}
}

// LimitValue builds a limit feature value. A nil limit means unlimited.
func LimitValue(enabled bool, limit *int64) FeatureValue {
	return FeatureValue{Kind: FeatureKindLimit, Enabled: enabled, Limit: limit}
}

// UnmarshalJSON accepts three wire shapes: a bare boolean, {"enabled":b},
// and {"enabled":b,"value":n}. Kind is inferred from the presence of value;
// stores overwrite it with the registry row's kind after scanning.
func (v *FeatureValue) UnmarshalJSON(data []byte) error {
	var enabled bool
	if err := json.Unmarshal(data, &enabled); err == nil {
		*v = FeatureValue{Kind: FeatureKindBoolean, Enabled: enabled}
		return nil
	}

	var raw struct {
		Enabled bool   `json:"enabled"`
		Value   *int64 `json:"value"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v.Enabled = raw.Enabled
	v.Limit = raw.Value
	if raw.Value != nil {
		v.Kind = FeatureKindLimit
	} else {
		v.Kind = FeatureKindBoolean
	}
	return nil
}

// Value implements driver.Valuer so FeatureValue maps to a JSONB column.
func (v FeatureValue) Value() (driver.Value, error) {
	return json.Marshal(v)
}

// Scan implements sql.Scanner for JSONB columns.
func (v *FeatureValue) Scan(value interface{}) error {
	if value == nil {
		*v = FeatureValue{}
		return nil
	}

	var bytes []byte
	switch raw := value.(type) {
	case []byte:
		bytes = raw
	case string:
		bytes = []byte(raw)
	default:
		return fmt.Errorf("cannot scan %T into FeatureValue", value)
	}

	return json.Unmarshal(bytes, v)
}

// StringList is a JSONB-encoded string array column.
type StringList []string

// Value implements the driver.Valuer interface for StringList
func (l StringList) Value() (driver.Value, error) {
	if l == nil {
		return json.Marshal([]string{})
	}
	return json.Marshal(l)
}

// Scan implements the sql.Scanner interface for StringList
func (l *StringList) Scan(value interface{}) error {
	if value == nil {
		*l = nil
		return nil
	}

	var bytes []byte
	switch raw := value.(type) {
	case []byte:
		bytes = raw
	case string:
		bytes = []byte(raw)
	default:
		return fmt.Errorf("cannot scan %T into StringList", value)
	}

	return json.Unmarshal(bytes, l)
}

// FeatureDefinition is a row in the feature registry: one gateable
// capability key and its platform-wide default.
type FeatureDefinition struct {
	ID          string  `json:"id" db:"id"`
	Key         string  `json:"feature_key" db:"feature_key"`
	Name        string  `json:"feature_name" db:"name"`
	Description string  `json:"description" db:"description"`
	Category    string  `json:"category" db:"category"`
	Subcategory *string `json:"subcategory,omitempty" db:"subcategory"`

	Kind         FeatureKind  `json:"kind" db:"kind"`
	DefaultValue FeatureValue `json:"default_value" db:"default_value"`

	IsPremium bool `json:"is_premium" db:"is_premium"`

	// DependsOn is carried for documentation and UI grouping; dependency
	// resolution between features is not enforced anywhere.
	DependsOn StringList `json:"depends_on" db:"depends_on"`

	DisplayOrder int  `json:"display_order" db:"display_order"`
	IsActive     bool `json:"is_active" db:"is_active"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}

// ModelDescriptor is a row in the model registry: an AI model offered by the
// platform, gated behind a feature key.
type ModelDescriptor struct {
	ID             string `json:"id" db:"id"`
	Provider       string `json:"provider" db:"provider"`
	ModelID        string `json:"model_id" db:"model_id"`
	ModelName      string `json:"model_name" db:"model_name"`
	ModelType      string `json:"model_type" db:"model_type"`
	SupportsTools  bool   `json:"supports_tools" db:"supports_tools"`
	SupportsVision bool   `json:"supports_vision" db:"supports_vision"`
	MaxTokens      *int   `json:"max_tokens,omitempty" db:"max_tokens"`
	FeatureKey     string `json:"feature_key" db:"feature_key"`
	IsActive       bool   `json:"is_active" db:"is_active"`
}

// ComponentDescriptor is a row in the component registry. A nil FeatureKey
// marks a public component that is never gated.
type ComponentDescriptor struct {
	ID           string  `json:"id" db:"id"`
	ComponentKey string  `json:"component_key" db:"component_key"`
	DisplayName  string  `json:"display_name" db:"display_name"`
	Category     string  `json:"category" db:"category"`
	FeatureKey   *string `json:"feature_key,omitempty" db:"feature_key"`
	IsActive     bool    `json:"is_active" db:"is_active"`
}

// ResolvedFeature is one entry of a resolved feature set.
type ResolvedFeature struct {
	Enabled bool   `json:"enabled"`
	Value   *int64 `json:"value,omitempty"`
	Source  string `json:"source"`
}

// ResolvedFeatureSet is the merged view of registry defaults and tier
// overrides for one user at one point in time. Derived and cacheable,
// never authoritative.
type ResolvedFeatureSet struct {
	UserID     string                     `json:"user_id"`
	TierID     *string                    `json:"tier_id"`
	TierName   *string                    `json:"tier_name"`
	Features   map[string]ResolvedFeature `json:"features"`
	ComputedAt time.Time                  `json:"computed_at"`
}

// IsEnabled reports whether a key resolved to enabled. Unknown keys are
// disabled, never an error: resolution fails closed.
func (s *ResolvedFeatureSet) IsEnabled(key string) bool {
	if s == nil {
		return false
	}
	feature, ok := s.Features[key]
	return ok && feature.Enabled
}
