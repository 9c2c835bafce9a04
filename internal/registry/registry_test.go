package registry

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
	"frameworks/api_licensing/pkg/testutil"
)

func newTestStore(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("failed to create sqlmock: %v", err)
	}
	return NewStore(mockDB, logging.NewLogger()), mock, func() { mockDB.Close() }
}

func TestListFeatures_ReturnsActiveInDisplayOrder(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	first := fixtures.BooleanFeature("models.openai", true)
	second := fixtures.LimitFeature("limits.max_flows", 10)

	rows := sqlmock.NewRows(fixtures.GetFeatureRegistryColumns()).
		AddRow(fixtures.GetFeatureRegistryRowData(first)...).
		AddRow(fixtures.GetFeatureRegistryRowData(second)...)
	mock.ExpectQuery("SELECT (.+) FROM steward.feature_registry").WillReturnRows(rows)

	features, err := store.ListFeatures(context.Background(), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(features) != 2 {
		t.Fatalf("expected 2 features, got %d", len(features))
	}
	if features[0].Key != "models.openai" || features[1].Key != "limits.max_flows" {
		t.Fatalf("unexpected feature order: %s, %s", features[0].Key, features[1].Key)
	}
	if features[1].Kind != models.FeatureKindLimit {
		t.Fatalf("expected limit kind, got %s", features[1].Kind)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListFeatures_FiltersByCategory(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	feature := fixtures.BooleanFeature("ui.playground.enabled", true)

	rows := sqlmock.NewRows(fixtures.GetFeatureRegistryColumns()).
		AddRow(fixtures.GetFeatureRegistryRowData(feature)...)
	mock.ExpectQuery("SELECT (.+) FROM steward.feature_registry").
		WithArgs("ui").
		WillReturnRows(rows)

	features, err := store.ListFeatures(context.Background(), "ui")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(features) != 1 {
		t.Fatalf("expected 1 feature, got %d", len(features))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetFeature_NotFound(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	mock.ExpectQuery("SELECT (.+) FROM steward.feature_registry").
		WithArgs("does.not.exist").
		WillReturnRows(sqlmock.NewRows(fixtures.GetFeatureRegistryColumns()))

	_, err := store.GetFeature(context.Background(), "does.not.exist")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetFeature_KindColumnWins(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	// Limit row whose JSONB default carries no value field. The scanner
	// must still classify it from the kind column.
	feature := fixtures.BooleanFeature("limits.max_flows", true)
	feature.Kind = models.FeatureKindLimit

	rows := sqlmock.NewRows(fixtures.GetFeatureRegistryColumns()).
		AddRow(fixtures.GetFeatureRegistryRowData(feature)...)
	mock.ExpectQuery("SELECT (.+) FROM steward.feature_registry").
		WithArgs("limits.max_flows").
		WillReturnRows(rows)

	got, err := store.GetFeature(context.Background(), "limits.max_flows")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.DefaultValue.Kind != models.FeatureKindLimit {
		t.Fatalf("expected limit kind on default value, got %s", got.DefaultValue.Kind)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestKnownKeys_IndexesByKey(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	known := fixtures.BooleanFeature("models.openai", true)
	keys := []string{"models.openai", "does.not.exist"}

	rows := sqlmock.NewRows(fixtures.GetFeatureRegistryColumns()).
		AddRow(fixtures.GetFeatureRegistryRowData(known)...)
	mock.ExpectQuery("SELECT (.+) FROM steward.feature_registry").
		WithArgs(pq.Array(keys)).
		WillReturnRows(rows)

	result, err := store.KnownKeys(context.Background(), keys)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 1 {
		t.Fatalf("expected 1 known key, got %d", len(result))
	}
	if _, ok := result["models.openai"]; !ok {
		t.Fatal("expected models.openai to be known")
	}
	if _, ok := result["does.not.exist"]; ok {
		t.Fatal("expected does.not.exist to be unknown")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestKnownKeys_EmptyInputSkipsQuery(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	result, err := store.KnownKeys(context.Background(), nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(result) != 0 {
		t.Fatalf("expected empty result, got %d entries", len(result))
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListModels_ScansDescriptors(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	columns := []string{
		"id", "provider", "model_id", "model_name", "model_type",
		"supports_tools", "supports_vision", "max_tokens", "feature_key", "is_active",
	}
	rows := sqlmock.NewRows(columns).
		AddRow("m1", "openai", "gpt-4o", "GPT-4o", "chat", true, true, 128000, "models.openai", true).
		AddRow("m2", "anthropic", "claude-3-opus-20240229", "Claude 3 Opus", "chat", true, true, 200000, "models.anthropic", true)
	mock.ExpectQuery("SELECT (.+) FROM steward.model_registry").WillReturnRows(rows)

	descriptors, err := store.ListModels(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(descriptors) != 2 {
		t.Fatalf("expected 2 models, got %d", len(descriptors))
	}
	if descriptors[0].ModelID != "gpt-4o" || !descriptors[0].SupportsVision {
		t.Fatalf("unexpected first model: %+v", descriptors[0])
	}
	if descriptors[1].MaxTokens == nil || *descriptors[1].MaxTokens != 200000 {
		t.Fatalf("expected max tokens 200000, got %v", descriptors[1].MaxTokens)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestListComponents_NullFeatureKeyIsPublic(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	columns := []string{"id", "component_key", "display_name", "category", "feature_key", "is_active"}
	rows := sqlmock.NewRows(columns).
		AddRow("c1", "chat_input", "Chat Input", "inputs_outputs", nil, true).
		AddRow("c2", "agent", "Agent", "agents", "components.models_and_agents", true)
	mock.ExpectQuery("SELECT (.+) FROM steward.component_registry").WillReturnRows(rows)

	components, err := store.ListComponents(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(components) != 2 {
		t.Fatalf("expected 2 components, got %d", len(components))
	}
	if components[0].FeatureKey != nil {
		t.Fatalf("expected chat_input to be public, got gate %v", *components[0].FeatureKey)
	}
	if components[1].FeatureKey == nil || *components[1].FeatureKey != "components.models_and_agents" {
		t.Fatalf("expected agent to be gated, got %+v", components[1])
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
