package tiers

import (
	"context"
	"errors"
	"testing"
	"time"

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

func TestListTiers_ActiveOnly(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	starter := fixtures.TierStarter()
	professional := fixtures.TierProfessional()

	rows := sqlmock.NewRows(fixtures.GetLicenseTierColumns()).
		AddRow(fixtures.GetLicenseTierRowData(starter)...).
		AddRow(fixtures.GetLicenseTierRowData(professional)...)
	mock.ExpectQuery("SELECT (.+) FROM steward.license_tiers").WillReturnRows(rows)

	tiers, err := store.ListTiers(context.Background(), false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(tiers) != 2 {
		t.Fatalf("expected 2 tiers, got %d", len(tiers))
	}
	if tiers[0].TierName != "starter" || tiers[1].TierName != "professional" {
		t.Fatalf("unexpected tier order: %s, %s", tiers[0].TierName, tiers[1].TierName)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetTier_NotFound(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	mock.ExpectQuery("SELECT (.+) FROM steward.license_tiers").
		WithArgs("no-such-tier").
		WillReturnRows(sqlmock.NewRows(fixtures.GetLicenseTierColumns()))

	_, err := store.GetTier(context.Background(), "no-such-tier")
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateTier_DefaultsCurrency(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	tier := &models.LicenseTier{
		TierName:       "team",
		DisplayName:    "Team",
		DefaultCredits: 5000,
	}

	returned := sqlmock.NewRows([]string{"id", "is_active", "created_at", "updated_at"}).
		AddRow("33333333-3333-3333-3333-333333333333", true, time.Now(), time.Now())
	mock.ExpectQuery("INSERT INTO steward.license_tiers").
		WithArgs("team", "Team", "", int64(5000), nil, int64(0), "EUR", nil, 0).
		WillReturnRows(returned)

	if err := store.CreateTier(context.Background(), tier); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if tier.ID != "33333333-3333-3333-3333-333333333333" {
		t.Fatalf("expected generated id to be filled in, got %q", tier.ID)
	}
	if tier.Currency != "EUR" {
		t.Fatalf("expected currency to default to EUR, got %s", tier.Currency)
	}
	if !tier.IsActive {
		t.Fatal("expected new tier to be active")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateTier_DuplicateName(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	mock.ExpectQuery("INSERT INTO steward.license_tiers").
		WillReturnError(&pq.Error{Code: "23505"})

	err := store.CreateTier(context.Background(), &models.LicenseTier{
		TierName:    "starter",
		DisplayName: "Starter",
		Currency:    "EUR",
	})
	if err != ErrDuplicateName {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateTier_BuildsDynamicQuery(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	displayName := "Starter Plus"
	isActive := false
	mock.ExpectExec("UPDATE steward.license_tiers SET updated_at = NOW\\(\\), display_name = \\$1, is_active = \\$2 WHERE id = \\$3").
		WithArgs(displayName, isActive, "tier-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := store.UpdateTier(context.Background(), "tier-1", TierUpdate{
		DisplayName: &displayName,
		IsActive:    &isActive,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestUpdateTier_NoFields(t *testing.T) {
	store, _, cleanup := newTestStore(t)
	defer cleanup()

	err := store.UpdateTier(context.Background(), "tier-1", TierUpdate{})
	if err != ErrNoFields {
		t.Fatalf("expected ErrNoFields, got %v", err)
	}
}

func TestUpdateTier_NotFound(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	credits := int64(2000)
	mock.ExpectExec("UPDATE steward.license_tiers").
		WithArgs(credits, "no-such-tier").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := store.UpdateTier(context.Background(), "no-such-tier", TierUpdate{DefaultCredits: &credits})
	if err != ErrNotFound {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestActiveOverrides_ScansValues(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	columns := []string{"id", "tier_id", "feature_key", "value", "expires_at", "updated_by", "created_at", "updated_at"}
	now := time.Now()
	rows := sqlmock.NewRows(columns).
		AddRow("o1", "tier-1", "models.mistral", []byte(`{"enabled": true}`), nil, nil, now, now).
		AddRow("o2", "tier-1", "limits.max_flows", []byte(`{"enabled": true, "value": 100}`), nil, nil, now, now)
	mock.ExpectQuery("SELECT (.+) FROM steward.tier_feature_overrides").
		WithArgs("tier-1").
		WillReturnRows(rows)

	overrides, err := store.ActiveOverrides(context.Background(), "tier-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(overrides) != 2 {
		t.Fatalf("expected 2 overrides, got %d", len(overrides))
	}
	if !overrides[0].Value.Enabled {
		t.Fatal("expected models.mistral override to be enabled")
	}
	if overrides[1].Value.Limit == nil || *overrides[1].Value.Limit != 100 {
		t.Fatalf("expected limit override value 100, got %v", overrides[1].Value.Limit)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetOverrides_UpsertsSortedKeysInOneTransaction(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	values := map[string]models.FeatureValue{
		"ui.playground.enabled": models.BooleanValue(true),
		"models.mistral":        models.BooleanValue(true),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO steward.tier_feature_overrides").
		WithArgs("tier-1", "models.mistral", values["models.mistral"], "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("INSERT INTO steward.tier_feature_overrides").
		WithArgs("tier-1", "ui.playground.enabled", values["ui.playground.enabled"], "admin-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	keys, err := store.SetOverrides(context.Background(), "tier-1", values, "admin-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(keys) != 2 || keys[0] != "models.mistral" || keys[1] != "ui.playground.enabled" {
		t.Fatalf("expected sorted keys, got %v", keys)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetOverrides_RollsBackOnFailure(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	values := map[string]models.FeatureValue{
		"models.mistral": models.BooleanValue(true),
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO steward.tier_feature_overrides").
		WillReturnError(errors.New("connection reset"))
	mock.ExpectRollback()

	if _, err := store.SetOverrides(context.Background(), "tier-1", values, ""); err == nil {
		t.Fatal("expected error when upsert fails")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
