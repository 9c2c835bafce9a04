package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"

	"frameworks/api_licensing/pkg/models"
	"frameworks/api_licensing/pkg/testutil"
)

func TestListPools_JoinsTierNames(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	pool := fixtures.LicensePool()

	rows := sqlmock.NewRows(append(fixtures.GetLicensePoolColumns(), "tier_name", "display_name")).
		AddRow(append(fixtures.GetLicensePoolRowData(pool), "professional", "Professional")...)
	mock.ExpectQuery("JOIN steward.license_tiers").
		WithArgs(pool.TenantID).
		WillReturnRows(rows)

	pools, err := store.ListPools(context.Background(), pool.TenantID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pools) != 1 {
		t.Fatalf("expected 1 pool, got %d", len(pools))
	}
	if pools[0].TierName != "professional" {
		t.Fatalf("expected tier name professional, got %s", pools[0].TierName)
	}
	if pools[0].AvailableCount != pool.AvailableCount {
		t.Fatalf("expected %d available, got %d", pool.AvailableCount, pools[0].AvailableCount)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestGetPool_NotFound(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	mock.ExpectQuery("FROM steward.tenant_license_pools").
		WithArgs("bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", "11111111-1111-1111-1111-111111111111").
		WillReturnRows(sqlmock.NewRows(fixtures.GetLicensePoolColumns()))

	_, err := store.GetPool(context.Background(),
		"bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", "11111111-1111-1111-1111-111111111111")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetPoolSize_CreatesPoolOnFirstPurchase(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	tier := fixtures.TierStarter()
	created := &models.TenantLicensePool{
		ID:             "aaaa2222-0000-0000-0000-000000000000",
		TenantID:       "bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb",
		TierID:         tier.ID,
		TotalCount:     5,
		AssignedCount:  0,
		AvailableCount: 5,
	}

	mock.ExpectBegin()
	mock.ExpectQuery("FROM steward.license_tiers").
		WithArgs(tier.ID).
		WillReturnRows(tierLockRows(tier))
	mock.ExpectQuery("FROM steward.tenant_license_pools").
		WithArgs(created.TenantID, tier.ID).
		WillReturnRows(poolLockRows())
	mock.ExpectQuery("INSERT INTO steward.tenant_license_pools").
		WithArgs(created.TenantID, tier.ID, 5).
		WillReturnRows(sqlmock.NewRows(fixtures.GetLicensePoolColumns()).
			AddRow(fixtures.GetLicensePoolRowData(created)...))
	mock.ExpectCommit()

	pool, err := store.SetPoolSize(context.Background(), created.TenantID, tier.ID, 5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.TotalCount != 5 || pool.AvailableCount != 5 {
		t.Fatalf("expected a fresh pool of 5, got %+v", pool)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetPoolSize_GrowsExistingPool(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	tier := fixtures.TierProfessional()
	existing := fixtures.LicensePool()
	grown := *existing
	grown.TotalCount = 20
	grown.AvailableCount = 17

	mock.ExpectBegin()
	mock.ExpectQuery("FROM steward.license_tiers").
		WithArgs(tier.ID).
		WillReturnRows(tierLockRows(tier))
	mock.ExpectQuery("FROM steward.tenant_license_pools").
		WithArgs(existing.TenantID, tier.ID).
		WillReturnRows(poolLockRows(existing))
	mock.ExpectQuery("UPDATE steward.tenant_license_pools").
		WithArgs(20, existing.ID).
		WillReturnRows(sqlmock.NewRows(fixtures.GetLicensePoolColumns()).
			AddRow(fixtures.GetLicensePoolRowData(&grown)...))
	mock.ExpectCommit()

	pool, err := store.SetPoolSize(context.Background(), existing.TenantID, tier.ID, 20)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool.TotalCount != 20 || pool.AvailableCount != 17 {
		t.Fatalf("expected 20 total and 17 available, got %+v", pool)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetPoolSize_RejectsShrinkBelowAssigned(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	tier := fixtures.TierProfessional()
	existing := fixtures.LicensePool()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM steward.license_tiers").
		WithArgs(tier.ID).
		WillReturnRows(tierLockRows(tier))
	mock.ExpectQuery("FROM steward.tenant_license_pools").
		WithArgs(existing.TenantID, tier.ID).
		WillReturnRows(poolLockRows(existing))
	mock.ExpectRollback()

	_, err := store.SetPoolSize(context.Background(), existing.TenantID, tier.ID, existing.AssignedCount-1)
	if !errors.Is(err, ErrInvalidPoolSize) {
		t.Fatalf("expected ErrInvalidPoolSize, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetPoolSize_EnforcesTierSeatCap(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	fixtures := testutil.NewDatabaseFixtures()
	tier := fixtures.TierStarter()

	mock.ExpectBegin()
	mock.ExpectQuery("FROM steward.license_tiers").
		WithArgs(tier.ID).
		WillReturnRows(tierLockRows(tier))
	mock.ExpectRollback()

	_, err := store.SetPoolSize(context.Background(),
		"bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", tier.ID, *tier.MaxSeatsPerTenant+1)
	if !errors.Is(err, ErrInvalidPoolSize) {
		t.Fatalf("expected ErrInvalidPoolSize, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestSetPoolSize_RejectsNegativeTotal(t *testing.T) {
	store, mock, cleanup := newTestStore(t)
	defer cleanup()

	_, err := store.SetPoolSize(context.Background(),
		"bbbbbbbb-bbbb-bbbb-bbbb-bbbbbbbbbbbb", "11111111-1111-1111-1111-111111111111", -1)
	if !errors.Is(err, ErrInvalidPoolSize) {
		t.Fatalf("expected ErrInvalidPoolSize, got %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
