package resolver

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"frameworks/api_licensing/internal/ledger"
	"frameworks/api_licensing/internal/tiers"
	"frameworks/api_licensing/pkg/cache"
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
)

// RegistryReader is the slice of the feature registry the resolver reads.
type RegistryReader interface {
	ListFeatures(ctx context.Context, category string) ([]models.FeatureDefinition, error)
	ListModels(ctx context.Context) ([]models.ModelDescriptor, error)
	ListComponents(ctx context.Context) ([]models.ComponentDescriptor, error)
}

// TierReader is the slice of the tier store the resolver reads.
type TierReader interface {
	GetTier(ctx context.Context, tierID string) (*models.LicenseTier, error)
	ActiveOverrides(ctx context.Context, tierID string) ([]models.TierFeatureOverride, error)
}

// LicenseReader is the slice of the ledger the resolver reads.
type LicenseReader interface {
	UserLicense(ctx context.Context, userID string) (*models.UserLicenseState, error)
}

// Config tunes the resolver cache.
type Config struct {
	CacheTTL        time.Duration
	CacheStaleFor   time.Duration
	CacheMaxEntries int
	CacheHooks      cache.MetricsHooks
}

const (
	DefaultCacheTTL        = 5 * time.Minute
	defaultCacheMaxEntries = 10000

	superadminKeyPrefix = "superadmin:"
	superadminTierName  = "superadmin"
)

// Resolver computes the effective feature set for a user by layering the
// tier's overrides on top of the registry defaults. Results are cached per
// user; staleness is bounded by the TTL when no explicit invalidation
// arrives. Resolution is read-only and never authoritative.
type Resolver struct {
	registry RegistryReader
	tiers    TierReader
	licenses LicenseReader
	cache    *cache.Cache
	logger   logging.Logger
}

func New(registry RegistryReader, tierStore TierReader, licenses LicenseReader, cfg Config, logger logging.Logger) *Resolver {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = defaultCacheMaxEntries
	}
	return &Resolver{
		registry: registry,
		tiers:    tierStore,
		licenses: licenses,
		cache: cache.New(cache.Options{
			TTL:                  cfg.CacheTTL,
			StaleWhileRevalidate: cfg.CacheStaleFor,
			MaxEntries:           cfg.CacheMaxEntries,
		}, cfg.CacheHooks),
		logger: logger,
	}
}

// Resolve returns the user's effective feature set. Superadmins get a
// synthesized all-enabled set keyed separately, so a role change never
// serves the wrong variant. Storage errors propagate; callers on an
// authorization path must treat them as "disabled".
func (r *Resolver) Resolve(ctx context.Context, userID, role string) (*models.ResolvedFeatureSet, error) {
	key := userID
	loader := r.load
	if role == models.RoleSuperAdmin {
		key = superadminKeyPrefix + userID
		loader = r.loadSuperadmin
	}

	v, ok, err := r.cache.Get(ctx, key, loader)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("feature resolution for %s returned nothing", userID)
	}
	set, ok := v.(*models.ResolvedFeatureSet)
	if !ok {
		return nil, fmt.Errorf("unexpected cache entry type %T", v)
	}
	return set, nil
}

// IsEnabled is the fail-closed single-key check: any resolution failure
// reads as disabled. Superadmins are granted before any lookup happens.
func (r *Resolver) IsEnabled(ctx context.Context, userID, role, key string) bool {
	if role == models.RoleSuperAdmin {
		return true
	}
	set, err := r.Resolve(ctx, userID, role)
	if err != nil {
		r.logger.WithError(err).WithFields(logging.Fields{
			"user_id":     userID,
			"feature_key": key,
		}).Warn("Feature resolution failed, denying")
		return false
	}
	return set.IsEnabled(key)
}

// CheckFeature reports one key's resolved state along with where it came
// from. Unknown keys report source "not_found". Storage errors propagate.
func (r *Resolver) CheckFeature(ctx context.Context, userID, role, key string) (*models.ResolvedFeature, error) {
	if role == models.RoleSuperAdmin {
		return &models.ResolvedFeature{Enabled: true, Source: models.SourceSuperadmin}, nil
	}
	set, err := r.Resolve(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	feature, found := set.Features[key]
	if !found {
		return &models.ResolvedFeature{Enabled: false, Source: "not_found"}, nil
	}
	return &feature, nil
}

// EnabledModels joins the model registry against the resolved set.
func (r *Resolver) EnabledModels(ctx context.Context, userID, role string) ([]models.ModelDescriptor, error) {
	set, err := r.Resolve(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	all, err := r.registry.ListModels(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make([]models.ModelDescriptor, 0, len(all))
	for _, model := range all {
		if model.FeatureKey == "" || set.IsEnabled(model.FeatureKey) {
			enabled = append(enabled, model)
		}
	}
	return enabled, nil
}

// EnabledComponents joins the component registry against the resolved set.
// Components without a feature key are public.
func (r *Resolver) EnabledComponents(ctx context.Context, userID, role string) ([]models.ComponentDescriptor, error) {
	set, err := r.Resolve(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	all, err := r.registry.ListComponents(ctx)
	if err != nil {
		return nil, err
	}
	enabled := make([]models.ComponentDescriptor, 0, len(all))
	for _, component := range all {
		if component.FeatureKey == nil || set.IsEnabled(*component.FeatureKey) {
			enabled = append(enabled, component)
		}
	}
	return enabled, nil
}

func (r *Resolver) load(ctx context.Context, userID string) (interface{}, bool, error) {
	set, err := r.resolveFromStore(ctx, userID)
	if err != nil {
		return nil, false, err
	}
	return set, true, nil
}

// resolveFromStore builds the layered set: registry defaults first, then the
// assigned tier's overrides replacing matching keys. Overrides naming keys
// the registry does not carry are inert.
func (r *Resolver) resolveFromStore(ctx context.Context, userID string) (*models.ResolvedFeatureSet, error) {
	features, err := r.registry.ListFeatures(ctx, "")
	if err != nil {
		return nil, err
	}

	set := &models.ResolvedFeatureSet{
		UserID:     userID,
		Features:   make(map[string]models.ResolvedFeature, len(features)),
		ComputedAt: time.Now(),
	}
	for _, def := range features {
		set.Features[def.Key] = resolvedFrom(def.DefaultValue, models.SourceDefault)
	}

	state, err := r.licenses.UserLicense(ctx, userID)
	if errors.Is(err, ledger.ErrNotFound) {
		// Principals without a user row (service tokens) get defaults.
		return set, nil
	}
	if err != nil {
		return nil, err
	}
	if !state.HasActiveLicense(time.Now()) {
		return set, nil
	}

	tier, err := r.tiers.GetTier(ctx, *state.TierID)
	if errors.Is(err, tiers.ErrNotFound) {
		r.logger.WithFields(logging.Fields{
			"user_id": userID,
			"tier_id": *state.TierID,
		}).Warn("Assigned tier no longer exists, resolving defaults only")
		return set, nil
	}
	if err != nil {
		return nil, err
	}
	set.TierID = &tier.ID
	set.TierName = &tier.TierName

	overrides, err := r.tiers.ActiveOverrides(ctx, tier.ID)
	if err != nil {
		return nil, err
	}
	for _, override := range overrides {
		if _, known := set.Features[override.FeatureKey]; !known {
			r.logger.WithFields(logging.Fields{
				"tier_id":     tier.ID,
				"feature_key": override.FeatureKey,
			}).Debug("Tier override names an unknown feature key, ignoring")
			continue
		}
		set.Features[override.FeatureKey] = resolvedFrom(override.Value, models.SourceTier)
	}
	return set, nil
}

// loadSuperadmin synthesizes an all-enabled set over every active feature.
// Limits resolve to unlimited.
func (r *Resolver) loadSuperadmin(ctx context.Context, key string) (interface{}, bool, error) {
	userID := strings.TrimPrefix(key, superadminKeyPrefix)
	features, err := r.registry.ListFeatures(ctx, "")
	if err != nil {
		return nil, false, err
	}

	name := superadminTierName
	set := &models.ResolvedFeatureSet{
		UserID:     userID,
		TierName:   &name,
		Features:   make(map[string]models.ResolvedFeature, len(features)),
		ComputedAt: time.Now(),
	}
	for _, def := range features {
		set.Features[def.Key] = models.ResolvedFeature{
			Enabled: true,
			Source:  models.SourceSuperadmin,
		}
	}
	return set, true, nil
}

func resolvedFrom(value models.FeatureValue, source string) models.ResolvedFeature {
	feature := models.ResolvedFeature{Enabled: value.Enabled, Source: source}
	if value.Kind == models.FeatureKindLimit {
		feature.Value = value.Limit
	}
	return feature
}
