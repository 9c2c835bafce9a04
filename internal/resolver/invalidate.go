package resolver

import (
	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
)

// InvalidateUser drops the cached set for one user. Called after every
// license mutation for that user.
func (r *Resolver) InvalidateUser(userID string) {
	r.cache.Delete(userID)
	r.cache.Delete(superadminKeyPrefix + userID)
	r.logger.WithField("user_id", userID).Debug("Invalidated resolved feature set")
}

// InvalidateTier drops the cached set of every user resolved onto the given
// tier. Called after a tier's overrides change. Returns how many entries
// were dropped.
func (r *Resolver) InvalidateTier(tierID string) int {
	dropped := 0
	for _, entry := range r.cache.Snapshot() {
		set, ok := entry.Value.(*models.ResolvedFeatureSet)
		if !ok || set == nil || set.TierID == nil {
			continue
		}
		if *set.TierID == tierID {
			r.cache.Delete(entry.Key)
			dropped++
		}
	}
	if dropped > 0 {
		r.logger.WithFields(logging.Fields{
			"tier_id": tierID,
			"entries": dropped,
		}).Info("Invalidated resolved feature sets for tier")
	}
	return dropped
}
