// Package enforcement decides whether a principal may perform an operation.
// It holds no mutable state: every decision is a function of the resolver's
// output and the static policy tables in this package.
package enforcement

import (
	"context"

	"frameworks/api_licensing/pkg/logging"
	"frameworks/api_licensing/pkg/models"
)

// Decision reasons.
const (
	ReasonSuperadmin   = "superadmin"
	ReasonExempt       = "exempt"
	ReasonUnrestricted = "unrestricted"
	ReasonEnabled      = "feature_enabled"
	ReasonNotEnabled   = "feature_not_enabled"
)

// Decision is the outcome of an authorization check. A denial carries the
// complete list of unmet keys so callers can render an upgrade prompt.
type Decision struct {
	Allowed       bool     `json:"allowed"`
	Reason        string   `json:"reason"`
	UnmetFeatures []string `json:"unmet_features,omitempty"`
}

// FeatureSource yields resolved feature sets. *resolver.Resolver satisfies it.
type FeatureSource interface {
	Resolve(ctx context.Context, userID, role string) (*models.ResolvedFeatureSet, error)
}

// Enforcer evaluates the route and operation policy tables against a
// principal's resolved features.
type Enforcer struct {
	features FeatureSource
	logger   logging.Logger
}

// New creates an enforcer backed by the given feature source.
func New(features FeatureSource, logger logging.Logger) *Enforcer {
	return &Enforcer{features: features, logger: logger}
}

func allow(reason string) *Decision {
	return &Decision{Allowed: true, Reason: reason}
}

// AuthorizeRoute checks a request path against the route protection table.
// Any one enabled feature from the matched rule grants access.
func (e *Enforcer) AuthorizeRoute(ctx context.Context, userID, role, path string) (*Decision, error) {
	if role == models.RoleSuperAdmin {
		return allow(ReasonSuperadmin), nil
	}
	if IsExemptRoute(path) {
		return allow(ReasonExempt), nil
	}
	required := RequiredRouteFeatures(path)
	if len(required) == 0 {
		return allow(ReasonUnrestricted), nil
	}
	return e.anyEnabled(ctx, userID, role, required)
}

// AuthorizeOperation checks a named action such as "export_flow" or
// "use_model:openai". Operations absent from the policy table are allowed;
// gating an action means listing it.
func (e *Enforcer) AuthorizeOperation(ctx context.Context, userID, role, operation string) (*Decision, error) {
	if role == models.RoleSuperAdmin {
		return allow(ReasonSuperadmin), nil
	}
	required, _ := OperationFeatures(operation)
	if len(required) == 0 {
		return allow(ReasonUnrestricted), nil
	}
	return e.anyEnabled(ctx, userID, role, required)
}

// AuthorizeResources checks every capability referenced by a composite
// operation, a flow graph touching several providers. Partial capability is
// not a meaningful execution, so all keys must be enabled; the denial lists
// every unmet one.
func (e *Enforcer) AuthorizeResources(ctx context.Context, userID, role string, resources []string) (*Decision, error) {
	if role == models.RoleSuperAdmin {
		return allow(ReasonSuperadmin), nil
	}

	seen := make(map[string]bool)
	required := make([]string, 0, len(resources))
	for _, resource := range resources {
		for _, key := range ResourceFeatures(resource) {
			if !seen[key] {
				seen[key] = true
				required = append(required, key)
			}
		}
	}
	if len(required) == 0 {
		return allow(ReasonUnrestricted), nil
	}

	set, err := e.features.Resolve(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	var unmet []string
	for _, key := range required {
		if !set.IsEnabled(key) {
			unmet = append(unmet, key)
		}
	}
	if len(unmet) > 0 {
		return &Decision{Allowed: false, Reason: ReasonNotEnabled, UnmetFeatures: unmet}, nil
	}
	return allow(ReasonEnabled), nil
}

func (e *Enforcer) anyEnabled(ctx context.Context, userID, role string, required []string) (*Decision, error) {
	set, err := e.features.Resolve(ctx, userID, role)
	if err != nil {
		return nil, err
	}
	for _, key := range required {
		if set.IsEnabled(key) {
			return allow(ReasonEnabled), nil
		}
	}
	return &Decision{
		Allowed:       false,
		Reason:        ReasonNotEnabled,
		UnmetFeatures: append([]string(nil), required...),
	}, nil
}
