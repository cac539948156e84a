package billing

import (
	"context"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ConnectionReader loads connections
type ConnectionReader interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Connection, error)
}

// TariffPlanReader lists tariff plans
type TariffPlanReader interface {
	FindActiveByUtilityType(ctx context.Context, utilityTypeID uuid.UUID) ([]TariffPlan, error)
}

// TariffResolver selects the tariff plan that applies to a connection.
// Exactly one active plan must exist for the connection's utility type; the
// resolver never guesses between several.
type TariffResolver struct {
	connections ConnectionReader
	tariffs     TariffPlanReader
}

// NewTariffResolver creates a new TariffResolver
func NewTariffResolver(connections ConnectionReader, tariffs TariffPlanReader) *TariffResolver {
	return &TariffResolver{connections: connections, tariffs: tariffs}
}

// Resolve loads the connection and returns its applicable tariff plan
func (r *TariffResolver) Resolve(ctx context.Context, connectionID uuid.UUID) (*Connection, *TariffPlan, error) {
	conn, err := r.connections.FindByID(ctx, connectionID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := r.ResolveForConnection(ctx, conn)
	if err != nil {
		return conn, nil, err
	}
	return conn, plan, nil
}

// ResolveForConnection returns the applicable tariff plan for an already loaded connection
func (r *TariffResolver) ResolveForConnection(ctx context.Context, conn *Connection) (*TariffPlan, error) {
	plans, err := r.tariffs.FindActiveByUtilityType(ctx, conn.UtilityTypeID)
	if err != nil {
		return nil, err
	}
	plans = lo.Filter(plans, func(p TariffPlan, _ int) bool { return p.Active })

	switch len(plans) {
	case 0:
		return nil, ErrNoActiveTariff.
			WithDetail("connection_id", conn.ID.String()).
			WithDetail("utility_type_id", conn.UtilityTypeID.String())
	case 1:
		plan := plans[0]
		return &plan, nil
	default:
		ids := lo.Map(plans, func(p TariffPlan, _ int) string { return p.ID.String() })
		return nil, ErrAmbiguousTariff.
			WithDetail("connection_id", conn.ID.String()).
			WithDetail("utility_type_id", conn.UtilityTypeID.String()).
			WithDetail("tariff_plan_ids", ids)
	}
}
