package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lookout/internal/entitlement"
)

func TestEntitlement_Resolution(t *testing.T) {
	infra := SetupTestInfra(t)
	db := infra.PostgresDB
	ctx := context.Background()

	basic := seedPlan(t, db, "basic", "intrusion")
	pro := seedPlan(t, db, "pro", "intrusion", "fire")
	seedPlan(t, db, "legacy", "fire")

	now := time.Now()
	expired := now.Add(-time.Hour)

	// 1: active subscription to pro
	seedOrganization(t, db, 1, "basic")
	seedSubscription(t, db, 1, pro, "active", now.Add(-48*time.Hour), nil)

	// 2: no subscription, named plan only
	seedOrganization(t, db, 2, "legacy")

	// 3: subscription ended, falls back to named plan
	seedOrganization(t, db, 3, "basic")
	seedSubscription(t, db, 3, pro, "active", now.Add(-48*time.Hour), &expired)

	// 4: cancelled subscription and no named plan
	seedOrganization(t, db, 4, "")
	seedSubscription(t, db, 4, pro, "cancelled", now.Add(-48*time.Hour), nil)

	// 5: newest active subscription wins
	seedOrganization(t, db, 5, "")
	seedSubscription(t, db, 5, pro, "active", now.Add(-72*time.Hour), nil)
	seedSubscription(t, db, 5, basic, "active", now.Add(-24*time.Hour), nil)

	svc := entitlement.NewService(entitlement.NewRepository(db), 2*time.Second, createTestLogger())

	tests := []struct {
		name    string
		org     int64
		module  string
		enabled bool
		source  entitlement.Source
		plan    string
	}{
		{name: "subscription plan includes module", org: 1, module: "fire", enabled: true, source: entitlement.SourcePlan, plan: "pro"},
		{name: "module is matched case-insensitively", org: 1, module: " FIRE ", enabled: true, source: entitlement.SourcePlan, plan: "pro"},
		{name: "named plan without subscription", org: 2, module: "fire", enabled: true, source: entitlement.SourcePlan, plan: "legacy"},
		{name: "named plan lacks module", org: 2, module: "intrusion", enabled: false, source: entitlement.SourcePlan, plan: "legacy"},
		{name: "expired subscription falls back", org: 3, module: "fire", enabled: false, source: entitlement.SourcePlan, plan: "basic"},
		{name: "no effective plan", org: 4, module: "fire", enabled: false, source: entitlement.SourceNone},
		{name: "latest subscription wins", org: 5, module: "fire", enabled: false, source: entitlement.SourcePlan, plan: "basic"},
		{name: "unknown organization", org: 404, module: "fire", enabled: false, source: entitlement.SourceNone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := svc.Resolve(ctx, tt.org, tt.module)
			require.NoError(t, err)
			assert.Equal(t, tt.enabled, res.Enabled)
			assert.Equal(t, tt.source, res.Source)
			assert.Equal(t, tt.plan, res.Plan)

			decision := svc.Check(ctx, tt.org, tt.module)
			assert.Equal(t, tt.enabled, decision.Enabled)
		})
	}
}

func TestEntitlement_OverrideBeatsPlan(t *testing.T) {
	infra := SetupTestInfra(t)
	db := infra.PostgresDB
	ctx := context.Background()

	seedPlan(t, db, "basic", "intrusion")
	seedOrganization(t, db, 42, "basic")

	svc := entitlement.NewService(entitlement.NewRepository(db), 2*time.Second, createTestLogger())

	assert.Equal(t, entitlement.Decision{Enabled: false, Reason: entitlement.ReasonDisabled}, svc.Check(ctx, 42, "fire"))

	require.NoError(t, svc.SetOverride(ctx, 42, "Fire", true))
	res, err := svc.Resolve(ctx, 42, "fire")
	require.NoError(t, err)
	assert.True(t, res.Enabled)
	assert.Equal(t, entitlement.SourceOverride, res.Source)
	assert.Equal(t, "basic", res.Plan)

	require.NoError(t, svc.SetOverride(ctx, 42, "intrusion", false))
	assert.False(t, svc.Check(ctx, 42, "intrusion").Enabled)

	removed, err := svc.ClearOverride(ctx, 42, "fire")
	require.NoError(t, err)
	assert.True(t, removed)
	assert.False(t, svc.Check(ctx, 42, "fire").Enabled)

	removed, err = svc.ClearOverride(ctx, 42, "fire")
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestEntitlement_StoreUnavailableFailsClosed(t *testing.T) {
	infra := SetupTestInfra(t)
	db := infra.PostgresDB

	seedPlan(t, db, "pro", "fire")
	seedOrganization(t, db, 42, "pro")

	svc := entitlement.NewService(entitlement.NewRepository(db), 2*time.Second, createTestLogger())
	require.True(t, svc.Check(context.Background(), 42, "fire").Enabled)

	require.NoError(t, db.Close())

	decision := svc.Check(context.Background(), 42, "fire")
	assert.False(t, decision.Enabled)
	assert.Equal(t, entitlement.ReasonStoreUnavailable, decision.Reason)
}
