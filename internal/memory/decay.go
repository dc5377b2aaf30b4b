package memory

import (
	"context"
	"time"

	"github.com/swarmhive/swarmhive/internal/config"
	"github.com/swarmhive/swarmhive/internal/errs"
	"github.com/swarmhive/swarmhive/internal/types"
)

// tierFor derives a memory's decay tier from how long it has gone without
// validation, against the configured boundaries (spec §4.8). Anything past
// the cold boundary is stale.
func tierFor(validatedAt, now time.Time, boundaries config.DecayTierDays) types.DecayTier {
	days := int(now.Sub(validatedAt).Hours() / 24)
	switch {
	case days < boundaries.Hot:
		return types.DecayHot
	case days < boundaries.Warm:
		return types.DecayWarm
	case days < boundaries.Cold:
		return types.DecayCold
	default:
		return types.DecayStale
	}
}

// RecomputeDecayTiers re-derives every memory's decay_tier from its
// validated_at timestamp and persists any that changed. It is the only code
// path that moves a stored memory to a colder tier; reads do not change
// decay_tier (spec §4.8 "decay tiers").
func (m *Memory) RecomputeDecayTiers(ctx context.Context, now time.Time) (int, error) {
	boundaries := config.GetDecayTierDays()
	rows, err := m.db.Query(ctx, `SELECT id, validated_at, decay_tier FROM memories WHERE project_key = ?`, m.projectKey)
	if err != nil {
		return 0, errs.Wrap("SemanticMemory.RecomputeDecayTiers", errs.ErrIO, err)
	}
	defer func() { _ = rows.Close() }()

	type pending struct {
		id   string
		tier types.DecayTier
	}
	var updates []pending
	for rows.Next() {
		var id, validatedAtRaw, currentTier string
		if err := rows.Scan(&id, &validatedAtRaw, &currentTier); err != nil {
			return 0, errs.Wrap("SemanticMemory.RecomputeDecayTiers", errs.ErrIO, err)
		}
		validatedAt, err := time.Parse(time.RFC3339, validatedAtRaw)
		if err != nil {
			continue
		}
		want := tierFor(validatedAt, now, boundaries)
		if string(want) != currentTier {
			updates = append(updates, pending{id: id, tier: want})
		}
	}
	if err := rows.Err(); err != nil {
		return 0, errs.Wrap("SemanticMemory.RecomputeDecayTiers", errs.ErrIO, err)
	}

	for _, u := range updates {
		if _, err := m.Update(ctx, u.id, map[string]interface{}{"decay_tier": string(u.tier)}); err != nil {
			return 0, err
		}
	}
	return len(updates), nil
}
