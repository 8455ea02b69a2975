package farm

import (
	"context"

	"hourfarm/internal/store"

	"github.com/rs/zerolog/log"
)

// RunTickPass advances play-time accounting by one minute for every account
// that is farming on an authenticated session, reconciles declarations
// against goal state, and persists once at the end if anything changed.
func (c *Coordinator) RunTickPass(ctx context.Context) {
	metricTickPassTotal.Add(1)

	type refresh struct {
		accountID string
		declared  []uint32
	}
	var refreshes []refresh

	c.mu.Lock()
	dirty := false
	c.reg.each(func(acc *store.Account, ctl *control) {
		if !ctl.farming || !ctl.authenticated {
			return
		}
		switch acc.FarmMode {
		case store.FarmModeInfinite:
			declared := make(map[uint32]struct{}, len(ctl.declared))
			for _, id := range ctl.declared {
				declared[id] = struct{}{}
			}
			for i := range acc.Titles {
				if _, ok := declared[acc.Titles[i].TitleID]; ok {
					acc.Titles[i].FarmedMinutes++
					dirty = true
				}
			}

		case store.FarmModeGoal:
			for i := range acc.Titles {
				t := &acc.Titles[i]
				if t.FarmedMinutes >= t.GoalMinutes {
					continue
				}
				t.FarmedMinutes++
				dirty = true
				if t.FarmedMinutes >= t.GoalMinutes {
					c.recordGoalCompletedLocked(acc, t.TitleID)
				}
			}

			want := selectTitles(acc)
			if len(want) == 0 {
				// Every goal met. Farming stops but the durable intent
				// flag stays set, so adding titles later resumes without
				// another toggle.
				c.stopFarmingLocked(acc, ctl)
				dirty = true
				return
			}
			if !sameTitleSet(want, ctl.declared) {
				if err := ctl.conn.DeclareActivity(want); err != nil {
					log.Warn().Err(err).Str("account", acc.AccountID).Msg("declare activity failed")
					return
				}
				metricDeclarationsTotal.Add(1)
				ctl.declared = want
				refreshes = append(refreshes, refresh{accountID: acc.AccountID, declared: want})
			}
		}
	})
	if dirty {
		c.persistLocked()
	}
	c.mu.Unlock()

	for _, r := range refreshes {
		c.refreshDisplay(ctx, r.accountID, r.declared)
	}
}

// recordGoalCompletedLocked appends to CompletedGoals at most once per
// title.
func (c *Coordinator) recordGoalCompletedLocked(acc *store.Account, titleID uint32) {
	for _, g := range acc.CompletedGoals {
		if g.TitleID == titleID {
			return
		}
	}
	acc.CompletedGoals = append(acc.CompletedGoals, store.CompletedGoal{
		TitleID:     titleID,
		CompletedAt: c.clock.Now(),
	})
	metricGoalCompletedTotal.Add(1)
	log.Info().Str("account", acc.AccountID).Uint32("title_id", titleID).Msg("goal completed")
}
