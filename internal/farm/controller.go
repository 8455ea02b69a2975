package farm

import (
	"context"

	"hourfarm/internal/platform"
	"hourfarm/internal/store"

	"github.com/rs/zerolog/log"
)

// selectTitles computes the declaration set. Infinite mode declares every
// configured title; goal mode declares only titles still short of their
// goal.
func selectTitles(acc *store.Account) []uint32 {
	out := make([]uint32, 0, len(acc.Titles))
	for _, t := range acc.Titles {
		if acc.FarmMode == store.FarmModeGoal && t.FarmedMinutes >= t.GoalMinutes {
			continue
		}
		out = append(out, t.TitleID)
	}
	return out
}

func sameTitleSet(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[uint32]struct{}, len(a))
	for _, id := range a {
		set[id] = struct{}{}
	}
	for _, id := range b {
		if _, ok := set[id]; !ok {
			return false
		}
	}
	return true
}

func visibilityFor(acc *store.Account) platform.Visibility {
	if acc.FarmingOffline {
		return platform.VisibilityOffline
	}
	return platform.VisibilityOnline
}

// startFarmingLocked issues a declaration per the selection rule and
// returns the declared set (empty when farming could not start). An empty
// selection in goal mode degrades to a stop. No-op declarations are
// suppressed: if the computed set matches what the session already
// declares, no command is sent.
func (c *Coordinator) startFarmingLocked(acc *store.Account, ctl *control) []uint32 {
	if ctl.conn == nil || !ctl.authenticated {
		return nil
	}
	want := selectTitles(acc)
	if len(want) == 0 {
		c.stopFarmingLocked(acc, ctl)
		return nil
	}

	if err := ctl.conn.SetVisibility(visibilityFor(acc)); err != nil {
		log.Warn().Err(err).Str("account", acc.AccountID).Msg("set visibility failed")
	}
	if !sameTitleSet(want, ctl.declared) {
		if err := ctl.conn.DeclareActivity(want); err != nil {
			log.Warn().Err(err).Str("account", acc.AccountID).Msg("declare activity failed")
			return nil
		}
		metricDeclarationsTotal.Add(1)
	}
	ctl.declared = want
	ctl.farming = true
	log.Info().Str("account", acc.AccountID).Int("titles", len(want)).Msg("farming started")
	return want
}

// stopFarmingLocked clears the declaration and resets visibility. It never
// touches FarmEnabled; durable intent belongs to the caller.
func (c *Coordinator) stopFarmingLocked(acc *store.Account, ctl *control) {
	if ctl.conn != nil && ctl.authenticated {
		if err := ctl.conn.DeclareActivity(nil); err != nil {
			log.Warn().Err(err).Str("account", acc.AccountID).Msg("clear declaration failed")
		}
		if err := ctl.conn.SetVisibility(platform.VisibilityOnline); err != nil {
			log.Warn().Err(err).Str("account", acc.AccountID).Msg("set visibility failed")
		}
	}
	if ctl.farming {
		log.Info().Str("account", acc.AccountID).Msg("farming stopped")
	}
	ctl.farming = false
	ctl.declared = nil
	acc.FarmingDisplay = nil
}

// SetFarmMode replaces the tracked title set wholesale. Progress carries
// over for titles present in both sets; new titles start at zero and
// completed-goal entries for removed titles are dropped. A farming session
// gets its declaration recomputed in place without toggling FarmEnabled.
func (c *Coordinator) SetFarmMode(ctx context.Context, accountID string, mode store.FarmMode, titles []store.Title) (Snapshot, error) {
	if !validFarmMode(mode) || !uniqueTitleIDs(titles) {
		return Snapshot{}, ErrInvalidRequest
	}

	c.mu.Lock()
	acc, ctl, ok := c.reg.get(accountID)
	if !ok {
		c.mu.Unlock()
		return Snapshot{}, ErrNotFound
	}

	prev := make(map[uint32]int, len(acc.Titles))
	for _, t := range acc.Titles {
		prev[t.TitleID] = t.FarmedMinutes
	}
	next := make([]store.Title, 0, len(titles))
	kept := make(map[uint32]struct{}, len(titles))
	for _, t := range titles {
		if t.GoalMinutes < 0 {
			t.GoalMinutes = 0
		}
		t.FarmedMinutes = prev[t.TitleID]
		next = append(next, t)
		kept[t.TitleID] = struct{}{}
	}
	acc.Titles = next
	acc.FarmMode = mode

	goals := acc.CompletedGoals[:0]
	for _, g := range acc.CompletedGoals {
		if _, ok := kept[g.TitleID]; ok {
			goals = append(goals, g)
		}
	}
	acc.CompletedGoals = goals

	var declared []uint32
	if ctl.farming {
		declared = c.startFarmingLocked(acc, ctl)
	}
	c.persistLocked()
	snap := c.snapshotLocked(accountID)
	c.mu.Unlock()

	if len(declared) > 0 {
		c.refreshDisplay(ctx, accountID, declared)
	}
	return snap, nil
}

// refreshDisplay resolves catalog metadata for the declared set and stores
// it as the farming display cache. Runs without the lock; the result is
// dropped if the declared set moved on while lookups were in flight.
func (c *Coordinator) refreshDisplay(ctx context.Context, accountID string, declared []uint32) {
	display := make([]store.DisplayTitle, 0, len(declared))
	for _, id := range declared {
		d := c.catalog.ResolveTitle(ctx, id)
		display = append(display, store.DisplayTitle{TitleID: id, Name: d.Name, ImageURL: d.ImageURL})
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	acc, ctl, ok := c.reg.get(accountID)
	if !ok || !ctl.farming || !sameTitleSet(declared, ctl.declared) {
		return
	}
	acc.FarmingDisplay = display
	c.persistLocked()
}
