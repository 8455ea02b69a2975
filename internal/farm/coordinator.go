package farm

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"hourfarm/internal/catalog"
	"hourfarm/internal/platform"
	"hourfarm/internal/store"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"
)

const defaultReconnectDelay = 30 * time.Second

// Snapshot is an account as exposed to the control surface: the persisted
// record merged with live session state.
type Snapshot struct {
	Account        store.Account
	Farming        bool
	Connecting     bool
	NeedsTwoFactor bool
}

// Coordinator owns the account registry and drives every session's
// connect/authenticate/farm/disconnect cycle. All operations and session
// event handlers funnel through one mutex; anything that resumes after a
// wait (dial results, delayed reconnects, display refreshes) re-fetches
// state by account ID and treats a missing account or replaced session as a
// no-op.
type Coordinator struct {
	mu  sync.Mutex
	reg *Registry

	store   *store.Store
	catalog *catalog.Client
	dialer  platform.Dialer
	clock   clockwork.Clock

	reconnectDelay time.Duration
}

func NewCoordinator(st *store.Store, cat *catalog.Client, dialer platform.Dialer, clock clockwork.Clock, reconnectDelay time.Duration) *Coordinator {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	if reconnectDelay <= 0 {
		reconnectDelay = defaultReconnectDelay
	}
	return &Coordinator{
		reg:            NewRegistry(),
		store:          st,
		catalog:        cat,
		dialer:         dialer,
		clock:          clock,
		reconnectDelay: reconnectDelay,
	}
}

// Bootstrap loads the persisted roster, registers every account and starts
// a connection attempt for each one that can log in without user input (a
// stored token and no credential-invalid flag).
func (c *Coordinator) Bootstrap() error {
	accounts, err := c.store.LoadAccounts()
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range accounts {
		acc := accounts[i].Clone()
		if acc.FarmMode == "" {
			acc.FarmMode = store.FarmModeInfinite
		}
		if err := c.reg.add(&acc); err != nil {
			log.Warn().Str("account", acc.AccountID).Msg("duplicate account in snapshot, skipping")
			continue
		}
	}
	log.Info().Int("accounts", len(accounts)).Msg("roster loaded")
	c.reg.each(func(acc *store.Account, _ *control) {
		if acc.CredentialToken != "" && !acc.CredentialInvalid {
			c.connectLocked(acc.AccountID, "")
		}
	})
	return nil
}

// Start runs the progress ticker and the watchdog on independent intervals
// until ctx is cancelled.
func (c *Coordinator) Start(ctx context.Context, tickInterval, watchdogInterval time.Duration) {
	if tickInterval <= 0 {
		tickInterval = time.Minute
	}
	if watchdogInterval <= 0 {
		watchdogInterval = time.Minute
	}
	progress := c.clock.NewTicker(tickInterval)
	watchdog := c.clock.NewTicker(watchdogInterval)
	go func() {
		defer progress.Stop()
		defer watchdog.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-progress.Chan():
				c.RunTickPass(ctx)
			case <-watchdog.Chan():
				c.RunWatchdogPass()
			}
		}
	}()
}

// AddAccount registers a new account and starts its first login with the
// supplied password.
func (c *Coordinator) AddAccount(acc store.Account, password string) (Snapshot, error) {
	if acc.AccountID == "" || password == "" {
		return Snapshot{}, ErrInvalidRequest
	}
	if acc.FarmMode == "" {
		acc.FarmMode = store.FarmModeInfinite
	}
	if !validFarmMode(acc.FarmMode) || !uniqueTitleIDs(acc.Titles) {
		return Snapshot{}, ErrInvalidRequest
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	a := acc.Clone()
	if err := c.reg.add(&a); err != nil {
		return Snapshot{}, err
	}
	c.persistLocked()
	c.connectLocked(a.AccountID, password)
	return c.snapshotLocked(a.AccountID), nil
}

// RemoveAccount tears down the session, deletes the on-disk artifact and
// drops the account from the snapshot.
func (c *Coordinator) RemoveAccount(accountID string) error {
	c.mu.Lock()
	acc, ctl, err := c.reg.remove(accountID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	conn := ctl.conn
	ctl.conn = nil
	ctl.gen++
	c.persistLocked()
	c.mu.Unlock()

	if conn != nil {
		conn.Disconnect()
	}
	if err := c.store.RemoveArtifact(acc.AccountID); err != nil {
		log.Error().Err(err).Str("account", acc.AccountID).Msg("artifact cleanup failed")
	}
	log.Info().Str("account", acc.AccountID).Msg("account removed")
	return nil
}

// Accounts returns roster snapshots merged with live session state.
func (c *Coordinator) Accounts() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Snapshot, 0, len(c.reg.order))
	c.reg.each(func(acc *store.Account, _ *control) {
		out = append(out, c.snapshotLocked(acc.AccountID))
	})
	return out
}

// ToggleFarm flips farming for an authenticated account and records the
// durable intent flag. Returns the resulting farming state.
func (c *Coordinator) ToggleFarm(ctx context.Context, accountID string) (bool, error) {
	c.mu.Lock()
	acc, ctl, ok := c.reg.get(accountID)
	if !ok {
		c.mu.Unlock()
		return false, ErrNotFound
	}
	if !ctl.authenticated {
		c.mu.Unlock()
		return false, ErrNotAuthenticated
	}

	if ctl.farming {
		acc.FarmEnabled = false
		c.stopFarmingLocked(acc, ctl)
		c.persistLocked()
		c.mu.Unlock()
		return false, nil
	}

	acc.FarmEnabled = true
	declared := c.startFarmingLocked(acc, ctl)
	c.persistLocked()
	farming := ctl.farming
	c.mu.Unlock()

	if len(declared) > 0 {
		c.refreshDisplay(ctx, accountID, declared)
	}
	return farming, nil
}

// SubmitTwoFactor consumes the pending challenge exactly once.
func (c *Coordinator) SubmitTwoFactor(accountID, code string) error {
	if code == "" {
		return ErrInvalidRequest
	}
	c.mu.Lock()
	_, ctl, ok := c.reg.get(accountID)
	if !ok {
		c.mu.Unlock()
		return ErrNotFound
	}
	if ctl.challenge == nil {
		c.mu.Unlock()
		return ErrNoActiveChallenge
	}
	respond := ctl.challenge.respond
	ctl.challenge = nil
	ctl.connecting = true
	c.mu.Unlock()

	respond(code)
	return nil
}

// Relogin starts a fresh-password login, replacing any live session.
func (c *Coordinator) Relogin(accountID, password string) error {
	if password == "" {
		return ErrInvalidRequest
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	_, _, ok := c.reg.get(accountID)
	if !ok {
		return ErrNotFound
	}
	c.connectLocked(accountID, password)
	return nil
}

// ToggleOffline flips the farming visibility preference and re-applies it
// immediately when a farming session is live.
func (c *Coordinator) ToggleOffline(accountID string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	acc, ctl, ok := c.reg.get(accountID)
	if !ok {
		return false, ErrNotFound
	}
	acc.FarmingOffline = !acc.FarmingOffline
	if ctl.farming && ctl.authenticated && ctl.conn != nil {
		if err := ctl.conn.SetVisibility(visibilityFor(acc)); err != nil {
			log.Warn().Err(err).Str("account", accountID).Msg("set visibility failed")
		}
	}
	c.persistLocked()
	return acc.FarmingOffline, nil
}

// FetchLibrary pulls the owned-titles list over the live session and caches
// it on the account, sorted by name.
func (c *Coordinator) FetchLibrary(ctx context.Context, accountID string) (int, error) {
	c.mu.Lock()
	_, ctl, ok := c.reg.get(accountID)
	if !ok {
		c.mu.Unlock()
		return 0, ErrNotFound
	}
	if !ctl.authenticated || ctl.conn == nil {
		c.mu.Unlock()
		return 0, ErrNotAuthenticated
	}
	conn := ctl.conn
	c.mu.Unlock()

	titles, err := conn.RequestOwnedTitles(ctx)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUpstreamUnavailable, err)
	}
	owned := make([]store.OwnedTitle, 0, len(titles))
	for _, t := range titles {
		owned = append(owned, store.OwnedTitle{TitleID: t.TitleID, Name: t.Name})
	}
	sort.Slice(owned, func(i, j int) bool { return owned[i].Name < owned[j].Name })

	c.mu.Lock()
	defer c.mu.Unlock()
	acc, _, ok := c.reg.get(accountID)
	if !ok {
		// Deleted while the fetch was in flight.
		return 0, ErrNotFound
	}
	acc.OwnedTitles = owned
	c.persistLocked()
	return len(owned), nil
}

func (c *Coordinator) snapshotLocked(accountID string) Snapshot {
	acc, ctl, ok := c.reg.get(accountID)
	if !ok {
		return Snapshot{}
	}
	return Snapshot{
		Account:        acc.Clone(),
		Farming:        ctl.farming,
		Connecting:     ctl.connecting,
		NeedsTwoFactor: ctl.challenge != nil,
	}
}

// persistLocked writes the whole roster through to disk. Failures are
// logged only; memory stays the source of truth until the next write.
func (c *Coordinator) persistLocked() {
	if err := c.store.SaveAccounts(c.reg.snapshot()); err != nil {
		log.Error().Err(err).Msg("snapshot write failed")
	}
}

func validFarmMode(mode store.FarmMode) bool {
	return mode == store.FarmModeInfinite || mode == store.FarmModeGoal
}

func uniqueTitleIDs(titles []store.Title) bool {
	seen := make(map[uint32]struct{}, len(titles))
	for _, t := range titles {
		if _, dup := seen[t.TitleID]; dup {
			return false
		}
		seen[t.TitleID] = struct{}{}
	}
	return true
}
