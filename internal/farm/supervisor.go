package farm

import (
	"context"
	"errors"

	"hourfarm/internal/platform"
	"hourfarm/internal/store"

	"github.com/rs/zerolog/log"
)

// Connect starts a login attempt for the account. A no-op while another
// attempt is in flight. Unknown accounts are logged and ignored: delayed
// reconnects race with account deletion by design.
func (c *Coordinator) Connect(accountID, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.connectLocked(accountID, password)
}

func (c *Coordinator) connectLocked(accountID, password string) {
	acc, ctl, ok := c.reg.get(accountID)
	if !ok {
		log.Debug().Str("account", accountID).Msg("connect for unknown account ignored")
		return
	}
	if ctl.connecting {
		return
	}

	opts := platform.ConnectOptions{AccountID: accountID}
	if password != "" {
		opts.Password = password
	} else {
		opts.CredentialToken = acc.CredentialToken
	}
	if acc.CredentialArtifactPath != "" {
		if data, err := c.store.ReadArtifact(accountID); err == nil {
			opts.DeviceArtifact = data
		} else if !errors.Is(err, store.ErrNotFound) {
			log.Warn().Err(err).Str("account", accountID).Msg("artifact read failed")
		}
	}

	// Replace any live session outright; its remaining events are stale.
	if ctl.conn != nil {
		old := ctl.conn
		go old.Disconnect()
	}
	ctl.conn = nil
	ctl.gen++
	ctl.connecting = true
	ctl.authenticated = false
	ctl.farming = false
	ctl.challenge = nil
	ctl.declared = nil

	gen := ctl.gen
	log.Info().Str("account", accountID).Bool("fresh_password", password != "").Msg("connecting")
	go c.dial(accountID, gen, opts)
}

// dial performs the blocking connection attempt off the lock, then
// re-checks that the attempt is still the current one.
func (c *Coordinator) dial(accountID string, gen uint64, opts platform.ConnectOptions) {
	conn, err := c.dialer.Dial(opts)

	c.mu.Lock()
	acc, ctl, ok := c.reg.get(accountID)
	if !ok || ctl.gen != gen {
		c.mu.Unlock()
		if conn != nil {
			conn.Disconnect()
		}
		return
	}
	if err != nil {
		ctl.connecting = false
		enabled := acc.FarmEnabled
		c.mu.Unlock()
		log.Warn().Err(err).Str("account", accountID).Msg("dial failed")
		if enabled {
			c.scheduleReconnect(accountID)
		}
		return
	}
	ctl.conn = conn
	c.mu.Unlock()

	go c.pump(accountID, gen, conn)
}

// pump forwards session events into the coordinator until the event channel
// closes. One pump goroutine exists per live Conn; per-account ordering is
// the channel's ordering.
func (c *Coordinator) pump(accountID string, gen uint64, conn platform.Conn) {
	for ev := range conn.Events() {
		c.handleEvent(accountID, gen, ev)
	}
}

func (c *Coordinator) handleEvent(accountID string, gen uint64, ev platform.Event) {
	c.mu.Lock()
	acc, ctl, ok := c.reg.get(accountID)
	if !ok || ctl.gen != gen {
		// Account deleted or session replaced underneath us.
		c.mu.Unlock()
		return
	}

	switch e := ev.(type) {
	case platform.AuthenticatedEvent:
		c.handleAuthenticatedLocked(acc, ctl)
		c.mu.Unlock()

	case platform.TwoFactorRequiredEvent:
		ctl.connecting = false
		ctl.challenge = &challenge{id: newID(), domain: e.Domain, respond: e.Respond}
		c.mu.Unlock()
		log.Info().Str("account", accountID).Str("domain", e.Domain).Msg("two-factor challenge pending")

	case platform.ErrorEvent:
		c.handleErrorLocked(acc, ctl, e)
		c.mu.Unlock()

	case platform.DisconnectedEvent:
		ctl.connecting = false
		ctl.authenticated = false
		ctl.farming = false
		ctl.challenge = nil
		ctl.declared = nil
		enabled := acc.FarmEnabled
		c.mu.Unlock()
		log.Info().Str("account", accountID).Str("reason", e.Message).Msg("disconnected")
		if enabled {
			c.scheduleReconnect(accountID)
		}

	case platform.IdentityEvent:
		acc.ProfileDisplayName = e.Profile.DisplayName
		acc.ProfileAvatar = e.Profile.AvatarHash
		c.persistLocked()
		c.mu.Unlock()

	case platform.CredentialTokenEvent:
		// Tokens may rotate or be single use; losing one forces a fresh
		// password login later, so write through immediately.
		acc.CredentialToken = e.Token
		c.persistLocked()
		c.mu.Unlock()

	case platform.DeviceArtifactEvent:
		path, err := c.store.WriteArtifact(accountID, e.Data)
		if err != nil {
			log.Error().Err(err).Str("account", accountID).Msg("artifact write failed")
			c.mu.Unlock()
			return
		}
		acc.CredentialArtifactPath = path
		c.persistLocked()
		c.mu.Unlock()

	default:
		c.mu.Unlock()
	}
}

func (c *Coordinator) handleAuthenticatedLocked(acc *store.Account, ctl *control) {
	ctl.connecting = false
	ctl.authenticated = true
	acc.CredentialInvalid = false
	log.Info().Str("account", acc.AccountID).Msg("authenticated")

	var declared []uint32
	if acc.FarmEnabled {
		declared = c.startFarmingLocked(acc, ctl)
	} else if ctl.conn != nil {
		if err := ctl.conn.SetVisibility(platform.VisibilityOnline); err != nil {
			log.Warn().Err(err).Str("account", acc.AccountID).Msg("set visibility failed")
		}
	}
	c.persistLocked()

	if len(declared) > 0 {
		go c.refreshDisplay(context.Background(), acc.AccountID, declared)
	}
}

func (c *Coordinator) handleErrorLocked(acc *store.Account, ctl *control, e platform.ErrorEvent) {
	ctl.connecting = false
	ctl.authenticated = false
	ctl.farming = false
	// A pending challenge dies with its session; keeping it would block the
	// watchdog and the delayed reconnect, which both skip challenged
	// accounts.
	ctl.challenge = nil
	ctl.declared = nil
	log.Warn().Str("account", acc.AccountID).Str("error", e.Message).Msg("session error")

	if e.Reason == platform.ReasonInvalidCredential {
		// The stored token is dead. Require an explicit relogin with a
		// fresh password before anything reconnects this account.
		acc.CredentialToken = ""
		acc.CredentialInvalid = true
		acc.FarmEnabled = false
		c.persistLocked()
		return
	}
	if acc.FarmEnabled {
		c.scheduleReconnect(acc.AccountID)
	}
}

// scheduleReconnect retries with the stored token after a fixed delay. The
// delayed action re-checks live state; it never disturbs a session that
// authenticated in the meantime.
func (c *Coordinator) scheduleReconnect(accountID string) {
	metricReconnectScheduledTotal.Add(1)
	log.Info().Str("account", accountID).Dur("delay", c.reconnectDelay).Msg("reconnect scheduled")
	go func() {
		<-c.clock.After(c.reconnectDelay)
		c.mu.Lock()
		defer c.mu.Unlock()
		acc, ctl, ok := c.reg.get(accountID)
		if !ok || !acc.FarmEnabled || ctl.connecting || ctl.authenticated || ctl.challenge != nil {
			return
		}
		c.connectLocked(accountID, "")
	}()
}
