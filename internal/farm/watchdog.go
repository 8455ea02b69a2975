package farm

import "hourfarm/internal/store"

// RunWatchdogPass reconnects accounts whose durable farm intent is set but
// whose session is neither authenticated nor mid-connect. Accounts waiting
// on a two-factor code or flagged credential-invalid are left alone; both
// need user input before another login can succeed.
func (c *Coordinator) RunWatchdogPass() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.reg.each(func(acc *store.Account, ctl *control) {
		if !acc.FarmEnabled || acc.CredentialInvalid {
			return
		}
		if ctl.authenticated || ctl.connecting || ctl.challenge != nil {
			return
		}
		metricWatchdogConnectTotal.Add(1)
		c.connectLocked(acc.AccountID, "")
	})
}
