package farm

import (
	"hourfarm/internal/platform"
	"hourfarm/internal/store"
)

// challenge is a pending two-factor capability. It is consumed exactly once
// via SubmitTwoFactor and dropped when the account is deleted or the session
// is replaced.
type challenge struct {
	id      string
	domain  string
	respond func(code string)
}

// control is the transient per-account session state. Exactly one control
// exists per registered account; none of it is ever persisted.
type control struct {
	conn          platform.Conn
	gen           uint64 // bumps on every dial; stale session events are dropped
	connecting    bool
	authenticated bool
	farming       bool
	challenge     *challenge
	declared      []uint32
}

// Registry maps account IDs to their persisted record and control state,
// preserving insertion order for snapshots. It is a plain data structure:
// the coordinator's mutex is the single synchronization point for every
// read and mutation.
type Registry struct {
	accounts map[string]*store.Account
	control  map[string]*control
	order    []string
}

func NewRegistry() *Registry {
	return &Registry{
		accounts: map[string]*store.Account{},
		control:  map[string]*control{},
	}
}

func (r *Registry) add(acc *store.Account) error {
	if _, ok := r.accounts[acc.AccountID]; ok {
		return ErrConflict
	}
	r.accounts[acc.AccountID] = acc
	r.control[acc.AccountID] = &control{}
	r.order = append(r.order, acc.AccountID)
	return nil
}

func (r *Registry) remove(accountID string) (*store.Account, *control, error) {
	acc, ok := r.accounts[accountID]
	if !ok {
		return nil, nil, ErrNotFound
	}
	ctl := r.control[accountID]
	delete(r.accounts, accountID)
	delete(r.control, accountID)
	for i, id := range r.order {
		if id == accountID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return acc, ctl, nil
}

func (r *Registry) get(accountID string) (*store.Account, *control, bool) {
	acc, ok := r.accounts[accountID]
	if !ok {
		return nil, nil, false
	}
	return acc, r.control[accountID], true
}

// each visits accounts in insertion order.
func (r *Registry) each(fn func(acc *store.Account, ctl *control)) {
	for _, id := range r.order {
		fn(r.accounts[id], r.control[id])
	}
}

// snapshot deep-copies the roster for a persistence write.
func (r *Registry) snapshot() []store.Account {
	out := make([]store.Account, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.accounts[id].Clone())
	}
	return out
}
