package ledger

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
	"github.com/dirtybits/agent-reputation-oracle/internal/kvstore"
)

const (
	sol       = m.LamportsPerSOL
	authority = "authority"
	alice     = "alice"
	bob       = "bob"
	carol     = "carol"
	dave      = "dave"

	minStake    = sol / 100
	disputeBond = sol / 10
	stake       = sol / 20
	cooldown    = 86400
	startingBal = 10 * sol
)

var defaultParams = ConfigParams{
	MinStake:        minStake,
	DisputeBond:     disputeBond,
	SlashPercentage: 50,
	CooldownPeriod:  cooldown,
}

type harness struct {
	t      *testing.T
	store  *kvstore.Store
	clock  int64
	funded uint64
	events []*kvstore.Event
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{t: t, clock: 1_700_000_000}
	s, err := kvstore.OpenMemory(64, kvstore.WithClock(func() time.Time { return time.Unix(h.clock, 0) }))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	h.store = s
	return h
}

// setup returns a ledger with the default config, alice, bob and carol
// registered, and every agent funded.
func setup(t *testing.T) *harness {
	h := newHarness(t)
	require.NoError(t, h.run(func(l *Ledger) error { return l.InitializeConfig(authority, defaultParams) }))
	for _, id := range []string{alice, bob, carol} {
		id := id
		require.NoError(t, h.run(func(l *Ledger) error { return l.RegisterAgent(id, "https://agents.example/"+id) }))
	}
	for _, id := range []string{alice, bob, carol, dave} {
		h.fund(id, startingBal)
	}
	return h
}

// run executes fn in its own transaction, committing on success and
// discarding every write on failure.
func (h *harness) run(fn func(l *Ledger) error) error {
	h.t.Helper()
	txn := h.store.Begin()
	if err := fn(New(txn)); err != nil {
		txn.Discard()
		return err
	}
	require.NoError(h.t, txn.Commit())
	if ev := txn.Event(); ev != nil {
		h.events = append(h.events, ev)
	}
	return nil
}

func (h *harness) fund(identity string, lamports uint64) {
	h.t.Helper()
	require.NoError(h.t, h.run(func(l *Ledger) error { return l.Fund(authority, identity, lamports) }))
	h.funded += lamports
}

func (h *harness) advance(seconds int64) {
	h.clock += seconds
}

func (h *harness) view() *Ledger {
	return New(h.store.Begin())
}

func (h *harness) lastEvent() *kvstore.Event {
	h.t.Helper()
	require.NotEmpty(h.t, h.events)
	return h.events[len(h.events)-1]
}

func (h *harness) agent(identity string) *m.AgentProfile {
	h.t.Helper()
	p, err := h.view().Agent(identity)
	require.NoError(h.t, err)
	return p
}

func (h *harness) balance(identity string) uint64 {
	h.t.Helper()
	b, err := h.view().Balance(identity)
	require.NoError(h.t, err)
	return b.Lamports
}

func (h *harness) treasury() uint64 {
	h.t.Helper()
	tr, err := h.view().Treasury()
	require.NoError(h.t, err)
	return tr.Lamports
}

func (h *harness) vouch(voucher, vouchee string) *m.Vouch {
	h.t.Helper()
	v, err := h.view().Vouch(vouchAddr(voucher, vouchee))
	require.NoError(h.t, err)
	return v
}

func (h *harness) createVouch(voucher, vouchee string, amount uint64) error {
	return h.run(func(l *Ledger) error { return l.CreateVouch(voucher, vouchee, amount) })
}

func (h *harness) revoke(voucher, vouchee string) error {
	return h.run(func(l *Ledger) error { return l.RevokeVouch(voucher, vouchAddr(voucher, vouchee)) })
}

func (h *harness) dispute(challenger, voucher, vouchee string) error {
	return h.run(func(l *Ledger) error {
		return l.OpenDispute(challenger, vouchAddr(voucher, vouchee), "ipfs://evidence")
	})
}

func (h *harness) resolve(caller, voucher, vouchee string, ruling m.DisputeRuling) error {
	return h.run(func(l *Ledger) error {
		return l.ResolveDispute(caller, DisputeAddress(vouchAddr(voucher, vouchee)), ruling)
	})
}

func vouchAddr(voucher, vouchee string) string {
	return VouchAddress(AgentAddress(voucher), AgentAddress(vouchee))
}

// listAll decodes every account of kind into a fresh T.
func listAll[T any](h *harness, kind Kind, filters ...Filter) []T {
	h.t.Helper()
	raw, err := h.view().List(kind, filters...)
	require.NoError(h.t, err)
	out := make([]T, 0, len(raw))
	for _, r := range raw {
		var v T
		require.NoError(h.t, json.Unmarshal(r, &v))
		out = append(out, v)
	}
	return out
}

// checkInvariants asserts the ledger-wide properties that must hold after
// every committed instruction.
func (h *harness) checkInvariants() {
	h.t.Helper()
	cfg, err := h.view().Config()
	require.NoError(h.t, err)

	staked := make(map[string]uint64)
	owed := make(map[string]uint64)
	var locked uint64
	for _, v := range listAll[m.Vouch](h, KindVouch) {
		owed[v.Vouchee] += v.UnclaimedRevenue
		if v.Status.Counted() {
			staked[v.Vouchee] += v.StakeAmount
			locked += v.StakeAmount
		}
	}
	for _, p := range listAll[m.AgentProfile](h, KindAgent) {
		require.Equal(h.t, staked[p.Address], p.TotalStakedFor, "staked for %s", p.Authority)
		require.Equal(h.t, p.Reputation(cfg), p.ReputationScore, "score of %s", p.Authority)
		require.Equal(h.t, owed[p.Address], p.RevenueOwed, "revenue owed by %s", p.Authority)
		require.LessOrEqual(h.t, p.RevenueOwed, p.RevenuePool, "revenue pool of %s", p.Authority)
		locked += p.RevenuePool
	}
	for _, d := range listAll[m.Dispute](h, KindDispute) {
		if d.Status == m.DisputeOpen {
			locked += d.Bond
		}
	}
	var free uint64
	for _, b := range listAll[m.Balance](h, KindBalance) {
		free += b.Lamports
	}
	require.Equal(h.t, h.funded, free+locked+h.treasury(), "lamports are conserved")
}
