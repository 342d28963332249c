package host

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
	"github.com/dirtybits/agent-reputation-oracle/internal/events"
	"github.com/dirtybits/agent-reputation-oracle/internal/kvstore"
	"github.com/dirtybits/agent-reputation-oracle/internal/ledger"
)

const sol = m.LamportsPerSOL

type capture struct {
	msgs []*events.Message
}

func (c *capture) Publish(msg *events.Message) error {
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *capture) Close() error { return nil }

func newTestHost(t *testing.T) (*Host, *capture, *int64) {
	t.Helper()
	clock := int64(1_700_000_000)
	store, err := kvstore.OpenMemory(64, kvstore.WithClock(func() time.Time { return time.Unix(clock, 0) }))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	pub := &capture{}
	return New(store, pub), pub, &clock
}

func submit(t *testing.T, h *Host, caller, name string, args interface{}) (*Receipt, error) {
	t.Helper()
	raw, err := json.Marshal(args)
	require.NoError(t, err)
	return h.Submit(context.Background(), caller, name, raw)
}

func mustSubmit(t *testing.T, h *Host, caller, name string, args interface{}) *Receipt {
	t.Helper()
	r, err := submit(t, h, caller, name, args)
	require.NoError(t, err, name)
	return r
}

func TestSubmitLifecycle(t *testing.T) {
	h, pub, clock := newTestHost(t)

	r := mustSubmit(t, h, "authority", "initializeConfig", ledger.ConfigParams{
		MinStake: sol / 100, DisputeBond: sol / 10, SlashPercentage: 50, CooldownPeriod: 86400,
	})
	require.NotNil(t, r.Event)
	assert.Equal(t, ledger.EventConfigInitialized, r.Event.Name)
	assert.Equal(t, "authority", r.Event.Caller)
	assert.Equal(t, *clock, r.Event.Timestamp)

	for _, id := range []string{"alice", "bob", "carol"} {
		mustSubmit(t, h, id, "registerAgent", map[string]string{"metadataUri": "https://a/" + id})
		mustSubmit(t, h, "authority", "fund", map[string]interface{}{"recipient": id, "lamports": 10 * sol})
	}

	mustSubmit(t, h, "alice", "vouch", map[string]interface{}{"vouchee": "bob", "stakeAmount": sol / 20})
	vouch := ledger.VouchAddress(ledger.AgentAddress("alice"), ledger.AgentAddress("bob"))

	mustSubmit(t, h, "bob", "createSkillListing", ledger.ListingParams{
		SkillID: "sum", SkillURI: "ipfs://sum", Name: "Summarize", PriceLamports: sol,
	})
	listing := ledger.SkillAddress("bob", "sum")
	mustSubmit(t, h, "carol", "purchaseSkill", map[string]string{"listing": listing})
	mustSubmit(t, h, "bob", "updateSkillPrice", map[string]interface{}{"listing": listing, "priceLamports": 2 * sol})
	mustSubmit(t, h, "alice", "claimRevenue", map[string]string{"vouch": vouch})

	mustSubmit(t, h, "carol", "openDispute", map[string]string{"vouch": vouch, "evidence": "ipfs://e"})
	mustSubmit(t, h, "authority", "resolveDispute", map[string]string{
		"dispute": ledger.DisputeAddress(vouch), "ruling": string(m.RulingDismissDispute),
	})
	*clock += 86400
	mustSubmit(t, h, "alice", "revokeVouch", map[string]string{"vouch": vouch})
	mustSubmit(t, h, "authority", "withdrawTreasury", map[string]interface{}{"lamports": sol / 10})
	mustSubmit(t, h, "bob", "delistSkill", map[string]string{"listing": listing})
	mustSubmit(t, h, "authority", "updateConfig", ledger.ConfigParams{MinStake: sol})

	raw, err := h.Fetch(ledger.KindVouch, vouch)
	require.NoError(t, err)
	var v m.Vouch
	require.NoError(t, json.Unmarshal(raw, &v))
	assert.Equal(t, m.VouchRevoked, v.Status)
	assert.Equal(t, uint64(sol*4/10), v.CumulativeRevenue)

	assert.Len(t, pub.msgs, 18)
	assert.Equal(t, ledger.EventConfigUpdated, pub.msgs[len(pub.msgs)-1].Name)

	names := make(map[string]bool)
	for _, msg := range pub.msgs {
		names[msg.Instruction] = true
	}
	assert.Len(t, names, len(Instructions()))
}

func TestSubmitRejections(t *testing.T) {
	h, pub, _ := newTestHost(t)

	_, err := submit(t, h, "alice", "mint", nil)
	assert.ErrorIs(t, err, ErrUnknownInstruction)

	_, err = submit(t, h, "", "registerAgent", nil)
	assert.ErrorIs(t, err, ErrNoCaller)

	_, err = h.Submit(context.Background(), "alice", "registerAgent", json.RawMessage(`{"metadata":"x"}`))
	assert.ErrorIs(t, err, ErrInvalidArgs)

	_, err = h.Submit(context.Background(), "alice", "registerAgent", nil)
	assert.ErrorIs(t, err, ledger.ErrConfigNotInitialized)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.Submit(ctx, "authority", "initializeConfig", json.RawMessage(`{}`))
	assert.ErrorIs(t, err, context.Canceled)

	assert.Empty(t, pub.msgs)
	_, err = h.Fetch(ledger.KindConfig, ledger.ConfigAddress())
	assert.ErrorIs(t, err, ledger.ErrAccountNotFound)
}

func TestListThroughHost(t *testing.T) {
	h, _, _ := newTestHost(t)
	mustSubmit(t, h, "authority", "initializeConfig", ledger.ConfigParams{})
	mustSubmit(t, h, "alice", "registerAgent", map[string]string{})
	mustSubmit(t, h, "bob", "registerAgent", map[string]string{})

	all, err := h.List(ledger.KindAgent)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	filtered, err := h.List(ledger.KindAgent, ledger.Filter{Field: "authority", Value: "bob"})
	require.NoError(t, err)
	assert.Len(t, filtered, 1)

	err = h.View(func(l *ledger.Ledger) error {
		p, err := l.Agent("alice")
		if err != nil {
			return err
		}
		assert.Equal(t, "alice", p.Authority)
		return nil
	})
	require.NoError(t, err)
}

func TestInstructionsCoverLedger(t *testing.T) {
	assert.Equal(t, []string{
		"claimRevenue", "createSkillListing", "delistSkill", "fund", "initializeConfig",
		"openDispute", "purchaseSkill", "registerAgent", "resolveDispute", "revokeVouch",
		"updateConfig", "updateSkillPrice", "vouch", "withdrawTreasury",
	}, Instructions())
}
