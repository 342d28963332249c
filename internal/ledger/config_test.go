package ledger

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
)

func TestInitializeConfig(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.run(func(l *Ledger) error { return l.InitializeConfig(authority, defaultParams) }))

	cfg, err := h.view().Config()
	require.NoError(t, err)
	assert.Equal(t, authority, cfg.Authority)
	assert.Equal(t, uint64(minStake), cfg.MinStake)
	assert.Equal(t, uint64(disputeBond), cfg.DisputeBond)
	assert.Equal(t, uint8(50), cfg.SlashPercentage)
	assert.Equal(t, int64(cooldown), cfg.CooldownPeriod)
	assert.Equal(t, uint64(m.DefaultStakeWeight), cfg.StakeWeight)
	assert.Equal(t, uint64(m.DefaultVouchWeight), cfg.VouchWeight)
	assert.Equal(t, ConfigAddress(), cfg.Address)
	assert.Equal(t, EventConfigInitialized, h.lastEvent().Name)

	err = h.run(func(l *Ledger) error { return l.InitializeConfig(alice, defaultParams) })
	assert.ErrorIs(t, err, ErrAlreadyInitialized)

	cfg, err = h.view().Config()
	require.NoError(t, err)
	assert.Equal(t, authority, cfg.Authority)
}

func TestInitializeConfigValidation(t *testing.T) {
	tests := []struct {
		name   string
		params ConfigParams
		want   error
	}{
		{"slash over 100", ConfigParams{SlashPercentage: 101}, ErrInvalidSlashPercentage},
		{"negative cooldown", ConfigParams{CooldownPeriod: -1}, ErrInvalidCooldown},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			err := h.run(func(l *Ledger) error { return l.InitializeConfig(authority, tt.params) })
			assert.ErrorIs(t, err, tt.want)
			_, err = h.view().Config()
			assert.ErrorIs(t, err, ErrConfigNotInitialized)
		})
	}
}

func TestInstructionsRequireConfig(t *testing.T) {
	h := newHarness(t)
	assert.ErrorIs(t, h.run(func(l *Ledger) error { return l.RegisterAgent(alice, "") }), ErrConfigNotInitialized)
	assert.ErrorIs(t, h.run(func(l *Ledger) error { return l.CreateVouch(alice, bob, stake) }), ErrConfigNotInitialized)
	assert.ErrorIs(t, h.run(func(l *Ledger) error { return l.Fund(alice, alice, 1) }), ErrConfigNotInitialized)
}

func TestUpdateConfig(t *testing.T) {
	h := setup(t)

	next := ConfigParams{MinStake: sol, DisputeBond: sol, SlashPercentage: 100, CooldownPeriod: 0}
	err := h.run(func(l *Ledger) error { return l.UpdateConfig(alice, next) })
	assert.ErrorIs(t, err, ErrNotAuthority)

	err = h.run(func(l *Ledger) error { return l.UpdateConfig(authority, ConfigParams{SlashPercentage: 200}) })
	assert.ErrorIs(t, err, ErrInvalidSlashPercentage)

	h.advance(10)
	require.NoError(t, h.run(func(l *Ledger) error { return l.UpdateConfig(authority, next) }))
	cfg, err := h.view().Config()
	require.NoError(t, err)
	assert.Equal(t, uint64(sol), cfg.MinStake)
	assert.Equal(t, uint8(100), cfg.SlashPercentage)
	assert.Equal(t, uint64(m.DefaultVouchWeight), cfg.VouchWeight)
	assert.Equal(t, cfg.InitializedAt+10, cfg.UpdatedAt)

	assert.ErrorIs(t, h.createVouch(alice, bob, stake), ErrBelowMinimumStake)
}

func TestFundAndWithdrawTreasury(t *testing.T) {
	h := setup(t)
	assert.Equal(t, uint64(startingBal), h.balance(alice))
	assert.Zero(t, h.balance("nobody"))

	assert.ErrorIs(t, h.run(func(l *Ledger) error { return l.Fund(alice, alice, sol) }), ErrNotAuthority)
	assert.ErrorIs(t, h.run(func(l *Ledger) error { return l.Fund(authority, alice, 0) }), ErrInvalidAmount)

	var ev FundedEvent
	require.NoError(t, json.Unmarshal(h.lastEvent().Payload, &ev))
	assert.Equal(t, dave, ev.Recipient)

	err := h.run(func(l *Ledger) error { return l.WithdrawTreasury(authority, 1) })
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	// Dismissing a dispute forfeits the bond to the treasury.
	require.NoError(t, h.createVouch(alice, bob, stake))
	require.NoError(t, h.dispute(carol, alice, bob))
	require.NoError(t, h.resolve(authority, alice, bob, m.RulingDismissDispute))
	assert.Equal(t, uint64(disputeBond), h.treasury())

	err = h.run(func(l *Ledger) error { return l.WithdrawTreasury(alice, 1) })
	assert.ErrorIs(t, err, ErrNotAuthority)
	require.NoError(t, h.run(func(l *Ledger) error { return l.WithdrawTreasury(authority, disputeBond) }))
	assert.Zero(t, h.treasury())
	assert.Equal(t, uint64(disputeBond), h.balance(authority))
	h.checkInvariants()
}

func TestRegisterAgent(t *testing.T) {
	h := setup(t)

	p := h.agent(alice)
	assert.Equal(t, AgentAddress(alice), p.Address)
	assert.Equal(t, alice, p.Authority)
	assert.Equal(t, "https://agents.example/alice", p.MetadataURI)
	assert.Zero(t, p.ReputationScore)
	assert.Equal(t, h.clock, p.RegisteredAt)

	assert.ErrorIs(t, h.run(func(l *Ledger) error { return l.RegisterAgent(alice, "") }), ErrAlreadyRegistered)

	long := strings.Repeat("x", m.MaxMetadataURILen+1)
	assert.ErrorIs(t, h.run(func(l *Ledger) error { return l.RegisterAgent(dave, long) }), ErrMetadataURITooLong)
	require.NoError(t, h.run(func(l *Ledger) error { return l.RegisterAgent(dave, long[:m.MaxMetadataURILen]) }))

	_, err := h.view().Agent("nobody")
	assert.ErrorIs(t, err, ErrNotRegistered)
}
