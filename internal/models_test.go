package internal

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestReputationFormula(t *testing.T) {
	cfg := &LedgerConfig{StakeWeight: DefaultStakeWeight, VouchWeight: DefaultVouchWeight}

	p := &AgentProfile{}
	assert.Equal(t, uint64(0), p.Reputation(cfg))

	p.TotalStakedFor = 50_000_000
	p.TotalVouchesReceived = 1
	assert.Equal(t, uint64(50_000_100), p.Reputation(cfg))

	p.TotalVouchesReceived = 3
	assert.Equal(t, uint64(50_000_300), p.Reputation(cfg))
}

func TestReputationSaturates(t *testing.T) {
	cfg := &LedgerConfig{StakeWeight: 2, VouchWeight: DefaultVouchWeight}
	p := &AgentProfile{TotalStakedFor: math.MaxUint64 / 2, TotalVouchesReceived: 10}
	assert.Equal(t, uint64(math.MaxUint64), p.Reputation(cfg))
}

func TestVouchStatusClasses(t *testing.T) {
	assert.True(t, VouchActive.Counted())
	assert.True(t, VouchDisputed.Counted())
	assert.False(t, VouchRevoked.Counted())
	assert.False(t, VouchSlashed.Counted())

	assert.True(t, VouchRevoked.Terminal())
	assert.True(t, VouchSlashed.Terminal())
	assert.False(t, VouchActive.Terminal())
	assert.False(t, VouchDisputed.Terminal())
}

func TestDisputeRulingValid(t *testing.T) {
	assert.True(t, RulingSlashVoucher.Valid())
	assert.True(t, RulingDismissDispute.Valid())
	assert.False(t, DisputeRuling("Vindicate").Valid())
}
