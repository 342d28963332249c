package ledger

import (
	"fmt"
	"math/big"

	"github.com/holiman/uint256"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
)

// RevenueScale is the fixed point scale of the per-stake revenue accumulator.
const RevenueScale = 1_000_000_000_000_000_000

var revenueScale = uint256.NewInt(RevenueScale)

func parseAccumulator(s string) (*uint256.Int, error) {
	if s == "" {
		return new(uint256.Int), nil
	}
	b, ok := new(big.Int).SetString(s, 10)
	if !ok || b.Sign() < 0 {
		return nil, fmt.Errorf("invalid revenue accumulator %q", s)
	}
	z, overflow := uint256.FromBig(b)
	if overflow {
		return nil, fmt.Errorf("revenue accumulator %q overflows", s)
	}
	return z, nil
}

func formatAccumulator(z *uint256.Int) string {
	return z.ToBig().String()
}

// splitPrice returns the author's share and the voucher pool. The pool takes
// the rounding remainder so the two always sum to price.
func splitPrice(price uint64) (author, pool uint64) {
	a := new(uint256.Int).Mul(uint256.NewInt(price), uint256.NewInt(m.AuthorSharePercent))
	a.Div(a, uint256.NewInt(100))
	author = a.Uint64()
	return author, price - author
}

// accrue credits pool to the vouchers of p pro rata to stake by advancing the
// accumulator. It returns the part of pool the accumulator can pay out, which
// is pool less rounding dust, or 0, changing nothing, when p has no counted
// stake.
func accrue(p *m.AgentProfile, pool uint64) (uint64, error) {
	if p.TotalStakedFor == 0 || pool == 0 {
		return 0, nil
	}
	acc, err := parseAccumulator(p.RevenuePerStake)
	if err != nil {
		return 0, err
	}
	staked := uint256.NewInt(p.TotalStakedFor)
	delta := new(uint256.Int).Mul(uint256.NewInt(pool), revenueScale)
	delta.Div(delta, staked)
	if delta.IsZero() {
		return 0, nil
	}
	payable := new(uint256.Int).Mul(delta, staked)
	payable.Div(payable, revenueScale)
	acc.Add(acc, delta)

	p.RevenuePerStake = formatAccumulator(acc)
	p.RevenuePool += payable.Uint64()
	return payable.Uint64(), nil
}

// sweepDust moves to the treasury the part of p's revenue pool that no vouch
// can claim. With no counted stake every vouch of p is settled, so anything in
// the pool beyond what is owed is left over from rounding.
func sweepDust(s *sheet, p *m.AgentProfile) error {
	if p.TotalStakedFor != 0 || p.RevenuePool <= p.RevenueOwed {
		return nil
	}
	if err := s.toTreasury(p.RevenuePool - p.RevenueOwed); err != nil {
		return err
	}
	p.RevenuePool = p.RevenueOwed
	return nil
}

// settle moves what v earned since its last settlement into its unclaimed
// balance. It must run before v's stake stops counting toward p.
func settle(v *m.Vouch, p *m.AgentProfile, now int64) error {
	acc, err := parseAccumulator(p.RevenuePerStake)
	if err != nil {
		return err
	}
	debt, err := parseAccumulator(v.RevenueDebt)
	if err != nil {
		return err
	}
	if v.Status.Counted() && acc.Gt(debt) {
		earned := new(uint256.Int).Sub(acc, debt)
		earned.Mul(earned, uint256.NewInt(v.StakeAmount))
		earned.Div(earned, revenueScale)
		if !earned.IsUint64() {
			return fmt.Errorf("voucher revenue overflows")
		}
		amount := earned.Uint64()
		v.UnclaimedRevenue += amount
		v.CumulativeRevenue += amount
		p.RevenueOwed += amount
	}
	v.RevenueDebt = formatAccumulator(acc)
	v.LastPayoutAt = now
	return nil
}
