package ledger

import (
	"errors"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
)

// CreateVouch locks stakeAmount from the caller's balance behind vouchee.
func (l *Ledger) CreateVouch(caller, vouchee string, stakeAmount uint64) error {
	cfg, err := l.Config()
	if err != nil {
		return err
	}
	if stakeAmount == 0 || stakeAmount < cfg.MinStake {
		return ErrBelowMinimumStake
	}
	voucherProfile, err := l.Agent(caller)
	if err != nil {
		return err
	}
	if caller == vouchee {
		return ErrSelfVouch
	}

	address := VouchAddress(voucherProfile.Address, AgentAddress(vouchee))
	var v m.Vouch
	found, err := l.load(KindVouch, address, &v)
	if err != nil {
		return err
	}
	if found && !v.Status.Terminal() {
		return ErrAlreadyVouched
	}
	voucheeProfile, err := l.Agent(vouchee)
	if errors.Is(err, ErrNotRegistered) {
		return ErrVoucheeNotRegistered
	}
	if err != nil {
		return err
	}

	s := l.sheet()
	ok, err := s.covers(caller, stakeAmount)
	if err != nil {
		return err
	}
	if !ok {
		return ErrInsufficientFunds
	}
	now, err := l.now()
	if err != nil {
		return err
	}

	if err := s.debit(caller, stakeAmount); err != nil {
		return err
	}
	if !found {
		v = m.Vouch{
			Address: address,
			Voucher: voucherProfile.Address,
			Vouchee: voucheeProfile.Address,
		}
	}
	// A revoked or slashed record is reset in place; its earned revenue stays.
	v.StakeAmount = stakeAmount
	v.CreatedAt = now
	v.Status = m.VouchActive
	v.RevenueDebt = voucheeProfile.RevenuePerStake
	v.LastPayoutAt = now

	voucherProfile.TotalVouchesGiven++
	voucheeProfile.TotalVouchesReceived++
	voucheeProfile.TotalStakedFor += stakeAmount
	refresh(voucheeProfile, cfg)

	if err := l.storeAll(s, &v, voucherProfile, voucheeProfile); err != nil {
		return err
	}
	return l.emit(EventVouchCreated, VouchEvent{Vouch: &v, VoucheeScore: voucheeProfile.ReputationScore})
}

// RevokeVouch returns the full stake to the voucher once the cooldown has
// elapsed. A disputed vouch cannot be revoked until the dispute resolves.
func (l *Ledger) RevokeVouch(caller, vouchAddress string) error {
	cfg, err := l.Config()
	if err != nil {
		return err
	}
	v, err := l.Vouch(vouchAddress)
	if err != nil {
		return err
	}
	voucherProfile, err := l.Agent(caller)
	if errors.Is(err, ErrNotRegistered) {
		return ErrNotVoucher
	}
	if err != nil {
		return err
	}
	if voucherProfile.Address != v.Voucher {
		return ErrNotVoucher
	}
	now, err := l.now()
	if err != nil {
		return err
	}
	if now-v.CreatedAt < cfg.CooldownPeriod {
		return ErrCooldownActive
	}
	if v.Status != m.VouchActive {
		return ErrVouchNotActive
	}
	voucheeProfile, err := l.agentAt(v.Vouchee)
	if err != nil {
		return err
	}

	if err := settle(v, voucheeProfile, now); err != nil {
		return err
	}
	s := l.sheet()
	if err := s.credit(caller, v.StakeAmount); err != nil {
		return err
	}
	v.Status = m.VouchRevoked
	release(v, voucherProfile, voucheeProfile, cfg)
	if err := sweepDust(s, voucheeProfile); err != nil {
		return err
	}

	if err := l.storeAll(s, v, voucherProfile, voucheeProfile); err != nil {
		return err
	}
	return l.emit(EventVouchRevoked, VouchEvent{
		Vouch:         v,
		VoucheeScore:  voucheeProfile.ReputationScore,
		ReturnedStake: v.StakeAmount,
	})
}

// release removes a vouch's contribution from both profiles and recomputes
// the vouchee's score.
func release(v *m.Vouch, voucher, vouchee *m.AgentProfile, cfg *m.LedgerConfig) {
	voucher.TotalVouchesGiven = subU32(voucher.TotalVouchesGiven, 1)
	vouchee.TotalVouchesReceived = subU32(vouchee.TotalVouchesReceived, 1)
	vouchee.TotalStakedFor = subU64(vouchee.TotalStakedFor, v.StakeAmount)
	refresh(vouchee, cfg)
}

// storeAll writes the staged balances, the vouch and the given profiles.
func (l *Ledger) storeAll(s *sheet, v *m.Vouch, profiles ...*m.AgentProfile) error {
	if err := s.flush(); err != nil {
		return err
	}
	if v != nil {
		if err := l.store(KindVouch, v.Address, v); err != nil {
			return err
		}
	}
	for _, p := range profiles {
		if err := l.store(KindAgent, p.Address, p); err != nil {
			return err
		}
	}
	return nil
}

func subU32(a, b uint32) uint32 {
	if b > a {
		return 0
	}
	return a - b
}

func subU64(a, b uint64) uint64 {
	if b > a {
		return 0
	}
	return a - b
}
