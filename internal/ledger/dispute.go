package ledger

import (
	"github.com/holiman/uint256"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
)

// OpenDispute locks the config's dispute bond from the caller and freezes the
// target vouch until the authority rules on it.
func (l *Ledger) OpenDispute(caller, vouchAddress, evidence string) error {
	cfg, err := l.Config()
	if err != nil {
		return err
	}
	v, err := l.Vouch(vouchAddress)
	if err != nil {
		return err
	}
	if v.Status != m.VouchActive {
		return ErrVouchNotActive
	}
	if len(evidence) > m.MaxEvidenceURILen {
		return ErrEvidenceURITooLong
	}

	s := l.sheet()
	ok, err := s.covers(caller, cfg.DisputeBond)
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

	if err := s.debit(caller, cfg.DisputeBond); err != nil {
		return err
	}
	// A resolved dispute on the same vouch is superseded by the new one.
	address := DisputeAddress(v.Address)
	d := &m.Dispute{
		Address:    address,
		Vouch:      v.Address,
		Challenger: caller,
		Evidence:   evidence,
		Bond:       cfg.DisputeBond,
		Status:     m.DisputeOpen,
		CreatedAt:  now,
	}
	v.Status = m.VouchDisputed

	if err := l.storeAll(s, v); err != nil {
		return err
	}
	if err := l.store(KindDispute, address, d); err != nil {
		return err
	}
	return l.emit(EventDisputeOpened, DisputeEvent{Dispute: d, Vouch: v})
}

// ResolveDispute applies the authority's ruling. SlashVoucher forfeits the
// slash percentage of the stake to the treasury, refunds the rest and the
// challenger's bond, and removes the vouch from the vouchee's reputation.
// DismissDispute reactivates the vouch and forfeits the bond to the treasury.
func (l *Ledger) ResolveDispute(caller, disputeAddress string, ruling m.DisputeRuling) error {
	cfg, err := l.Config()
	if err != nil {
		return err
	}
	if caller != cfg.Authority {
		return ErrNotAuthority
	}
	d, err := l.Dispute(disputeAddress)
	if err != nil {
		return err
	}
	if d.Status != m.DisputeOpen {
		return ErrDisputeNotOpen
	}
	if !ruling.Valid() {
		return ErrInvalidRuling
	}
	v, err := l.Vouch(d.Vouch)
	if err != nil {
		return err
	}
	voucherProfile, err := l.agentAt(v.Voucher)
	if err != nil {
		return err
	}
	voucheeProfile, err := l.agentAt(v.Vouchee)
	if err != nil {
		return err
	}
	now, err := l.now()
	if err != nil {
		return err
	}

	s := l.sheet()
	switch ruling {
	case m.RulingSlashVoucher:
		if err := settle(v, voucheeProfile, now); err != nil {
			return err
		}
		slashed := slashAmount(v.StakeAmount, cfg.SlashPercentage)
		if err := s.toTreasury(slashed); err != nil {
			return err
		}
		if err := s.credit(voucherProfile.Authority, v.StakeAmount-slashed); err != nil {
			return err
		}
		if err := s.credit(d.Challenger, d.Bond); err != nil {
			return err
		}
		v.Status = m.VouchSlashed
		voucherProfile.DisputesLost++
		release(v, voucherProfile, voucheeProfile, cfg)
		if err := sweepDust(s, voucheeProfile); err != nil {
			return err
		}
		d.SlashedAmount = slashed
	case m.RulingDismissDispute:
		if err := s.toTreasury(d.Bond); err != nil {
			return err
		}
		v.Status = m.VouchActive
		voucherProfile.DisputesWon++
	}
	d.Status = m.DisputeResolved
	d.Ruling = ruling
	d.ResolvedAt = now

	if err := l.storeAll(s, v, voucherProfile, voucheeProfile); err != nil {
		return err
	}
	if err := l.store(KindDispute, d.Address, d); err != nil {
		return err
	}
	return l.emit(EventDisputeResolved, DisputeEvent{Dispute: d, Vouch: v})
}

// slashAmount truncates toward zero.
func slashAmount(stake uint64, percentage uint8) uint64 {
	z := new(uint256.Int).Mul(uint256.NewInt(stake), uint256.NewInt(uint64(percentage)))
	z.Div(z, uint256.NewInt(100))
	return z.Uint64()
}
