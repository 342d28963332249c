package ledger

import (
	"math/bits"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
)

// sheet stages every lamport movement of one instruction. A Fabric stub does
// not read its own pending writes, so each account is loaded once, mutated in
// memory and written once by flush.
type sheet struct {
	l        *Ledger
	accts    map[string]*m.Balance
	order    []string
	treasury *m.Treasury
}

func (l *Ledger) sheet() *sheet {
	return &sheet{l: l, accts: make(map[string]*m.Balance)}
}

func (s *sheet) get(identity string) (*m.Balance, error) {
	if b, ok := s.accts[identity]; ok {
		return b, nil
	}
	b, err := s.l.Balance(identity)
	if err != nil {
		return nil, err
	}
	s.accts[identity] = b
	s.order = append(s.order, identity)
	return b, nil
}

// covers reports whether identity can pay amount.
func (s *sheet) covers(identity string, amount uint64) (bool, error) {
	b, err := s.get(identity)
	if err != nil {
		return false, err
	}
	return b.Lamports >= amount, nil
}

func (s *sheet) debit(identity string, amount uint64) error {
	b, err := s.get(identity)
	if err != nil {
		return err
	}
	if b.Lamports < amount {
		return ErrInsufficientFunds
	}
	b.Lamports -= amount
	return nil
}

func (s *sheet) credit(identity string, amount uint64) error {
	b, err := s.get(identity)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(b.Lamports, amount, 0)
	if carry != 0 {
		return ErrAmountOverflow
	}
	b.Lamports = sum
	return nil
}

func (s *sheet) loadTreasury() (*m.Treasury, error) {
	if s.treasury == nil {
		t, err := s.l.Treasury()
		if err != nil {
			return nil, err
		}
		s.treasury = t
	}
	return s.treasury, nil
}

func (s *sheet) toTreasury(amount uint64) error {
	if amount == 0 {
		return nil
	}
	t, err := s.loadTreasury()
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(t.Lamports, amount, 0)
	if carry != 0 {
		return ErrAmountOverflow
	}
	t.Lamports = sum
	return nil
}

func (s *sheet) fromTreasury(amount uint64) error {
	t, err := s.loadTreasury()
	if err != nil {
		return err
	}
	if t.Lamports < amount {
		return ErrInsufficientFunds
	}
	t.Lamports -= amount
	return nil
}

func (s *sheet) flush() error {
	for _, identity := range s.order {
		b := s.accts[identity]
		if err := s.l.store(KindBalance, b.Address, b); err != nil {
			return err
		}
	}
	if s.treasury != nil {
		if err := s.l.store(KindTreasury, s.treasury.Address, s.treasury); err != nil {
			return err
		}
	}
	return nil
}

// Fund credits lamports to recipient. It is the ledger's deposit path and is
// restricted to the config authority.
func (l *Ledger) Fund(caller, recipient string, lamports uint64) error {
	cfg, err := l.Config()
	if err != nil {
		return err
	}
	if caller != cfg.Authority {
		return ErrNotAuthority
	}
	if lamports == 0 {
		return ErrInvalidAmount
	}

	s := l.sheet()
	if err := s.credit(recipient, lamports); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}
	return l.emit(EventFunded, FundedEvent{Recipient: recipient, Lamports: lamports})
}

// WithdrawTreasury moves lamports from the treasury to the authority's balance.
func (l *Ledger) WithdrawTreasury(caller string, lamports uint64) error {
	cfg, err := l.Config()
	if err != nil {
		return err
	}
	if caller != cfg.Authority {
		return ErrNotAuthority
	}
	if lamports == 0 {
		return ErrInvalidAmount
	}

	s := l.sheet()
	if err := s.fromTreasury(lamports); err != nil {
		return err
	}
	if err := s.credit(caller, lamports); err != nil {
		return err
	}
	if err := s.flush(); err != nil {
		return err
	}
	return l.emit(EventTreasuryWithdrawn, FundedEvent{Recipient: caller, Lamports: lamports})
}
