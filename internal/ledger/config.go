package ledger

import (
	m "github.com/dirtybits/agent-reputation-oracle/internal"
)

// ConfigParams are the authority-chosen ledger parameters. Reputation weights
// are not among them; they are fixed at initialization.
type ConfigParams struct {
	MinStake        uint64 `json:"minStake"`
	DisputeBond     uint64 `json:"disputeBond"`
	SlashPercentage uint8  `json:"slashPercentage"`
	CooldownPeriod  int64  `json:"cooldownPeriod"`
}

func (p ConfigParams) validate() error {
	if p.SlashPercentage > m.MaxSlashPercentage {
		return ErrInvalidSlashPercentage
	}
	if p.CooldownPeriod < 0 {
		return ErrInvalidCooldown
	}
	return nil
}

// InitializeConfig creates the singleton config with caller as authority.
func (l *Ledger) InitializeConfig(caller string, p ConfigParams) error {
	address := ConfigAddress()
	ok, err := l.exists(KindConfig, address)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyInitialized
	}
	if err := p.validate(); err != nil {
		return err
	}
	now, err := l.now()
	if err != nil {
		return err
	}

	cfg := &m.LedgerConfig{
		Address:         address,
		Authority:       caller,
		MinStake:        p.MinStake,
		DisputeBond:     p.DisputeBond,
		SlashPercentage: p.SlashPercentage,
		CooldownPeriod:  p.CooldownPeriod,
		StakeWeight:     m.DefaultStakeWeight,
		VouchWeight:     m.DefaultVouchWeight,
		InitializedAt:   now,
		UpdatedAt:       now,
	}
	if err := l.store(KindConfig, address, cfg); err != nil {
		return err
	}
	return l.emit(EventConfigInitialized, cfg)
}

// UpdateConfig replaces the authority-chosen parameters. Weights and
// authority are unchanged, so stored reputation scores stay valid.
func (l *Ledger) UpdateConfig(caller string, p ConfigParams) error {
	cfg, err := l.Config()
	if err != nil {
		return err
	}
	if caller != cfg.Authority {
		return ErrNotAuthority
	}
	if err := p.validate(); err != nil {
		return err
	}
	now, err := l.now()
	if err != nil {
		return err
	}

	cfg.MinStake = p.MinStake
	cfg.DisputeBond = p.DisputeBond
	cfg.SlashPercentage = p.SlashPercentage
	cfg.CooldownPeriod = p.CooldownPeriod
	cfg.UpdatedAt = now
	if err := l.store(KindConfig, cfg.Address, cfg); err != nil {
		return err
	}
	return l.emit(EventConfigUpdated, cfg)
}
