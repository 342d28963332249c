package ledger

import (
	m "github.com/dirtybits/agent-reputation-oracle/internal"
)

// RegisterAgent creates the caller's profile. Profiles are permanent.
func (l *Ledger) RegisterAgent(caller, metadataURI string) error {
	if _, err := l.Config(); err != nil {
		return err
	}
	if len(metadataURI) > m.MaxMetadataURILen {
		return ErrMetadataURITooLong
	}
	address := AgentAddress(caller)
	ok, err := l.exists(KindAgent, address)
	if err != nil {
		return err
	}
	if ok {
		return ErrAlreadyRegistered
	}
	now, err := l.now()
	if err != nil {
		return err
	}

	p := &m.AgentProfile{
		Address:      address,
		Authority:    caller,
		MetadataURI:  metadataURI,
		RegisteredAt: now,
	}
	if err := l.store(KindAgent, address, p); err != nil {
		return err
	}
	return l.emit(EventAgentRegistered, p)
}

// refresh recomputes the derived score. It is the only place a score is set.
func refresh(p *m.AgentProfile, cfg *m.LedgerConfig) {
	p.ReputationScore = p.Reputation(cfg)
}
