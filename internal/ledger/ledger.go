// Package ledger implements the reputation oracle state machine. Every exported
// instruction method is one atomic transition over the host's world state: it
// either returns nil with all of its writes applied, or returns an error and
// the host discards every write it made.
package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/hyperledger/fabric-chaincode-go/v2/shim"
	"google.golang.org/protobuf/types/known/timestamppb"

	m "github.com/dirtybits/agent-reputation-oracle/internal"
)

// State is the slice of the chaincode stub the ledger needs. A Fabric stub
// satisfies it directly; kvstore.Txn implements it for the standalone host.
type State interface {
	GetState(key string) ([]byte, error)
	PutState(key string, value []byte) error
	CreateCompositeKey(objectType string, attributes []string) (string, error)
	GetStateByPartialCompositeKey(objectType string, keys []string) (shim.StateQueryIteratorInterface, error)
	SetEvent(name string, payload []byte) error
	GetTxID() string
	GetTxTimestamp() (*timestamppb.Timestamp, error)
}

// Ledger runs instructions against one transaction's State.
type Ledger struct {
	stub State
}

func New(stub State) *Ledger {
	return &Ledger{stub: stub}
}

func (l *Ledger) now() (int64, error) {
	ts, err := l.stub.GetTxTimestamp()
	if err != nil {
		return 0, fmt.Errorf("tx timestamp: %w", err)
	}
	return ts.GetSeconds(), nil
}

// load reads the account of the given kind at address into v. It reports
// false when the account does not exist.
func (l *Ledger) load(kind Kind, address string, v interface{}) (bool, error) {
	key, err := l.stateKey(kind, address)
	if err != nil {
		return false, err
	}
	b, err := l.stub.GetState(key)
	if err != nil {
		return false, fmt.Errorf("get state: %w", err)
	}
	if b == nil {
		return false, nil
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("unmarshal %s: %w", kind, err)
	}
	return true, nil
}

func (l *Ledger) store(kind Kind, address string, v interface{}) error {
	key, err := l.stateKey(kind, address)
	if err != nil {
		return err
	}
	out, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", kind, err)
	}
	if err := l.stub.PutState(key, out); err != nil {
		return fmt.Errorf("put state: %w", err)
	}
	return nil
}

func (l *Ledger) exists(kind Kind, address string) (bool, error) {
	key, err := l.stateKey(kind, address)
	if err != nil {
		return false, err
	}
	b, err := l.stub.GetState(key)
	if err != nil {
		return false, fmt.Errorf("get state: %w", err)
	}
	return b != nil, nil
}

func (l *Ledger) stateKey(kind Kind, address string) (string, error) {
	key, err := l.stub.CreateCompositeKey(string(kind), []string{address})
	if err != nil {
		return "", fmt.Errorf("composite key: %w", err)
	}
	return key, nil
}

// Config returns the live ledger configuration.
func (l *Ledger) Config() (*m.LedgerConfig, error) {
	var cfg m.LedgerConfig
	ok, err := l.load(KindConfig, ConfigAddress(), &cfg)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrConfigNotInitialized
	}
	return &cfg, nil
}

// Agent returns the profile registered for identity.
func (l *Ledger) Agent(identity string) (*m.AgentProfile, error) {
	return l.agentAt(AgentAddress(identity))
}

func (l *Ledger) agentAt(address string) (*m.AgentProfile, error) {
	var p m.AgentProfile
	ok, err := l.load(KindAgent, address, &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotRegistered
	}
	return &p, nil
}

func (l *Ledger) Vouch(address string) (*m.Vouch, error) {
	var v m.Vouch
	ok, err := l.load(KindVouch, address, &v)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrVouchNotFound
	}
	return &v, nil
}

func (l *Ledger) Dispute(address string) (*m.Dispute, error) {
	var d m.Dispute
	ok, err := l.load(KindDispute, address, &d)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrDisputeNotFound
	}
	return &d, nil
}

func (l *Ledger) SkillListing(address string) (*m.SkillListing, error) {
	var s m.SkillListing
	ok, err := l.load(KindSkill, address, &s)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrListingNotFound
	}
	return &s, nil
}

func (l *Ledger) Purchase(address string) (*m.Purchase, error) {
	var p m.Purchase
	ok, err := l.load(KindPurchase, address, &p)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrPurchaseNotFound
	}
	return &p, nil
}

// Balance returns the free balance of identity. A missing account is an
// empty balance.
func (l *Ledger) Balance(identity string) (*m.Balance, error) {
	address := BalanceAddress(identity)
	b := m.Balance{Address: address, Owner: identity}
	if _, err := l.load(KindBalance, address, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

func (l *Ledger) Treasury() (*m.Treasury, error) {
	address := TreasuryAddress()
	t := m.Treasury{Address: address}
	if _, err := l.load(KindTreasury, address, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

// emit records the instruction's event. Fabric keeps one event per
// transaction, so each instruction emits exactly one.
func (l *Ledger) emit(name string, payload interface{}) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	if err := l.stub.SetEvent(name, b); err != nil {
		return fmt.Errorf("set event: %w", err)
	}
	return nil
}
