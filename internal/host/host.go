// Package host runs ledger instructions outside Fabric. Each instruction
// executes in its own kvstore transaction and is committed only if it
// succeeds and its reads are still current, executing again when they are
// not; its event is published after the commit.
package host

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/dirtybits/agent-reputation-oracle/internal/common"
	"github.com/dirtybits/agent-reputation-oracle/internal/events"
	"github.com/dirtybits/agent-reputation-oracle/internal/kvstore"
	"github.com/dirtybits/agent-reputation-oracle/internal/ledger"
)

var (
	ErrUnknownInstruction = errors.New("unknown instruction")
	ErrInvalidArgs        = errors.New("invalid instruction arguments")
	ErrNoCaller           = errors.New("caller identity required")
)

// Receipt describes a committed instruction.
type Receipt struct {
	TxID        string          `json:"txId"`
	Instruction string          `json:"instruction"`
	Event       *events.Message `json:"event,omitempty"`
}

type Host struct {
	store *kvstore.Store
	pub   events.Publisher
}

// New returns a host over store. pub may be nil.
func New(store *kvstore.Store, pub events.Publisher) *Host {
	if pub == nil {
		pub = events.Nop
	}
	return &Host{store: store, pub: pub}
}

// CommitAttempts bounds how many times Submit executes an instruction whose
// commit keeps losing races with other instructions.
const CommitAttempts = 8

// Submit executes the named instruction on behalf of caller. A rejected
// instruction returns its ledger error and leaves no writes. An instruction
// whose reads went stale before it committed is executed again against the
// newly committed state, so racing instructions are judged one after the
// other; kvstore.ErrConflict is returned only after CommitAttempts losses.
func (h *Host) Submit(ctx context.Context, caller, name string, args json.RawMessage) (*Receipt, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	fn, ok := handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownInstruction, name)
	}
	if caller == "" {
		return nil, ErrNoCaller
	}

	var txn *kvstore.Txn
	for attempt := 1; ; attempt++ {
		txn = h.store.Begin()
		if err := fn(ledger.New(txn), caller, args); err != nil {
			txn.Discard()
			common.Log.Debugf("rejected %s from %s in tx %s; %s", name, caller, txn.GetTxID(), err.Error())
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			txn.Discard()
			return nil, err
		}
		err := txn.Commit()
		if err == nil {
			break
		}
		if !errors.Is(err, kvstore.ErrConflict) || attempt == CommitAttempts {
			common.Log.Warningf("failed to commit %s tx %s; %s", name, txn.GetTxID(), err.Error())
			return nil, err
		}
		common.Log.Debugf("tx %s for %s lost a commit race; executing again", txn.GetTxID(), name)
	}

	receipt := &Receipt{TxID: txn.GetTxID(), Instruction: name}
	if ev := txn.Event(); ev != nil {
		ts, _ := txn.GetTxTimestamp()
		receipt.Event = &events.Message{
			TxID:        ev.TxID,
			Instruction: name,
			Caller:      caller,
			Name:        ev.Name,
			Payload:     json.RawMessage(ev.Payload),
			Timestamp:   ts.GetSeconds(),
		}
		if err := h.pub.Publish(receipt.Event); err != nil {
			common.Log.Warningf("failed to publish %s for tx %s; %s", ev.Name, ev.TxID, err.Error())
		}
	}
	common.Log.Debugf("committed %s from %s in tx %s", name, caller, receipt.TxID)
	return receipt, nil
}

// Fetch returns the committed account of kind at address.
func (h *Host) Fetch(kind ledger.Kind, address string) (json.RawMessage, error) {
	txn := h.store.Begin()
	defer txn.Discard()
	return ledger.New(txn).Fetch(kind, address)
}

// List returns the committed accounts of kind matching every filter.
func (h *Host) List(kind ledger.Kind, filters ...ledger.Filter) ([]json.RawMessage, error) {
	txn := h.store.Begin()
	defer txn.Discard()
	return ledger.New(txn).List(kind, filters...)
}

// View runs fn against a read-only snapshot transaction.
func (h *Host) View(fn func(l *ledger.Ledger) error) error {
	txn := h.store.Begin()
	defer txn.Discard()
	return fn(ledger.New(txn))
}
