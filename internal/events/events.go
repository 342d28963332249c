// Package events fans committed ledger events out to subscribers.
package events

import (
	"encoding/json"
	"errors"
)

// Message is one committed instruction's event.
type Message struct {
	TxID        string          `json:"txId"`
	Instruction string          `json:"instruction"`
	Caller      string          `json:"caller"`
	Name        string          `json:"name"`
	Payload     json.RawMessage `json:"payload"`
	Timestamp   int64           `json:"timestamp"`
}

// Publisher delivers messages after their transaction has committed.
// Delivery failures never undo the commit.
type Publisher interface {
	Publish(msg *Message) error
	Close() error
}

type nop struct{}

// Nop discards every message.
var Nop Publisher = nop{}

func (nop) Publish(*Message) error { return nil }
func (nop) Close() error           { return nil }

// Multi publishes to every publisher in order and joins their errors.
type Multi []Publisher

func (m Multi) Publish(msg *Message) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, p := range m {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
