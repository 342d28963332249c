package kvstore

import (
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/hyperledger/fabric-chaincode-go/v2/shim"
	"github.com/hyperledger/fabric-protos-go-apiv2/ledger/queryresult"
	"google.golang.org/protobuf/types/known/timestamppb"
)

// Event is the single event a transaction may set.
type Event struct {
	TxID    string `json:"txId"`
	Name    string `json:"name"`
	Payload []byte `json:"payload"`
}

// Txn simulates one instruction. Like a Fabric proposal simulation, reads see
// committed state only; a Txn does not read its own pending writes.
type Txn struct {
	store  *Store
	id     string
	ts     time.Time
	reads  map[string]uint64
	writes map[string][]byte
	order  []string
	event  *Event
	done   bool
}

// Begin starts a transaction stamped with the store clock.
func (s *Store) Begin() *Txn {
	return &Txn{
		store:  s,
		id:     uuid.NewString(),
		ts:     s.now(),
		reads:  make(map[string]uint64),
		writes: make(map[string][]byte),
	}
}

func (t *Txn) GetTxID() string {
	return t.id
}

func (t *Txn) GetTxTimestamp() (*timestamppb.Timestamp, error) {
	return timestamppb.New(t.ts), nil
}

func (t *Txn) GetState(key string) ([]byte, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	value, version, err := t.store.Get(key)
	if err != nil {
		return nil, err
	}
	t.observe(key, version)
	return value, nil
}

// observe records the first version seen for key.
func (t *Txn) observe(key string, version uint64) {
	if _, ok := t.reads[key]; !ok {
		t.reads[key] = version
	}
}

func (t *Txn) PutState(key string, value []byte) error {
	if t.done {
		return ErrTxnDone
	}
	if key == "" {
		return errors.New("kvstore: empty key")
	}
	if value == nil {
		return errors.New("kvstore: nil value")
	}
	if _, ok := t.writes[key]; !ok {
		t.order = append(t.order, key)
	}
	cp := make([]byte, len(value))
	copy(cp, value)
	t.writes[key] = cp
	return nil
}

func (t *Txn) SetEvent(name string, payload []byte) error {
	if name == "" {
		return errors.New("kvstore: event name must not be empty")
	}
	t.event = &Event{TxID: t.id, Name: name, Payload: payload}
	return nil
}

// Event returns the event set by the transaction, if any.
func (t *Txn) Event() *Event {
	return t.event
}

func (t *Txn) CreateCompositeKey(objectType string, attributes []string) (string, error) {
	return CreateCompositeKey(objectType, attributes)
}

func (t *Txn) GetStateByPartialCompositeKey(objectType string, attributes []string) (shim.StateQueryIteratorInterface, error) {
	if t.done {
		return nil, ErrTxnDone
	}
	prefix, err := CreateCompositeKey(objectType, attributes)
	if err != nil {
		return nil, err
	}
	entries, err := t.store.scan(prefix)
	if err != nil {
		return nil, err
	}
	results := make([]*queryresult.KV, 0, len(entries))
	for _, e := range entries {
		t.observe(e.key, e.version)
		results = append(results, &queryresult.KV{Key: e.key, Value: e.value})
	}
	return &iterator{results: results}, nil
}

// Commit applies the transaction. It fails with ErrConflict if any key read
// was changed by another commit.
func (t *Txn) Commit() error {
	if t.done {
		return ErrTxnDone
	}
	t.done = true
	return t.store.commit(t)
}

// Discard drops the transaction's writes.
func (t *Txn) Discard() {
	t.done = true
}

type iterator struct {
	results []*queryresult.KV
	pos     int
}

func (it *iterator) HasNext() bool {
	return it.pos < len(it.results)
}

func (it *iterator) Next() (*queryresult.KV, error) {
	if !it.HasNext() {
		return nil, errors.New("kvstore: iterator exhausted")
	}
	kv := it.results[it.pos]
	it.pos++
	return kv, nil
}

func (it *iterator) Close() error {
	return nil
}

const (
	compositeKeyNamespace = "\x00"
	minUnicodeRuneValue   = 0
	maxUnicodeRuneValue   = utf8.MaxRune
)

// CreateCompositeKey builds keys in the Fabric world-state layout so that
// accounts written by either host scan the same way.
func CreateCompositeKey(objectType string, attributes []string) (string, error) {
	if err := validateCompositeKeyAttribute(objectType); err != nil {
		return "", err
	}
	ck := compositeKeyNamespace + objectType + string(rune(minUnicodeRuneValue))
	for _, att := range attributes {
		if err := validateCompositeKeyAttribute(att); err != nil {
			return "", err
		}
		ck += att + string(rune(minUnicodeRuneValue))
	}
	return ck, nil
}

func validateCompositeKeyAttribute(str string) error {
	if !utf8.ValidString(str) {
		return fmt.Errorf("not a valid utf8 string: [%x]", str)
	}
	for index, runeValue := range str {
		if runeValue == minUnicodeRuneValue || runeValue == maxUnicodeRuneValue {
			return fmt.Errorf("input contains unicode %#U starting at position [%d]. %#U and %#U are not allowed in the input attribute of a composite key",
				runeValue, index, minUnicodeRuneValue, maxUnicodeRuneValue)
		}
	}
	return nil
}
