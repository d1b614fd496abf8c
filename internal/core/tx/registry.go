package tx

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownTransactionType is returned when an operation type is unknown
var ErrUnknownTransactionType = errors.New("unknown transaction type")

// Factory creates an empty operation of a registered type
type Factory func() Transaction

var (
	registryMu sync.RWMutex
	factories  = make(map[Type]Factory)
)

// Register adds the factory for an operation type. Operation packages call
// it from init(); registering a type twice panics.
func Register(t Type, f Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if _, exists := factories[t]; exists {
		panic(fmt.Sprintf("tx: factory already registered for %s", t))
	}
	factories[t] = f
}

// NewFromType creates a new operation of the given type
func NewFromType(t Type) (Transaction, error) {
	registryMu.RLock()
	f, ok := factories[t]
	registryMu.RUnlock()
	if !ok {
		return nil, ErrUnknownTransactionType
	}
	return f(), nil
}

// FromJSON creates a Transaction from a JSON object
func FromJSON(data []byte) (Transaction, error) {
	// First, unmarshal to get the TransactionType
	var raw struct {
		TransactionType string `json:"TransactionType"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, err
	}

	txType, ok := TypeFromName(raw.TransactionType)
	if !ok {
		return nil, ErrUnknownTransactionType
	}

	tx, err := NewFromType(txType)
	if err != nil {
		return nil, err
	}

	// Unmarshal into the specific type
	if err := json.Unmarshal(data, tx); err != nil {
		return nil, err
	}

	return tx, nil
}

// ToJSON converts a Transaction to JSON
func ToJSON(tx Transaction) ([]byte, error) {
	return json.Marshal(tx)
}

// SupportedTypes returns all registered operation types in code order
func SupportedTypes() []Type {
	registryMu.RLock()
	defer registryMu.RUnlock()

	types := make([]Type, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}
