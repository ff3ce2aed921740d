package entities

import "fmt"

// EntityType identifies which collection a change event targets
type EntityType string

const (
	EntityTypeWallet      EntityType = "wallet"
	EntityTypeTransaction EntityType = "transaction"
)

// ChangeKind identifies the kind of mutation a change event carries
type ChangeKind string

const (
	ChangeKindInsert ChangeKind = "insert"
	ChangeKindUpdate ChangeKind = "update"
	ChangeKindDelete ChangeKind = "delete"
)

// IsValid checks if the change kind is known
func (k ChangeKind) IsValid() bool {
	return k == ChangeKindInsert || k == ChangeKindUpdate || k == ChangeKindDelete
}

// ChangeEvent is the wire shape of the backend's pushed change stream.
// Exactly one of Wallet/Transaction is set, per EntityType. The transport
// may deliver events out of order or more than once; consumers rely on the
// record's Version for staleness checks.
type ChangeEvent struct {
	EntityType  EntityType   `json:"entity_type"`
	Kind        ChangeKind   `json:"kind"`
	Wallet      *Wallet      `json:"wallet,omitempty"`
	Transaction *Transaction `json:"transaction,omitempty"`
}

// Validate checks the event shape matches its declared entity type
func (e *ChangeEvent) Validate() error {
	if !e.Kind.IsValid() {
		return fmt.Errorf("invalid change kind: %s", e.Kind)
	}
	switch e.EntityType {
	case EntityTypeWallet:
		if e.Wallet == nil {
			return fmt.Errorf("wallet event missing wallet payload")
		}
	case EntityTypeTransaction:
		if e.Transaction == nil {
			return fmt.Errorf("transaction event missing transaction payload")
		}
	default:
		return fmt.Errorf("unknown entity type: %s", e.EntityType)
	}
	return nil
}
