package sle

// AffectedNode represents a ledger entry affected by an operation
type AffectedNode struct {
	// NodeType is "CreatedNode", "ModifiedNode", or "DeletedNode"
	NodeType string `json:"node_type"`

	// LedgerEntryType is the type of ledger entry
	LedgerEntryType string `json:"ledger_entry_type"`

	// LedgerIndex is the base58 key of the entry
	LedgerIndex string `json:"ledger_index"`

	// FinalFields contains the final state (for Modified/Deleted)
	FinalFields map[string]any `json:"final_fields,omitempty"`

	// PreviousFields contains the changed fields' previous values (for Modified)
	PreviousFields map[string]any `json:"previous_fields,omitempty"`

	// NewFields contains the new state (for Created)
	NewFields map[string]any `json:"new_fields,omitempty"`
}
