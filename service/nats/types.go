package nats

import (
	"time"

	"github.com/mpalomar/rescata/service/db"
)

// TransactionEvent represents a recorded transaction published to NATS.
// This is published to the subject "txns.{contract_address}" in JetStream.
type TransactionEvent struct {
	ContractAddress string `json:"contract_address"`
	Type            string `json:"type"`
	Details         string `json:"details"`
	Timestamp       string `json:"timestamp"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// RescueEvent represents a recorded rescue published to NATS.
// This is published to the subject "rescues.{owner}" in JetStream.
type RescueEvent struct {
	Owner           string  `json:"owner"`
	Type            string  `json:"type"`
	ContractAddress string  `json:"contract_address"`
	Amount          float64 `json:"amount"`
	TokenIDs        []int64 `json:"token_ids"`
	Timestamp       string  `json:"timestamp"`

	// Metadata
	PublishedAt time.Time `json:"published_at"`
}

// FromDBTransaction converts a database transaction to a TransactionEvent for publishing.
func FromDBTransaction(txn *db.Transaction) *TransactionEvent {
	return &TransactionEvent{
		ContractAddress: txn.ContractAddress,
		Type:            txn.Type,
		Details:         txn.Details,
		Timestamp:       txn.Timestamp,
		PublishedAt:     time.Now().UTC(),
	}
}

// FromDBRescue converts a database rescue to a RescueEvent for publishing.
func FromDBRescue(r *db.Rescue) *RescueEvent {
	return &RescueEvent{
		Owner:           r.Owner,
		Type:            r.Type,
		ContractAddress: r.ContractAddress,
		Amount:          r.Amount,
		TokenIDs:        r.TokenIDs,
		Timestamp:       r.Timestamp,
		PublishedAt:     time.Now().UTC(),
	}
}
