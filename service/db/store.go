package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store provides database operations for the registry service.
// All operations execute exactly one parameterized statement against the pool.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates a new Store with the given database connection pool.
func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Contract represents a registered contract. Wallets is stored as JSON text
// in the database and decoded on every read.
type Contract struct {
	Address string
	Token   string
	Wallets []string
	Owner   string
}

// CreateContractParams contains the parameters for registering a contract.
type CreateContractParams struct {
	Address string
	Token   string
	Wallets []string
	Owner   string
}

// Transaction represents a recorded contract transaction. Details is an
// opaque blob and Timestamp is caller-supplied text; neither is interpreted.
type Transaction struct {
	ContractAddress string
	Type            string
	Details         string
	Timestamp       string
}

// CreateTransactionParams contains the parameters for recording a transaction.
type CreateTransactionParams struct {
	ContractAddress string
	Type            string
	Details         string
	Timestamp       string
}

// Rescue represents a recorded rescue operation. TokenIDs is nil when the
// rescue was created without token ids (stored as SQL NULL).
type Rescue struct {
	Owner           string
	Type            string
	ContractAddress string
	Amount          float64
	TokenIDs        []int64
	Timestamp       string
}

// CreateRescueParams contains the parameters for recording a rescue.
type CreateRescueParams struct {
	Owner           string
	Type            string
	ContractAddress string
	Amount          float64
	TokenIDs        []int64
	Timestamp       string
}

// CreateContract inserts a new contract. The wallet list is serialized to
// JSON text at the persistence boundary.
func (s *Store) CreateContract(ctx context.Context, params CreateContractParams) error {
	wallets, err := encodeStrings(params.Wallets)
	if err != nil {
		return fmt.Errorf("failed to encode wallets: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO contracts (address, token, wallets, owner) VALUES ($1, $2, $3, $4)`,
		params.Address, params.Token, wallets, params.Owner,
	)
	return err
}

// ListContractsByOwner retrieves all contracts registered for an owner.
func (s *Store) ListContractsByOwner(ctx context.Context, owner string) ([]*Contract, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT address, token, wallets, owner FROM contracts WHERE owner = $1`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	contracts := make([]*Contract, 0)
	for rows.Next() {
		var c Contract
		var wallets string
		if err := rows.Scan(&c.Address, &c.Token, &wallets, &c.Owner); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(wallets), &c.Wallets); err != nil {
			return nil, fmt.Errorf("failed to decode wallets for contract %s: %w", c.Address, err)
		}
		contracts = append(contracts, &c)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return contracts, nil
}

// CreateTransaction inserts a new transaction row. No foreign-key check is
// performed against contracts at this layer.
func (s *Store) CreateTransaction(ctx context.Context, params CreateTransactionParams) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO transactions (contract_address, type, details, timestamp) VALUES ($1, $2, $3, $4)`,
		params.ContractAddress, params.Type, params.Details, params.Timestamp,
	)
	return err
}

// ListTransactionsByContract retrieves all transactions recorded for a
// contract address.
func (s *Store) ListTransactionsByContract(ctx context.Context, contractAddress string) ([]*Transaction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT contract_address, type, details, timestamp FROM transactions WHERE contract_address = $1`,
		contractAddress,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*Transaction, error) {
		var t Transaction
		err := row.Scan(&t.ContractAddress, &t.Type, &t.Details, &t.Timestamp)
		return &t, err
	})
}

// CreateRescue inserts a new rescue row. A nil token id list is stored as
// SQL NULL; anything else is serialized to JSON text.
func (s *Store) CreateRescue(ctx context.Context, params CreateRescueParams) error {
	tokenIDs, err := encodeInt64s(params.TokenIDs)
	if err != nil {
		return fmt.Errorf("failed to encode token ids: %w", err)
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO rescues (owner, type, contract_address, amount, token_ids, timestamp) VALUES ($1, $2, $3, $4, $5, $6)`,
		params.Owner, params.Type, params.ContractAddress, params.Amount, tokenIDs, params.Timestamp,
	)
	return err
}

// ListRescuesByOwner retrieves all rescues recorded for an owner. Stored NULL
// token id columns come back as a nil slice.
func (s *Store) ListRescuesByOwner(ctx context.Context, owner string) ([]*Rescue, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT owner, type, contract_address, amount, token_ids, timestamp FROM rescues WHERE owner = $1`,
		owner,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	rescues := make([]*Rescue, 0)
	for rows.Next() {
		var r Rescue
		var tokenIDs *string
		if err := rows.Scan(&r.Owner, &r.Type, &r.ContractAddress, &r.Amount, &tokenIDs, &r.Timestamp); err != nil {
			return nil, err
		}
		if tokenIDs != nil {
			if err := json.Unmarshal([]byte(*tokenIDs), &r.TokenIDs); err != nil {
				return nil, fmt.Errorf("failed to decode token ids for rescue owner %s: %w", r.Owner, err)
			}
		}
		rescues = append(rescues, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return rescues, nil
}

// Helper functions for the serialized-text columns.

// encodeStrings serializes a string sequence to JSON text. A nil slice is
// encoded as an empty array rather than null.
func encodeStrings(values []string) (string, error) {
	if values == nil {
		values = []string{}
	}
	data, err := json.Marshal(values)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// encodeInt64s serializes an int64 sequence to JSON text, preserving nil as
// a SQL NULL marker.
func encodeInt64s(values []int64) (*string, error) {
	if values == nil {
		return nil, nil
	}
	data, err := json.Marshal(values)
	if err != nil {
		return nil, err
	}
	encoded := string(data)
	return &encoded, nil
}
