package server

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/mpalomar/rescata/service/db"
	"github.com/mpalomar/rescata/service/nats"
)

const maxRequestBodySize = 1 << 20 // 1MB - plenty for registry payloads

// Fixed response messages. The error bodies are part of the API contract:
// callers only ever see the generic per-endpoint message, never error detail.
const (
	msgContractCreated    = "Contrato añadido correctamente"
	msgTransactionCreated = "Transacción añadida correctamente"
	msgRescueCreated      = "Rescate añadido correctamente"

	errContractCreate    = "Error al añadir contrato"
	errContractList      = "Error al obtener contratos"
	errTransactionCreate = "Error al añadir transacción"
	errTransactionList   = "Error al obtener transacciones"
	errRescueCreate      = "Error al añadir rescate"
	errRescueList        = "Error al obtener rescates"
)

// handleCreateContract returns a handler that registers a new contract.
// POST /contracts
func handleCreateContract(store *db.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Address string   `json:"address"`
			Token   string   `json:"token"`
			Wallets []string `json:"wallets"`
			Owner   string   `json:"owner"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("failed to decode contract request", "error", err)
			writeError(w, errContractCreate, http.StatusInternalServerError)
			return
		}

		err := store.CreateContract(r.Context(), db.CreateContractParams{
			Address: req.Address,
			Token:   req.Token,
			Wallets: req.Wallets,
			Owner:   req.Owner,
		})
		if err != nil {
			logger.Error("failed to create contract", "address", req.Address, "error", err)
			writeError(w, errContractCreate, http.StatusInternalServerError)
			return
		}

		logger.Info("contract created", "address", req.Address, "owner", req.Owner)
		writeJSON(w, map[string]string{
			"message": msgContractCreated,
			"address": req.Address,
		}, http.StatusCreated)
	})
}

// handleListContractsByOwner returns a handler that lists the contracts
// registered for an owner.
// GET /contracts/{owner}
func handleListContractsByOwner(store *db.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.PathValue("owner")

		contracts, err := store.ListContractsByOwner(r.Context(), owner)
		if err != nil {
			logger.Error("failed to list contracts", "owner", owner, "error", err)
			writeError(w, errContractList, http.StatusInternalServerError)
			return
		}

		logger.Debug("contracts listed", "owner", owner, "count", len(contracts))

		resp := make([]contractResponse, len(contracts))
		for i, c := range contracts {
			resp[i] = contractResponse{
				Address: c.Address,
				Token:   c.Token,
				Wallets: c.Wallets,
			}
		}

		writeJSON(w, resp, http.StatusOK)
	})
}

// handleCreateTransaction returns a handler that records a contract
// transaction. No foreign-key check is performed against contracts.
// POST /transactions
func handleCreateTransaction(store *db.Store, publisher nats.Publisher, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			ContractAddress string `json:"contractAddress"`
			Type            string `json:"type"`
			Details         string `json:"details"`
			Timestamp       string `json:"timestamp"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("failed to decode transaction request", "error", err)
			writeError(w, errTransactionCreate, http.StatusInternalServerError)
			return
		}

		txn := db.CreateTransactionParams{
			ContractAddress: req.ContractAddress,
			Type:            req.Type,
			Details:         req.Details,
			Timestamp:       req.Timestamp,
		}

		if err := store.CreateTransaction(r.Context(), txn); err != nil {
			logger.Error("failed to create transaction", "contract", req.ContractAddress, "error", err)
			writeError(w, errTransactionCreate, http.StatusInternalServerError)
			return
		}

		logger.Info("transaction created", "contract", req.ContractAddress, "type", req.Type)

		publishTransaction(r.Context(), publisher, logger, &db.Transaction{
			ContractAddress: txn.ContractAddress,
			Type:            txn.Type,
			Details:         txn.Details,
			Timestamp:       txn.Timestamp,
		})

		writeJSON(w, map[string]string{"message": msgTransactionCreated}, http.StatusCreated)
	})
}

// handleListTransactionsByContract returns a handler that lists the
// transactions recorded for a contract address.
// GET /transactions/{contractAddress}
func handleListTransactionsByContract(store *db.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contractAddress := r.PathValue("contractAddress")

		transactions, err := store.ListTransactionsByContract(r.Context(), contractAddress)
		if err != nil {
			logger.Error("failed to list transactions", "contract", contractAddress, "error", err)
			writeError(w, errTransactionList, http.StatusInternalServerError)
			return
		}

		logger.Debug("transactions listed", "contract", contractAddress, "count", len(transactions))

		resp := make([]transactionResponse, len(transactions))
		for i, t := range transactions {
			resp[i] = transactionResponse{
				ContractAddress: t.ContractAddress,
				Type:            t.Type,
				Details:         t.Details,
				Timestamp:       t.Timestamp,
			}
		}

		writeJSON(w, resp, http.StatusOK)
	})
}

// handleCreateRescue returns a handler that records a rescue operation.
// POST /rescues
func handleCreateRescue(store *db.Store, publisher nats.Publisher, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)

		var req struct {
			Owner           string  `json:"owner"`
			Type            string  `json:"type"`
			ContractAddress string  `json:"contractAddress"`
			Amount          float64 `json:"amount"`
			TokenIDs        []int64 `json:"tokenIds"`
			Timestamp       string  `json:"timestamp"`
		}

		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			logger.Error("failed to decode rescue request", "error", err)
			writeError(w, errRescueCreate, http.StatusInternalServerError)
			return
		}

		rescue := db.CreateRescueParams{
			Owner:           req.Owner,
			Type:            req.Type,
			ContractAddress: req.ContractAddress,
			Amount:          req.Amount,
			TokenIDs:        req.TokenIDs,
			Timestamp:       req.Timestamp,
		}

		if err := store.CreateRescue(r.Context(), rescue); err != nil {
			logger.Error("failed to create rescue", "owner", req.Owner, "contract", req.ContractAddress, "error", err)
			writeError(w, errRescueCreate, http.StatusInternalServerError)
			return
		}

		logger.Info("rescue created", "owner", req.Owner, "contract", req.ContractAddress)

		publishRescue(r.Context(), publisher, logger, &db.Rescue{
			Owner:           rescue.Owner,
			Type:            rescue.Type,
			ContractAddress: rescue.ContractAddress,
			Amount:          rescue.Amount,
			TokenIDs:        rescue.TokenIDs,
			Timestamp:       rescue.Timestamp,
		})

		writeJSON(w, map[string]string{"message": msgRescueCreated}, http.StatusCreated)
	})
}

// handleListRescuesByOwner returns a handler that lists the rescues recorded
// for an owner.
// GET /rescues/{owner}
func handleListRescuesByOwner(store *db.Store, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		owner := r.PathValue("owner")

		rescues, err := store.ListRescuesByOwner(r.Context(), owner)
		if err != nil {
			logger.Error("failed to list rescues", "owner", owner, "error", err)
			writeError(w, errRescueList, http.StatusInternalServerError)
			return
		}

		logger.Debug("rescues listed", "owner", owner, "count", len(rescues))

		resp := make([]rescueResponse, len(rescues))
		for i, rec := range rescues {
			resp[i] = rescueResponse{
				Owner:           rec.Owner,
				Type:            rec.Type,
				ContractAddress: rec.ContractAddress,
				Amount:          rec.Amount,
				TokenIDs:        rec.TokenIDs,
				Timestamp:       rec.Timestamp,
			}
		}

		writeJSON(w, resp, http.StatusOK)
	})
}

// publishTransaction publishes a transaction event when a publisher is
// configured. Best effort: failures are logged and never affect the response.
func publishTransaction(ctx context.Context, publisher nats.Publisher, logger *slog.Logger, txn *db.Transaction) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishTransaction(ctx, nats.FromDBTransaction(txn)); err != nil {
		logger.Error("failed to publish transaction event", "contract", txn.ContractAddress, "error", err)
	}
}

// publishRescue publishes a rescue event when a publisher is configured.
// Best effort: failures are logged and never affect the response.
func publishRescue(ctx context.Context, publisher nats.Publisher, logger *slog.Logger, rescue *db.Rescue) {
	if publisher == nil {
		return
	}
	if err := publisher.PublishRescue(ctx, nats.FromDBRescue(rescue)); err != nil {
		logger.Error("failed to publish rescue event", "owner", rescue.Owner, "error", err)
	}
}

// contractResponse is the JSON response format for a contract row.
type contractResponse struct {
	Address string   `json:"address"`
	Token   string   `json:"token"`
	Wallets []string `json:"wallets"`
}

// transactionResponse is the JSON response format for a transaction row.
type transactionResponse struct {
	ContractAddress string `json:"contract_address"`
	Type            string `json:"type"`
	Details         string `json:"details"`
	Timestamp       string `json:"timestamp"`
}

// rescueResponse is the JSON response format for a rescue row.
// TokenIDs marshals to null when the stored column was NULL.
type rescueResponse struct {
	Owner           string  `json:"owner"`
	Type            string  `json:"type"`
	ContractAddress string  `json:"contract_address"`
	Amount          float64 `json:"amount"`
	TokenIDs        []int64 `json:"token_ids"`
	Timestamp       string  `json:"timestamp"`
}

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, data interface{}, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(map[string]string{
		"error": message,
	})
}
