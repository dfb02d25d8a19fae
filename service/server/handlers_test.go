package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mpalomar/rescata/service/db"
	"github.com/mpalomar/rescata/service/nats"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

// newTestHandler builds a mux with the same routes the server registers.
func newTestHandler(store *db.Store, publisher nats.Publisher) http.Handler {
	logger := testLogger()

	mux := http.NewServeMux()
	mux.Handle("POST /contracts", handleCreateContract(store, logger))
	mux.Handle("GET /contracts/{owner}", handleListContractsByOwner(store, logger))
	mux.Handle("POST /transactions", handleCreateTransaction(store, publisher, logger))
	mux.Handle("GET /transactions/{contractAddress}", handleListTransactionsByContract(store, logger))
	mux.Handle("POST /rescues", handleCreateRescue(store, publisher, logger))
	mux.Handle("GET /rescues/{owner}", handleListRescuesByOwner(store, logger))
	return mux
}

func doJSON(t *testing.T, handler http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func TestCreateContract(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	handler := newTestHandler(ts.Store, nil)

	rec := doJSON(t, handler, http.MethodPost, "/contracts", map[string]interface{}{
		"address": "0xC0FFEE",
		"token":   "RBTC",
		"wallets": []string{"0xA", "0xB"},
		"owner":   "alice",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t,
		`{"message": "Contrato añadido correctamente", "address": "0xC0FFEE"}`,
		rec.Body.String(),
	)

	contracts, err := ts.ListContractsByOwner(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, contracts, 1)
	assert.Equal(t, []string{"0xA", "0xB"}, contracts[0].Wallets)
}

func TestListContractsByOwner(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	handler := newTestHandler(ts.Store, nil)

	doJSON(t, handler, http.MethodPost, "/contracts", map[string]interface{}{
		"address": "0x1", "token": "RBTC", "wallets": []string{"0xA"}, "owner": "alice",
	})
	doJSON(t, handler, http.MethodPost, "/contracts", map[string]interface{}{
		"address": "0x2", "token": "RIF", "wallets": []string{"0xB"}, "owner": "bob",
	})

	rec := doJSON(t, handler, http.MethodGet, "/contracts/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []struct {
		Address string   `json:"address"`
		Token   string   `json:"token"`
		Wallets []string `json:"wallets"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "0x1", resp[0].Address)
	assert.Equal(t, "RBTC", resp[0].Token)
	assert.Equal(t, []string{"0xA"}, resp[0].Wallets)
}

func TestListContractsByOwner_EmptyIsJSONArray(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	handler := newTestHandler(ts.Store, nil)

	rec := doJSON(t, handler, http.MethodGet, "/contracts/nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestCreateTransaction(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	publisher := nats.NewMockPublisher()
	handler := newTestHandler(ts.Store, publisher)

	rec := doJSON(t, handler, http.MethodPost, "/transactions", map[string]interface{}{
		"contractAddress": "0xC0FFEE",
		"type":            "sweep",
		"details":         `{"gas": 21000}`,
		"timestamp":       "2026-08-25T10:00:00Z",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message": "Transacción añadida correctamente"}`, rec.Body.String())

	transactions, err := ts.ListTransactionsByContract(context.Background(), "0xC0FFEE")
	require.NoError(t, err)
	require.Len(t, transactions, 1)
	assert.Equal(t, "sweep", transactions[0].Type)

	events := publisher.GetPublishedTransactions()
	require.Len(t, events, 1)
	assert.Equal(t, "0xC0FFEE", events[0].ContractAddress)
	assert.Equal(t, "sweep", events[0].Type)
}

func TestCreateTransaction_MalformedJSON(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	handler := newTestHandler(ts.Store, nil)

	req := httptest.NewRequest(http.MethodPost, "/transactions", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Error al añadir transacción"}`, rec.Body.String())

	transactions, err := ts.ListTransactionsByContract(context.Background(), "0xC0FFEE")
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestCreateTransaction_DatabaseFailure(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	ts.Cleanup(t)

	handler := newTestHandler(ts.Store, nil)

	// Close the pool under the handler so the insert statement fails.
	ts.Close()

	rec := doJSON(t, handler, http.MethodPost, "/transactions", map[string]interface{}{
		"contractAddress": "0xC0FFEE",
		"type":            "sweep",
		"details":         "d",
		"timestamp":       "t",
	})

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error": "Error al añadir transacción"}`, rec.Body.String())

	// Nothing was written.
	verify := db.NewTestStore(t)
	defer verify.Close()
	transactions, err := verify.ListTransactionsByContract(context.Background(), "0xC0FFEE")
	require.NoError(t, err)
	assert.Empty(t, transactions)
}

func TestListTransactionsByContract(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	handler := newTestHandler(ts.Store, nil)

	doJSON(t, handler, http.MethodPost, "/transactions", map[string]interface{}{
		"contractAddress": "0x1", "type": "sweep", "details": "a", "timestamp": "t1",
	})
	doJSON(t, handler, http.MethodPost, "/transactions", map[string]interface{}{
		"contractAddress": "0x2", "type": "sweep", "details": "b", "timestamp": "t2",
	})

	rec := doJSON(t, handler, http.MethodGet, "/transactions/0x1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []struct {
		ContractAddress string `json:"contract_address"`
		Type            string `json:"type"`
		Details         string `json:"details"`
		Timestamp       string `json:"timestamp"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "0x1", resp[0].ContractAddress)
	assert.Equal(t, "a", resp[0].Details)
	assert.Equal(t, "t1", resp[0].Timestamp)
}

func TestCreateRescue(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	publisher := nats.NewMockPublisher()
	handler := newTestHandler(ts.Store, publisher)

	rec := doJSON(t, handler, http.MethodPost, "/rescues", map[string]interface{}{
		"owner":           "alice",
		"type":            "erc721",
		"contractAddress": "0xC0FFEE",
		"amount":          3,
		"tokenIds":        []int64{1, 2, 3},
		"timestamp":       "2026-08-25T10:00:00Z",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message": "Rescate añadido correctamente"}`, rec.Body.String())

	rescues, err := ts.ListRescuesByOwner(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, rescues, 1)
	assert.Equal(t, []int64{1, 2, 3}, rescues[0].TokenIDs)

	events := publisher.GetPublishedRescues()
	require.Len(t, events, 1)
	assert.Equal(t, "alice", events[0].Owner)
	assert.Equal(t, []int64{1, 2, 3}, events[0].TokenIDs)
}

func TestCreateRescue_PublishFailureDoesNotAffectResponse(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	publisher := nats.NewMockPublisher()
	publisher.SetPublishError(fmt.Errorf("nats unavailable"))
	handler := newTestHandler(ts.Store, publisher)

	rec := doJSON(t, handler, http.MethodPost, "/rescues", map[string]interface{}{
		"owner":           "alice",
		"type":            "erc20",
		"contractAddress": "0xC0FFEE",
		"amount":          1.5,
		"timestamp":       "t",
	})

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.JSONEq(t, `{"message": "Rescate añadido correctamente"}`, rec.Body.String())

	// The row persisted despite the failed publish.
	rescues, err := ts.ListRescuesByOwner(context.Background(), "alice")
	require.NoError(t, err)
	assert.Len(t, rescues, 1)
}

func TestListRescuesByOwner_NullTokenIDs(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	handler := newTestHandler(ts.Store, nil)

	doJSON(t, handler, http.MethodPost, "/rescues", map[string]interface{}{
		"owner":           "alice",
		"type":            "erc20",
		"contractAddress": "0xC0FFEE",
		"amount":          2.25,
		"timestamp":       "2026-08-25T10:00:00Z",
	})

	rec := doJSON(t, handler, http.MethodGet, "/rescues/alice", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// tokenIds omitted on create must come back as an explicit null.
	var raw []map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	require.Len(t, raw, 1)
	assert.Equal(t, "null", string(raw[0]["token_ids"]))
	assert.Equal(t, "2.25", string(raw[0]["amount"]))
}

func TestListRescuesByOwner_EmptyIsJSONArray(t *testing.T) {
	db.SkipIfNoTestDB(t)

	ts := db.NewTestStore(t)
	defer ts.Close()
	ts.Cleanup(t)

	handler := newTestHandler(ts.Store, nil)

	rec := doJSON(t, handler, http.MethodGet, "/rescues/nobody", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestWriteError(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, "Error al añadir contrato", http.StatusInternalServerError)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error": "Error al añadir contrato"}`, rec.Body.String())
}
