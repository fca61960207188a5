package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/splitdue/splitdue/internal/charge"
	"github.com/splitdue/splitdue/internal/logging"
)

func seedCharge(t *testing.T, charges charge.Store) charge.Charge {
	t.Helper()
	c := charge.Charge{
		ID:            uuid.NewString(),
		CustomerID:    "cust-1",
		Amount:        10_000,
		Currency:      "USD",
		Status:        charge.StatusSucceeded,
		PaymentMethod: charge.MethodExternal,

		ExternalChargeID: "ch_ext",
		InstallmentID:    uuid.NewString(),
		OrderID:          uuid.NewString(),
		CreatedAt:        time.Now().UTC(),
	}
	require.NoError(t, charges.Create(context.Background(), c))
	return c
}

func TestDispatchAllDestinationsSucceed(t *testing.T) {
	var hits atomic.Int32
	var received Payload
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	charges := charge.NewMemoryStore()
	store := NewMemoryStore()
	c := seedCharge(t, charges)

	d := NewDispatcher(charges, store, []string{srv.URL, "", srv.URL}, time.Second, logging.Discard())
	log, err := d.Dispatch(context.Background(), EventChargeSucceeded, c.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusProcessed, log.Status)
	assert.Empty(t, log.ErrorMessage)
	assert.NotNil(t, log.ProcessedAt)
	assert.EqualValues(t, 2, hits.Load()) // blank entry skipped

	assert.Equal(t, EventChargeSucceeded, received.EventType)
	assert.Equal(t, c.ID, received.ChargeID)
	assert.Equal(t, c.CustomerID, received.CustomerID)
	assert.Equal(t, c.Amount, received.Amount)
	assert.Equal(t, c.InstallmentID, received.Metadata.InstallmentID)
	assert.Equal(t, c.OrderID, received.Metadata.OrderID)

	deliveries, err := store.Deliveries(context.Background(), log.ID)
	require.NoError(t, err)
	assert.Len(t, deliveries, 2)
	for _, delivery := range deliveries {
		assert.Equal(t, http.StatusOK, delivery.StatusCode)
		assert.Empty(t, delivery.ErrorMessage)
	}
}

func TestDispatchDestinationReturns500(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	charges := charge.NewMemoryStore()
	store := NewMemoryStore()
	c := seedCharge(t, charges)

	d := NewDispatcher(charges, store, []string{srv.URL}, time.Second, logging.Discard())
	log, err := d.Dispatch(context.Background(), EventChargeFailed, c.ID)
	require.NoError(t, err)

	assert.Equal(t, StatusFailed, log.Status)
	assert.Contains(t, log.ErrorMessage, "HTTP 500")

	deliveries, err := store.Deliveries(context.Background(), log.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 1)
	assert.Equal(t, http.StatusInternalServerError, deliveries[0].StatusCode)
	assert.Contains(t, deliveries[0].ErrorMessage, "HTTP 500")
}

func TestDispatchMixedOutcomesAggregateFailed(t *testing.T) {
	ok := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer ok.Close()
	bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer bad.Close()

	charges := charge.NewMemoryStore()
	store := NewMemoryStore()
	c := seedCharge(t, charges)

	d := NewDispatcher(charges, store, []string{ok.URL, bad.URL}, time.Second, logging.Discard())
	log, err := d.Dispatch(context.Background(), EventChargeSucceeded, c.ID)
	require.NoError(t, err)

	// one success does not mask the failing destination
	assert.Equal(t, StatusFailed, log.Status)
	assert.Contains(t, log.ErrorMessage, bad.URL)
	assert.NotContains(t, log.ErrorMessage, ok.URL+":")

	deliveries, err := store.Deliveries(context.Background(), log.ID)
	require.NoError(t, err)
	require.Len(t, deliveries, 2)
}

func TestDispatchUnknownCharge(t *testing.T) {
	d := NewDispatcher(charge.NewMemoryStore(), NewMemoryStore(), nil, time.Second, logging.Discard())
	_, err := d.Dispatch(context.Background(), EventChargeSucceeded, uuid.NewString())
	require.Error(t, err)
	assert.True(t, errors.Is(err, charge.ErrNotFound))
}

func TestDispatchPersistsLogBeforeDelivery(t *testing.T) {
	charges := charge.NewMemoryStore()
	store := NewMemoryStore()
	c := seedCharge(t, charges)

	var logExisted atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logs, err := store.ListLogs(context.Background(), 10, 0)
		if err == nil && len(logs) == 1 && logs[0].Status == StatusPending {
			logExisted.Store(true)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	d := NewDispatcher(charges, store, []string{srv.URL}, time.Second, logging.Discard())
	_, err := d.Dispatch(context.Background(), EventChargeSucceeded, c.ID)
	require.NoError(t, err)
	assert.True(t, logExisted.Load(), "log row must exist with status pending before delivery")
}
