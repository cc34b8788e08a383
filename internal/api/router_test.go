package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"catering-allocation-service/internal/adapters/llm"
	"catering-allocation-service/internal/domain"
	"catering-allocation-service/internal/services"
)

type stubFleet struct {
	drivers []*domain.Driver
	orders  []*domain.Order
}

func (s *stubFleet) ListDrivers(ctx context.Context) ([]*domain.Driver, error) {
	return s.drivers, nil
}

func (s *stubFleet) ListOrders(ctx context.Context) ([]*domain.Order, error) {
	return s.orders, nil
}

type stubStore struct {
	records []*domain.AttemptRecord
}

func (s *stubStore) AppendAttempt(ctx context.Context, rec *domain.AttemptRecord) error {
	s.records = append(s.records, rec)
	return nil
}

func (s *stubStore) ListAttempts(ctx context.Context, runID string) ([]*domain.AttemptRecord, error) {
	var out []*domain.AttemptRecord
	for _, rec := range s.records {
		if rec.RunID == runID {
			out = append(out, rec)
		}
	}
	return out, nil
}

func testRouter(t *testing.T, response string) (http.Handler, *stubStore) {
	t.Helper()
	day := func(hh int) time.Time {
		return time.Date(2026, 3, 14, hh, 0, 0, 0, time.UTC)
	}
	fleet := &stubFleet{
		drivers: []*domain.Driver{
			{DriverID: "DRV-001", Name: "Asha", HomeRegion: "east", MaxOrdersPerDay: 2, Capabilities: []string{"wedding"}},
		},
		orders: []*domain.Order{
			{OrderID: "Q3001", Region: "east", PickupTime: day(9), TeardownTime: day(11), Tags: []string{"wedding"}},
		},
	}
	store := &stubStore{}
	alloc := services.NewAllocator(llm.NewMockGateway(llm.MockStep{Content: response}), store)
	return NewRouter(fleet, alloc, store, 5), store
}

func TestAllocateEndpoint(t *testing.T) {
	router, store := testRouter(t, `{"allocations":{"DRV-001":["Q3001"]},"reasoning":{"Q3001":"east, wedding capable"}}`)

	req := httptest.NewRequest(http.MethodPost, "/allocate", strings.NewReader(`{"max_attempts":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"outcome":"accepted"`) {
		t.Errorf("body = %s, want accepted outcome", body)
	}
	if len(store.records) != 1 {
		t.Errorf("store records = %d, want 1", len(store.records))
	}
}

func TestAllocateRejectsUnknownFields(t *testing.T) {
	router, _ := testRouter(t, `{}`)

	req := httptest.NewRequest(http.MethodPost, "/allocate", strings.NewReader(`{"attempts":3}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAllocateRejectsBadScorer(t *testing.T) {
	router, _ := testRouter(t, `{}`)

	req := httptest.NewRequest(http.MethodPost, "/allocate", strings.NewReader(`{"scorer":"random"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAttemptsEndpoint(t *testing.T) {
	router, store := testRouter(t, `{}`)
	store.records = append(store.records, &domain.AttemptRecord{
		RunID: "run-api", Number: 1, Score: 2, CreatedAt: time.Now().UTC(),
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attempts?run_id=run-api", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"attempt_number":1`) {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attempts?run_id=missing", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing run status = %d, want 404", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/attempts", nil))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("no run_id status = %d, want 400", rec.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	router, _ := testRouter(t, `{}`)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "ok") {
		t.Errorf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}
