package router

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/mamadbah2/xchicks/internal/domain/models"
	"github.com/mamadbah2/xchicks/internal/metrics"
	"github.com/mamadbah2/xchicks/internal/repository"
	"github.com/mamadbah2/xchicks/internal/repository/memory"
	"github.com/mamadbah2/xchicks/internal/repository/repotest"
	"github.com/mamadbah2/xchicks/internal/server/handlers"
	"github.com/mamadbah2/xchicks/internal/server/middleware"
	"github.com/mamadbah2/xchicks/internal/service/admission"
	"github.com/mamadbah2/xchicks/internal/service/allocation"
	"github.com/mamadbah2/xchicks/internal/service/registry"
	"github.com/mamadbah2/xchicks/internal/service/reporting"
)

type fixture struct {
	engine http.Handler
	store  repository.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zaptest.NewLogger(t)
	store := memory.New(memory.WithClock(repotest.Clock()))

	farmer := repotest.Farmer("F001", models.FarmerReturning)
	a := repotest.ChickBatch("A", models.ChickLayer, models.BreedLocal, 40)
	b := repotest.ChickBatch("B", models.ChickLayer, models.BreedLocal, 20)
	repotest.Seed(t, store, func(ctx context.Context, tx repository.Tx) error {
		if err := tx.CreateFarmer(ctx, &farmer); err != nil {
			return err
		}
		if err := tx.CreateChickBatch(ctx, &a); err != nil {
			return err
		}
		return tx.CreateChickBatch(ctx, &b)
	})

	reg := registry.NewService(store, logger)
	reg.SetClock(repotest.Clock())
	adm := admission.NewService(store, admission.DefaultPolicy(), logger)
	adm.SetClock(repotest.Clock())
	recorder := metrics.NewPrometheus()
	alloc := allocation.NewService(store, logger, allocation.WithClock(repotest.Clock()), allocation.WithMetrics(recorder))
	rep := reporting.NewService(store, logger)
	rep.SetClock(repotest.Clock())

	engine := New(Dependencies{
		API:     handlers.NewAPIHandler(reg, adm, alloc, rep, time.UTC, logger),
		Metrics: recorder.Handler(),
	}, logger)
	return &fixture{engine: engine, store: store}
}

func (f *fixture) do(t *testing.T, method, path string, actor *models.Actor, body any) (*httptest.ResponseRecorder, models.Result) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if actor != nil {
		req.Header.Set(middleware.HeaderActorID, actor.ID)
		req.Header.Set(middleware.HeaderActorRole, string(actor.Role))
	}
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)

	var res models.Result
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &res); err != nil {
			t.Fatalf("decode response %q: %v", w.Body.String(), err)
		}
	}
	return w, res
}

func chickRequestBody(qty int) map[string]any {
	return map[string]any{
		"request_code":     "CR-HTTP1",
		"farmer_id":        "F001",
		"chick_type":       "layer",
		"chick_breed":      "local",
		"quantity":         qty,
		"chick_period":     2,
		"payment_terms":    "cash",
		"received_through": "walk-in",
	}
}

func TestChickRequestLifecycleOverHTTP(t *testing.T) {
	f := newFixture(t)
	agent, manager := repotest.Agent, repotest.Manager

	w, res := f.do(t, http.MethodPost, "/api/chick-requests", &agent, chickRequestBody(50))
	if w.Code != http.StatusCreated || !res.Success {
		t.Fatalf("submit: %d %+v", w.Code, res)
	}

	w, res = f.do(t, http.MethodPost, "/api/chick-requests/CR-HTTP1/approve", &agent, nil)
	if w.Code != http.StatusForbidden || res.ErrorKind != models.KindForbidden {
		t.Fatalf("agent approve: %d %+v", w.Code, res)
	}

	w, res = f.do(t, http.MethodPost, "/api/chick-requests/CR-HTTP1/approve", &manager, nil)
	if w.Code != http.StatusOK || !res.Success {
		t.Fatalf("approve: %d %+v", w.Code, res)
	}
	if got := repotest.BatchQuantity(t, f.store, "A"); got != 0 {
		t.Fatalf("batch A = %d, want 0", got)
	}
	if got := repotest.BatchQuantity(t, f.store, "B"); got != 10 {
		t.Fatalf("batch B = %d, want 10", got)
	}

	w, res = f.do(t, http.MethodPost, "/api/chick-requests/CR-HTTP1/approve", &manager, nil)
	if w.Code != http.StatusConflict || res.ErrorKind != models.KindInvalidState {
		t.Fatalf("second approve: %d %+v", w.Code, res)
	}

	w, res = f.do(t, http.MethodPost, "/api/chick-requests/CR-HTTP1/deliver", &manager, nil)
	if w.Code != http.StatusOK || !res.Success {
		t.Fatalf("deliver: %d %+v", w.Code, res)
	}

	w, res = f.do(t, http.MethodGet, "/api/chick-requests?status=completed", &agent, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list: %d %+v", w.Code, res)
	}
	if list, ok := res.Data.([]any); !ok || len(list) != 1 {
		t.Fatalf("expected one completed request, got %#v", res.Data)
	}
}

func TestErrorMapping(t *testing.T) {
	f := newFixture(t)
	agent, manager := repotest.Agent, repotest.Manager

	tests := []struct {
		name   string
		method string
		path   string
		actor  *models.Actor
		body   any
		status int
		kind   models.ErrorKind
	}{
		{"missing actor", http.MethodGet, "/api/farmers", nil, nil, http.StatusUnauthorized, models.KindForbidden},
		{"quota", http.MethodPost, "/api/chick-requests", &agent, chickRequestBody(501), http.StatusUnprocessableEntity, models.KindValidationFailed},
		{"unknown request", http.MethodPost, "/api/chick-requests/CR-NOPE/approve", &manager, nil, http.StatusNotFound, models.KindNotFound},
		{"agent reports", http.MethodGet, "/api/reports/sales", &agent, nil, http.StatusForbidden, models.KindForbidden},
		{"bad date", http.MethodGet, "/api/reports/daily?date=10-03-2025", &manager, nil, http.StatusUnprocessableEntity, models.KindValidationFailed},
		{"malformed body", http.MethodPost, "/api/stock/chicks", &manager, "not an object", http.StatusBadRequest, models.KindValidationFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w, res := f.do(t, tc.method, tc.path, tc.actor, tc.body)
			if w.Code != tc.status || res.ErrorKind != tc.kind {
				t.Fatalf("got %d %+v, want %d %s", w.Code, res, tc.status, tc.kind)
			}
		})
	}
}

func TestInsufficientStockIsConflict(t *testing.T) {
	f := newFixture(t)
	agent, manager := repotest.Agent, repotest.Manager

	if w, res := f.do(t, http.MethodPost, "/api/chick-requests", &agent, chickRequestBody(80)); w.Code != http.StatusCreated || len(res.Warnings) == 0 {
		t.Fatalf("submit should pass with a stock warning: %d %+v", w.Code, res)
	}
	w, res := f.do(t, http.MethodPost, "/api/chick-requests/CR-HTTP1/approve", &manager, nil)
	if w.Code != http.StatusConflict || res.ErrorKind != models.KindInsufficientStock {
		t.Fatalf("approve: %d %+v", w.Code, res)
	}
	if got := repotest.BatchQuantity(t, f.store, "A"); got != 40 {
		t.Fatalf("batch A = %d, want untouched 40", got)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, http.MethodGet, "/healthz", nil, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("healthz = %d", w.Code)
	}

	manager := repotest.Manager
	f.do(t, http.MethodPost, "/api/chick-requests/CR-NOPE/approve", &manager, nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	f.engine.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), "xchicks_operations_total") {
		t.Fatalf("metrics missing operations counter: %d", rec.Code)
	}
}
