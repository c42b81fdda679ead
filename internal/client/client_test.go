package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/verte-zerg/tuicalc/internal/model"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return New(server.URL+"/calculator", 5*time.Second, nil)
}

func TestEvaluateSuccess(t *testing.T) {
	var gotPath, gotBody, gotRequestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotRequestID = r.Header.Get("X-Request-ID")
		var req struct {
			Expression string `json:"expression"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		gotBody = req.Expression
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(EvaluateResponse{
			CalculationID: "abc123",
			Expression:    req.Expression,
			Result:        5,
		})
	})

	resp, err := c.Evaluate(context.Background(), "2 + 3")
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if gotPath != "/calculator/evaluate" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if gotBody != "2 + 3" {
		t.Fatalf("unexpected expression %q", gotBody)
	}
	if gotRequestID == "" {
		t.Fatal("expected X-Request-ID header to be set")
	}
	if resp.CalculationID != "abc123" || resp.Result != 5 {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestEvaluateErrorUsesDetailField(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"detail":"Negative numbers are not allowed"}`))
	})

	_, err := c.Evaluate(context.Background(), "-1 + 2")
	if err == nil {
		t.Fatal("expected error")
	}
	if err.Error() != "Negative numbers are not allowed" {
		t.Fatalf("unexpected message %q", err.Error())
	}
}

func TestEvaluateErrorFallsBackOnUnparseableBody(t *testing.T) {
	bodies := []string{"<html>bad gateway</html>", "", `{"detail":{"loc":["body"]}}`}
	for _, body := range bodies {
		c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(body))
		})
		_, err := c.Evaluate(context.Background(), "1 + 1")
		if err == nil {
			t.Fatalf("expected error for body %q", body)
		}
		if err.Error() != evaluateFallback {
			t.Fatalf("body %q: unexpected message %q", body, err.Error())
		}
	}
}

func TestFetchHistoryOmitsEmptyOperationTypes(t *testing.T) {
	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"history":[]}`))
	})

	if _, err := c.FetchHistory(context.Background(), model.HistoryFilter{}); err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if _, ok := gotQuery["operation_types"]; ok {
		t.Fatal("expected operation_types to be omitted for an empty filter")
	}
	if got := gotQuery.Get("sort_by"); got != "date" {
		t.Fatalf("expected default sort_by=date, got %q", got)
	}
	if got := gotQuery.Get("sort_order"); got != "desc" {
		t.Fatalf("expected default sort_order=desc, got %q", got)
	}
}

func TestFetchHistorySerializesFilter(t *testing.T) {
	var gotQuery url.Values
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotQuery = r.URL.Query()
		_, _ = w.Write([]byte(`{"history":[{"calculation_id":"x","expression":"1 + 1","result":2,"date":"2024-01-01T00:00:00Z"}]}`))
	})

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	records, err := c.FetchHistory(context.Background(), model.HistoryFilter{
		OperationTypes: []model.Operation{model.OpSum, model.OpMul},
		StartDate:      &start,
		EndDate:        &end,
		SortBy:         model.SortByResult,
		SortOrder:      model.SortAsc,
	})
	if err != nil {
		t.Fatalf("FetchHistory failed: %v", err)
	}
	if got := gotQuery.Get("operation_types"); got != "sum,mul" {
		t.Fatalf("expected operation_types=sum,mul, got %q", got)
	}
	if got := gotQuery.Get("start_date"); got != "2024-01-01T00:00:00Z" {
		t.Fatalf("unexpected start_date %q", got)
	}
	if got := gotQuery.Get("end_date"); got != "2024-02-01T00:00:00Z" {
		t.Fatalf("unexpected end_date %q", got)
	}
	if got := gotQuery.Get("sort_by"); got != "result" {
		t.Fatalf("unexpected sort_by %q", got)
	}
	if got := gotQuery.Get("sort_order"); got != "asc" {
		t.Fatalf("unexpected sort_order %q", got)
	}
	if len(records) != 1 || records[0].CalculationID != "x" {
		t.Fatalf("unexpected records %+v", records)
	}
}

func TestFetchHistoryFailsOnNonSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	if _, err := c.FetchHistory(context.Background(), model.HistoryFilter{}); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestFetchCalculationDetails(t *testing.T) {
	var gotPath string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"calculation_id":"abc","steps":[{"a":1,"b":2,"operator":"+","result":3,"date":"2024-01-01T00:00:00Z"}]}`))
	})

	resp, err := c.FetchCalculationDetails(context.Background(), "abc")
	if err != nil {
		t.Fatalf("FetchCalculationDetails failed: %v", err)
	}
	if gotPath != "/calculator/history/abc/details" {
		t.Fatalf("unexpected path %q", gotPath)
	}
	if len(resp.Steps) != 1 || resp.Steps[0].Operator != "+" || resp.Steps[0].Result != 3 {
		t.Fatalf("unexpected steps %+v", resp.Steps)
	}
}

func TestFetchCalculationDetailsFailsOnNonSuccess(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := c.FetchCalculationDetails(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error, got nil")
	}
	if !strings.Contains(err.Error(), "failed to fetch details") {
		t.Fatalf("unexpected error %q", err.Error())
	}
}

func TestFetchLatestCalculation(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/calculator/history/latest" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"history":[{"calculation_id":"id1","expression":"1 + 2","result":3,"date":"2024-01-01T00:00:00Z"}],"steps":[{"a":1,"b":2,"operator":"+","result":3,"date":"2024-01-01T00:00:00Z"}]}`))
	})

	resp, err := c.FetchLatestCalculation(context.Background())
	if err != nil {
		t.Fatalf("FetchLatestCalculation failed: %v", err)
	}
	if len(resp.History) != 1 || resp.History[0].CalculationID != "id1" {
		t.Fatalf("unexpected history %+v", resp.History)
	}
	if len(resp.Steps) != 1 {
		t.Fatalf("expected 1 step, got %d", len(resp.Steps))
	}
}
