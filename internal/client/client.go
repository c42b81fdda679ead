// Package client implements the HTTP+JSON contract with the calculator service.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/verte-zerg/tuicalc/internal/model"
)

// evaluateFallback is used when an error body carries no parseable detail.
const evaluateFallback = "failed to evaluate expression"

// Client talks to the remote calculator service. All calls are read-only
// except Evaluate; none of them mutate client state, so a single Client may
// be shared across views.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// New builds a Client for the given base URL (".../calculator").
func New(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger,
	}
}

type evaluateRequest struct {
	Expression string `json:"expression"`
}

// EvaluateResponse mirrors the POST /evaluate response body. The echoed
// fields are not the record of truth for display; callers re-fetch the
// latest persisted record after a successful evaluation.
type EvaluateResponse struct {
	CalculationID string  `json:"calculation_id"`
	Expression    string  `json:"expression"`
	Result        float64 `json:"result"`
}

type historyResponse struct {
	History []model.CalculationRecord `json:"history"`
}

// DetailsResponse mirrors the GET /history/{id}/details response body.
type DetailsResponse struct {
	CalculationID string                  `json:"calculation_id"`
	Steps         []model.CalculationStep `json:"steps"`
}

// LatestResponse mirrors the GET /history/latest response body. History is
// ordered most-recent-first; Steps belong to the first record.
type LatestResponse struct {
	History []model.CalculationRecord `json:"history"`
	Steps   []model.CalculationStep   `json:"steps"`
}

// Evaluate submits an expression for remote evaluation. On a non-success
// response the error message comes from the body's detail field when it is
// a parseable JSON string, otherwise from a fixed fallback; a raw decode
// failure is never propagated.
func (c *Client) Evaluate(ctx context.Context, expression string) (EvaluateResponse, error) {
	body, err := json.Marshal(evaluateRequest{Expression: expression})
	if err != nil {
		return EvaluateResponse{}, fmt.Errorf("failed to encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/evaluate", bytes.NewReader(body))
	if err != nil {
		return EvaluateResponse{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	requestID := tagRequest(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return EvaluateResponse{}, fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if !isSuccess(resp.StatusCode) {
		msg := errorDetail(resp, evaluateFallback)
		c.logger.Warn("evaluate rejected",
			zap.String("request_id", requestID),
			zap.Int("status", resp.StatusCode),
			zap.String("detail", msg),
		)
		return EvaluateResponse{}, fmt.Errorf("%s", msg)
	}

	var payload EvaluateResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return EvaluateResponse{}, fmt.Errorf("failed to decode evaluate response: %w", err)
	}
	c.logger.Debug("evaluate ok",
		zap.String("request_id", requestID),
		zap.String("expression", expression),
		zap.Float64("result", payload.Result),
	)
	return payload, nil
}

// FetchHistory retrieves the filtered, sorted calculation history. The
// operation-type parameter is omitted entirely when the filter is empty;
// sort field and direction are always sent, defaulting to date/desc.
func (c *Client) FetchHistory(ctx context.Context, filter model.HistoryFilter) ([]model.CalculationRecord, error) {
	query := url.Values{}
	if len(filter.OperationTypes) > 0 {
		parts := make([]string, len(filter.OperationTypes))
		for i, op := range filter.OperationTypes {
			parts[i] = string(op)
		}
		query.Set("operation_types", strings.Join(parts, ","))
	}
	if filter.StartDate != nil {
		query.Set("start_date", filter.StartDate.UTC().Format(time.RFC3339))
	}
	if filter.EndDate != nil {
		query.Set("end_date", filter.EndDate.UTC().Format(time.RFC3339))
	}
	sortBy := filter.SortBy
	if sortBy == "" {
		sortBy = model.SortByDate
	}
	sortOrder := filter.SortOrder
	if sortOrder == "" {
		sortOrder = model.SortDesc
	}
	query.Set("sort_by", string(sortBy))
	query.Set("sort_order", string(sortOrder))

	var payload historyResponse
	if err := c.getJSON(ctx, c.baseURL+"/history?"+query.Encode(), &payload); err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}
	return payload.History, nil
}

// FetchCalculationDetails retrieves the step breakdown for one calculation.
func (c *Client) FetchCalculationDetails(ctx context.Context, id string) (DetailsResponse, error) {
	if id == "" {
		return DetailsResponse{}, fmt.Errorf("calculation id is required")
	}
	var payload DetailsResponse
	endpoint := c.baseURL + "/history/" + url.PathEscape(id) + "/details"
	if err := c.getJSON(ctx, endpoint, &payload); err != nil {
		return DetailsResponse{}, fmt.Errorf("failed to fetch details: %w", err)
	}
	return payload, nil
}

// FetchLatestCalculation retrieves the most recent record and its steps.
// Used at startup to seed the last-operation display and again right after
// a submission, so the display reflects what the server actually persisted.
func (c *Client) FetchLatestCalculation(ctx context.Context) (LatestResponse, error) {
	var payload LatestResponse
	if err := c.getJSON(ctx, c.baseURL+"/history/latest", &payload); err != nil {
		return LatestResponse{}, fmt.Errorf("failed to fetch latest calculation: %w", err)
	}
	return payload, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	requestID := tagRequest(req)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if !isSuccess(resp.StatusCode) {
		c.logger.Warn("request rejected",
			zap.String("request_id", requestID),
			zap.String("url", endpoint),
			zap.Int("status", resp.StatusCode),
		)
		return fmt.Errorf("unexpected status: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(dst); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	c.logger.Debug("request ok", zap.String("request_id", requestID), zap.String("url", endpoint))
	return nil
}

// tagRequest attaches a request id header so client activity can be
// correlated with service-side traces.
func tagRequest(req *http.Request) string {
	id := uuid.NewString()
	req.Header.Set("X-Request-ID", id)
	return id
}

func isSuccess(status int) bool {
	return status >= 200 && status < 300
}

// errorDetail extracts a human-readable message from an error body. The
// detail field may be a plain string or a structured validation payload;
// anything that is not a non-empty string falls back.
func errorDetail(resp *http.Response, fallback string) string {
	var payload struct {
		Detail any `json:"detail"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return fallback
	}
	if s, ok := payload.Detail.(string); ok && s != "" {
		return s
	}
	return fallback
}
