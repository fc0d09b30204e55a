package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/claude/liftlog/internal/analytics"
	"github.com/claude/liftlog/internal/models"
	"github.com/claude/liftlog/internal/workouts"
)

// HTTPClient implements DataSource by calling the LiftLog REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// data lives on the remote server (accessed over Tailscale).
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies DataSource.
var _ DataSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// errNotFound marks a 404 so single-record lookups can return nil.
type errNotFound struct{ path string }

func (e errNotFound) Error() string { return "httpclient: " + e.path + " not found" }

func (c *HTTPClient) do(ctx context.Context, method, path, userID string, params url.Values, payload any) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("httpclient: encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return nil, errNotFound{path: path}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, respBody)
	}

	return respBody, nil
}

func (c *HTTPClient) ListRecords(ctx context.Context, userID string) ([]models.PersonalRecord, error) {
	body, err := c.do(ctx, http.MethodGet, "/api/v1/records", userID, nil, nil)
	if err != nil {
		return nil, err
	}

	var recs []models.PersonalRecord
	if err := json.Unmarshal(body, &recs); err != nil {
		return nil, fmt.Errorf("httpclient: decode records: %w", err)
	}
	return recs, nil
}

func (c *HTTPClient) GetRecord(ctx context.Context, userID, exerciseID string, metric models.Metric) (*models.PersonalRecord, error) {
	path := "/api/v1/records/" + url.PathEscape(exerciseID) + "/" + url.PathEscape(string(metric))
	body, err := c.do(ctx, http.MethodGet, path, userID, nil, nil)
	if _, ok := err.(errNotFound); ok {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var rec models.PersonalRecord
	if err := json.Unmarshal(body, &rec); err != nil {
		return nil, fmt.Errorf("httpclient: decode record: %w", err)
	}
	return &rec, nil
}

func (c *HTTPClient) WeekOverWeek(ctx context.Context, userID string, now time.Time) (*workouts.WeeklyVolume, error) {
	params := url.Values{}
	params.Set("now", now.Format(time.RFC3339))

	body, err := c.do(ctx, http.MethodGet, "/api/v1/volume/weekly", userID, params, nil)
	if err != nil {
		return nil, err
	}

	var wv workouts.WeeklyVolume
	if err := json.Unmarshal(body, &wv); err != nil {
		return nil, fmt.Errorf("httpclient: decode weekly volume: %w", err)
	}
	return &wv, nil
}

func (c *HTTPClient) CheckSet(ctx context.Context, userID, exerciseID, targetReps string, reps, weight models.NullFloat) (analytics.SetFlags, error) {
	payload := map[string]any{
		"exercise_id": exerciseID,
		"target_reps": targetReps,
		"reps":        reps,
		"weight":      weight,
	}
	body, err := c.do(ctx, http.MethodPost, "/api/v1/sets/check", userID, nil, payload)
	if err != nil {
		return analytics.SetFlags{}, err
	}

	var flags analytics.SetFlags
	if err := json.Unmarshal(body, &flags); err != nil {
		return analytics.SetFlags{}, fmt.Errorf("httpclient: decode set flags: %w", err)
	}
	return flags, nil
}

func (c *HTTPClient) ListSets(ctx context.Context, userID string, start, end time.Time, exerciseFilter string) ([]models.WorkoutSetRow, error) {
	params := url.Values{}
	params.Set("start", start.Format(time.RFC3339))
	params.Set("end", end.Format(time.RFC3339))
	if exerciseFilter != "" {
		params.Set("exercise", exerciseFilter)
	}

	body, err := c.do(ctx, http.MethodGet, "/api/v1/sets", userID, params, nil)
	if err != nil {
		return nil, err
	}

	var rows []models.WorkoutSetRow
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("httpclient: decode sets: %w", err)
	}
	return rows, nil
}
