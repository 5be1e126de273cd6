package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/habedi/hrdesk/auth"
	"github.com/rs/zerolog/log"
)

const maxErrorBody = 4 << 10

// HTTPError is returned for responses outside the 2xx range.
type HTTPError struct {
	Method     string
	URL        string
	StatusCode int
	Body       []byte
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("unexpected HTTP status: %d %s. Body: %s", e.StatusCode, http.StatusText(e.StatusCode), strings.TrimSpace(string(e.Body)))
}

// HTTPStatus exposes the status code to callers that classify errors without importing this package.
func (e *HTTPError) HTTPStatus() int { return e.StatusCode }

// newHTTPError reads (part of) the body for context and closes it.
func newHTTPError(req *http.Request, resp *http.Response) *HTTPError {
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	log.Error().Str("method", req.Method).Str("url", req.URL.Redacted()).Int("status", resp.StatusCode).
		Str("body", string(body)).Msg("HTTP request returned non-OK status")
	return &HTTPError{Method: req.Method, URL: req.URL.Redacted(), StatusCode: resp.StatusCode, Body: body}
}

// decodeJSON reads and closes the response body.
func decodeJSON(resp *http.Response, out any) error {
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		log.Error().Err(err).Str("body_preview", string(body[:min(len(body), 200)])).Msg("Failed to parse JSON response")
		return err
	}
	return nil
}

// API is the HR resource client. Its requests go through the given pipeline,
// normally an auth.Coordinator, so expired tokens are refreshed transparently.
type API struct {
	base *url.URL
	http auth.Pipeline
}

// NewAPI returns an API client for baseURL.
func NewAPI(baseURL string, pipeline auth.Pipeline) (*API, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid base URL %q: %w", baseURL, err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid base URL %q: scheme and host are required", baseURL)
	}
	return &API{base: u, http: pipeline}, nil
}

func (a *API) endpoint(path string, query url.Values) string {
	u := *a.base
	u.Path = a.base.Path + path
	u.RawQuery = query.Encode()
	return u.String()
}

func (a *API) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, a.endpoint(path, query), body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := a.http.Do(req)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return newHTTPError(req, resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		resp.Body.Close()
		return nil
	}
	return decodeJSON(resp, out)
}

// Me returns the logged-in user.
func (a *API) Me(ctx context.Context) (*User, error) {
	var u User
	if err := a.do(ctx, http.MethodGet, "/api/me", nil, nil, &u); err != nil {
		return nil, fmt.Errorf("failed to fetch current user: %w", err)
	}
	return &u, nil
}

// ListEmployees returns the employee directory, optionally filtered by department.
func (a *API) ListEmployees(ctx context.Context, departmentID int) ([]Employee, error) {
	query := url.Values{}
	if departmentID > 0 {
		query.Set("departmentId", strconv.Itoa(departmentID))
	}
	var out []Employee
	if err := a.do(ctx, http.MethodGet, "/api/employees", query, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list employees: %w", err)
	}
	log.Info().Int("count", len(out)).Msg("Fetched employees")
	return out, nil
}

func (a *API) GetEmployee(ctx context.Context, id int) (*Employee, error) {
	var e Employee
	if err := a.do(ctx, http.MethodGet, "/api/employees/"+strconv.Itoa(id), nil, nil, &e); err != nil {
		return nil, fmt.Errorf("failed to fetch employee %d: %w", id, err)
	}
	return &e, nil
}

func (a *API) ListDepartments(ctx context.Context) ([]Department, error) {
	var out []Department
	if err := a.do(ctx, http.MethodGet, "/api/departments", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list departments: %w", err)
	}
	return out, nil
}

// ListLeaveRequests returns leave requests visible to the user. An empty status returns all.
func (a *API) ListLeaveRequests(ctx context.Context, status string) ([]LeaveRequest, error) {
	query := url.Values{}
	if status != "" {
		query.Set("status", status)
	}
	var out []LeaveRequest
	if err := a.do(ctx, http.MethodGet, "/api/leave-requests", query, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list leave requests: %w", err)
	}
	return out, nil
}

func (a *API) CreateLeaveRequest(ctx context.Context, in NewLeaveRequest) (*LeaveRequest, error) {
	var out LeaveRequest
	if err := a.do(ctx, http.MethodPost, "/api/leave-requests", nil, in, &out); err != nil {
		return nil, fmt.Errorf("failed to submit leave request: %w", err)
	}
	log.Info().Int("id", out.ID).Msg("Leave request submitted")
	return &out, nil
}

func (a *API) ListAnnouncements(ctx context.Context) ([]Announcement, error) {
	var out []Announcement
	if err := a.do(ctx, http.MethodGet, "/api/announcements", nil, nil, &out); err != nil {
		return nil, fmt.Errorf("failed to list announcements: %w", err)
	}
	return out, nil
}
