// Package sync turns ledger mutations into authenticated backend requests.
// One request per call: no batching, no queuing, no dedup, no retry. The
// transport timeout is the only timeout; it surfaces as an ordinary failure.
package sync

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PCISGroup/rosterboard/modules/schedule/domain/ports"
	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
	"github.com/PCISGroup/rosterboard/pkg/httperr"
	"github.com/PCISGroup/rosterboard/pkg/markerid"
	"github.com/PCISGroup/rosterboard/pkg/uuidv7"
)

type Gateway struct {
	baseURL    string
	httpClient *http.Client
	session    ports.SessionProvider
}

func New(baseURL string, session ports.SessionProvider) (*Gateway, error) {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		return nil, errors.New("sync: missing base url")
	}
	u, err := url.Parse(baseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, errors.New("sync: invalid base url")
	}
	if session == nil {
		return nil, errors.New("sync: missing session provider")
	}
	return &Gateway{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		session: session,
	}, nil
}

type dayBucketRequest struct {
	EmployeeID string             `json:"employee_uuid"`
	Date       string             `json:"date"`
	Items      []types.MarkerItem `json:"items"`
}

type stateUpsertRequest struct {
	EmployeeID    string `json:"employee_uuid"`
	Date          string `json:"date"`
	StatusID      string `json:"status_id"`
	State         string `json:"state"`
	PostponedDate string `json:"postponed_date,omitempty"`
	IsTBA         bool   `json:"is_tba,omitempty"`
}

type cancellationRequest struct {
	EmployeeID string `json:"employee_uuid"`
	Date       string `json:"date"`
	StatusID   string `json:"status_id"`
	Reason     string `json:"reason"`
	Note       string `json:"note,omitempty"`
}

func (g *Gateway) ReplaceDayBucket(ctx context.Context, employeeID string, date string, markers []markerid.MarkerID) error {
	body := dayBucketRequest{
		EmployeeID: employeeID,
		Date:       date,
		Items:      types.MarkerItemsFrom(markers),
	}
	return g.send(ctx, "replace_day_bucket", http.MethodPut, "/schedule/api/day", body, nil)
}

func (g *Gateway) UpsertLifecycleState(ctx context.Context, key types.StateKey, st types.LifecycleState) error {
	body := stateUpsertRequest{
		EmployeeID:    key.EmployeeID,
		Date:          key.Date,
		StatusID:      key.BaseID,
		State:         string(st.Name),
		PostponedDate: st.PostponedDate,
		IsTBA:         st.TBA,
	}
	return g.send(ctx, "upsert_state", http.MethodPost, "/schedule/api/states", body, nil)
}

func (g *Gateway) DeleteLifecycleState(ctx context.Context, key types.StateKey) error {
	q := url.Values{}
	q.Set("employee_uuid", key.EmployeeID)
	q.Set("date", key.Date)
	q.Set("status_id", key.BaseID)
	return g.send(ctx, "delete_state", http.MethodDelete, "/schedule/api/states?"+q.Encode(), nil, nil)
}

func (g *Gateway) SubmitCancellation(ctx context.Context, key types.StateKey, reason string, note string) error {
	body := cancellationRequest{
		EmployeeID: key.EmployeeID,
		Date:       key.Date,
		StatusID:   key.BaseID,
		Reason:     reason,
		Note:       note,
	}
	return g.send(ctx, "submit_cancellation", http.MethodPost, "/schedule/api/states/cancellations", body, nil)
}

func (g *Gateway) ListDayBuckets(ctx context.Context, employeeID string, fromDate string, toDate string) (map[string][]markerid.MarkerID, error) {
	q := url.Values{}
	q.Set("employee_uuid", employeeID)
	q.Set("from_date", fromDate)
	q.Set("to_date", toDate)

	var out struct {
		Days []struct {
			Date  string             `json:"date"`
			Items []types.MarkerItem `json:"items"`
		} `json:"days"`
	}
	if err := g.send(ctx, "list_day_buckets", http.MethodGet, "/schedule/api/days?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	days := make(map[string][]markerid.MarkerID, len(out.Days))
	for _, d := range out.Days {
		days[d.Date] = types.MarkersOf(d.Items)
	}
	return days, nil
}

func (g *Gateway) ListLifecycleStates(ctx context.Context, employeeID string, fromDate string, toDate string) (map[types.StateKey]types.LifecycleState, error) {
	q := url.Values{}
	q.Set("employee_uuid", employeeID)
	q.Set("from_date", fromDate)
	q.Set("to_date", toDate)

	var out struct {
		States []types.LifecycleStateRecord `json:"states"`
	}
	if err := g.send(ctx, "list_states", http.MethodGet, "/schedule/api/states?"+q.Encode(), nil, &out); err != nil {
		return nil, err
	}

	states := make(map[types.StateKey]types.LifecycleState, len(out.States))
	for _, rec := range out.States {
		key := types.StateKey{EmployeeID: rec.EmployeeID, Date: rec.Date, BaseID: rec.StatusID}
		st := types.LifecycleState{
			Name:          types.StateName(rec.State),
			Reason:        rec.Reason,
			Note:          rec.Note,
			TBA:           rec.IsTBA,
			PostponedDate: rec.PostponedDate,
		}
		if rec.CancelledAt != "" {
			if at, err := time.Parse(time.RFC3339, rec.CancelledAt); err == nil {
				st.CancelledAt = at.UTC()
			}
		}
		states[key] = st
	}
	return states, nil
}

func (g *Gateway) send(ctx context.Context, op string, method string, path string, body any, out any) error {
	token, ok := g.session.AccessToken(ctx)
	if !ok || strings.TrimSpace(token) == "" {
		persistsTotal.WithLabelValues(op, "unauthenticated").Inc()
		return httperr.NewAuth("no access token available")
	}

	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if rid, err := uuidv7.NewString(); err == nil {
		req.Header.Set("X-Request-ID", rid)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		persistsTotal.WithLabelValues(op, "transport_error").Inc()
		return httperr.NewPersistence("", "sync: "+err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		persistsTotal.WithLabelValues(op, "rejected").Inc()
		return readPersistError(resp)
	}
	persistsTotal.WithLabelValues(op, "ok").Inc()

	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// readPersistError lifts the server envelope into a persistence error,
// keeping the server message when one is present.
func readPersistError(resp *http.Response) error {
	const maxBody = 4096
	b, _ := io.ReadAll(io.LimitReader(resp.Body, maxBody))

	var envelope struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(b, &envelope); err == nil && envelope.Message != "" {
		return httperr.NewPersistence(envelope.Code, envelope.Message)
	}
	return httperr.NewPersistence("", "sync: http "+resp.Status)
}
