package server

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/PCISGroup/rosterboard/internal/routing"
	"github.com/PCISGroup/rosterboard/modules/schedule/domain/types"
)

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	_ = json.NewEncoder(w).Encode(v)
}

func validDate(s string) bool {
	_, err := time.Parse("2006-01-02", s)
	return err == nil
}

func validStateName(s string) bool {
	switch types.StateName(s) {
	case types.StateCompleted, types.StateCancelled, types.StatePostponed:
		return true
	default:
		return false
	}
}

func handleDayBucketAPI(w http.ResponseWriter, r *http.Request, store ScheduleStore) {
	switch r.Method {
	case http.MethodGet:
		employeeID := strings.TrimSpace(r.URL.Query().Get("employee_uuid"))
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		if employeeID == "" || !validDate(date) {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusBadRequest, "invalid_request", "employee_uuid and date required")
			return
		}
		b, err := store.GetDayBucket(r.Context(), employeeID, date)
		if err != nil {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		writeJSON(w, b)

	case http.MethodPut:
		var b DayBucket
		if err := json.NewDecoder(r.Body).Decode(&b); err != nil {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusUnprocessableEntity, "invalid_json", "invalid json")
			return
		}
		b.EmployeeID = strings.TrimSpace(b.EmployeeID)
		b.Date = strings.TrimSpace(b.Date)
		if b.EmployeeID == "" || !validDate(b.Date) {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusUnprocessableEntity, "invalid_request", "employee_uuid and date required")
			return
		}
		if err := store.ReplaceDayBucket(r.Context(), b); err != nil {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleDayBucketsAPI(w http.ResponseWriter, r *http.Request, store ScheduleStore) {
	employeeID := strings.TrimSpace(r.URL.Query().Get("employee_uuid"))
	fromDate := strings.TrimSpace(r.URL.Query().Get("from_date"))
	toDate := strings.TrimSpace(r.URL.Query().Get("to_date"))
	if employeeID == "" || !validDate(fromDate) || !validDate(toDate) {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusBadRequest, "invalid_request", "employee_uuid, from_date and to_date required")
		return
	}
	if toDate < fromDate {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusBadRequest, "invalid_range", "to_date must be >= from_date")
		return
	}

	days, err := store.ListDayBuckets(r.Context(), employeeID, fromDate, toDate)
	if err != nil {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if days == nil {
		days = []DayBucket{}
	}
	writeJSON(w, map[string]any{"days": days})
}

func handleLifecycleStatesAPI(w http.ResponseWriter, r *http.Request, store ScheduleStore) {
	switch r.Method {
	case http.MethodGet:
		employeeID := strings.TrimSpace(r.URL.Query().Get("employee_uuid"))
		fromDate := strings.TrimSpace(r.URL.Query().Get("from_date"))
		toDate := strings.TrimSpace(r.URL.Query().Get("to_date"))
		if employeeID == "" || !validDate(fromDate) || !validDate(toDate) {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusBadRequest, "invalid_request", "employee_uuid, from_date and to_date required")
			return
		}
		states, err := store.ListLifecycleStates(r.Context(), employeeID, fromDate, toDate)
		if err != nil {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		if states == nil {
			states = []types.LifecycleStateRecord{}
		}
		writeJSON(w, map[string]any{"states": states})

	case http.MethodPost:
		var rec types.LifecycleStateRecord
		if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusUnprocessableEntity, "invalid_json", "invalid json")
			return
		}
		rec.EmployeeID = strings.TrimSpace(rec.EmployeeID)
		rec.Date = strings.TrimSpace(rec.Date)
		rec.StatusID = strings.TrimSpace(rec.StatusID)
		if rec.EmployeeID == "" || !validDate(rec.Date) || rec.StatusID == "" {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusUnprocessableEntity, "invalid_request", "employee_uuid, date and status_id required")
			return
		}
		if !validStateName(rec.State) {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusUnprocessableEntity, "invalid_state", "state must be completed|cancelled|postponed")
			return
		}
		if rec.PostponedDate != "" && !validDate(rec.PostponedDate) {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusUnprocessableEntity, "invalid_date", "invalid postponed_date")
			return
		}
		if err := store.UpsertLifecycleState(r.Context(), rec); err != nil {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)

	case http.MethodDelete:
		employeeID := strings.TrimSpace(r.URL.Query().Get("employee_uuid"))
		date := strings.TrimSpace(r.URL.Query().Get("date"))
		statusID := strings.TrimSpace(r.URL.Query().Get("status_id"))
		if employeeID == "" || !validDate(date) || statusID == "" {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusBadRequest, "invalid_request", "employee_uuid, date and status_id required")
			return
		}
		if err := store.DeleteLifecycleState(r.Context(), employeeID, date, statusID); err != nil {
			routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleCancellationsAPI(w http.ResponseWriter, r *http.Request, store ScheduleStore) {
	var d CancellationDetail
	if err := json.NewDecoder(r.Body).Decode(&d); err != nil {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusUnprocessableEntity, "invalid_json", "invalid json")
		return
	}
	d.EmployeeID = strings.TrimSpace(d.EmployeeID)
	d.Date = strings.TrimSpace(d.Date)
	d.StatusID = strings.TrimSpace(d.StatusID)
	d.Reason = strings.TrimSpace(d.Reason)
	if d.EmployeeID == "" || !validDate(d.Date) || d.StatusID == "" {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusUnprocessableEntity, "invalid_request", "employee_uuid, date and status_id required")
		return
	}
	if d.Reason == "" {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusUnprocessableEntity, "reason_required", "reason is required")
		return
	}
	d.SubmittedAt = time.Now().UTC()
	if err := store.SubmitCancellationDetail(r.Context(), d); err != nil {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func handleEmployeesAPI(w http.ResponseWriter, r *http.Request, catalogs CatalogStore) {
	list, err := catalogs.ListEmployees(r.Context())
	if err != nil {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if list == nil {
		list = []types.Employee{}
	}
	writeJSON(w, map[string]any{"employees": list})
}

func handleStatusesAPI(w http.ResponseWriter, r *http.Request, catalogs CatalogStore) {
	list, err := catalogs.ListStatuses(r.Context())
	if err != nil {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if list == nil {
		list = []types.Status{}
	}
	writeJSON(w, map[string]any{"statuses": list})
}

func handleClientsAPI(w http.ResponseWriter, r *http.Request, catalogs CatalogStore) {
	list, err := catalogs.ListClients(r.Context())
	if err != nil {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if list == nil {
		list = []types.Client{}
	}
	writeJSON(w, map[string]any{"clients": list})
}

func handleScheduleTypesAPI(w http.ResponseWriter, r *http.Request, catalogs CatalogStore) {
	list, err := catalogs.ListScheduleTypes(r.Context())
	if err != nil {
		routing.WriteError(w, r, routing.RouteClassAPI, http.StatusInternalServerError, "store_error", err.Error())
		return
	}
	if list == nil {
		list = []types.ScheduleType{}
	}
	writeJSON(w, map[string]any{"schedule_types": list})
}
