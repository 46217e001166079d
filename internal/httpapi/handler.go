// Package httpapi maps the management API routes onto the subscriber
// repository and the session control client.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/cybernazmul/freeradius-mikrotik-api/internal/coa"
	"github.com/cybernazmul/freeradius-mikrotik-api/internal/storage"
)

const (
	maxNameLen  = 64
	maxValueLen = 253

	// maxPageSize caps the caller-supplied limit; the route itself imposes
	// no upper bound.
	maxPageSize = 1000
)

// SessionDisconnector issues a remote disconnect for one accounting session.
type SessionDisconnector interface {
	Disconnect(ctx context.Context, sessionID, nasAddr string) error
}

type handler struct {
	store        storage.Repository
	disconnector SessionDisconnector
	log          *logrus.Logger
}

// NewHandler returns the router exposing the management API.
func NewHandler(store storage.Repository, disconnector SessionDisconnector, log *logrus.Logger) http.Handler {
	h := &handler{store: store, disconnector: disconnector, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/", h.root).Methods(http.MethodGet)
	r.HandleFunc("/health", h.health).Methods(http.MethodGet)
	r.HandleFunc("/package", h.createPackage).Methods(http.MethodPost)
	r.HandleFunc("/package/{limit}/{offset}", h.listPackages).Methods(http.MethodGet)
	r.HandleFunc("/user", h.createUser).Methods(http.MethodPost)
	r.HandleFunc("/user/{username}", h.getUser).Methods(http.MethodGet)
	r.HandleFunc("/user/{username}", h.deleteUser).Methods(http.MethodDelete)
	r.HandleFunc("/acct/{username}/{limit}/{offset}", h.listAccounting).Methods(http.MethodGet)
	r.HandleFunc("/online", h.listOnline).Methods(http.MethodGet)
	r.HandleFunc("/onlinecount", h.onlineCount).Methods(http.MethodGet)
	r.HandleFunc("/online/{username}", h.userOnlineStatus).Methods(http.MethodGet)
	r.HandleFunc("/nas", h.createNas).Methods(http.MethodPost)
	r.HandleFunc("/session-dis", h.disconnectSession).Methods(http.MethodPost)
	return r
}

// paginated is the envelope for the package and accounting listings.
type paginated struct {
	Count int `json:"count"`
	Data  any `json:"data"`
}

// --- Root and health --------------------------------------------------------

func (h *handler) root(w http.ResponseWriter, _ *http.Request) {
	writeMessage(w, http.StatusOK, "RADIUS Management API is running")
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	report := struct {
		Status    string `json:"status"`
		Database  string `json:"database"`
		Timestamp string `json:"timestamp"`
	}{
		Status:    "healthy",
		Database:  "connected",
		Timestamp: time.Now().Format(time.RFC3339),
	}

	if err := h.store.Ping(r.Context()); err != nil {
		report.Status = "unhealthy"
		report.Database = fmt.Sprintf("error: %v", err)
	}
	writeJSON(w, http.StatusOK, report)
}

// --- Packages ---------------------------------------------------------------

func (h *handler) createPackage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Package string `json:"package"`
		Pool    string `json:"pool"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := validateField("package", payload.Package, maxNameLen); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	if err := validateField("pool", payload.Pool, maxValueLen); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	if err := h.store.CreatePackage(r.Context(), payload.Package, payload.Pool); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, errors.New("Package already exists"))
			return
		}
		h.storageFailure(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "Package created successfully")
}

func (h *handler) listPackages(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	total, packages, err := h.store.ListPackages(r.Context(), limit, offset)
	if err != nil {
		h.storageFailure(w, r, err)
		return
	}
	if packages == nil {
		packages = []storage.PackageRow{}
	}
	writeJSON(w, http.StatusOK, paginated{Count: total, Data: packages})
}

// --- Users ------------------------------------------------------------------

func (h *handler) createUser(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Username string `json:"username"`
		Passwd   string `json:"passwd"`
		ExpDate  string `json:"expdate"`
		Package  string `json:"package"`
	}
	if err := decodeJSON(r.Body, &payload); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	for _, field := range []struct {
		name  string
		value string
		max   int
	}{
		{"username", payload.Username, maxNameLen},
		{"passwd", payload.Passwd, maxValueLen},
		{"expdate", payload.ExpDate, maxValueLen},
		{"package", payload.Package, maxNameLen},
	} {
		if err := validateField(field.name, field.value, field.max); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
	}

	if err := h.store.CreateUser(r.Context(), payload.Username, payload.Passwd, payload.ExpDate, payload.Package); err != nil {
		switch {
		case errors.Is(err, storage.ErrAlreadyExists):
			writeError(w, http.StatusBadRequest, errors.New("User already exists"))
		case errors.Is(err, storage.ErrPackageNotFound):
			writeError(w, http.StatusBadRequest, errors.New("Package does not exist"))
		default:
			h.storageFailure(w, r, err)
		}
		return
	}
	writeMessage(w, http.StatusCreated, "User created successfully")
}

func (h *handler) getUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	rows, err := h.store.GetUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("User not found"))
			return
		}
		h.storageFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"logdata": rows})
}

func (h *handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	if err := h.store.DeleteUser(r.Context(), username); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("User not found"))
			return
		}
		h.storageFailure(w, r, err)
		return
	}
	writeMessage(w, http.StatusOK, "User deleted successfully")
}

// --- Accounting and online status --------------------------------------------

func (h *handler) listAccounting(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]
	limit, offset, err := pageParams(r)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}

	total, sessions, err := h.store.ListAccounting(r.Context(), username, limit, offset)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("User not found"))
			return
		}
		h.storageFailure(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []storage.AccountingSession{}
	}
	writeJSON(w, http.StatusOK, paginated{Count: total, Data: sessions})
}

func (h *handler) listOnline(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.store.ListOnline(r.Context())
	if err != nil {
		h.storageFailure(w, r, err)
		return
	}
	if sessions == nil {
		sessions = []storage.OnlineSession{}
	}
	writeJSON(w, http.StatusOK, sessions)
}

func (h *handler) onlineCount(w http.ResponseWriter, r *http.Request) {
	total, err := h.store.CountOnline(r.Context())
	if err != nil {
		h.storageFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"total_online": total})
}

func (h *handler) userOnlineStatus(w http.ResponseWriter, r *http.Request) {
	username := mux.Vars(r)["username"]

	status, err := h.store.UserOnlineStatus(r.Context(), username)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			writeError(w, http.StatusNotFound, errors.New("User not found"))
			return
		}
		h.storageFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": status})
}

// --- NAS --------------------------------------------------------------------

func (h *handler) createNas(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	nas := storage.Nas{
		NasName:     q.Get("nasname"),
		ShortName:   q.Get("shortname"),
		Secret:      q.Get("secret"),
		Type:        q.Get("type"),
		Description: q.Get("description"),
	}
	if nas.Type == "" {
		nas.Type = "other"
	}
	if nas.Description == "" {
		nas.Description = "RADIUS Client"
	}
	for _, field := range []struct {
		name  string
		value string
		max   int
	}{
		{"nasname", nas.NasName, maxNameLen},
		{"shortname", nas.ShortName, maxNameLen},
		{"secret", nas.Secret, maxValueLen},
	} {
		if err := validateField(field.name, field.value, field.max); err != nil {
			writeError(w, http.StatusUnprocessableEntity, err)
			return
		}
	}

	if err := h.store.CreateNas(r.Context(), nas); err != nil {
		if errors.Is(err, storage.ErrAlreadyExists) {
			writeError(w, http.StatusBadRequest, errors.New("NAS already exists"))
			return
		}
		h.storageFailure(w, r, err)
		return
	}
	writeMessage(w, http.StatusCreated, "NAS created successfully")
}

// --- Session disconnect -------------------------------------------------------

func (h *handler) disconnectSession(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	sessionID := q.Get("session")
	nasAddr := q.Get("nas")
	if sessionID == "" || nasAddr == "" {
		writeError(w, http.StatusUnprocessableEntity, errors.New("session and nas are required"))
		return
	}

	if err := h.disconnector.Disconnect(r.Context(), sessionID, nasAddr); err != nil {
		h.log.WithFields(logrus.Fields{
			"session": sessionID,
			"nas":     nasAddr,
		}).WithError(err).Warn("session disconnect failed")
		if errors.Is(err, coa.ErrDisconnectTimeout) {
			writeError(w, http.StatusInternalServerError, errors.New("Session disconnect timeout"))
			return
		}
		writeError(w, http.StatusInternalServerError, errors.New("Session disconnect failed"))
		return
	}
	writeMessage(w, http.StatusOK, "User session disconnected successfully")
}

// --- Helpers ------------------------------------------------------------------

// storageFailure logs the backend error and answers with a generic message so
// driver text (which can carry DSN credentials) never reaches a caller.
func (h *handler) storageFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.log.WithFields(logrus.Fields{
		"path":   r.URL.Path,
		"method": r.Method,
	}).WithError(err).Error("storage failure")
	writeError(w, http.StatusInternalServerError, errors.New("storage failure"))
}

func pageParams(r *http.Request) (int, int, error) {
	vars := mux.Vars(r)
	limit, err := strconv.Atoi(vars["limit"])
	if err != nil || limit < 0 {
		return 0, 0, fmt.Errorf("limit must be a non-negative integer")
	}
	offset, err := strconv.Atoi(vars["offset"])
	if err != nil || offset < 0 {
		return 0, 0, fmt.Errorf("offset must be a non-negative integer")
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return limit, offset, nil
}

func validateField(name, value string, max int) error {
	if value == "" {
		return fmt.Errorf("%s is required", name)
	}
	if len(value) > max {
		return fmt.Errorf("%s must be at most %d characters", name, max)
	}
	return nil
}

func decodeJSON(body io.ReadCloser, dst any) error {
	defer body.Close()
	dec := json.NewDecoder(body)
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeMessage(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
