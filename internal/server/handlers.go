package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/charmbracelet/log"
	"github.com/go-playground/validator/v10"

	"github.com/desertthunder/xtrobe/internal/auth"
	"github.com/desertthunder/xtrobe/internal/catalog"
	"github.com/desertthunder/xtrobe/internal/models"
	"github.com/desertthunder/xtrobe/internal/progress"
	"github.com/desertthunder/xtrobe/internal/shared"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

type moduleSummary struct {
	ID         int    `json:"id"`
	Title      string `json:"title"`
	Slug       string `json:"slug"`
	Submodules int    `json:"submodules"`
}

type moduleDetail struct {
	moduleSummary
	Content []models.Submodule `json:"content"`
}

type sessionResponse struct {
	Session   *progress.Session `json:"session"`
	Submodule models.Submodule  `json:"submodule"`
	Percent   int               `json:"percent"`
	Saved     bool              `json:"saved"`
	Warning   string            `json:"warning,omitempty"`
}

type advanceRequest struct {
	SubmoduleIndex *int `json:"submoduleIndex" validate:"required,gte=0"`
}

type advanceResponse struct {
	Outcome progress.Outcome `json:"outcome"`
	sessionResponse
}

type resumeResponse struct {
	progress.ResumeTarget
	Found    bool `json:"found"`
	Degraded bool `json:"degraded"`
}

// API serves the progress routes.
type API struct {
	tracker  *progress.Tracker
	resolver *progress.Resolver
	catalog  *catalog.Catalog
	validate *validator.Validate
	logger   *log.Logger
}

// NewAPI creates an [API].
func NewAPI(tracker *progress.Tracker, resolver *progress.Resolver, logger *log.Logger) *API {
	return &API{
		tracker:  tracker,
		resolver: resolver,
		catalog:  tracker.Catalog(),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

// Register adds the catalog and progress routes to r.
func (a *API) Register(r Router) {
	r.Handle(http.MethodGet, "/api/modules", http.HandlerFunc(a.listModules))
	r.Handle(http.MethodGet, "/api/modules/{slug}", http.HandlerFunc(a.getModule))
	r.Handle(http.MethodPost, "/api/modules/{slug}/enter", http.HandlerFunc(a.enter))
	r.Handle(http.MethodPost, "/api/modules/{slug}/advance", http.HandlerFunc(a.advance))
	r.Handle(http.MethodPost, "/api/modules/{slug}/jump", http.HandlerFunc(a.jump))
	r.Handle(http.MethodGet, "/api/resume", http.HandlerFunc(a.resume))
	r.Handle(http.MethodGet, "/api/progress", http.HandlerFunc(a.overview))
}

func (a *API) listModules(w http.ResponseWriter, r *http.Request) {
	entries := a.catalog.Entries()
	out := make([]moduleSummary, 0, len(entries))
	for _, e := range entries {
		out = append(out, summarize(e))
	}
	writeJSON(w, http.StatusOK, out)
}

func (a *API) getModule(w http.ResponseWriter, r *http.Request) {
	slug := r.PathValue("slug")
	m, err := a.catalog.Resolve(slug)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, moduleDetail{
		moduleSummary: summarize(catalog.Entry{Module: m, Slug: slug}),
		Content:       m.Submodules,
	})
}

func (a *API) enter(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserFromContext(r.Context())

	s, err := a.tracker.Enter(r.Context(), userID, r.PathValue("slug"))
	if s == nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s, err))
}

func (a *API) advance(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserFromContext(r.Context())

	var req advanceRequest
	if err := a.decode(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	s, err := a.tracker.SessionAt(r.Context(), userID, r.PathValue("slug"), *req.SubmoduleIndex)
	if err != nil {
		writeError(w, err)
		return
	}

	out, err := a.tracker.Advance(r.Context(), s)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, advanceResponse{Outcome: out, sessionResponse: newSessionResponse(s, nil)})
}

func (a *API) jump(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserFromContext(r.Context())

	s, err := a.tracker.JumpToSlug(r.Context(), userID, r.PathValue("slug"))
	if s == nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSessionResponse(s, err))
}

func (a *API) resume(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserFromContext(r.Context())

	target, err := a.resolver.ResolveResumeTarget(r.Context(), userID)
	switch {
	case errors.Is(err, shared.ErrNotAuthenticated):
		writeError(w, err)
	case err != nil:
		a.logger.Warn("resume pointer unavailable", "user", userID, "err", err)
		writeJSON(w, http.StatusOK, resumeResponse{ResumeTarget: a.resolver.Start(), Degraded: true})
	case target == nil:
		writeJSON(w, http.StatusOK, resumeResponse{ResumeTarget: a.resolver.Start()})
	default:
		writeJSON(w, http.StatusOK, resumeResponse{ResumeTarget: *target, Found: true})
	}
}

func (a *API) overview(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserFromContext(r.Context())

	o, err := a.tracker.Overview(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (a *API) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	if err := a.validate.Struct(v); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}
	return nil
}

func summarize(e catalog.Entry) moduleSummary {
	return moduleSummary{ID: e.ID, Title: e.Title, Slug: e.Slug, Submodules: e.Len()}
}

func newSessionResponse(s *progress.Session, writeErr error) sessionResponse {
	resp := sessionResponse{
		Session:   s,
		Submodule: s.Submodule(),
		Percent:   s.Percent(),
		Saved:     writeErr == nil && !s.Degraded,
	}
	switch {
	case writeErr != nil:
		resp.Warning = "progress may not have been saved: " + writeErr.Error()
	case s.Degraded:
		resp.Warning = "progress could not be loaded"
	}
	return resp
}

// healthHandler implements [Handler] for liveness checks.
type healthHandler struct {
	catalog *catalog.Catalog
}

func (h healthHandler) Routes() []string {
	return []string{"GET /healthz"}
}

func (h healthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "modules": h.catalog.Len()}
	if v := h.catalog.Version(); v != nil {
		body["catalogVersion"] = v.String()
	}
	writeJSON(w, http.StatusOK, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// statusFor maps sentinel errors onto HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrModuleNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrNotAuthenticated),
		errors.Is(err, shared.ErrInvalidToken),
		errors.Is(err, shared.ErrTokenExpired):
		return http.StatusUnauthorized
	case shared.IsRetryable(err):
		return http.StatusServiceUnavailable
	case errors.Is(err, shared.ErrEmptyModule):
		return http.StatusUnprocessableEntity
	case errors.Is(err, shared.ErrInvalidSubmodule),
		errors.Is(err, shared.ErrInvalidInput),
		errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	retryable := shared.IsRetryable(err)
	if retryable {
		w.Header().Set("Retry-After", "1")
	}

	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = http.StatusText(status)
	}
	writeJSON(w, status, errorResponse{Error: msg, Retryable: retryable})
}
