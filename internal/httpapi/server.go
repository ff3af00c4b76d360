package httpapi

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/BrandonDHaskell/tagbook/internal/platform/logger"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/service"
	"github.com/BrandonDHaskell/tagbook/internal/tagbook/types"
)

type Dependencies struct {
	Logger     *logger.Logger
	Addr       string
	Tagging    *service.TaggingService
	Audit      *service.AuditLog
	Settings   *service.SettingsCache
	Identities *service.IdentityRegistry
	Readers    *service.ReaderRegistry
	// Ping reports storage health for /healthz.  Nil means always healthy.
	Ping func(ctx context.Context) error
}

type Server struct {
	httpServer *http.Server
	log        *logger.Logger
	mux        *http.ServeMux

	tagging    *service.TaggingService
	audit      *service.AuditLog
	settings   *service.SettingsCache
	identities *service.IdentityRegistry
	readers    *service.ReaderRegistry
	ping       func(ctx context.Context) error
}

func NewServer(d Dependencies) *Server {
	if d.Logger == nil {
		d.Logger = logger.Nop()
	}
	mux := http.NewServeMux()

	s := &Server{
		log:        d.Logger.With("service", "HTTPServer"),
		mux:        mux,
		tagging:    d.Tagging,
		audit:      d.Audit,
		settings:   d.Settings,
		identities: d.Identities,
		readers:    d.Readers,
		ping:       d.Ping,
	}

	mux.HandleFunc("POST /v1/taps", s.handleTap)
	mux.HandleFunc("POST /v1/taps/{tapId}/confirm", s.handleConfirm)

	mux.HandleFunc("GET /v1/taglogs", s.handleQueryTagLogs)
	mux.HandleFunc("GET /v1/taglogs/{id}", s.handleGetTagLog)
	mux.HandleFunc("POST /v1/taglogs/{id}/corrections", s.handleCorrect)

	mux.HandleFunc("GET /v1/settings", s.handleGetSettings)
	mux.HandleFunc("PUT /v1/settings", s.handlePutSettings)

	mux.HandleFunc("POST /v1/identities", s.handleRegisterIdentity)
	mux.HandleFunc("GET /v1/identities/{uid}", s.handleGetIdentity)

	mux.HandleFunc("GET /v1/readers", s.handleListReaders)
	mux.HandleFunc("GET /v1/points/{personId}", s.handlePoints)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              d.Addr,
		Handler:           loggingMiddleware(s.log, mux),
		ReadHeaderTimeout: 5 * time.Second,
	}

	return s
}

func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

// ── Taps ─────────────────────────────────────────────────────────────────────

func (s *Server) handleTap(w http.ResponseWriter, r *http.Request) {
	if isProtobuf(r) {
		s.handleTapProto(w, r)
		return
	}

	var req types.TapRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(service.CodeInvalidRequest), "invalid JSON body")
		return
	}

	res, err := s.tagging.SubmitTap(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// handleTapProto answers protobuf readers in protobuf, errors included:
// a rejection is a TapResult with status "error" and the code as reason.
func (s *Server) handleTapProto(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeProto(w, http.StatusBadRequest, protoError(service.CodeInvalidRequest, "Invalid request."))
		return
	}
	req, err := tapRequestFromProto(body)
	if err != nil {
		writeProto(w, http.StatusBadRequest, protoError(service.CodeInvalidRequest, "Invalid request."))
		return
	}

	res, err := s.tagging.SubmitTap(r.Context(), req)
	if err != nil {
		status, code := statusFor(err)
		if status >= 500 {
			s.log.Error("request failed", "path", r.URL.Path, "err", err)
		}
		writeProto(w, status, protoError(code, service.DisplayMessage(err)))
		return
	}
	writeProto(w, http.StatusOK, tapResultToProto(res))
}

func protoError(code service.Code, msg string) []byte {
	return tapResultToProto(types.TapResult{
		Status:     "error",
		Message:    msg,
		Reason:     string(code),
		ServerTime: time.Now().UTC().Format(time.RFC3339Nano),
	})
}

func (s *Server) handleConfirm(w http.ResponseWriter, r *http.Request) {
	var req types.ConfirmRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(service.CodeInvalidRequest), "invalid JSON body")
		return
	}

	res, err := s.tagging.Confirm(r.Context(), r.PathValue("tapId"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ── Audit log ────────────────────────────────────────────────────────────────

func (s *Server) handleQueryTagLogs(w http.ResponseWriter, r *http.Request) {
	f, p, err := parseTagLogQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, string(service.CodeInvalidRequest), err.Error())
		return
	}
	page, err := s.audit.Query(r.Context(), f, p)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (s *Server) handleGetTagLog(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	rec, err := s.audit.Get(r.Context(), id)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (s *Server) handleCorrect(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req types.CorrectionRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(service.CodeInvalidRequest), "invalid JSON body")
		return
	}
	rec, err := s.audit.Correct(r.Context(), id, req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	sum, err := s.audit.Points(r.Context(), r.PathValue("personId"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

// ── Settings ─────────────────────────────────────────────────────────────────

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cur, err := s.settings.Get(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cur)
}

func (s *Server) handlePutSettings(w http.ResponseWriter, r *http.Request) {
	var req types.Settings
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(service.CodeInvalidRequest), "invalid JSON body")
		return
	}
	saved, err := s.settings.Update(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	s.log.Info("settings updated",
		"checkout_threshold", saved.CheckoutThreshold,
		"max_re_tags", saved.MaxReTags,
	)
	writeJSON(w, http.StatusOK, saved)
}

// ── Identities and readers ───────────────────────────────────────────────────

func (s *Server) handleRegisterIdentity(w http.ResponseWriter, r *http.Request) {
	var req types.RegisterIdentityRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, string(service.CodeInvalidRequest), "invalid JSON body")
		return
	}
	id, err := s.identities.Register(r.Context(), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, id)
}

func (s *Server) handleGetIdentity(w http.ResponseWriter, r *http.Request) {
	id, err := s.identities.Resolve(r.Context(), r.PathValue("uid"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, id)
}

func (s *Server) handleListReaders(w http.ResponseWriter, r *http.Request) {
	readers, err := s.readers.List(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}
	if readers == nil {
		readers = []types.Reader{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"readers": readers})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.ping != nil {
		if err := s.ping(r.Context()); err != nil {
			s.log.Warn("health check failed", "err", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// ── Query parsing ────────────────────────────────────────────────────────────

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id < 1 {
		writeError(w, http.StatusBadRequest, string(service.CodeInvalidRequest), "id must be a positive integer")
		return 0, false
	}
	return id, true
}

// parseTagLogQuery reads uid, from, to, eventType (repeatable or comma
// separated), page and pageSize.
func parseTagLogQuery(r *http.Request) (types.TagLogFilter, types.Page, error) {
	q := r.URL.Query()
	f := types.TagLogFilter{UID: strings.TrimSpace(q.Get("uid"))}

	for _, key := range []string{"from", "to"} {
		v := strings.TrimSpace(q.Get(key))
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return f, types.Page{}, errInvalidParam(key, "RFC3339 timestamp")
		}
		t = t.UTC()
		if key == "from" {
			f.From = &t
		} else {
			f.To = &t
		}
	}

	for _, v := range q["eventType"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				f.EventTypes = append(f.EventTypes, types.EventType(part))
			}
		}
	}

	var p types.Page
	var err error
	if p.Number, err = queryInt(q.Get("page")); err != nil {
		return f, p, errInvalidParam("page", "integer")
	}
	if p.Size, err = queryInt(q.Get("pageSize")); err != nil {
		return f, p, errInvalidParam("pageSize", "integer")
	}
	return f, p, nil
}

func queryInt(v string) (int, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

type paramError struct {
	name, want string
}

func (e paramError) Error() string { return e.name + " must be an " + e.want }

func errInvalidParam(name, want string) error { return paramError{name: name, want: want} }
