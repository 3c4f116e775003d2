// Package service exposes the audit pipeline over HTTP.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"policyaudit/extractor"
	"policyaudit/schema"
	"policyaudit/vectordb"
)

// Auditor is the audit entry point the handlers delegate to.
type Auditor interface {
	Audit(ctx context.Context, text string) ([]schema.Requirement, error)
	AuditOne(ctx context.Context, req schema.Requirement) (schema.Requirement, error)
}

// Counter reports row counts per table, used by the health endpoint.
type Counter interface {
	Count(ctx context.Context, table string) (int, error)
}

// Service wires the HTTP handlers to the auditor and the store.
type Service struct {
	auditor Auditor
	counter Counter
	logf    func(format string, args ...any)
}

// Option configures a Service.
type Option func(*Service)

// WithLogf sets the request log sink.
func WithLogf(logf func(format string, args ...any)) Option {
	return func(s *Service) {
		if logf != nil {
			s.logf = logf
		}
	}
}

// New constructs a Service.
func New(auditor Auditor, counter Counter, opts ...Option) *Service {
	s := &Service{
		auditor: auditor,
		counter: counter,
		logf:    func(string, ...any) {},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the HTTP routing for the service.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /audit", s.handleAudit)
	mux.HandleFunc("POST /audit_one", s.handleAuditOne)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /{$}", s.handleRoot)
	return mux
}

type auditRequest struct {
	Text string `json:"text"`
}

type auditResponse struct {
	Responses []schema.Requirement `json:"responses"`
}

func (s *Service) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req auditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "text is required"})
		return
	}
	requirements, err := s.auditor.Audit(r.Context(), req.Text)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, auditResponse{Responses: requirements})
}

func (s *Service) handleAuditOne(w http.ResponseWriter, r *http.Request) {
	var req schema.Requirement
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "invalid json"})
		return
	}
	if strings.TrimSpace(req.Requirement) == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"detail": "requirement is required"})
		return
	}
	checked, err := s.auditor.AuditOne(r.Context(), req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]schema.Requirement{"response": checked})
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	procedures, err := s.counter.Count(r.Context(), vectordb.SectionTable)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	purposes, err := s.counter.Count(r.Context(), vectordb.ParagraphTable)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error", "message": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"data":   map[string]int{"procedures": procedures, "purposes": purposes},
	})
}

func (s *Service) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Service) writeError(w http.ResponseWriter, err error) {
	s.logf("request failed: %v", err)
	status := http.StatusInternalServerError
	if errors.Is(err, extractor.ErrEmptyInput) {
		status = http.StatusBadRequest
	}
	writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(payload)
}
