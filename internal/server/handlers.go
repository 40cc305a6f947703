package server

import (
	"encoding/json"
	"net/http"

	"github.com/leapstack-labs/leapq/pkg/compiler"
	"github.com/leapstack-labs/leapq/pkg/dialect"
)

// compileRequest is the body for /compile and /parse.
type compileRequest struct {
	Source           string `json:"source"`
	Target           string `json:"target,omitempty"`
	Format           *bool  `json:"format,omitempty"`
	SignatureComment *bool  `json:"signature_comment,omitempty"`
}

// resolveRequest is the body for /resolve.
type resolveRequest struct {
	PL json.RawMessage `json:"pl"`
}

// generateRequest is the body for /generate.
type generateRequest struct {
	RQ               json.RawMessage `json:"rq"`
	Target           string          `json:"target,omitempty"`
	Format           *bool           `json:"format,omitempty"`
	SignatureComment *bool           `json:"signature_comment,omitempty"`
}

type sqlResponse struct {
	SQL string `json:"sql"`
}

type errorResponse struct {
	Error string `json:"error"`
	Stage string `json:"stage,omitempty"`
}

// options merges per-request overrides onto the server defaults.
func (s *Server) options(target string, format, comment *bool) compiler.Options {
	opts := s.opts
	if target != "" {
		opts.Target = target
	}
	if format != nil {
		opts.Format = *format
	}
	if comment != nil {
		opts.SignatureComment = *comment
	}
	return opts
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err, "")
		return
	}

	sql, err := compiler.Compile(req.Source, s.options(req.Target, req.Format, req.SignatureComment))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err, string(compiler.StageOf(err)))
		return
	}

	writeJSON(w, http.StatusOK, sqlResponse{SQL: sql})
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err, "")
		return
	}

	data, err := compiler.ParseJSON(req.Source)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err, string(compiler.StageOf(err)))
		return
	}

	writeRaw(w, http.StatusOK, data)
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err, "")
		return
	}

	data, err := compiler.ResolveJSON(req.PL)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err, string(compiler.StageOf(err)))
		return
	}

	writeRaw(w, http.StatusOK, data)
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err, "")
		return
	}

	sql, err := compiler.GenerateJSON(req.RQ, s.options(req.Target, req.Format, req.SignatureComment))
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err, string(compiler.StageOf(err)))
		return
	}

	writeJSON(w, http.StatusOK, sqlResponse{SQL: sql})
}

func (s *Server) handleDialects(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]string{"dialects": dialect.List()})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeRaw(w http.ResponseWriter, status int, data []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

func writeError(w http.ResponseWriter, status int, err error, stage string) {
	writeJSON(w, status, errorResponse{Error: err.Error(), Stage: stage})
}
