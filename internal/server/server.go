// Package server is the thin HTTP layer over the retrieval core. Handlers
// do request decoding and error mapping only; every decision lives in the
// core packages.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/rs/zerolog/log"

	"docqa/internal/chunker"
	"docqa/internal/extract"
	"docqa/internal/models"
	"docqa/internal/rag"
)

// Core is the surface the handlers drive.
type Core interface {
	Ingest(ctx context.Context, docName string, pages map[string]string) (int, error)
	ListDocuments(ctx context.Context) ([]string, error)
	Ask(ctx context.Context, req rag.AskRequest) (*rag.AskResponse, error)
	DropCollection(ctx context.Context) error
}

type Server struct {
	core Core
}

func New(core Core) *Server {
	return &Server{core: core}
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /upload", s.handleUpload)
	mux.HandleFunc("GET /documents", s.handleListDocuments)
	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("DELETE /collection", s.handleDropCollection)
	return mux
}

type uploadResponse struct {
	Filename     string       `json:"filename"`
	DocName      string       `json:"doc_name"`
	DocType      string       `json:"doc_type"`
	ChunksStored int          `json:"chunks_stored"`
	Pages        extract.Meta `json:"pages"`
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	pages, meta, err := extract.FromBytes(header.Filename, data)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	stored, err := s.core.Ingest(r.Context(), header.Filename, pages)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	name := chunker.NormalizeDocName(header.Filename)
	writeJSON(w, http.StatusOK, uploadResponse{
		Filename:     header.Filename,
		DocName:      name,
		DocType:      chunker.InferDocType(name),
		ChunksStored: stored,
		Pages:        meta,
	})
}

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.core.ListDocuments(r.Context())
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	if docs == nil {
		docs = []string{}
	}
	writeJSON(w, http.StatusOK, map[string][]string{"documents": docs})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req rag.AskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	resp, err := s.core.Ask(r.Context(), req)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleDropCollection(w http.ResponseWriter, r *http.Request) {
	if err := s.core.DropCollection(r.Context()); err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrUnsupportedInput):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrEmbeddingProvider),
		errors.Is(err, models.ErrIndexTransport),
		errors.Is(err, models.ErrSummarizerProvider):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	log.Error().Err(err).Int("status", status).Msg("request failed")
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
