package server

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/claro-ai/claro/internal/store"
	"github.com/claro-ai/claro/internal/summarizer"
	"github.com/claro-ai/claro/internal/textcache"
)

// maxUploadBytes caps the accepted document size.
const maxUploadBytes = 25 << 20

// handleUpload accepts a multipart PDF upload, runs the full ingestion
// chain and a structured analysis, and returns the analysis. A failed
// analysis falls back to a minimal report; a failed ingest is an error.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form: "+err.Error())
		return
	}

	userID := r.FormValue("user_id")
	if userID == "" {
		writeError(w, http.StatusBadRequest, "user_id is required")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		writeError(w, http.StatusBadRequest, "Only PDF files are allowed")
		return
	}

	source, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusBadRequest, "reading upload: "+err.Error())
		return
	}

	docID, err := s.store.CreateDocument(ctx, userID, header.Filename)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "registering document: "+err.Error())
		return
	}

	if _, err := s.pipe.Ingest(ctx, docID, source); err != nil {
		if errors.Is(err, textcache.ErrExtraction) {
			writeError(w, http.StatusBadRequest, "Failed to extract text from PDF")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error processing document: "+err.Error())
		return
	}

	report := s.analyzeDocument(r, docID)
	raw, err := json.Marshal(report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding analysis: "+err.Error())
		return
	}
	if err := s.store.SaveAnalysis(ctx, docID, raw); err != nil {
		writeError(w, http.StatusInternalServerError, "storing analysis: "+err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"doc_id":  docID,
		"meta":    map[string]string{"filename": header.Filename},
		"summary": report,
	})
}

// analyzeDocument runs the structured analysis over the cached text,
// degrading to a fallback report on any failure.
func (s *Server) analyzeDocument(r *http.Request, docID string) *summarizer.AnalysisReport {
	text, err := s.texts.Load(docID)
	if err == nil {
		report, serr := s.summarizer.Summarize(r.Context(), text)
		if serr == nil {
			return report
		}
		err = serr
	}
	log.Printf("server: analysis for %s failed: %v", docID, err)
	return summarizer.FallbackReport()
}

// handleUserDocuments lists all documents owned by a user.
func (s *Server) handleUserDocuments(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")

	docs, err := s.store.ListDocuments(r.Context(), userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching documents: "+err.Error())
		return
	}
	if docs == nil {
		docs = []store.Document{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"documents": docs})
}

// handleAnalysis returns the stored analysis for a document,
// regenerating it from the cached text when none is stored yet.
func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	docID := chi.URLParam(r, "docID")

	if raw, err := s.store.GetAnalysis(ctx, docID); err == nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write(raw)
		return
	}

	if _, err := s.store.GetDocument(ctx, docID); err != nil {
		writeError(w, http.StatusNotFound, "document not found")
		return
	}

	report := s.analyzeDocument(r, docID)
	raw, err := json.Marshal(report)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "encoding analysis: "+err.Error())
		return
	}
	if err := s.store.SaveAnalysis(ctx, docID, raw); err != nil {
		log.Printf("server: storing regenerated analysis for %s: %v", docID, err)
	}
	writeJSON(w, http.StatusOK, report)
}

// chatRequest is the POST /chat/user body.
type chatRequest struct {
	UserID string `json:"user_id"`
	Query  string `json:"query"`
}

// handleChat answers a question over all of the user's documents.
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UserID == "" || req.Query == "" {
		writeError(w, http.StatusBadRequest, "user_id and query are required")
		return
	}

	docs, err := s.store.ListDocuments(ctx, req.UserID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error processing chat: "+err.Error())
		return
	}
	if len(docs) == 0 {
		writeJSON(w, http.StatusOK, map[string]string{
			"response": "You don't have any documents yet. Please upload a document first.",
		})
		return
	}

	ans, err := s.pipe.Ask(ctx, req.UserID, req.Query, nil, nil)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error processing chat: "+err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"response": ans.Text})
}
