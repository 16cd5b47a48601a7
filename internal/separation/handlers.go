package separation

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/zombor/cargo-match/internal/reconcile"
	"github.com/zombor/cargo-match/internal/scan"
	"github.com/zombor/cargo-match/internal/scanning"
)

const maxUploadSize = int64(50 << 20)

// corsError writes an error response with CORS headers set
func corsError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	http.Error(w, message, code)
}

// jsonError writes {"error": message}
func jsonError(w http.ResponseWriter, message string, code int) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}

func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// notFoundOr maps missing items and runs to 404 and anything else to 500
func notFoundOr(w http.ResponseWriter, err error, what string) {
	if errors.Is(err, ErrItemNotFound) || errors.Is(err, ErrRunNotFound) {
		corsError(w, what+" not found", http.StatusNotFound)
		return
	}
	slog.Error("Request failed", "error", err)
	corsError(w, "Internal server error", http.StatusInternalServerError)
}

// handleSubmitScan accepts a multipart upload (file + kind) or a JSON body
// with a base64 image.
func (s *Server) handleSubmitScan(w http.ResponseWriter, r *http.Request) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		s.handleUploadScan(w, r)
		return
	}

	var req struct {
		Kind        string `json:"kind"`
		Image       string `json:"image"`
		ContentType string `json:"content_type"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxUploadSize)).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	kind, err := scan.ParseKind(req.Kind)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := s.service.SubmitBase64(r.Context(), kind, req.Image, strings.ToLower(strings.TrimSpace(req.ContentType)))
	if err != nil {
		slog.Error("Error submitting scan", "kind", kind, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, item)
}

func (s *Server) handleUploadScan(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		errorMsg := "Error parsing form"
		if err.Error() == "http: request body too large" {
			errorMsg = "File is too large. Maximum size is 50MB."
		}
		jsonError(w, errorMsg, http.StatusBadRequest)
		return
	}

	kind, err := scan.ParseKind(r.FormValue("kind"))
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		slog.Error("Error getting file from form", "error", err)
		jsonError(w, "No file provided", http.StatusBadRequest)
		return
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		jsonError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return
	}

	contentType := header.Header.Get("Content-Type")
	if contentType == "" || contentType == "application/octet-stream" {
		switch strings.ToLower(filepath.Ext(header.Filename)) {
		case ".jpg", ".jpeg":
			contentType = "image/jpeg"
		case ".png":
			contentType = "image/png"
		case ".pdf":
			contentType = "application/pdf"
		case ".heic":
			contentType = "image/heic"
		case ".heif":
			contentType = "image/heif"
		default:
			contentType = "application/octet-stream"
		}
	}
	contentType = strings.ToLower(strings.TrimSpace(contentType))

	item, err := s.service.SubmitImage(r.Context(), kind, data, contentType)
	if err != nil {
		slog.Error("Error submitting scan", "filename", header.Filename, "error", err)
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusAccepted, item)
}

// handleSubmitText records text recognized on the client
func (s *Server) handleSubmitText(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Kind    string          `json:"kind"`
		RawText string          `json:"raw_text"`
		Hints   *scanning.Hints `json:"hints"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	kind, err := scan.ParseKind(req.Kind)
	if err != nil {
		jsonError(w, err.Error(), http.StatusBadRequest)
		return
	}

	item, err := s.service.SubmitText(kind, scanning.Document{RawText: req.RawText, Hints: req.Hints})
	if err != nil {
		slog.Error("Error submitting text", "kind", kind, "error", err)
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (s *Server) handleListItems(w http.ResponseWriter, r *http.Request) {
	items, err := s.service.ListItems()
	if err != nil {
		slog.Error("Error listing items", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if items == nil {
		items = []scan.Item{}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) handleGetItem(w http.ResponseWriter, r *http.Request) {
	item, err := s.service.GetItem(r.PathValue("id"))
	if err != nil {
		notFoundOr(w, err, "Item")
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *Server) handleGetItemImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.service.GetItemImage(r.PathValue("id"))
	if err != nil {
		corsError(w, "Image not found", http.StatusNotFound)
		return
	}
	w.Header().Set("Content-Type", contentType)
	w.Write(data)
}

func (s *Server) handleDeleteItem(w http.ResponseWriter, r *http.Request) {
	if err := s.service.DeleteItem(r.PathValue("id")); err != nil {
		notFoundOr(w, err, "Item")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleClearItems(w http.ResponseWriter, r *http.Request) {
	if err := s.service.ClearItems(); err != nil {
		slog.Error("Error clearing items", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// handleCreateRun reconciles the current snapshot. An empty body uses the
// server's default destination.
func (s *Server) handleCreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Destination     string `json:"destination"`
		DestinationKind string `json:"destination_kind"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		jsonError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	dest := s.destination
	if req.Destination != "" {
		dest.Name = req.Destination
	}
	switch reconcile.DestinationKind(req.DestinationKind) {
	case reconcile.DestinationDriver, reconcile.DestinationCompany:
		dest.Kind = reconcile.DestinationKind(req.DestinationKind)
	case "":
	default:
		jsonError(w, "destination_kind must be driver or company", http.StatusBadRequest)
		return
	}

	run, err := s.service.Reconcile(dest)
	if err != nil {
		slog.Error("Error reconciling", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.service.ListRuns()
	if err != nil {
		slog.Error("Error listing runs", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	if runs == nil {
		runs = []*Run{}
	}
	writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	run, err := s.service.GetRun(r.PathValue("id"))
	if err != nil {
		notFoundOr(w, err, "Run")
		return
	}
	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleGetManifest(w http.ResponseWriter, r *http.Request) {
	text, err := s.service.Manifest(r.PathValue("id"))
	if err != nil {
		notFoundOr(w, err, "Run")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	io.WriteString(w, text)
}

func (s *Server) handleGetManifestXLSX(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	data, err := s.service.ManifestXLSX(id)
	if err != nil {
		notFoundOr(w, err, "Run")
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="separacao-`+filepath.Base(id)+`.xlsx"`)
	w.Write(data)
}

// handlePreview reconciles without storing a run
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	res, err := s.service.Preview()
	if err != nil {
		slog.Error("Error reconciling", "error", err)
		corsError(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
