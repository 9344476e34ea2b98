package claim

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
)

// maxFormSize bounds multipart bodies; high-resolution phone photos are large
const maxFormSize = int64(50 << 20)

var allowedExtensions = map[string]bool{
	".png":  true,
	".jpg":  true,
	".jpeg": true,
	".pdf":  true,
	".webp": true,
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	setCORSHeaders(w)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]any{
		"success": false,
		"error":   message,
	})
}

func writeData(w http.ResponseWriter, code int, data any) {
	writeJSON(w, code, map[string]any{
		"success": true,
		"data":    data,
	})
}

// allowedFile reports whether filename has an accepted bill extension
func allowedFile(filename string) bool {
	return allowedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// parseForm parses a multipart or urlencoded body, answering 400 on failure
func parseForm(w http.ResponseWriter, r *http.Request) bool {
	err := r.ParseMultipartForm(maxFormSize)
	if errors.Is(err, http.ErrNotMultipart) {
		err = r.ParseForm()
	}
	if err == nil {
		return true
	}

	slog.Error("Error parsing form", "error", err)
	message := "Error parsing form"
	if err.Error() == "http: request body too large" {
		message = "File is too large. Maximum size is 50MB."
	}
	writeError(w, http.StatusBadRequest, message)
	return false
}

// formFields flattens the first value of every submitted form field
func formFields(r *http.Request) map[string]string {
	fields := make(map[string]string)
	for k, v := range r.PostForm {
		if len(v) > 0 {
			fields[k] = v[0]
		}
	}
	return fields
}

// readUpload reads a multipart file into an Upload, determining its content type
func readUpload(header *multipart.FileHeader) (Upload, error) {
	f, err := header.Open()
	if err != nil {
		return Upload{}, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return Upload{}, err
	}

	return Upload{
		Filename:    header.Filename,
		ContentType: contentTypeFor(header.Filename, header.Header.Get("Content-Type")),
		Data:        data,
	}, nil
}

// contentTypeFor prefers the declared type and falls back to the extension
func contentTypeFor(filename, declared string) string {
	contentType := strings.ToLower(strings.TrimSpace(declared))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return "application/octet-stream"
}

// handleSubmitClaim accepts claim form fields plus any number of bill_images files
func (s *Server) handleSubmitClaim(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	var uploads []Upload
	if r.MultipartForm != nil {
		for _, header := range r.MultipartForm.File["bill_images"] {
			if header.Filename == "" || !allowedFile(header.Filename) {
				slog.Warn("Skipping bill file", "filename", header.Filename)
				continue
			}
			upload, err := readUpload(header)
			if err != nil {
				slog.Error("Error reading file data", "error", err, "filename", header.Filename)
				writeError(w, http.StatusBadRequest, "Error reading file. Please try again.")
				return
			}
			uploads = append(uploads, upload)
		}
	}

	claim, err := s.service.SubmitClaim(r.Context(), formFields(r), uploads)
	if err != nil {
		slog.Error("Error submitting claim", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeData(w, http.StatusCreated, claim)
}

// handleExtractBill reads one bill without creating a claim
func (s *Server) handleExtractBill(w http.ResponseWriter, r *http.Request) {
	if !parseForm(w, r) {
		return
	}

	_, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	if !allowedFile(header.Filename) {
		writeError(w, http.StatusBadRequest, "Unsupported file type")
		return
	}

	upload, err := readUpload(header)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, http.StatusBadRequest, "Error reading file. Please try again.")
		return
	}

	bill := s.service.ExtractBill(r.Context(), upload.Data, upload.Filename)
	writeData(w, http.StatusOK, bill)
}

// handleListClaims returns stored claims, optionally filtered by ?owner=
func (s *Server) handleListClaims(w http.ResponseWriter, r *http.Request) {
	claims, err := s.service.ListClaims(r.Context(), r.URL.Query().Get("owner"))
	if err != nil {
		slog.Error("Error listing claims", "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	// Always return an array, not null
	if claims == nil {
		claims = []*ClaimRecord{}
	}
	writeJSON(w, http.StatusOK, claims)
}

// handleGetClaim returns a single claim
func (s *Server) handleGetClaim(w http.ResponseWriter, r *http.Request) {
	claim, err := s.service.GetClaim(r.Context(), r.PathValue("id"))
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Claim not found")
		return
	}
	if err != nil {
		slog.Error("Error getting claim", "id", r.PathValue("id"), "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, claim)
}

// handleDeleteClaim deletes a claim and its files
func (s *Server) handleDeleteClaim(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := s.service.DeleteClaim(r.Context(), id)
	if errors.Is(err, ErrNotFound) {
		writeError(w, http.StatusNotFound, "Claim not found")
		return
	}
	if err != nil {
		slog.Error("Error deleting claim", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"message": "Claim deleted",
	})
}

// handleGetFile serves a stored bill file
func (s *Server) handleGetFile(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	data, err := s.service.GetBillFile(r.Context(), key)
	if err != nil {
		slog.Warn("Bill file not found", "key", key, "error", err)
		writeError(w, http.StatusNotFound, "File not found")
		return
	}

	setCORSHeaders(w)
	w.Header().Set("Content-Type", contentTypeFor(key, ""))
	w.Write(data)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
}
