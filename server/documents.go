package server

import (
	"errors"
	"fmt"
	"image"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/logger"
	"github.com/xhad/studio/pkg/render"
)

const pdfMIME = "application/pdf"

// maxRegionScale bounds the zoom used to render a page before cropping.
const maxRegionScale = 8.0

func isPDF(name, contentType string) bool {
	return contentType == pdfMIME || strings.EqualFold(filepath.Ext(name), ".pdf")
}

// handleUploadPDF extracts every uploaded PDF and adds it to the library.
func (s *Server) handleUploadPDF(w http.ResponseWriter, r *http.Request) {
	limit := int64(s.config.MaxUploadMB) << 20
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(limit); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid upload")
		return
	}

	files := r.MultipartForm.File["files"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "No files uploaded")
		return
	}

	log := logger.FromContext(r.Context())
	added := make([]models.Document, 0, len(files))
	for _, fh := range files {
		if !isPDF(fh.Filename, fh.Header.Get("Content-Type")) {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("%s is not a PDF", fh.Filename))
			return
		}

		f, err := fh.Open()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid upload")
			return
		}
		data, err := io.ReadAll(f)
		f.Close()
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid upload")
			return
		}

		doc, file, err := s.svc.Docs.Extract(fh.Filename, data)
		if err != nil {
			log.Warn("pdf extraction failed", "file", fh.Filename, "error", err)
			writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to read %s", fh.Filename))
			return
		}
		s.svc.Library.Add(doc, file)
		added = append(added, doc)
		log.Info("pdf added", "id", doc.ID, "file", doc.Name, "pages", doc.PageCount)
	}

	writeJSON(w, http.StatusOK, added)
}

func (s *Server) handleListPDF(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Library.List())
}

func (s *Server) handleDeletePDF(w http.ResponseWriter, r *http.Request) {
	if !s.svc.Library.Remove(r.PathValue("id")) {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type chatRequest struct {
	Query   string               `json:"query"`
	DocIDs  []string             `json:"docIds"`
	History []models.ChatMessage `json:"history"`
	Visual  bool                 `json:"visual"`
}

func (s *Server) handlePDFChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		writeError(w, http.StatusBadRequest, "A question is required")
		return
	}

	docs := s.svc.Library.Select(req.DocIDs)
	answer, err := s.svc.Studio.ChatWithDocuments(r.Context(), req.Query, docs, req.History, req.Visual)
	if err != nil {
		logger.FromContext(r.Context()).Error("document chat failed", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to analyze documents.")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"answer": answer})
}

type regionRequest struct {
	Page  int     `json:"page"`
	Scale float64 `json:"scale"`
	X     int     `json:"x"`
	Y     int     `json:"y"`
	W     int     `json:"w"`
	H     int     `json:"h"`
}

// handleUpscaleRegion renders a page and upscales the selected rectangle of it.
// Coordinates are in rendered pixels at the given scale.
func (s *Server) handleUpscaleRegion(w http.ResponseWriter, r *http.Request) {
	file, ok := s.svc.Library.File(r.PathValue("id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Document not found")
		return
	}

	var req regionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Scale <= 0 {
		req.Scale = 1.5
	}
	if req.Scale > maxRegionScale {
		writeError(w, http.StatusBadRequest, "Scale out of range")
		return
	}
	if req.Page < 1 || req.Page > file.NumPages() {
		writeError(w, http.StatusBadRequest, "Page out of range")
		return
	}

	page, err := render.RenderPage(r.Context(), file, req.Page, req.Scale)
	if errors.Is(err, render.ErrViewportTooLarge) {
		writeError(w, http.StatusBadRequest, "Page too large at this scale")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("page render failed", "page", req.Page, "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to render page")
		return
	}

	img, err := s.svc.Studio.UpscaleRegion(r.Context(), page, req.Page, image.Rect(req.X, req.Y, req.X+req.W, req.Y+req.H))
	if err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}
