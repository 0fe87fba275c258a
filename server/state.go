package server

import (
	"io"
	"net/http"
	"strconv"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/logger"
	"github.com/xhad/studio/pkg/store"
)

func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.State.Snapshot())
}

func (s *Server) handlePutState(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	s.svc.State.Replace(r.Context(), store.Decode(data))
	writeJSON(w, http.StatusOK, s.svc.State.Snapshot())
}

func pathTab(w http.ResponseWriter, r *http.Request) (models.Tab, bool) {
	tab := models.Tab(r.PathValue("tab"))
	if !tab.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown tab")
		return "", false
	}
	return tab, true
}

// inline replaces remote http(s) URLs with data URLs so state stays self-contained.
func (s *Server) inline(r *http.Request, images []string) ([]string, error) {
	out := make([]string, len(images))
	for i, img := range images {
		if !s.svc.Fetcher.IsRemote(img) {
			out[i] = img
			continue
		}
		dataURL, err := s.svc.Fetcher.FetchDataURL(r.Context(), img)
		if err != nil {
			return nil, err
		}
		out[i] = dataURL
	}
	return out, nil
}

type inputsRequest struct {
	Images []string `json:"images"`
}

func (s *Server) handleAddInputs(w http.ResponseWriter, r *http.Request) {
	tab, ok := pathTab(w, r)
	if !ok {
		return
	}
	var req inputsRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	images, err := s.inline(r, req.Images)
	if err != nil {
		logger.FromContext(r.Context()).Warn("failed to fetch input", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to fetch image")
		return
	}
	if err := s.svc.State.AddInputs(r.Context(), tab, images...); err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State.Snapshot().Inputs(tab))
}

func (s *Server) handleClearInputs(w http.ResponseWriter, r *http.Request) {
	tab, ok := pathTab(w, r)
	if !ok {
		return
	}
	if err := s.svc.State.ClearInputs(r.Context(), tab); err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, []string{})
}

func (s *Server) handleRemoveInput(w http.ResponseWriter, r *http.Request) {
	tab, ok := pathTab(w, r)
	if !ok {
		return
	}
	index, err := strconv.Atoi(r.PathValue("index"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid index")
		return
	}
	if err := s.svc.State.RemoveInput(r.Context(), tab, index); err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State.Snapshot().Inputs(tab))
}

type transferRequest struct {
	Image string     `json:"image"`
	Tab   models.Tab `json:"tab"`
}

// handleTransfer sends a result image to the front of another tab's inputs.
func (s *Server) handleTransfer(w http.ResponseWriter, r *http.Request) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "An input image is required")
		return
	}
	if !req.Tab.Valid() {
		writeError(w, http.StatusBadRequest, "Unknown tab")
		return
	}

	images, err := s.inline(r, []string{req.Image})
	if err != nil {
		logger.FromContext(r.Context()).Warn("failed to fetch transfer image", "error", err)
		writeError(w, http.StatusBadRequest, "Failed to fetch image")
		return
	}
	if err := s.svc.State.Transfer(r.Context(), images[0], req.Tab); err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.svc.State.Snapshot().Inputs(req.Tab))
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.State.Snapshot().GenImg)
}

func (s *Server) handleClearHistory(w http.ResponseWriter, r *http.Request) {
	s.svc.State.ClearHistory(r.Context())
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}
