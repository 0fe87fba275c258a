package server

import (
	"net/http"

	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/studio"
)

type imageRequest struct {
	Image string `json:"image"`
	Label string `json:"label,omitempty"`
}

type imagesRequest struct {
	Images []string `json:"images"`
}

// decodeImage reads an imageRequest and rejects an empty image.
func decodeImage(w http.ResponseWriter, r *http.Request) (imageRequest, bool) {
	var req imageRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	if req.Image == "" {
		writeError(w, http.StatusBadRequest, "An input image is required")
		return req, false
	}
	return req, true
}

func (s *Server) handlePresets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"styles":      studio.StylePresets(),
		"transitions": studio.TransitionPresets,
	})
}

func (s *Server) handleDetectProduct(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeImage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"label": s.svc.Studio.DetectProductType(r.Context(), req.Image)})
}

func (s *Server) handleSuggestRoom(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeImage(w, r)
	if !ok {
		return
	}
	room := s.svc.Studio.SuggestRoom(r.Context(), req.Image, req.Label)
	writeJSON(w, http.StatusOK, map[string]models.RoomType{"room": room})
}

type sceneRequest struct {
	Images  []string            `json:"images"`
	Options models.SceneOptions `json:"options"`
}

func (s *Server) handleScene(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, err := s.svc.Studio.GenerateScene(r.Context(), req.Images, req.Options)
	if err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) handleDetectAngle(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeImage(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.svc.Studio.DetectAngle(r.Context(), req.Image))
}

type angleRequest struct {
	Image string  `json:"image"`
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

func (s *Server) handleAngle(w http.ResponseWriter, r *http.Request) {
	var req angleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, err := s.svc.Studio.GenerateAngleView(r.Context(), req.Image, req.Yaw, req.Pitch)
	if err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

type upscaleRequest struct {
	Image   string                `json:"image"`
	Images  []string              `json:"images"`
	Options models.UpscaleOptions `json:"options"`
}

// handleUpscale upscales one image, or every image in turn when a list is given.
func (s *Server) handleUpscale(w http.ResponseWriter, r *http.Request) {
	var req upscaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if len(req.Images) > 0 {
		results, err := s.svc.Studio.BatchUpscale(r.Context(), req.Images, req.Options)
		if err != nil && len(results) == 0 {
			writeStudioError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, results)
		return
	}

	img, err := s.svc.Studio.Upscale(r.Context(), req.Image, req.Options)
	if err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

type editRequest struct {
	Image   string             `json:"image"`
	Options models.EditOptions `json:"options"`
}

func (s *Server) handleEdit(w http.ResponseWriter, r *http.Request) {
	var req editRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !req.Options.RemoveBg && req.Options.Instruction == "" {
		writeError(w, http.StatusBadRequest, "An edit instruction is required")
		return
	}
	img, err := s.svc.Studio.Edit(r.Context(), req.Image, req.Options)
	if err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

type styleRequest struct {
	Image   string              `json:"image"`
	Options models.StyleOptions `json:"options"`
}

func (s *Server) handleStyle(w http.ResponseWriter, r *http.Request) {
	var req styleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, err := s.svc.Studio.StyleTransfer(r.Context(), req.Image, req.Options)
	if err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}

func (s *Server) handleVectorize(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeImage(w, r)
	if !ok {
		return
	}
	svg := s.svc.Studio.Vectorize(r.Context(), req.Image)
	if svg == "" {
		writeError(w, http.StatusInternalServerError, "Failed to vectorize image")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"svg": svg})
}

func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	var req imagesRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	critique, err := s.svc.Studio.AnalyzeDesign(r.Context(), req.Images)
	if err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, critique)
}

func (s *Server) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeImage(w, r)
	if !ok {
		return
	}
	url, err := s.svc.Studio.Heatmap(r.Context(), req.Image)
	if err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"image": url})
}

func (s *Server) handleVideo(w http.ResponseWriter, r *http.Request) {
	var req studio.VideoParams
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	img, err := s.svc.Studio.Interpolate(r.Context(), req, nil)
	if err != nil {
		writeStudioError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, img)
}
