package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/xhad/studio/pkg/llm"
	"github.com/xhad/studio/pkg/logger"
	"github.com/xhad/studio/pkg/store"
	"github.com/xhad/studio/pkg/studio"
)

// maxJSONBody bounds JSON request bodies; images travel inline as data URLs.
const maxJSONBody = 64 << 20

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// writeStudioError maps studio and generation failures to responses. Model
// errors are logged and replaced with a generic message.
func writeStudioError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, studio.ErrNoInput):
		writeError(w, http.StatusBadRequest, "An input image is required")
		return
	case errors.Is(err, studio.ErrSelectionTooSmall):
		writeError(w, http.StatusBadRequest, "Selection too small")
		return
	case errors.Is(err, store.ErrUnknownTab):
		writeError(w, http.StatusBadRequest, "Unknown tab")
		return
	}

	op := "generation"
	var genErr *llm.GenerationError
	if errors.As(err, &genErr) {
		op = genErr.Op
	}
	logger.FromContext(r.Context()).Error("generation failed", "op", op, "error", err)
	writeError(w, http.StatusInternalServerError, "Generation failed. Please try again.")
}
