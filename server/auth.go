package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/xhad/studio/pkg/backup"
	"github.com/xhad/studio/pkg/logger"
	"github.com/xhad/studio/pkg/store"
	"golang.org/x/oauth2"
)

const callbackHTML = `<!DOCTYPE html>
<html>
  <body>
    <script>
      if (window.opener) {
        window.opener.postMessage({ type: 'GOOGLE_AUTH_SUCCESS' }, '*');
        window.close();
      } else {
        window.location.href = '/';
      }
    </script>
    <p>Authentication successful. This window should close automatically.</p>
  </body>
</html>`

func (s *Server) oauthReady(w http.ResponseWriter) bool {
	if s.svc.OAuth == nil || s.svc.Sessions == nil {
		writeError(w, http.StatusServiceUnavailable, "Google sign-in is not configured")
		return false
	}
	return true
}

func (s *Server) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	if !s.oauthReady(w) {
		return
	}
	state, err := s.svc.Sessions.NewState(w)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to create oauth state", "error", err)
		writeError(w, http.StatusInternalServerError, "Failed to start sign-in")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"url": s.svc.OAuth.AuthURL(state)})
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	if !s.oauthReady(w) {
		return
	}
	log := logger.FromContext(r.Context())
	q := r.URL.Query()

	if err := s.svc.Sessions.VerifyState(w, r, q.Get("state")); err != nil {
		log.Warn("oauth callback rejected", "error", err)
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	tok, err := s.svc.OAuth.Exchange(r.Context(), q.Get("code"))
	if err != nil {
		log.Error("oauth exchange failed", "error", err)
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}
	if err := s.svc.Sessions.Save(w, tok); err != nil {
		log.Error("failed to save session", "error", err)
		http.Error(w, "Authentication failed", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write([]byte(callbackHTML))
}

// sessionToken returns the caller's token or writes a 401.
func (s *Server) sessionToken(w http.ResponseWriter, r *http.Request) (*oauth2.Token, bool) {
	if s.svc.Sessions == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	tok, err := s.svc.Sessions.Load(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return nil, false
	}
	return tok, true
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	tok, ok := s.sessionToken(w, r)
	if !ok {
		return
	}
	if s.svc.UserInfo == nil {
		writeError(w, http.StatusUnauthorized, "Session expired")
		return
	}

	info, err := s.svc.UserInfo(r.Context(), tok)
	if err != nil {
		logger.FromContext(r.Context()).Warn("user info lookup failed", "error", err)
		writeError(w, http.StatusUnauthorized, "Session expired")
		return
	}
	writeJSON(w, http.StatusOK, info)
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if s.svc.Sessions != nil {
		s.svc.Sessions.Clear(w)
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

type backupRequest struct {
	Data json.RawMessage `json:"data"`
}

type backupResponse struct {
	Success bool `json:"success"`
	backup.Result
}

func (s *Server) driveFor(w http.ResponseWriter, r *http.Request) (backup.FileStore, bool) {
	tok, ok := s.sessionToken(w, r)
	if !ok {
		return nil, false
	}
	if s.svc.DriveFor == nil {
		writeError(w, http.StatusServiceUnavailable, "Google Drive is not configured")
		return nil, false
	}
	fs, err := s.svc.DriveFor(r.Context(), tok)
	if err != nil {
		logger.FromContext(r.Context()).Error("failed to open drive", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return nil, false
	}
	return fs, true
}

func (s *Server) handleBackupSave(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.driveFor(w, r)
	if !ok {
		return
	}

	var req backupRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	data := []byte(req.Data)
	if len(data) == 0 || string(data) == "null" {
		var err error
		if data, err = s.svc.State.Snapshot().Encode(); err != nil {
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
	}

	res, err := s.svc.Backup.Save(r.Context(), fs, data)
	if err != nil {
		logger.FromContext(r.Context()).Error("backup failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, backupResponse{Success: true, Result: res})
}

func (s *Server) handleBackupLoad(w http.ResponseWriter, r *http.Request) {
	fs, ok := s.driveFor(w, r)
	if !ok {
		return
	}

	data, err := s.svc.Backup.Load(r.Context(), fs)
	if errors.Is(err, backup.ErrNoBackup) {
		writeError(w, http.StatusNotFound, "No backup found")
		return
	}
	if err != nil {
		logger.FromContext(r.Context()).Error("restore failed", "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if !json.Valid(data) {
		writeError(w, http.StatusInternalServerError, "Backup file is not valid JSON")
		return
	}

	if r.URL.Query().Get("restore") == "true" {
		s.svc.State.Replace(r.Context(), store.Decode(data))
	}
	writeJSON(w, http.StatusOK, backupRequest{Data: json.RawMessage(data)})
}
