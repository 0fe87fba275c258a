// Package server exposes the studio over HTTP: JSON endpoints for every tab,
// Google sign-in with Drive backup, and a websocket page inspector.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/gorilla/websocket"
	"github.com/xhad/studio/pkg/auth"
	"github.com/xhad/studio/pkg/backup"
	"github.com/xhad/studio/pkg/fetch"
	"github.com/xhad/studio/pkg/processor"
	"github.com/xhad/studio/pkg/store"
	"github.com/xhad/studio/pkg/studio"
	"golang.org/x/oauth2"
)

type Config struct {
	Addr        string
	AppURL      string
	StaticDir   string
	MaxUploadMB int
}

// Services are the collaborators the handlers call into. Studio and State are required.
type Services struct {
	Studio   *studio.Studio
	State    *store.StateStore
	Docs     *processor.Processor
	Library  *processor.Library
	OAuth    *auth.OAuth
	Sessions *auth.Sessions
	Backup   *backup.Service
	Fetcher  *fetch.Fetcher

	// DriveFor opens the backup file store for a signed-in user.
	DriveFor func(ctx context.Context, tok *oauth2.Token) (backup.FileStore, error)
	// UserInfo resolves the profile behind a session token.
	UserInfo func(ctx context.Context, tok *oauth2.Token) (*auth.UserInfo, error)
}

type Server struct {
	config   Config
	svc      Services
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

func NewServer(config Config, svc Services) (*Server, error) {
	if svc.Studio == nil || svc.State == nil {
		return nil, errors.New("studio and state are required")
	}
	if config.Addr == "" {
		config.Addr = ":3000"
	}
	if config.MaxUploadMB == 0 {
		config.MaxUploadMB = 50
	}

	if svc.Docs == nil {
		p := processor.NewWithConfig(processor.ProcessorConfig{})
		svc.Docs = &p
	}
	if svc.Library == nil {
		svc.Library = processor.NewLibrary()
	}
	if svc.Backup == nil {
		svc.Backup = backup.NewService("")
	}
	if svc.Fetcher == nil {
		svc.Fetcher = fetch.New()
	}
	if svc.DriveFor == nil && svc.OAuth != nil {
		o := svc.OAuth
		svc.DriveFor = func(ctx context.Context, tok *oauth2.Token) (backup.FileStore, error) {
			return backup.NewDriveStore(ctx, o.TokenSource(ctx, tok))
		}
	}
	if svc.UserInfo == nil && svc.OAuth != nil {
		o := svc.OAuth
		svc.UserInfo = func(ctx context.Context, tok *oauth2.Token) (*auth.UserInfo, error) {
			return o.UserInfo(ctx, tok)
		}
	}

	s := &Server{
		config: config,
		svc:    svc,
		logger: slog.Default().With("component", "server"),
	}
	s.upgrader = s.newUpgrader()
	return s, nil
}

// Handler returns the full route table wrapped in middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Auth and backup
	mux.HandleFunc("GET /api/auth/google/url", s.handleAuthURL)
	mux.HandleFunc("GET /auth/google/callback", s.handleAuthCallback)
	mux.HandleFunc("GET /api/auth/me", s.handleMe)
	mux.HandleFunc("POST /api/auth/logout", s.handleLogout)
	mux.HandleFunc("POST /api/drive/backup", s.handleBackupSave)
	mux.HandleFunc("GET /api/drive/backup", s.handleBackupLoad)

	// Persisted state
	mux.HandleFunc("GET /api/state", s.handleGetState)
	mux.HandleFunc("PUT /api/state", s.handlePutState)
	mux.HandleFunc("POST /api/inputs/{tab}", s.handleAddInputs)
	mux.HandleFunc("DELETE /api/inputs/{tab}", s.handleClearInputs)
	mux.HandleFunc("DELETE /api/inputs/{tab}/{index}", s.handleRemoveInput)
	mux.HandleFunc("POST /api/transfer", s.handleTransfer)
	mux.HandleFunc("GET /api/history", s.handleHistory)
	mux.HandleFunc("DELETE /api/history", s.handleClearHistory)

	// Tabs
	mux.HandleFunc("GET /api/presets", s.handlePresets)
	mux.HandleFunc("POST /api/scene/detect", s.handleDetectProduct)
	mux.HandleFunc("POST /api/scene/suggest", s.handleSuggestRoom)
	mux.HandleFunc("POST /api/scene", s.handleScene)
	mux.HandleFunc("POST /api/angle/detect", s.handleDetectAngle)
	mux.HandleFunc("POST /api/angle", s.handleAngle)
	mux.HandleFunc("POST /api/upscale", s.handleUpscale)
	mux.HandleFunc("POST /api/edit", s.handleEdit)
	mux.HandleFunc("POST /api/style", s.handleStyle)
	mux.HandleFunc("POST /api/vectorize", s.handleVectorize)
	mux.HandleFunc("POST /api/audit", s.handleAudit)
	mux.HandleFunc("POST /api/audit/heatmap", s.handleHeatmap)
	mux.HandleFunc("POST /api/video", s.handleVideo)

	// Documents
	mux.HandleFunc("POST /api/pdf", s.handleUploadPDF)
	mux.HandleFunc("GET /api/pdf", s.handleListPDF)
	mux.HandleFunc("DELETE /api/pdf/{id}", s.handleDeletePDF)
	mux.HandleFunc("POST /api/pdf/chat", s.handlePDFChat)
	mux.HandleFunc("POST /api/pdf/{id}/upscale-region", s.handleUpscaleRegion)
	mux.HandleFunc("GET /ws/inspector", s.handleInspector)

	if s.config.StaticDir != "" {
		mux.Handle("GET /", spaHandler(s.config.StaticDir))
	}

	return requestID(s.logRequests(recoverPanics(mux)))
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.config.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting server", "addr", s.config.Addr, "app_url", s.config.AppURL)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("failed to serve: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	s.logger.Info("shutting down server")
	return srv.Shutdown(shutdownCtx)
}

// spaHandler serves files from dir and falls back to index.html for client routes.
func spaHandler(dir string) http.Handler {
	files := http.FileServer(http.Dir(dir))
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := filepath.Join(dir, filepath.Clean("/"+r.URL.Path))
		if info, err := os.Stat(path); err == nil && !info.IsDir() {
			files.ServeHTTP(w, r)
			return
		}
		http.ServeFile(w, r, filepath.Join(dir, "index.html"))
	})
}
