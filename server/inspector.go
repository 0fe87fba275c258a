package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/xhad/studio/pkg/imageutil"
	"github.com/xhad/studio/pkg/logger"
	"github.com/xhad/studio/pkg/render"
)

var errUnknownDocument = errors.New("unknown document")

func (s *Server) newUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     s.checkOrigin,
	}
}

// checkOrigin admits browsers only from this host or the configured app URL.
// Requests without an Origin header come from non-browser clients and pass.
func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil || u.Host == "" {
		return false
	}
	if strings.EqualFold(u.Host, r.Host) {
		return true
	}
	app, err := url.Parse(s.config.AppURL)
	if err != nil || app.Host == "" {
		return false
	}
	return strings.EqualFold(u.Scheme, app.Scheme) && strings.EqualFold(u.Host, app.Host)
}

// Message is one inspector websocket message in either direction.
type Message struct {
	Type    string  `json:"type"`
	Content string  `json:"content,omitempty"`
	DocID   string  `json:"docId,omitempty"`
	Page    int     `json:"page,omitempty"`
	Scale   float64 `json:"scale,omitempty"`
	Data    any     `json:"data,omitempty"`
}

// FrameData carries a committed page frame.
type FrameData struct {
	Image   string `json:"image"`
	Width   int    `json:"width"`
	Height  int    `json:"height"`
	Version uint64 `json:"version"`
}

// inspector is the per-connection render state: one canceller and one surface.
type inspector struct {
	conn      *websocket.Conn
	writeMu   sync.Mutex
	canceller *render.Canceller
	surface   *render.Surface
	logger    *slog.Logger
}

func (s *Server) handleInspector(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContext(r.Context())
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Hijacked connections outlive r.Context; renders stop via cancel and the canceller on return.
	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	defer cancel()

	log = log.With("component", "inspector")
	in := &inspector{
		conn:      conn,
		canceller: render.NewCanceller(log),
		surface:   render.NewSurface(),
		logger:    log,
	}
	defer in.canceller.Cancel()

	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Debug("inspector read ended", "error", err)
			}
			return
		}

		var msg Message
		if err := json.Unmarshal(raw, &msg); err != nil {
			log.Debug("invalid inspector message", "error", err)
			in.send(Message{Type: "error", Content: "invalid message"})
			continue
		}

		switch msg.Type {
		case "render":
			s.inspectorRender(ctx, in, msg)
		case "cancel":
			in.canceller.Cancel()
		default:
			in.send(Message{Type: "error", Content: "unknown message type " + msg.Type})
		}
	}
}

// inspectorRender starts a render and replies with the frame once it is committed.
// Superseded and out-of-range requests produce no reply.
func (s *Server) inspectorRender(ctx context.Context, in *inspector, msg Message) {
	file, ok := s.svc.Library.File(msg.DocID)
	if !ok {
		in.send(Message{Type: "error", DocID: msg.DocID, Content: errUnknownDocument.Error()})
		return
	}

	outcome := in.canceller.Request(ctx, file, msg.Page, msg.Scale, in.surface)
	go func() {
		o := <-outcome
		if o.Err != nil {
			in.send(Message{Type: "error", DocID: msg.DocID, Page: msg.Page, Content: o.Err.Error()})
			return
		}
		if !o.Drawn {
			return
		}

		frame := in.surface.Snapshot()
		encoded, err := imageutil.EncodePNG(frame.Image)
		if err != nil {
			in.send(Message{Type: "error", DocID: msg.DocID, Page: frame.Page, Content: err.Error()})
			return
		}
		in.send(Message{
			Type:  "frame",
			DocID: msg.DocID,
			Page:  frame.Page,
			Scale: frame.Scale,
			Data: FrameData{
				Image:   encoded,
				Width:   frame.Image.Bounds().Dx(),
				Height:  frame.Image.Bounds().Dy(),
				Version: frame.Version,
			},
		})
	}()
}

func (in *inspector) send(msg Message) {
	in.writeMu.Lock()
	defer in.writeMu.Unlock()
	if err := in.conn.WriteJSON(msg); err != nil {
		in.logger.Debug("inspector write failed", "error", err)
	}
}
