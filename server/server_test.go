package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xhad/studio/internal/models"
	"github.com/xhad/studio/pkg/auth"
	"github.com/xhad/studio/pkg/backup"
	"github.com/xhad/studio/pkg/llm"
	"github.com/xhad/studio/pkg/store"
	"github.com/xhad/studio/pkg/studio"
	"golang.org/x/oauth2"
)

type fakeModel struct {
	mu       sync.Mutex
	text     string
	image    *llm.InlineResult
	imageErr error
}

func (m *fakeModel) GenerateText(context.Context, llm.TextRequest) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.text, nil
}

func (m *fakeModel) GenerateImage(context.Context, llm.ImageRequest) (*llm.InlineResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.image, m.imageErr
}

func (m *fakeModel) StartVideo(context.Context, llm.VideoRequest) (*llm.VideoOperation, error) {
	return &llm.VideoOperation{Name: "op", Done: true, URI: "https://videos.example/v?alt=media"}, nil
}

func (m *fakeModel) PollVideo(_ context.Context, op *llm.VideoOperation) (*llm.VideoOperation, error) {
	return op, nil
}

// memDrive is an in-memory backup file store.
type memDrive struct {
	mu    sync.Mutex
	files map[string][]byte
}

func (d *memDrive) Find(_ context.Context, name string) (string, bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.files[name]
	return name, ok, nil
}

func (d *memDrive) Create(_ context.Context, name string, data []byte) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.files[name] = data
	return nil
}

func (d *memDrive) Update(_ context.Context, id string, data []byte) error {
	return d.Create(context.Background(), id, data)
}

func (d *memDrive) Download(_ context.Context, id string) ([]byte, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.files[id], nil
}

type testEnv struct {
	srv      *Server
	handler  http.Handler
	model    *fakeModel
	state    *store.StateStore
	sessions *auth.Sessions
	drive    *memDrive
	userErr  error
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		model:    &fakeModel{image: &llm.InlineResult{MIMEType: "image/png", Data: "T1VU"}},
		state:    store.NewStateStore(store.NewMemoryBackend(), ""),
		sessions: auth.NewSessions("test-secret"),
		drive:    &memDrive{files: map[string][]byte{}},
	}
	require.NoError(t, env.state.Load(context.Background()))

	st := studio.NewWithConfig(studio.StudioConfig{PollInterval: time.Millisecond}, env.model, env.state, nil)
	srv, err := NewServer(Config{AppURL: "http://localhost:3000"}, Services{
		Studio:   st,
		State:    env.state,
		OAuth:    auth.NewOAuth(auth.OAuthConfig{ClientID: "client", RedirectURL: "http://localhost:3000/auth/google/callback"}),
		Sessions: env.sessions,
		DriveFor: func(context.Context, *oauth2.Token) (backup.FileStore, error) {
			return env.drive, nil
		},
		UserInfo: func(_ context.Context, tok *oauth2.Token) (*auth.UserInfo, error) {
			if env.userErr != nil {
				return nil, env.userErr
			}
			return &auth.UserInfo{Email: "ada@example.com", Name: "Ada"}, nil
		},
	})
	require.NoError(t, err)

	env.srv = srv
	env.handler = srv.Handler()
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

// login returns a valid session cookie.
func (e *testEnv) login(t *testing.T) *http.Cookie {
	t.Helper()
	rec := httptest.NewRecorder()
	require.NoError(t, e.sessions.Save(rec, &oauth2.Token{AccessToken: "at"}))
	return rec.Result().Cookies()[0]
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

const input = "data:image/jpeg;base64,SU4="

func TestHealth(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(requestIDHeader))
}

func TestAngleRecordsHistory(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/angle", map[string]any{"image": input, "yaw": 90, "pitch": 0})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img := decode[models.GeneratedImage](t, rec)
	assert.Equal(t, "data:image/png;base64,T1VU", img.ResultURL)

	rec = env.do(t, http.MethodGet, "/api/history", nil)
	history := decode[[]models.GeneratedImage](t, rec)
	require.Len(t, history, 1)
	assert.Equal(t, models.TypeAngle, history[0].Type)
	assert.Contains(t, history[0].Prompt, "Yaw 90")
	assert.Contains(t, history[0].Prompt, "Pitch 0")

	rec = env.do(t, http.MethodDelete, "/api/history", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.state.Snapshot().GenImg)
}

func TestGenerationFailureIsGeneric(t *testing.T) {
	env := newTestEnv(t)
	env.model.imageErr = errors.New("upstream quota detail")

	rec := env.do(t, http.MethodPost, "/api/style", map[string]any{"image": input, "options": map[string]string{"stylePreset": "Dark Luxury"}})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "upstream quota detail")
	assert.Empty(t, env.state.Snapshot().GenImg)
}

func TestInvalidInput(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name string
		path string
		body any
	}{
		{"missing image", "/api/angle", map[string]any{"yaw": 10}},
		{"empty scene", "/api/scene", map[string]any{"images": []string{}}},
		{"edit without instruction", "/api/edit", map[string]any{"image": input}},
		{"empty vectorize", "/api/vectorize", map[string]any{}},
		{"no body", "/api/upscale", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestInputsAndTransfer(t *testing.T) {
	env := newTestEnv(t)

	remote := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		w.Write([]byte("png-bytes"))
	}))
	defer remote.Close()

	rec := env.do(t, http.MethodPost, "/api/inputs/generator", map[string]any{"images": []string{"a", "b"}})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodPost, "/api/transfer", map[string]any{"image": "c", "tab": "generator"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"c", "a", "b"}, decode[[]string](t, rec))

	rec = env.do(t, http.MethodDelete, "/api/inputs/generator/1", nil)
	assert.Equal(t, []string{"c", "b"}, decode[[]string](t, rec))

	rec = env.do(t, http.MethodPost, "/api/transfer", map[string]any{"image": remote.URL + "/result.png", "tab": "editor"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	edit := env.state.Snapshot().Edit
	require.Len(t, edit, 1)
	assert.True(t, strings.HasPrefix(edit[0], "data:image/png;base64,"))

	rec = env.do(t, http.MethodDelete, "/api/inputs/history", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodDelete, "/api/inputs/generator", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, env.state.Snapshot().Gen)
}

func TestPutState(t *testing.T) {
	env := newTestEnv(t)

	req := httptest.NewRequest(http.MethodPut, "/api/state", strings.NewReader(`{"ang":["x"]}`))
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/state", nil)
	state := decode[store.State](t, rec)
	assert.Equal(t, []string{"x"}, state.Ang)
	assert.NotNil(t, state.Gen)
}

func TestAuthURL(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/google/url", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode[map[string]string](t, rec)
	assert.Contains(t, body["url"], "accounts.google.com")
	assert.Contains(t, body["url"], "access_type=offline")

	var names []string
	for _, c := range rec.Result().Cookies() {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, auth.StateCookie)
}

func TestCallbackRejectsForgedState(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/auth/google/callback?code=x&state=forged", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Authentication failed")
}

func TestMe(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/auth/me", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Not authenticated", decode[errorResponse](t, rec).Error)

	cookie := env.login(t)
	rec = env.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ada@example.com", decode[auth.UserInfo](t, rec).Email)

	env.userErr = errors.New("token revoked")
	rec = env.do(t, http.MethodGet, "/api/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Session expired", decode[errorResponse](t, rec).Error)
}

func TestLogout(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodPost, "/api/auth/logout", nil, env.login(t))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]bool{"success": true}, decode[map[string]bool](t, rec))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Less(t, cookies[0].MaxAge, 0)
}

func TestDriveBackupRequiresSession(t *testing.T) {
	env := newTestEnv(t)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodPost, "/api/drive/backup", map[string]any{}).Code)
	assert.Equal(t, http.StatusUnauthorized, env.do(t, http.MethodGet, "/api/drive/backup", nil).Code)
}

func TestDriveBackupRoundTrip(t *testing.T) {
	env := newTestEnv(t)
	cookie := env.login(t)

	rec := env.do(t, http.MethodGet, "/api/drive/backup", nil, cookie)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "No backup found", decode[errorResponse](t, rec).Error)

	rec = env.do(t, http.MethodPost, "/api/drive/backup", map[string]any{"data": map[string]any{"gen": []string{"saved"}}}, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"created":true}`, rec.Body.String())

	// Without data the server state is backed up.
	require.NoError(t, env.state.AddInputs(context.Background(), models.TabUpscale, "server"))
	rec = env.do(t, http.MethodPost, "/api/drive/backup", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.JSONEq(t, `{"success":true,"updated":true}`, rec.Body.String())
	require.NoError(t, env.state.ClearInputs(context.Background(), models.TabUpscale))

	rec = env.do(t, http.MethodGet, "/api/drive/backup?restore=true", nil, cookie)
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data store.State `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, []string{"server"}, body.Data.Up)
	assert.Equal(t, []string{"server"}, env.state.Snapshot().Up)
}

// buildPDF writes a minimal PDF with one text line per 200x100 page.
func buildPDF(pages ...string) []byte {
	objects := []string{"<< /Type /Catalog /Pages 2 0 R >>"}

	kids := make([]string, len(pages))
	for i := range pages {
		kids[i] = fmt.Sprintf("%d 0 R", 4+i*2)
	}
	objects = append(objects,
		fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d /MediaBox [0 0 200 100] >>", strings.Join(kids, " "), len(pages)),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica >>")

	for i, text := range pages {
		content := fmt.Sprintf("BT /F1 12 Tf 10 50 Td (%s) Tj ET", text)
		objects = append(objects,
			fmt.Sprintf("<< /Type /Page /Parent 2 0 R /Resources << /Font << /F1 3 0 R >> >> /Contents %d 0 R >>", 5+i*2),
			fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(content), content))
	}

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n0000000000 65535 f \n", len(objects)+1)
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func (e *testEnv) upload(t *testing.T, name string, data []byte) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("files", name)
	require.NoError(t, err)
	_, err = fw.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/pdf", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func TestPDFLifecycle(t *testing.T) {
	env := newTestEnv(t)
	env.model.text = "It says hello [[Page 1]]."

	rec := env.upload(t, "notes.txt", []byte("plain"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.upload(t, "brochure.pdf", buildPDF("Hello PDF"))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	docs := decode[[]models.Document](t, rec)
	require.Len(t, docs, 1)
	assert.Equal(t, 1, docs[0].PageCount)
	assert.Contains(t, docs[0].Content, "Hello PDF")

	rec = env.do(t, http.MethodGet, "/api/pdf", nil)
	assert.Len(t, decode[[]models.Document](t, rec), 1)

	rec = env.do(t, http.MethodPost, "/api/pdf/chat", map[string]any{"query": "What does it say?"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "It says hello [[Page 1]].", decode[map[string]string](t, rec)["answer"])

	rec = env.do(t, http.MethodPost, "/api/pdf/"+docs[0].ID+"/upscale-region", map[string]any{"page": 1, "scale": 2, "x": 0, "y": 0, "w": 4, "h": 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	for _, scale := range []float64{9, 1e8} {
		rec = env.do(t, http.MethodPost, "/api/pdf/"+docs[0].ID+"/upscale-region", map[string]any{"page": 1, "scale": scale, "x": 0, "y": 0, "w": 200, "h": 100})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}

	rec = env.do(t, http.MethodPost, "/api/pdf/"+docs[0].ID+"/upscale-region", map[string]any{"page": 1, "scale": 2, "x": 10, "y": 10, "w": 200, "h": 100})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	img := decode[models.GeneratedImage](t, rec)
	assert.Equal(t, models.TypePdfAnalysis, img.Type)
	assert.Equal(t, "PDF Extract - Page 1", img.Prompt)

	assert.Equal(t, http.StatusOK, env.do(t, http.MethodDelete, "/api/pdf/"+docs[0].ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodDelete, "/api/pdf/"+docs[0].ID, nil).Code)
}

func TestInspector(t *testing.T) {
	env := newTestEnv(t)
	doc, file, err := env.srv.svc.Docs.Extract("brochure.pdf", buildPDF("One", "Two"))
	require.NoError(t, err)
	env.srv.svc.Library.Add(doc, file)

	ts := httptest.NewServer(env.handler)
	defer ts.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(ts.URL, "http")+"/ws/inspector", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))

	require.NoError(t, conn.WriteJSON(Message{Type: "render", DocID: "missing", Page: 1, Scale: 1}))
	var msg Message
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)

	require.NoError(t, conn.WriteJSON(Message{Type: "render", DocID: doc.ID, Page: 1, Scale: 1e8}))
	msg = Message{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "error", msg.Type)
	assert.Contains(t, msg.Content, "viewport too large")

	// Out-of-range pages are ignored; only the valid request answers.
	require.NoError(t, conn.WriteJSON(Message{Type: "render", DocID: doc.ID, Page: 7, Scale: 1}))
	require.NoError(t, conn.WriteJSON(Message{Type: "render", DocID: doc.ID, Page: 2, Scale: 1}))

	msg = Message{}
	require.NoError(t, conn.ReadJSON(&msg))
	assert.Equal(t, "frame", msg.Type)
	assert.Equal(t, 2, msg.Page)
	assert.Equal(t, doc.ID, msg.DocID)

	data, ok := msg.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, float64(200), data["width"])
	assert.Equal(t, float64(100), data["height"])
	assert.True(t, strings.HasPrefix(data["image"].(string), "data:image/png;base64,"))
}

func TestInspectorOrigin(t *testing.T) {
	env := newTestEnv(t)
	ts := httptest.NewServer(env.handler)
	defer ts.Close()
	wsURL := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws/inspector"

	tests := []struct {
		name   string
		origin string
		allow  bool
	}{
		{"no origin", "", true},
		{"same host", ts.URL, true},
		{"app url", "http://localhost:3000", true},
		{"other site", "https://evil.example", false},
		{"app host other scheme", "https://localhost:3000", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			header := http.Header{}
			if tt.origin != "" {
				header.Set("Origin", tt.origin)
			}
			conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
			if tt.allow {
				require.NoError(t, err)
				conn.Close()
				return
			}
			require.Error(t, err)
			require.NotNil(t, resp)
			assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		})
	}
}
