package designerhttp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/rxdesk/rxdesk/internal/auth"
	"github.com/rxdesk/rxdesk/internal/printing/designer"
	"github.com/rxdesk/rxdesk/internal/printing/render"
	"github.com/rxdesk/rxdesk/internal/printing/templates"
	"github.com/rxdesk/rxdesk/internal/shared"
)

type memTemplates struct{ saved []templates.SaveInput }

func (m *memTemplates) Get(context.Context, string, string) (templates.Template, error) {
	return templates.Template{}, templates.ErrTemplateNotFound
}

func (m *memTemplates) Save(_ context.Context, in templates.SaveInput) (templates.Template, error) {
	m.saved = append(m.saved, in)
	return templates.Template{ID: "tpl-1", BranchID: in.BranchID, Name: in.Name}, nil
}

type designerResponse struct {
	ID         string `json:"id"`
	SelectedID string `json:"selected_id"`
	Elements   []struct {
		ID   string  `json:"id"`
		Text string  `json:"text"`
		X    float64 `json:"x"`
		Y    float64 `json:"y"`
	} `json:"elements"`
	Canvas struct {
		W float64 `json:"w"`
		H float64 `json:"h"`
	} `json:"canvas"`
	Margin float64 `json:"margin"`
}

func newRouter(t *testing.T, branch string, perms ...string) (http.Handler, *memTemplates) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	tpls := &memTemplates{}
	svc := designer.NewService(designer.NewSessionStore(client, time.Hour), tpls, render.NewRenderer(render.Options{}), nil)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithScope(req.Context(), shared.Scope{BranchID: branch, Permissions: perms})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(nil, svc, auth.Middleware{}).MountRoutes(r)
	return r, tpls
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(method, path, reader))
	return rr
}

func decodeSession(t *testing.T, rr *httptest.ResponseRecorder) designerResponse {
	t.Helper()
	var out designerResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &out))
	return out
}

func TestDesignerEditingFlow(t *testing.T) {
	h, tpls := newRouter(t, "b1", shared.PermPrintDesign)

	rr := do(t, h, http.MethodPost, "/designer/sessions", `{"paper_size":"58"}`)
	require.Equal(t, http.StatusCreated, rr.Code)
	sess := decodeSession(t, rr)
	require.Len(t, sess.Elements, 1)
	require.Equal(t, 280.0, sess.Canvas.W)
	require.Equal(t, 8.0, sess.Margin)
	base := "/designer/sessions/" + sess.ID

	rr = do(t, h, http.MethodPost, base+"/tokens", `{"token":"{{branch_name}}"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	sess = decodeSession(t, rr)
	require.Len(t, sess.Elements, 2)
	require.Equal(t, "{{branch_name}}", sess.Elements[0].Text)
	require.Equal(t, sess.Elements[0].ID, sess.SelectedID)
	tokenID := sess.Elements[0].ID

	rr = do(t, h, http.MethodPost, base+"/gesture/drag", `{"element_id":"`+tokenID+`","pointer":{"x":100,"y":100}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, h, http.MethodPost, base+"/gesture/move", `{"pointer":{"x":93,"y":112}}`)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(t, h, http.MethodPost, base+"/gesture/end", "")
	require.Equal(t, http.StatusOK, rr.Code)
	sess = decodeSession(t, rr)
	require.Equal(t, 15.0, sess.Elements[0].X)
	require.Equal(t, 20.0, sess.Elements[0].Y)

	rr = do(t, h, http.MethodPatch, base+"/selected", `{"text":"Hello"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "Hello", decodeSession(t, rr).Elements[0].Text)

	rr = do(t, h, http.MethodGet, base+"/preview", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Content-Type"), "text/html")
	require.Contains(t, rr.Body.String(), "Hello")

	rr = do(t, h, http.MethodGet, base+"/export", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var exported struct {
		Text      string `json:"text"`
		Clipboard string `json:"clipboard"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &exported))
	require.Equal(t, "best-effort", exported.Clipboard)
	require.Contains(t, exported.Text, "\"Hello\"")

	rr = do(t, h, http.MethodPost, base+"/save", `{"name":"Counter"}`)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, tpls.saved, 1)
	require.Equal(t, "Counter", tpls.saved[0].Name)
	require.Equal(t, "b1", tpls.saved[0].BranchID)

	rr = do(t, h, http.MethodDelete, base+"/selected", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, decodeSession(t, rr).Elements, 1)
}

func TestDesignerRejectsBadInput(t *testing.T) {
	h, _ := newRouter(t, "b1", shared.PermPrintDesign)
	sess := decodeSession(t, do(t, h, http.MethodPost, "/designer/sessions", ""))
	base := "/designer/sessions/" + sess.ID

	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, base+"/tokens", `{"token":"{{nope}}"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, base+"/import", `{"text":"not json"}`).Code)
	require.Equal(t, http.StatusBadRequest, do(t, h, http.MethodPost, base+"/select", `{`).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, base+"/gesture/spin", `{}`).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodPost, base+"/load", `{"template_id":"missing"}`).Code)
	require.Equal(t, http.StatusNotFound, do(t, h, http.MethodGet, "/designer/sessions/unknown", "").Code)
}

func TestDesignerRequiresPermission(t *testing.T) {
	h, _ := newRouter(t, "b1", shared.PermPrintReceipt)
	require.Equal(t, http.StatusForbidden, do(t, h, http.MethodPost, "/designer/sessions", "").Code)
}

func TestDesignerListsTokens(t *testing.T) {
	h, _ := newRouter(t, "b1", shared.PermPrintDesign)
	rr := do(t, h, http.MethodGet, "/designer/tokens", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "{{grand_total}}")
}
