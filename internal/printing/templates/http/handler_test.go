package templatehttp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/rxdesk/rxdesk/internal/auth"
	"github.com/rxdesk/rxdesk/internal/printing/templates"
	"github.com/rxdesk/rxdesk/internal/shared"
)

type stubService struct {
	branch  string
	filter  templates.ListFilter
	deleted string
}

func (s *stubService) List(_ context.Context, branchID string, filter templates.ListFilter) ([]templates.Template, error) {
	s.branch, s.filter = branchID, filter
	return []templates.Template{{ID: "t1", Name: "Receipt"}}, nil
}

func (s *stubService) Get(_ context.Context, _ string, id string) (templates.Template, error) {
	if id == "missing" {
		return templates.Template{}, templates.ErrTemplateNotFound
	}
	return templates.Template{ID: id}, nil
}

func (s *stubService) Delete(_ context.Context, _ string, id string) error {
	s.deleted = id
	return nil
}

func (s *stubService) SetDefault(_ context.Context, _ string, id string) (templates.Template, error) {
	return templates.Template{ID: id, IsDefault: true}, nil
}

func newRouter(svc TemplateService, perms ...string) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			ctx := shared.ContextWithScope(req.Context(), shared.Scope{BranchID: "b1", Permissions: perms})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	})
	NewHandler(nil, svc, auth.Middleware{}).MountRoutes(r)
	return r
}

func TestListScopesToBranch(t *testing.T) {
	svc := &stubService{}
	rr := httptest.NewRecorder()
	newRouter(svc, shared.PermPrintTemplates).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/templates/?doc_type=sale&paper_size=58", nil))

	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, "b1", svc.branch)
	require.Equal(t, "58", string(svc.filter.PaperSize))

	var body struct {
		Templates []templates.Template `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Len(t, body.Templates, 1)
}

func TestGetMissingReturns404(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(&stubService{}, shared.PermPrintDesign).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/templates/missing", nil))
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestDeleteAndDefault(t *testing.T) {
	svc := &stubService{}
	h := newRouter(svc, shared.PermPrintTemplates)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodDelete, "/templates/abc", nil))
	require.Equal(t, http.StatusNoContent, rr.Code)
	require.Equal(t, "abc", svc.deleted)

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/templates/abc/default", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"is_default":true`)
}

func TestRequiresPermission(t *testing.T) {
	rr := httptest.NewRecorder()
	newRouter(&stubService{}, shared.PermPrintReceipt).ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/templates/", nil))
	require.Equal(t, http.StatusForbidden, rr.Code)
}
