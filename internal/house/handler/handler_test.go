package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/fct/fct/backend/go-services/internal/apperrors"
	"github.com/fct/fct/backend/go-services/internal/house"
	"github.com/fct/fct/backend/go-services/internal/objectid"
	"github.com/fct/fct/backend/go-services/internal/store"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T, opts Options) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := gin.New()
	svc := house.NewService(store.NewMemoryStore(house.Collection, house.Indexes...))
	RegisterHouseRoutes(g.Group("/api/v2"), svc, opts)
	return g
}

func do(g *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	g.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHouseHandler_CRUD(t *testing.T) {
	g := newRouter(t, Options{})

	// create
	w := do(g, http.MethodPost, "/api/v2/house/create", `{"name":"A","width":1,"height":2,"volume":2}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	created := decode[map[string]any](t, w)
	id, _ := created["id"].(string)
	require.Len(t, id, 24)
	require.Equal(t, created["created_date"], created["updated_date"])

	// get
	w = do(g, http.MethodGet, "/api/v2/house/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "A", decode[map[string]any](t, w)["name"])

	// patch
	w = do(g, http.MethodPatch, "/api/v2/house/"+id, `{"name":"B"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	patched := decode[map[string]any](t, w)
	require.Equal(t, "B", patched["name"])
	require.Equal(t, 1.0, patched["width"])

	// patch attr
	w = do(g, http.MethodPatch, "/api/v2/house/"+id+"/attr/volume", `{"value":9}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.Equal(t, 9.0, decode[map[string]any](t, w)["volume"])

	// put
	w = do(g, http.MethodPut, "/api/v2/house/"+id, `{"name":"C","width":3,"height":4,"volume":12}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	put := decode[map[string]any](t, w)
	require.Equal(t, "C", put["name"])
	require.Equal(t, created["created_date"], put["created_date"])

	// delete returns the house without id or timestamps
	w = do(g, http.MethodDelete, "/api/v2/house/"+id, "")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, map[string]any{"name": "C", "width": 3.0, "height": 4.0, "volume": 12.0}, decode[map[string]any](t, w))

	w = do(g, http.MethodGet, "/api/v2/house/"+id, "")
	require.Equal(t, http.StatusNotFound, w.Code)
	require.Equal(t, fmt.Sprintf("ObjectId('%s') not found", id), decode[map[string]string](t, w)["detail"])
}

func TestHouseHandler_Errors(t *testing.T) {
	g := newRouter(t, Options{})
	body := `{"name":"A","width":1,"height":2,"volume":2}`
	require.Equal(t, http.StatusOK, do(g, http.MethodPost, "/api/v2/house/create", body).Code)

	w := do(g, http.MethodPost, "/api/v2/house/create", body)
	require.Equal(t, http.StatusBadRequest, w.Code)
	require.Equal(t, `name: "A" already exists`, decode[map[string]string](t, w)["detail"])

	cases := []struct {
		name, method, path, body string
		status                   int
	}{
		{"incomplete create", http.MethodPost, "/api/v2/house/create", `{"name":"Z"}`, http.StatusUnprocessableEntity},
		{"negative width", http.MethodPost, "/api/v2/house/create", `{"name":"Z","width":-1,"height":2,"volume":2}`, http.StatusUnprocessableEntity},
		{"malformed json", http.MethodPost, "/api/v2/house/create", `{"name":`, http.StatusUnprocessableEntity},
		{"bad id", http.MethodGet, "/api/v2/house/xyz", "", http.StatusUnprocessableEntity},
		{"unknown id", http.MethodGet, "/api/v2/house/" + objectid.New().Hex(), "", http.StatusNotFound},
		{"unknown attr", http.MethodPatch, "/api/v2/house/" + objectid.New().Hex() + "/attr/colour", `{"value":"red"}`, http.StatusUnprocessableEntity},
		{"patch unknown id", http.MethodPatch, "/api/v2/house/" + objectid.New().Hex(), `{"name":"Q"}`, http.StatusNotFound},
		{"bad page", http.MethodGet, "/api/v2/house/?page=0", "", http.StatusUnprocessableEntity},
		{"oversized page", http.MethodGet, "/api/v2/house/?size=1000", "", http.StatusUnprocessableEntity},
		{"unknown filter", http.MethodGet, "/api/v2/house/?colour=red", "", http.StatusUnprocessableEntity},
		{"bad number filter", http.MethodGet, "/api/v2/house/?width=wide", "", http.StatusUnprocessableEntity},
		{"empty result", http.MethodGet, "/api/v2/house/?name=nobody", "", http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(g, tc.method, tc.path, tc.body)
			require.Equal(t, tc.status, w.Code, w.Body.String())
			require.NotEmpty(t, decode[map[string]string](t, w)["detail"])
		})
	}
}

func TestHouseHandler_ListPagination(t *testing.T) {
	g := newRouter(t, Options{Paging: Paging{Page: 1, Size: 2, MaxSize: 10}})
	for i, name := range []string{"alpha", "beta", "gamma", "delta", "epsilon"} {
		body := fmt.Sprintf(`{"name":%q,"width":%d,"height":1,"volume":1}`, name, i%2)
		require.Equal(t, http.StatusOK, do(g, http.MethodPost, "/api/v2/house/create", body).Code)
	}

	w := do(g, http.MethodGet, "/api/v2/house/", "")
	require.Equal(t, http.StatusOK, w.Code)
	p := decode[Page](t, w)
	require.Equal(t, 5, p.Total)
	require.Equal(t, 3, p.Pages)
	require.Equal(t, 2, p.Size)
	require.Len(t, p.Items, 2)
	require.Equal(t, "alpha", p.Items[0].Name)

	p = decode[Page](t, do(g, http.MethodGet, "/api/v2/house/?page=3", ""))
	require.Len(t, p.Items, 1)
	require.Equal(t, "epsilon", p.Items[0].Name)

	p = decode[Page](t, do(g, http.MethodGet, "/api/v2/house/?page=9", ""))
	require.Empty(t, p.Items)
	require.Equal(t, 5, p.Total)

	p = decode[Page](t, do(g, http.MethodGet, "/api/v2/house/?width=1&size=10", ""))
	require.Equal(t, 2, p.Total)

	p = decode[Page](t, do(g, http.MethodGet, "/api/v2/house/?name_contains=ta", ""))
	require.Equal(t, 2, p.Total)
}

func TestHouseHandler_GuardProtectsWrites(t *testing.T) {
	deny := func(c *gin.Context) { WriteError(c, apperrors.Auth("not authenticated")) }
	g := newRouter(t, Options{Guard: []gin.HandlerFunc{deny}})

	w := do(g, http.MethodPost, "/api/v2/house/create", `{"name":"A","width":1,"height":2,"volume":2}`)
	require.Equal(t, http.StatusForbidden, w.Code)
	require.Equal(t, "not authenticated", decode[map[string]string](t, w)["detail"])

	w = do(g, http.MethodGet, "/api/v2/house/", "")
	require.Equal(t, http.StatusNotFound, w.Code, "reads stay open")
}

func TestStatus(t *testing.T) {
	require.Equal(t, http.StatusUnprocessableEntity, Status(apperrors.Resolution("x", nil)))
	require.Equal(t, http.StatusInternalServerError, Status(fmt.Errorf("boom")))
}
