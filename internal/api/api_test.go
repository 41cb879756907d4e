package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"crmgate/internal/dataprovider"
	"crmgate/internal/postgrest"
	"crmgate/internal/reference"
)

type planned struct {
	Method  string              `json:"method"`
	Path    string              `json:"path"`
	Query   map[string][]string `json:"query"`
	URL     string              `json:"url"`
	Headers map[string][]string `json:"headers"`
	Body    json.RawMessage     `json:"body"`
}

type errorBody struct {
	Error  string       `json:"error"`
	Errors []FieldError `json:"errors"`
}

func testServer() *Server {
	gin.SetMode(gin.TestMode)
	reg := NewRegistry(postgrest.PrimaryKeyMap{
		"contact_tags":  {"contact_id", "tag_id"},
		"rpc/tag_usage": {"contact_id", "tag_id"},
		"Deals":         {"deal_id"},
	})
	return NewServer(reg, "http://rest:3000", dataprovider.WithSchema("crm"))
}

func do(t *testing.T, s *Server, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader([]byte(body)))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	NewRouter(s).ServeHTTP(w, req)
	return w
}

func decodePlan(t *testing.T, w *httptest.ResponseRecorder) planned {
	t.Helper()
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var p planned
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder, status int) errorBody {
	t.Helper()
	require.Equal(t, status, w.Code, w.Body.String())
	var e errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &e))
	return e
}

func TestListReactAdminParams(t *testing.T) {
	s := testServer()
	w := do(t, s, http.MethodGet,
		`/api/contacts?filter={"status":["hot","warm"],"@or":{"age@lt":18,"age@gt":65}}&sort=["last_seen","DESC"]&range=[50,74]&columns=id,first_name&nulls=last`, "")
	p := decodePlan(t, w)

	assert.Equal(t, http.MethodGet, p.Method)
	assert.Equal(t, "contacts", p.Path)
	assert.Equal(t, map[string][]string{
		"status": {"in.(hot,warm)"},
		"or":     {"(age.lt.18,age.gt.65)"},
		"offset": {"50"},
		"limit":  {"25"},
		"order":  {"last_seen.desc.nullslast"},
		"select": {"id,first_name"},
	}, p.Query)
	assert.Equal(t, []string{"count=exact"}, p.Headers["Prefer"])
	assert.Equal(t, []string{"crm"}, p.Headers["Accept-Profile"])
	assert.Contains(t, p.URL, "http://rest:3000/contacts?")
	assert.NotEmpty(t, w.Header().Get(HeaderRequestID))
}

func TestListFlatParams(t *testing.T) {
	s := testServer()
	w := do(t, s, http.MethodGet, "/api/deals?status__in=open,won&amount__gte=1000&name@ilike=acme&_sort=-amount&_limit=20&_offset=40", "")
	p := decodePlan(t, w)
	assert.Equal(t, map[string][]string{
		"status": {"in.(open,won)"},
		"amount": {"gte.1000"},
		"name":   {"ilike.*acme*"},
		"offset": {"40"},
		"limit":  {"20"},
		"order":  {"amount.desc"},
	}, p.Query)
}

func TestListSortByCompoundID(t *testing.T) {
	w := do(t, testServer(), http.MethodGet, "/api/contact_tags?_sort=id&page=2&perPage=10", "")
	p := decodePlan(t, w)
	assert.Equal(t, []string{"contact_id.asc,tag_id.asc"}, p.Query["order"])
	assert.Equal(t, []string{"10"}, p.Query["offset"])
}

func TestListBadParams(t *testing.T) {
	s := testServer()
	for _, target := range []string{
		`/api/contacts?filter={bad`,
		`/api/contacts?range=[10,5]`,
		`/api/contacts?_limit=10&_offset=15`,
		`/api/contacts?nulls=sideways`,
		`/api/contacts?sort=["only"]`,
		`/api/contacts?page=0&perPage=10`,
		`/api/contacts?filter={"company":{}}`,
	} {
		w := do(t, s, http.MethodGet, target, "")
		e := decodeError(t, w, http.StatusBadRequest)
		assert.NotEmpty(t, e.Errors, target)
	}
}

func TestGetOneAndMany(t *testing.T) {
	s := testServer()

	p := decodePlan(t, do(t, s, http.MethodGet, "/api/contact_tags/[12,3]", ""))
	assert.Equal(t, map[string][]string{"and": {"(contact_id.eq.12,tag_id.eq.3)"}}, p.Query)
	assert.Equal(t, []string{"application/vnd.pgrst.object+json"}, p.Headers["Accept"])

	p = decodePlan(t, do(t, s, http.MethodGet, "/api/contacts/_many?id=1&id=2&columns=id", ""))
	assert.Equal(t, []string{"in.(1,2)"}, p.Query["id"])
	assert.Equal(t, []string{"id"}, p.Query["select"])

	p = decodePlan(t, do(t, s, http.MethodGet, `/api/contact_tags/_many?ids=["[1,2]","[1,3]"]`, ""))
	assert.Equal(t, []string{"(and(contact_id.eq.1,tag_id.eq.2),and(contact_id.eq.1,tag_id.eq.3))"}, p.Query["or"])

	// составные id массивами, а не строками
	p = decodePlan(t, do(t, s, http.MethodGet, `/api/contact_tags/_many?ids=[[1,2],[1,3]]`, ""))
	assert.Equal(t, []string{"(and(contact_id.eq.1,tag_id.eq.2),and(contact_id.eq.1,tag_id.eq.3))"}, p.Query["or"])

	w := do(t, s, http.MethodGet, "/api/contacts/_many", "")
	e := decodeError(t, w, http.StatusBadRequest)
	assert.Equal(t, ErrRequired, e.Errors[0].Code)
}

func TestRPC(t *testing.T) {
	s := testServer()

	p := decodePlan(t, do(t, s, http.MethodGet, "/api/rpc/tag_usage/[1,2]", ""))
	assert.Equal(t, "rpc/tag_usage", p.Path)
	assert.Equal(t, map[string][]string{"contact_id": {"1"}, "tag_id": {"2"}}, p.Query)

	w := do(t, s, http.MethodGet, `/api/rpc/tag_usage/_many?id=[1,2]&id=[1,3]`, "")
	e := decodeError(t, w, http.StatusUnprocessableEntity)
	assert.Equal(t, ErrUnsupported, e.Errors[0].Code)
}

func TestInvalidCompoundID(t *testing.T) {
	w := do(t, testServer(), http.MethodGet, "/api/contact_tags/7", "")
	e := decodeError(t, w, http.StatusBadRequest)
	assert.Equal(t, ErrInvalidID, e.Errors[0].Code)
}

func TestReference(t *testing.T) {
	p := decodePlan(t, do(t, testServer(), http.MethodGet, "/api/deals/_reference/company_id/7?_sort=name&_limit=10", ""))
	assert.Equal(t, map[string][]string{
		"company_id": {"eq.7"},
		"order":      {"name.asc"},
		"offset":     {"0"},
		"limit":      {"10"},
	}, p.Query)
}

func TestWrites(t *testing.T) {
	s := testServer()

	p := decodePlan(t, do(t, s, http.MethodPost, "/api/contact_tags", `{"id":"[1,2]","contact_id":1,"tag_id":2,"note":"x"}`))
	assert.Equal(t, http.MethodPost, p.Method)
	assert.JSONEq(t, `{"contact_id":1,"tag_id":2,"note":"x"}`, string(p.Body))
	assert.Equal(t, []string{"crm"}, p.Headers["Content-Profile"])

	p = decodePlan(t, do(t, s, http.MethodPatch, "/api/contact_tags/[1,2]", `{"contact_id":1,"tag_id":2,"note":"y"}`))
	assert.Equal(t, []string{"(contact_id.eq.1,tag_id.eq.2)"}, p.Query["and"])
	assert.JSONEq(t, `{"note":"y"}`, string(p.Body))

	p = decodePlan(t, do(t, s, http.MethodPatch, "/api/contacts/_many?id=4&id=5", `{"status":"cold"}`))
	assert.Equal(t, []string{"in.(4,5)"}, p.Query["id"])

	p = decodePlan(t, do(t, s, http.MethodDelete, "/api/contacts/3", ""))
	assert.Equal(t, []string{"eq.3"}, p.Query["id"])
	assert.True(t, len(p.Body) == 0 || string(p.Body) == "null")

	p = decodePlan(t, do(t, s, http.MethodDelete, "/api/contacts/_many?ids=3,4", ""))
	assert.Equal(t, []string{"in.(3,4)"}, p.Query["id"])

	w := do(t, s, http.MethodPost, "/api/contacts", `[1,2]`)
	e := decodeError(t, w, http.StatusBadRequest)
	assert.Equal(t, ErrInvalidJSON, e.Errors[0].Code)
}

func TestEncodeDecodeID(t *testing.T) {
	s := testServer()

	w := do(t, s, http.MethodPost, "/api/contact_tags/_id/encode", `{"contact_id":1,"tag_id":"a<b","note":"x"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var enc struct {
		ID         string   `json:"id"`
		PrimaryKey []string `json:"primaryKey"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &enc))
	assert.Equal(t, `[1,"a<b"]`, enc.ID)
	assert.Equal(t, []string{"contact_id", "tag_id"}, enc.PrimaryKey)

	body, err := json.Marshal(map[string]string{"id": enc.ID})
	require.NoError(t, err)
	w = do(t, s, http.MethodPost, "/api/contact_tags/_id/decode", string(body))
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var dec struct {
		Values  []any          `json:"values"`
		Columns map[string]any `json:"columns"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &dec))
	assert.Equal(t, []any{float64(1), "a<b"}, dec.Values)
	assert.Equal(t, "a<b", dec.Columns["tag_id"])

	w = do(t, s, http.MethodPost, "/api/contact_tags/_id/decode", `{"id":"[1]"}`)
	decodeError(t, w, http.StatusBadRequest)
}

func TestMetaKeys(t *testing.T) {
	s := testServer()

	w := do(t, s, http.MethodGet, "/api/meta/keys", "")
	require.Equal(t, http.StatusOK, w.Code)
	var out struct {
		Resources []metaKeyItem `json:"resources"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	require.Len(t, out.Resources, 3)
	assert.Equal(t, "Deals", out.Resources[0].Resource)
	assert.True(t, out.Resources[1].Compound)

	w = do(t, s, http.MethodGet, "/api/meta/keys/crm.deals", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"resource":"Deals","primaryKey":["deal_id"],"compound":false,"configured":true}`, w.Body.String())

	w = do(t, s, http.MethodGet, "/api/meta/keys/unknown", "")
	assert.JSONEq(t, `{"resource":"unknown","primaryKey":["id"],"compound":false,"configured":false}`, w.Body.String())
}

func TestMetaKeysDuringReload(t *testing.T) {
	s := testServer()
	maps := []postgrest.PrimaryKeyMap{
		{"contacts": {"id"}},
		{"contact_tags": {"contact_id", "tag_id"}, "deals": {"deal_id"}},
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
				s.Registry.Swap(maps[i%2])
			}
		}
	}()
	defer func() {
		close(stop)
		<-done
	}()

	for i := 0; i < 200; i++ {
		w := do(t, s, http.MethodGet, "/api/meta/keys", "")
		require.Equal(t, http.StatusOK, w.Code)
		var out struct {
			Resources []metaKeyItem `json:"resources"`
		}
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
		for _, item := range out.Resources {
			assert.NotEmpty(t, item.PrimaryKey, item.Resource)
		}
	}
}

func TestAdminReload(t *testing.T) {
	s := testServer()

	w := do(t, s, http.MethodPost, "/api/admin/reload", "")
	assert.Equal(t, http.StatusNotImplemented, w.Code)

	s.Reload = func(context.Context) (postgrest.PrimaryKeyMap, []reference.KeyIssue, error) {
		return nil, []reference.KeyIssue{{Catalog: "crm", Resource: "x", Code: "primary_key_empty"}}, nil
	}
	w = do(t, s, http.MethodPost, "/api/admin/reload", "")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Len(t, s.Registry.Resources(), 3)

	s.Reload = func(context.Context) (postgrest.PrimaryKeyMap, []reference.KeyIssue, error) {
		return nil, nil, errors.New("boom")
	}
	w = do(t, s, http.MethodPost, "/api/admin/reload", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	s.Reload = func(context.Context) (postgrest.PrimaryKeyMap, []reference.KeyIssue, error) {
		return postgrest.PrimaryKeyMap{"contacts": {"uuid"}}, nil, nil
	}
	w = do(t, s, http.MethodPost, "/api/admin/reload", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []string{"contacts"}, s.Registry.Resources())

	// провайдер видит новую карту без пересборки
	p := decodePlan(t, do(t, s, http.MethodGet, "/api/contacts/abc", ""))
	assert.Equal(t, []string{"eq.abc"}, p.Query["uuid"])
}

func TestRequestIDPassthrough(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/meta/keys", nil)
	req.Header.Set(HeaderRequestID, "abc")
	w := httptest.NewRecorder()
	NewRouter(testServer()).ServeHTTP(w, req)
	assert.Equal(t, "abc", w.Header().Get(HeaderRequestID))
}

func TestRegistryNormalize(t *testing.T) {
	reg := NewRegistry(postgrest.PrimaryKeyMap{"Contacts": {"id"}, "contacts": {"uid"}, "deals": {"deal_id"}, "empty": {}})

	name, ok := reg.NormalizeResource("contacts")
	assert.True(t, ok)
	assert.Equal(t, "contacts", name)

	_, ok = reg.NormalizeResource("CONTACTS")
	assert.False(t, ok, "ambiguous fold")

	name, ok = reg.NormalizeResource("crm.DEALS")
	assert.True(t, ok)
	assert.Equal(t, "deals", name)

	_, ok = reg.NormalizeResource("empty")
	assert.False(t, ok)
	assert.Equal(t, postgrest.DefaultPrimaryKey, reg.PrimaryKey("rpc/x.y"))
}
