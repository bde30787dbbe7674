package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	gohttp "github.com/km-arc/go-dipend/framework/http"
)

// ── helpers ──────────────────────────────────────────────────────────────────

func newResponse(t *testing.T) (*gohttp.Response, *httptest.ResponseRecorder) {
	t.Helper()
	rr := httptest.NewRecorder()
	return gohttp.NewResponse(rr), rr
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&m); err != nil {
		t.Fatalf("decodeJSON: %v", err)
	}
	return m
}

// ── JSON ──────────────────────────────────────────────────────────────────────

func TestResponse_JSON(t *testing.T) {
	res, rr := newResponse(t)
	res.JSON(http.StatusOK, map[string]any{"key": "val"})

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d want 200", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("Content-Type: got %q want application/json", ct)
	}
	m := decodeJSON(t, rr)
	if m["key"] != "val" {
		t.Errorf("body key: got %v want val", m["key"])
	}
}

func TestResponse_Success(t *testing.T) {
	res, rr := newResponse(t)
	res.Success(map[string]any{"id": float64(1)})

	m := decodeJSON(t, rr)
	data, ok := m["data"].(map[string]any)
	if !ok {
		t.Fatalf("expected data envelope, got %T", m["data"])
	}
	if data["id"] != float64(1) {
		t.Errorf("data.id: got %v want 1", data["id"])
	}
}

func TestResponse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		send    func(*gohttp.Response)
		status  int
		message string
	}{
		{"Error", func(r *gohttp.Response) { r.Error(http.StatusConflict, "cycle") }, http.StatusConflict, "cycle"},
		{"NotFound default", func(r *gohttp.Response) { r.NotFound() }, http.StatusNotFound, "Not found."},
		{"NotFound custom", func(r *gohttp.Response) { r.NotFound("no node") }, http.StatusNotFound, "no node"},
		{"ServerError", func(r *gohttp.Response) { r.ServerError() }, http.StatusInternalServerError, "Server Error."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, rr := newResponse(t)
			tt.send(res)
			if rr.Code != tt.status {
				t.Errorf("status: got %d want %d", rr.Code, tt.status)
			}
			if m := decodeJSON(t, rr); m["message"] != tt.message {
				t.Errorf("message: got %v want %q", m["message"], tt.message)
			}
		})
	}
}

// ── Request ───────────────────────────────────────────────────────────────────

func TestRequest_Query(t *testing.T) {
	req := gohttp.NewRequest(httptest.NewRequest(http.MethodGet, "/?lifecycle=singleton,+context,&x=", nil))

	if got := req.Query("x", "fallback"); got != "fallback" {
		t.Errorf("Query fallback: got %q", got)
	}
	got := req.QueryList("lifecycle")
	if len(got) != 2 || got[0] != "singleton" || got[1] != "context" {
		t.Errorf("QueryList: got %v", got)
	}
	if req.QueryList("missing") != nil {
		t.Error("QueryList of a missing key should be nil")
	}
}

func TestRequest_RouteParam(t *testing.T) {
	r := chi.NewRouter()
	var got string
	r.Get("/nodes/{name}", func(w http.ResponseWriter, raw *http.Request) {
		req := gohttp.NewRequest(raw)
		got = req.RouteParam("name")
	})
	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nodes/repo", nil))

	if got != "repo" {
		t.Errorf("RouteParam: got %q want repo", got)
	}
}
