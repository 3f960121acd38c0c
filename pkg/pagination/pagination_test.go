package pagination

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func newContext(target string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestFromContext(t *testing.T) {
	tests := []struct {
		name    string
		target  string
		want    Params
		wantErr bool
	}{
		{"absent", "/encounters", Params{}, false},
		{"limit and offset", "/encounters?limit=10&offset=5", Params{Limit: 10, Offset: 5}, false},
		{"limit capped", "/encounters?limit=10000", Params{Limit: MaxLimit}, false},
		{"negative limit", "/encounters?limit=-1", Params{}, true},
		{"bad offset", "/encounters?offset=abc", Params{}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newContext(tt.target)
			got, err := FromContext(c)
			if tt.wantErr {
				var he *echo.HTTPError
				if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
					t.Fatalf("expected 400, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestSlice(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	tests := []struct {
		name string
		p    Params
		want []int
	}{
		{"whole", Params{}, []int{1, 2, 3, 4, 5}},
		{"first page", Params{Limit: 2}, []int{1, 2}},
		{"middle page", Params{Limit: 2, Offset: 2}, []int{3, 4}},
		{"last partial", Params{Limit: 2, Offset: 4}, []int{5}},
		{"offset only", Params{Offset: 3}, []int{4, 5}},
		{"past end", Params{Limit: 2, Offset: 9}, []int{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slice(items, tt.p)
			if got == nil {
				t.Fatal("expected non-nil slice")
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("got %v, want %v", got, tt.want)
				}
			}
		})
	}
}

func TestLinkHeader(t *testing.T) {
	p := Params{Limit: 2, Offset: 2}
	want := `</encounters?offset=4&limit=2>; rel="next", </encounters?offset=0&limit=2>; rel="prev"`
	if got := p.LinkHeader("/encounters", 10); got != want {
		t.Errorf("got %q\nwant %q", got, want)
	}

	if got := (Params{}).LinkHeader("/encounters", 10); got != "" {
		t.Errorf("expected no links without paging, got %q", got)
	}
	if got := (Params{Limit: 5}).LinkHeader("/encounters", 5); got != "" {
		t.Errorf("expected no links for a single full page, got %q", got)
	}
}

func TestSetHeaders(t *testing.T) {
	c, rec := newContext("/encounters?limit=1")
	SetHeaders(c, Params{Limit: 1}, 3)

	if got := rec.Header().Get("X-Total-Count"); got != "3" {
		t.Errorf("expected X-Total-Count 3, got %q", got)
	}
	if got := rec.Header().Get("Link"); got != `</encounters?offset=1&limit=1>; rel="next"` {
		t.Errorf("unexpected Link header %q", got)
	}
}
