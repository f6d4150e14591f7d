package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	return FromContext(e.NewContext(req, rec))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("/")
	if p.Page != DefaultPage {
		t.Errorf("expected default page %d, got %d", DefaultPage, p.Page)
	}
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor("/?page=3&limit=25")
	if p.Page != 3 {
		t.Errorf("expected page 3, got %d", p.Page)
	}
	if p.Limit != 25 {
		t.Errorf("expected limit 25, got %d", p.Limit)
	}
}

func TestFromContext_MaxLimit(t *testing.T) {
	p := paramsFor("/?limit=500")
	if p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
}

func TestFromContext_InvalidValues(t *testing.T) {
	tests := []string{"/?page=abc&limit=xyz", "/?page=-2&limit=-5", "/?page=0&limit=0"}
	for _, target := range tests {
		p := paramsFor(target)
		if p.Page != DefaultPage || p.Limit != DefaultLimit {
			t.Errorf("%s: expected defaults, got %+v", target, p)
		}
	}
}

func TestParams_Offset(t *testing.T) {
	tests := []struct {
		p    Params
		want int
	}{
		{Params{Page: 1, Limit: 10}, 0},
		{Params{Page: 2, Limit: 10}, 10},
		{Params{Page: 5, Limit: 20}, 80},
	}
	for _, tt := range tests {
		if got := tt.p.Offset(); got != tt.want {
			t.Errorf("%+v: expected offset %d, got %d", tt.p, tt.want, got)
		}
	}
}

func TestParams_HasNextAndPrevious(t *testing.T) {
	p := Params{Page: 1, Limit: 10}
	if !p.HasNext(11) {
		t.Error("expected next page when total exceeds first page")
	}
	if p.HasNext(10) {
		t.Error("expected no next page when total fits")
	}
	if p.HasPrevious() {
		t.Error("expected no previous page on page 1")
	}
	if !(Params{Page: 2, Limit: 10}).HasPrevious() {
		t.Error("expected previous page on page 2")
	}
}

func TestParams_TotalPages(t *testing.T) {
	p := Params{Page: 1, Limit: 10}
	for total, want := range map[int]int{0: 0, 1: 1, 10: 1, 11: 2, 95: 10} {
		if got := p.TotalPages(total); got != want {
			t.Errorf("TotalPages(%d) = %d, want %d", total, got, want)
		}
	}
}
