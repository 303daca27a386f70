package fetcher

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"unicode/utf8"
)

func TestExtractTextSkipsScripts(t *testing.T) {
	page := `<html><head><style>body{color:red}</style><script>var x = 1;</script></head>
<body><h1>Villa   Sol</h1><p>7 nights,<br>&pound;1,400</p><noscript>enable js</noscript></body></html>`

	got := ExtractText(page)
	if got != "Villa Sol 7 nights, £1,400" {
		t.Fatalf("got %q", got)
	}
}

func TestExtractTextTruncates(t *testing.T) {
	page := "<p>" + strings.Repeat("é", MaxTextLen+50) + "</p>"
	got := ExtractText(page)
	if n := utf8.RuneCountInString(got); n != MaxTextLen {
		t.Fatalf("expected %d runes, got %d", MaxTextLen, n)
	}
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/booking":
			w.Write([]byte(`<html><body><p>Alamo minivan, 14 days</p></body></html>`))
		case "/empty":
			w.Write([]byte(`<html><body><script>1</script></body></html>`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(srv.Client())
	ctx := context.Background()

	text, err := f.Fetch(ctx, srv.URL+"/booking")
	if err != nil || text != "Alamo minivan, 14 days" {
		t.Fatalf("fetch: %q %v", text, err)
	}

	_, err = f.Fetch(ctx, srv.URL+"/gone")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("expected StatusError 404, got %v", err)
	}

	if _, err := f.Fetch(ctx, srv.URL+"/empty"); err == nil {
		t.Fatal("a page without text should fail")
	}
	if _, err := f.Fetch(ctx, "ftp://example.com/file"); err == nil {
		t.Fatal("unsupported scheme should fail")
	}
}

func TestIsURL(t *testing.T) {
	for s, want := range map[string]bool{
		"https://example.com": true,
		" www.example.com":    true,
		"example.com":         false,
		"Villa Sol":           false,
	} {
		if got := IsURL(s); got != want {
			t.Errorf("IsURL(%q) = %v, want %v", s, got, want)
		}
	}
}
