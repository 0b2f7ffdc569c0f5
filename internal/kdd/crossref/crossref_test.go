package crossref

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

const workJSON = `{
  "status": "ok",
  "message": {
    "DOI": "10.1029/92jb01202",
    "title": ["Partitioning of trace elements"],
    "abstract": "<jats:p>Experimental partition coefficients.</jats:p>",
    "author": [
      {"given": "Stanley", "family": "Hart"},
      {"given": "Terry", "family": "Dunn"},
      {"name": "KdD Consortium"}
    ],
    "is-referenced-by-count": 42,
    "container-title": ["Journal of Geophysical Research"],
    "publisher": "American Geophysical Union",
    "URL": "http://dx.doi.org/10.1029/92jb01202",
    "issued": {"date-parts": [[1993, 1, 10]]},
    "subject": ["Geophysics", "Geochemistry"]
  }
}`

func TestResolveReference(t *testing.T) {
	t.Parallel()

	var gotPath, gotMailto string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMailto = r.URL.Query().Get("mailto")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(workJSON))
	}))
	defer srv.Close()

	client := NewClient(srv.URL+"/works/", WithMailto("kdd@earthref.org"), WithHTTPClient(srv.Client()))
	ref, err := client.ResolveReference(context.Background(), "10.1029/92JB01202")
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if gotPath != "/works/10.1029/92JB01202" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotMailto != "kdd@earthref.org" {
		t.Fatalf("mailto = %q", gotMailto)
	}
	want := &Reference{
		DOI:           "10.1029/92JB01202",
		Title:         "Partitioning of trace elements",
		Abstract:      "<jats:p>Experimental partition coefficients.</jats:p>",
		Authors:       []string{"Stanley Hart", "Terry Dunn", "KdD Consortium"},
		CitationCount: 42,
		Journal:       "Journal of Geophysical Research",
		Publisher:     "American Geophysical Union",
		URL:           "http://dx.doi.org/10.1029/92jb01202",
		Year:          1993,
		Citation:      "Hart, S., Dunn, T. (1993). Partitioning of trace elements. Journal of Geophysical Research.",
		Keywords:      []string{"Geophysics", "Geochemistry"},
	}
	if !reflect.DeepEqual(ref, want) {
		t.Fatalf("reference = %+v\nwant %+v", ref, want)
	}
}

func TestResolveReferenceErrors(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/10.1000/missing":
			http.NotFound(w, r)
		case "/10.1000/broken":
			_, _ = w.Write([]byte("{"))
		default:
			w.WriteHeader(http.StatusServiceUnavailable)
		}
	}))
	defer srv.Close()
	client := NewClient(srv.URL, WithHTTPClient(srv.Client()))

	if _, err := client.ResolveReference(context.Background(), "https://my-university.edu/thesis.pdf"); !errors.Is(err, ErrNotDOI) {
		t.Fatalf("url reference err = %v, want ErrNotDOI", err)
	}
	if _, err := client.ResolveReference(context.Background(), "10.1000/missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing err = %v, want ErrNotFound", err)
	}
	if _, err := client.ResolveReference(context.Background(), "10.1000/broken"); err == nil {
		t.Fatal("expected error for invalid json")
	}
	if _, err := client.ResolveReference(context.Background(), "10.1000/down"); err == nil {
		t.Fatal("expected error for unavailable service")
	}
}

func TestResolveReferenceHonorsContext(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(workJSON))
	}))
	defer srv.Close()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewClient(srv.URL, WithHTTPClient(srv.Client())).ResolveReference(ctx, "10.1029/92JB01202"); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

func TestDOI(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"10.1029/92JB01202":                         "10.1029/92JB01202",
		" HTTPS://DOI.ORG/10.1023/A:1015035228810 ": "10.1023/A:1015035228810",
		"doi:10.1029/92JB01202.":                    "10.1029/92JB01202",
	}
	for in, want := range cases {
		got, ok := DOI(in)
		if !ok || got != want {
			t.Errorf("DOI(%q) = %q, %v; want %q", in, got, ok, want)
		}
	}
	if _, ok := DOI("Smith et al. 2004"); ok {
		t.Fatal("expected free text to hold no DOI")
	}
}
