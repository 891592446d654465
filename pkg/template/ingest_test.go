package template

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

// fakeElastic serves the minimal index API surface the Explorer touches and
// records every document write path.
func fakeElastic(t *testing.T) (*httptest.Server, *[]string) {
	t.Helper()
	var docPaths []string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Path, "/_doc/") {
			docPaths = append(docPaths, r.URL.Path)
		}
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("{}"))
	}))
	t.Cleanup(srv.Close)

	return srv, &docPaths
}

func TestIngestTemplateReingestionKeepsDocumentID(t *testing.T) {
	srv, docPaths := fakeElastic(t)

	e, err := NewExplorer(context.Background(), NewExplorerParams{
		ElasticURL: srv.URL,
	})
	if err != nil {
		t.Fatalf("failed to create explorer: %v", err)
	}

	pattern := `what is the capital of (.+)\?`
	if err := e.IngestTemplate(context.Background(), "capital", pattern, nil); err != nil {
		t.Fatalf("first ingest failed: %v", err)
	}
	if err := e.IngestTemplate(context.Background(), "capital", pattern, nil); err != nil {
		t.Fatalf("second ingest failed: %v", err)
	}

	paths := *docPaths
	if len(paths) != 2 {
		t.Fatalf("expected 2 document writes, got %d", len(paths))
	}
	if paths[0] != paths[1] {
		t.Fatalf("re-ingesting the same pattern must overwrite, got %s then %s", paths[0], paths[1])
	}
	want := "/template_store/_doc/" + templateID(pattern)
	if paths[0] != want {
		t.Fatalf("unexpected document path %s, want %s", paths[0], want)
	}

	if err := e.IngestTemplate(context.Background(), "capital", `name the capital of (.+)`, nil); err != nil {
		t.Fatalf("third ingest failed: %v", err)
	}
	paths = *docPaths
	if paths[2] == paths[0] {
		t.Fatalf("different patterns must get distinct documents, both at %s", paths[2])
	}
}
