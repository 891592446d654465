package template

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"relex/pkg/graph"
	"relex/pkg/logger"

	elasticsearch "github.com/elastic/go-elasticsearch/v8"
)

// ErrNoMatch reports a query that matched no indexed template.
var ErrNoMatch = errors.New("template: no matching template")

const (
	defaultIndex = "template_store"

	// searchSize fetches one spare hit behind the top match for debugging;
	// only the top hit is used.
	searchSize = 2
)

// Template is a phrase pattern tagged with the relation it maps to. Groups
// names the regex capture group(s) holding the entity mention; empty means
// the whole match.
type Template struct {
	Relation string `json:"relation"`
	Template string `json:"template"`
	Groups   []int  `json:"groups"`
}

// tailResolver is the slice of the relation resolver the matcher needs.
type tailResolver interface {
	RelationTail(ctx context.Context, scope, n1, relation string) (string, error)
}

// Explorer indexes phrase templates in the search index and answers
// free-text questions by matching them against the stored patterns and
// resolving the extracted entity in the graph.
type Explorer struct {
	es       *elasticsearch.Client
	resolver tailResolver
	index    string
}

// NewExplorerParams contains configuration for creating an Explorer.
type NewExplorerParams struct {
	ElasticURL string
	Resolver   *graph.Explorer
	Index      string
}

// NewExplorer connects to the search index and makes sure the template index
// exists.
func NewExplorer(ctx context.Context, params NewExplorerParams) (*Explorer, error) {
	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: []string{params.ElasticURL},
	})
	if err != nil {
		return nil, fmt.Errorf("template: create client: %w", err)
	}

	index := params.Index
	if index == "" {
		index = defaultIndex
	}

	e := &Explorer{
		es:       es,
		resolver: params.Resolver,
		index:    index,
	}
	if err := e.createIndex(ctx); err != nil {
		return nil, err
	}

	return e, nil
}

func (e *Explorer) createIndex(ctx context.Context) error {
	res, err := e.es.Indices.Exists(
		[]string{e.index},
		e.es.Indices.Exists.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("template: check index: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == 200 {
		return nil
	}

	createRes, err := e.es.Indices.Create(
		e.index,
		e.es.Indices.Create.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("template: create index: %w", err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		return fmt.Errorf("template: create index: %s", createRes.String())
	}

	return nil
}

// ResetIndex drops and recreates the template index. Used at server start
// before the standard templates are re-ingested.
func (e *Explorer) ResetIndex(ctx context.Context) error {
	res, err := e.es.Indices.Delete(
		[]string{e.index},
		e.es.Indices.Delete.WithContext(ctx),
		e.es.Indices.Delete.WithIgnoreUnavailable(true),
	)
	if err != nil {
		return fmt.Errorf("template: delete index: %w", err)
	}
	defer res.Body.Close()
	logger.Info("[Template] Index reset", "index", e.index)

	return e.createIndex(ctx)
}

// templateID is the deduplication key: a content hash of the pattern text,
// so re-ingesting an identical pattern overwrites instead of duplicating.
func templateID(pattern string) string {
	sum := md5.Sum([]byte(pattern))
	return hex.EncodeToString(sum[:])
}

// IngestTemplate upserts one template into the search index.
func (e *Explorer) IngestTemplate(ctx context.Context, relation, pattern string, groups []int) error {
	if groups == nil {
		groups = []int{}
	}

	doc := Template{
		Relation: relation,
		Template: pattern,
		Groups:   groups,
	}
	body, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("template: marshal: %w", err)
	}

	res, err := e.es.Index(
		e.index,
		bytes.NewReader(body),
		e.es.Index.WithDocumentID(templateID(pattern)),
		e.es.Index.WithContext(ctx),
	)
	if err != nil {
		return fmt.Errorf("template: index document: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("template: index document: %s", res.String())
	}

	return nil
}

type searchHits struct {
	Hits struct {
		Hits []struct {
			Source Template `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

// Search matches a free-text question against the indexed templates, extracts
// the entity mention via the top hit's pattern and resolves the relation tail
// in the graph. Zero hits yield ErrNoMatch; a resolver miss surfaces as
// graph.ErrNoResult.
func (e *Explorer) Search(ctx context.Context, query string) (string, error) {
	query = strings.ToLower(query)

	searchBody := map[string]any{
		"from": 0,
		"size": searchSize,
		"query": map[string]any{
			"match": map[string]any{
				"template": query,
			},
		},
	}
	body, err := json.Marshal(searchBody)
	if err != nil {
		return "", fmt.Errorf("template: marshal search: %w", err)
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return "", fmt.Errorf("template: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return "", fmt.Errorf("template: search: %s", res.String())
	}

	var hits searchHits
	if err := json.NewDecoder(res.Body).Decode(&hits); err != nil {
		return "", fmt.Errorf("template: decode search response: %w", err)
	}
	if len(hits.Hits.Hits) == 0 {
		return "", ErrNoMatch
	}

	hit := hits.Hits.Hits[0].Source
	entity, err := ExtractEntity(hit.Template, hit.Groups, query)
	if err != nil {
		logger.Error("[Template] Entity extraction failed", "template", hit.Template, "query", query, "err", err)
		return "", err
	}

	return e.resolver.RelationTail(ctx, "", entity, hit.Relation)
}

// GetTemplates returns the stored templates tagged with the given relation.
func (e *Explorer) GetTemplates(ctx context.Context, relation string) ([]Template, error) {
	searchBody := map[string]any{
		"query": map[string]any{
			"match": map[string]any{
				"relation": relation,
			},
		},
	}
	body, err := json.Marshal(searchBody)
	if err != nil {
		return nil, fmt.Errorf("template: marshal search: %w", err)
	}

	res, err := e.es.Search(
		e.es.Search.WithContext(ctx),
		e.es.Search.WithIndex(e.index),
		e.es.Search.WithBody(bytes.NewReader(body)),
	)
	if err != nil {
		return nil, fmt.Errorf("template: search: %w", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("template: search: %s", res.String())
	}

	var hits searchHits
	if err := json.NewDecoder(res.Body).Decode(&hits); err != nil {
		return nil, fmt.Errorf("template: decode search response: %w", err)
	}

	templates := make([]Template, 0, len(hits.Hits.Hits))
	for _, hit := range hits.Hits.Hits {
		templates = append(templates, hit.Source)
	}
	return templates, nil
}
