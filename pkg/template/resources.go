package template

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"relex/pkg/logger"

	"golang.org/x/sync/errgroup"
)

// ingestWorkers bounds the concurrent index writes during bootstrap.
const ingestWorkers = 4

// standardTemplateSet is one line of the standard template file: a relation
// and the phrase patterns that map to it.
type standardTemplateSet struct {
	Relation  string `json:"relation"`
	Templates []struct {
		Pattern string `json:"pattern"`
		Groups  []int  `json:"groups"`
	} `json:"templates"`
}

// LoadStandardTemplates resets the index and ingests the bundled template
// file. Called once at server start so the store always carries the standard
// set plus whatever users added afterwards.
func (e *Explorer) LoadStandardTemplates(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("template: open standard templates: %w", err)
	}
	defer f.Close()

	if err := e.ResetIndex(ctx); err != nil {
		return err
	}

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(ingestWorkers)

	count := 0
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		var set standardTemplateSet
		if err := json.Unmarshal([]byte(line), &set); err != nil {
			return fmt.Errorf("template: parse standard templates: %w", err)
		}

		for _, tpl := range set.Templates {
			relation, pattern, groups := set.Relation, tpl.Pattern, tpl.Groups
			count++
			g.Go(func() error {
				return e.IngestTemplate(gCtx, relation, pattern, groups)
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("template: read standard templates: %w", err)
	}

	if err := g.Wait(); err != nil {
		return err
	}

	logger.Info("[Template] Standard templates ingested", "templates", count)
	return nil
}

// RelationList serves the known relation vocabulary from the bundled file,
// loaded once and cached.
type RelationList struct {
	path string

	once      sync.Once
	relations []string
	err       error
}

// NewRelationList creates a lazy loader for the relation vocabulary file.
func NewRelationList(path string) *RelationList {
	return &RelationList{path: path}
}

// Relations returns the relation vocabulary, one relation per line of the
// backing file. The file is read on first use.
func (l *RelationList) Relations() ([]string, error) {
	l.once.Do(func() {
		f, err := os.Open(l.path)
		if err != nil {
			l.err = fmt.Errorf("template: open relations: %w", err)
			return
		}
		defer f.Close()

		scanner := bufio.NewScanner(f)
		for scanner.Scan() {
			relation := strings.TrimSpace(scanner.Text())
			if relation == "" {
				continue
			}
			l.relations = append(l.relations, relation)
		}
		if err := scanner.Err(); err != nil {
			l.err = fmt.Errorf("template: read relations: %w", err)
		}
	})
	return l.relations, l.err
}
