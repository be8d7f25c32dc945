// Package search maintains a full-text index over completed sessions so the
// dashboard can find past conversations by what was said, how they were
// titled, or how they were tagged.
package search

import (
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"

	"github.com/echomentor/backend/internal/model/session"
)

// Hit is one search result.
type Hit struct {
	SessionID string  `json:"sessionId"`
	Score     float64 `json:"score"`
	Title     string  `json:"title"`
}

// Index wraps the bleve index of completed sessions.
type Index struct {
	index bleve.Index
	path  string
}

type sessionDoc struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Profile   string `json:"profile"`
	Tags      string `json:"tags"`
	Text      string `json:"text"`
}

// Open opens or creates the index at indexPath. A corrupted index is
// deleted and recreated; losing it only costs reindexing.
func Open(indexPath string) (*Index, error) {
	index, err := bleve.Open(indexPath)
	if err == bleve.ErrorIndexPathDoesNotExist {
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to create session index: %w", err)
		}
	} else if err != nil {
		log.Printf("[search] session index unreadable (%v), recreating", err)
		if index != nil {
			index.Close()
		}
		if err := os.RemoveAll(indexPath); err != nil {
			return nil, fmt.Errorf("failed to remove corrupted index: %w", err)
		}
		index, err = bleve.New(indexPath, buildIndexMapping())
		if err != nil {
			return nil, fmt.Errorf("failed to recreate session index: %w", err)
		}
	}

	return &Index{index: index, path: indexPath}, nil
}

func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()

	idField := bleve.NewTextFieldMapping()
	idField.Analyzer = keyword.Name
	idField.Store = true
	docMapping.AddFieldMappingsAt("session_id", idField)

	titleField := bleve.NewTextFieldMapping()
	titleField.Analyzer = standard.Name
	titleField.Store = true
	docMapping.AddFieldMappingsAt("title", titleField)

	profileField := bleve.NewTextFieldMapping()
	profileField.Analyzer = keyword.Name
	profileField.Store = true
	docMapping.AddFieldMappingsAt("profile", profileField)

	tagsField := bleve.NewTextFieldMapping()
	tagsField.Analyzer = standard.Name
	tagsField.Store = false
	docMapping.AddFieldMappingsAt("tags", tagsField)

	textField := bleve.NewTextFieldMapping()
	textField.Analyzer = standard.Name
	textField.Store = false
	docMapping.AddFieldMappingsAt("text", textField)

	indexMapping.DefaultMapping = docMapping
	return indexMapping
}

// IndexSession adds or replaces one completed session. Only what the user
// said is indexed as text; assistant replies would drown the topics the
// user actually brought up.
func (i *Index) IndexSession(rec session.Session) error {
	doc := sessionDoc{
		SessionID: rec.ID,
		Title:     rec.Title,
		Profile:   rec.Profile,
		Tags:      strings.Join(rec.Tags, " "),
		Text:      strings.Join(session.Transcript(rec.Transcript).UserTurns(), "\n"),
	}
	if err := i.index.Index(rec.ID, doc); err != nil {
		return fmt.Errorf("failed to index session %s: %w", rec.ID, err)
	}
	return nil
}

// DeleteSession removes a session from the index.
func (i *Index) DeleteSession(id string) error {
	return i.index.Delete(id)
}

// Search runs a match query over titles, tags, and user turns.
func (i *Index) Search(query string, limit int) ([]Hit, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, nil
	}
	if limit <= 0 {
		limit = 20
	}

	q := bleve.NewMatchQuery(query)
	req := bleve.NewSearchRequestOptions(q, limit, 0, false)
	req.Fields = []string{"session_id", "title"}

	result, err := i.index.Search(req)
	if err != nil {
		return nil, fmt.Errorf("session search failed: %w", err)
	}

	hits := make([]Hit, 0, len(result.Hits))
	for _, h := range result.Hits {
		hit := Hit{SessionID: h.ID, Score: h.Score}
		if title, ok := h.Fields["title"].(string); ok {
			hit.Title = title
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Close releases the index.
func (i *Index) Close() error {
	return i.index.Close()
}
