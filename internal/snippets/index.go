// Package snippets provides semantic search over user-saved case
// excerpts, backed by an in-memory chromem-go collection.
package snippets

import (
	"context"
	"fmt"
	"time"

	chromem "github.com/philippgille/chromem-go"

	"github.com/Afuraka666/Ungana-Medical-sub000/internal/embeddings"
	"github.com/Afuraka666/Ungana-Medical-sub000/internal/storage"
)

const collectionName = "snippets"

// SearchResult is a snippet with its similarity to the query.
type SearchResult struct {
	Snippet    storage.Snippet
	Similarity float32
}

// Index maintains a searchable embedding per saved snippet.
type Index struct {
	db         *chromem.DB
	collection *chromem.Collection
	embedFunc  chromem.EmbeddingFunc
}

// NewIndex creates an empty snippet index using the given embedder.
func NewIndex(embedder embeddings.Embedder) (*Index, error) {
	db := chromem.NewDB()
	ef := embeddings.ToChromemFunc(embedder)

	col, err := db.GetOrCreateCollection(collectionName, nil, ef)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &Index{
		db:         db,
		collection: col,
		embedFunc:  ef,
	}, nil
}

// Add embeds a snippet and adds it to the index.
func (x *Index) Add(ctx context.Context, s storage.Snippet) error {
	doc := chromem.Document{
		ID:       s.ID,
		Content:  s.Text,
		Metadata: snippetMetadata(s),
	}
	if err := x.collection.AddDocuments(ctx, []chromem.Document{doc}, 1); err != nil {
		return fmt.Errorf("indexing snippet %s: %w", s.ID, err)
	}
	return nil
}

// Rebuild replaces the index contents with the given snippets. Used at
// startup to load the persisted snippet collection.
func (x *Index) Rebuild(ctx context.Context, snippets []storage.Snippet) error {
	x.db = chromem.NewDB()
	col, err := x.db.GetOrCreateCollection(collectionName, nil, x.embedFunc)
	if err != nil {
		return fmt.Errorf("create collection: %w", err)
	}
	x.collection = col

	if len(snippets) == 0 {
		return nil
	}

	docs := make([]chromem.Document, len(snippets))
	for i, s := range snippets {
		docs[i] = chromem.Document{
			ID:       s.ID,
			Content:  s.Text,
			Metadata: snippetMetadata(s),
		}
	}
	return x.collection.AddDocuments(ctx, docs, 1)
}

// Remove deletes a snippet from the index.
func (x *Index) Remove(ctx context.Context, id string) error {
	return x.collection.Delete(ctx, nil, nil, id)
}

// Search returns up to limit snippets ranked by similarity to query.
func (x *Index) Search(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 10
	}

	// chromem-go requires nResults <= collection size.
	count := x.collection.Count()
	if count == 0 {
		return nil, nil
	}
	if limit > count {
		limit = count
	}

	results, err := x.collection.Query(ctx, query, limit, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("chromem query: %w", err)
	}

	out := make([]SearchResult, len(results))
	for i, r := range results {
		out[i] = SearchResult{
			Snippet:    metadataSnippet(r.ID, r.Content, r.Metadata),
			Similarity: r.Similarity,
		}
	}
	return out, nil
}

// Count returns the number of indexed snippets.
func (x *Index) Count() int {
	return x.collection.Count()
}

func snippetMetadata(s storage.Snippet) map[string]string {
	return map[string]string{
		"case_title": s.CaseTitle,
		"saved_at":   s.SavedAt.Format(time.RFC3339),
	}
}

func metadataSnippet(id, content string, m map[string]string) storage.Snippet {
	savedAt, _ := time.Parse(time.RFC3339, m["saved_at"])
	return storage.Snippet{
		ID:        id,
		CaseTitle: m["case_title"],
		Text:      content,
		SavedAt:   savedAt,
	}
}
