package marketplace

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Indexer mirrors open listings into a search backend. Indexing is
// best-effort: the database stays the source of truth and Browse falls back
// to it when the search backend is down.
type Indexer interface {
	IndexListing(ctx context.Context, listing *Listing) error
	RemoveListing(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, query string, size int) ([]uuid.UUID, error)
}

type esIndexer struct {
	client *elasticsearch.Client
	index  string
	logger *zap.Logger
}

// NewESIndexer connects to Elasticsearch. A nil return means search is
// disabled and callers should use the database directly.
func NewESIndexer(addresses []string, index string, logger *zap.Logger) Indexer {
	if len(addresses) == 0 {
		return nil
	}
	client, err := elasticsearch.NewClient(elasticsearch.Config{Addresses: addresses})
	if err != nil {
		logger.Warn("elasticsearch unavailable, search disabled", zap.Error(err))
		return nil
	}
	return &esIndexer{client: client, index: index, logger: logger}
}

func (e *esIndexer) IndexListing(ctx context.Context, listing *Listing) error {
	body, err := json.Marshal(listing)
	if err != nil {
		return err
	}
	res, err := e.client.Index(e.index, bytes.NewReader(body),
		e.client.Index.WithDocumentID(listing.ID.String()),
		e.client.Index.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	if res.IsError() {
		return fmt.Errorf("index listing: %s", res.Status())
	}
	return nil
}

func (e *esIndexer) RemoveListing(ctx context.Context, id uuid.UUID) error {
	res, err := e.client.Delete(e.index, id.String(), e.client.Delete.WithContext(ctx))
	if err != nil {
		return err
	}
	defer res.Body.Close()
	return nil
}

func (e *esIndexer) Search(ctx context.Context, query string, size int) ([]uuid.UUID, error) {
	q := map[string]interface{}{
		"size": size,
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must": map[string]interface{}{
					"multi_match": map[string]interface{}{
						"query":  query,
						"fields": []string{"creditClaim", "sellerId", "status"},
					},
				},
				"filter": map[string]interface{}{
					"terms": map[string]interface{}{
						"status": []string{string(StatusActive), string(StatusPartial)},
					},
				},
			},
		},
	}
	body, err := json.Marshal(q)
	if err != nil {
		return nil, err
	}

	res, err := e.client.Search(
		e.client.Search.WithContext(ctx),
		e.client.Search.WithIndex(e.index),
		e.client.Search.WithBody(bytes.NewReader(body)))
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()
	if res.IsError() {
		return nil, fmt.Errorf("search listings: %s", res.Status())
	}

	var parsed struct {
		Hits struct {
			Hits []struct {
				ID string `json:"_id"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		if id, err := uuid.Parse(hit.ID); err == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}
