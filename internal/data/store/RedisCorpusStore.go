package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/data/redisStore"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
)

// catalogKey is the redis hash holding one JSON document per field.
const catalogKey = "recall:documents"

type RedisCorpusStore struct {
	store  *redisStore.Store
	logger *logger_i.Logger
}

func GetRedisCorpusStore(ctx context.Context, settings config.RedisSettings) (*RedisCorpusStore, error) {
	s, err := redisStore.GetRedisStore(ctx, settings, config.RedisCatalogStore)
	if err != nil {
		return nil, err
	}
	return NewRedisCorpusStore(s), nil
}

func NewRedisCorpusStore(store *redisStore.Store) *RedisCorpusStore {
	return &RedisCorpusStore{
		store:  store,
		logger: logger_i.NewLogger("CorpusStore"),
	}
}

func (s *RedisCorpusStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	log := s.logger.With("traceId", ctx.Value(config.TRACE_ID_KEY), "docId", doc.Id)
	data, err := json.Marshal(doc)
	if err != nil {
		return err
	}

	err = s.store.HashSet(ctx, catalogKey, doc.Id, data)
	if err == nil {
		log.Debug("Saved document to Redis")
	}
	return err
}

func (s *RedisCorpusStore) GetDocument(ctx context.Context, id string) (commonModels.Document, bool) {
	var doc commonModels.Document
	val, err := s.store.HashGet(ctx, catalogKey, id)
	if s.store.IsNil(err) {
		return doc, false
	} else if err != nil {
		s.logger.Error("Error reading document from Redis", "docId", id, "error", err)
		return doc, false
	}

	if err = json.Unmarshal([]byte(val), &doc); err != nil {
		s.logger.Error("Corrupt catalog entry", "docId", id, "error", err)
		return doc, false
	}
	return doc, true
}

func (s *RedisCorpusStore) DeleteDocument(ctx context.Context, id string) error {
	if err := s.store.HashDel(ctx, catalogKey, id); err != nil {
		s.logger.Error("Error deleting document from Redis", "docId", id, "error", err)
		return err
	}
	s.logger.Debug("Document deleted from Redis", "docId", id)
	return nil
}

func (s *RedisCorpusStore) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	entries, err := s.store.HashGetAll(ctx, catalogKey)
	if err != nil {
		return nil, err
	}
	docs := make([]commonModels.Document, 0, len(entries))
	for id, val := range entries {
		var doc commonModels.Document
		if err := json.Unmarshal([]byte(val), &doc); err != nil {
			return nil, fmt.Errorf("catalog entry %s: %w", id, err)
		}
		docs = append(docs, doc)
	}
	sortDocuments(docs)
	return docs, nil
}

func (s *RedisCorpusStore) Clear(ctx context.Context) error {
	return s.store.Del(ctx, catalogKey)
}
