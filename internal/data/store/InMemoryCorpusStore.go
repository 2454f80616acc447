package store

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
)

var inMemLogger = logger_i.NewLogger("InMem CorpusStore")

type InMemoryCorpusStore struct {
	docMutex *sync.RWMutex
	docMap   map[string]commonModels.Document
}

func InitInMemoryCorpusStore() *InMemoryCorpusStore {
	return &InMemoryCorpusStore{
		docMutex: new(sync.RWMutex),
		docMap:   make(map[string]commonModels.Document),
	}
}

func (store *InMemoryCorpusStore) SaveDocument(ctx context.Context, doc commonModels.Document) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	store.docMap[doc.Id] = doc
	inMemLogger.Debug("Saved document to catalog", "docId", doc.Id)
	return nil
}

func (store *InMemoryCorpusStore) GetDocument(ctx context.Context, id string) (commonModels.Document, bool) {
	store.docMutex.RLock()
	defer store.docMutex.RUnlock()
	result, found := store.docMap[id]
	return result, found
}

func (store *InMemoryCorpusStore) DeleteDocument(ctx context.Context, id string) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	delete(store.docMap, id)
	return nil
}

// ListDocuments returns the catalog ordered by document name.
func (store *InMemoryCorpusStore) ListDocuments(ctx context.Context) ([]commonModels.Document, error) {
	store.docMutex.RLock()
	docs := make([]commonModels.Document, 0, len(store.docMap))
	for _, d := range store.docMap {
		docs = append(docs, d)
	}
	store.docMutex.RUnlock()

	sortDocuments(docs)
	return docs, nil
}

func (store *InMemoryCorpusStore) Clear(ctx context.Context) error {
	store.docMutex.Lock()
	defer store.docMutex.Unlock()
	clear(store.docMap)
	return nil
}

func sortDocuments(docs []commonModels.Document) {
	slices.SortFunc(docs, func(a, b commonModels.Document) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.Id, b.Id)
	})
}
