package qdrantDB

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/akolanti/RecallAPI/internal/config"
	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/internal/rag/vectorDB"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"github.com/google/uuid"
	"github.com/qdrant/go-client/qdrant"
)

const (
	scrollPageSize = 256
	// extra candidates fetched so ties at the cut-off still resolve by document and chunk
	tieSlack = 8
)

// pointNamespace derives stable point ids from chunk keys.
var pointNamespace = uuid.MustParse("6f1c9a52-5f5e-4d1b-9a53-3b7d2f0c1e44")

type Index struct {
	client     *qdrant.Client
	collection string
	dimension  atomic.Int64
	populated  atomic.Bool
	logger     *logger_i.Logger
}

func New(settings config.IndexSettings) (*Index, error) {
	if settings.Collection == "" {
		return nil, errors.New("empty collection name")
	}
	client, err := qdrant.NewClient(&qdrant.Config{
		Host:     settings.QdrantHost,
		Port:     settings.QdrantPort,
		UseTLS:   config.QdrantUseTLS,
		PoolSize: uint(config.QdrantPoolSize),
	})
	if err != nil {
		return nil, fmt.Errorf("could not instantiate qdrant client: %w", err)
	}
	return &Index{
		client:     client,
		collection: settings.Collection,
		logger:     logger_i.NewLogger("Qdrant"),
	}, nil
}

// Bind creates the collection for the identity's dimension, or checks the
// dimension of an existing one. Qdrant keeps no record of the model, so only
// the dimension is verified.
func (db *Index) Bind(ctx context.Context, identity commonModels.EmbeddingIdentity) error {
	exists, err := db.client.CollectionExists(ctx, db.collection)
	if err != nil {
		return fmt.Errorf("checking collection %s: %w", db.collection, err)
	}
	if !exists {
		if err := db.createCollection(ctx, identity.Dimension); err != nil {
			return err
		}
	} else {
		info, err := db.client.GetCollectionInfo(ctx, db.collection)
		if err != nil {
			return fmt.Errorf("reading collection %s: %w", db.collection, err)
		}
		size := info.GetConfig().GetParams().GetVectorsConfig().GetParams().GetSize()
		if int(size) != identity.Dimension {
			return fmt.Errorf("%w: collection %s has dimension %d, embedder %s", ragErrors.ErrIdentityMismatch, db.collection, size, identity)
		}
	}
	db.dimension.Store(int64(identity.Dimension))

	count, err := db.client.Count(ctx, &qdrant.CountPoints{CollectionName: db.collection, Exact: qdrant.PtrOf(true)})
	if err != nil {
		return fmt.Errorf("counting points: %w", err)
	}
	db.populated.Store(count > 0)
	db.logger.Info("Bound qdrant collection", "collection", db.collection, "identity", identity.String(), "points", count)
	return nil
}

func (db *Index) createCollection(ctx context.Context, dimension int) error {
	err := db.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: db.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dimension),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("creating collection %s: %w", db.collection, err)
	}
	return nil
}

func (db *Index) checkDimension(vector []float32) error {
	if d := db.dimension.Load(); d > 0 && int64(len(vector)) != d {
		return fmt.Errorf("%w: expected %d, got %d", ragErrors.ErrDimensionMismatch, d, len(vector))
	}
	return nil
}

func pointID(chunk commonModels.DocChunk) *qdrant.PointId {
	return qdrant.NewID(uuid.NewSHA1(pointNamespace, []byte(chunk.Key())).String())
}

func chunkPayload(chunk commonModels.DocChunk) map[string]*qdrant.Value {
	return qdrant.NewValueMap(map[string]any{
		"content":       chunk.Content,
		"source_doc_id": chunk.DocId,
		"doc_name":      chunk.DocName,
		"chunk_index":   chunk.Index,
		"start":         chunk.Start,
		"end":           chunk.End,
	})
}

func chunkFromPayload(payload map[string]*qdrant.Value) commonModels.DocChunk {
	return commonModels.DocChunk{
		DocId:   payload["source_doc_id"].GetStringValue(),
		DocName: payload["doc_name"].GetStringValue(),
		Index:   int(payload["chunk_index"].GetIntegerValue()),
		Start:   int(payload["start"].GetIntegerValue()),
		End:     int(payload["end"].GetIntegerValue()),
		Content: payload["content"].GetStringValue(),
	}
}

func (db *Index) Insert(ctx context.Context, chunk commonModels.DocChunk, vector []float32) error {
	if err := db.checkDimension(vector); err != nil {
		return err
	}
	_, err := db.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: db.collection,
		Points: []*qdrant.PointStruct{{
			Id:      pointID(chunk),
			Vectors: qdrant.NewVectors(vector...),
			Payload: chunkPayload(chunk),
		}},
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant upsert failed: %w", err)
	}
	db.populated.Store(true)
	return nil
}

func (db *Index) RemoveAll(ctx context.Context, docId string) error {
	_, err := db.client.Delete(ctx, &qdrant.DeletePoints{
		CollectionName: db.collection,
		Points: qdrant.NewPointsSelectorFilter(&qdrant.Filter{
			Must: []*qdrant.Condition{qdrant.NewMatch("source_doc_id", docId)},
		}),
		Wait: qdrant.PtrOf(true),
	})
	if err != nil {
		return fmt.Errorf("qdrant delete of %s failed: %w", docId, err)
	}
	return nil
}

func (db *Index) Query(ctx context.Context, vector []float32, k int) (commonModels.RetrievalResult, error) {
	if k <= 0 {
		return nil, fmt.Errorf("%w: got %d", ragErrors.ErrInvalidK, k)
	}
	if err := db.checkDimension(vector); err != nil {
		return nil, err
	}

	result, err := db.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: db.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(k + tieSlack)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		db.logger.Error("Error querying Qdrant", "error", err, "traceId", ctx.Value(config.TRACE_ID_KEY))
		return nil, fmt.Errorf("qdrant query failed: %w", err)
	}

	scored := make([]commonModels.ScoredChunk, 0, len(result))
	for _, hit := range result {
		scored = append(scored, commonModels.ScoredChunk{
			Chunk: chunkFromPayload(hit.GetPayload()),
			Score: float64(hit.GetScore()),
		})
	}
	return vectorDB.RankTopK(scored, k), nil
}

func (db *Index) Size(ctx context.Context) (int, error) {
	count, err := db.client.Count(ctx, &qdrant.CountPoints{CollectionName: db.collection, Exact: qdrant.PtrOf(true)})
	if err != nil {
		return 0, fmt.Errorf("counting points: %w", err)
	}
	return int(count), nil
}

func (db *Index) Populated() bool {
	return db.populated.Load()
}

func (db *Index) Chunks(ctx context.Context) ([]commonModels.DocChunk, error) {
	var (
		chunks []commonModels.DocChunk
		offset *qdrant.PointId
	)
	for {
		points, err := db.client.Scroll(ctx, &qdrant.ScrollPoints{
			CollectionName: db.collection,
			Offset:         offset,
			Limit:          qdrant.PtrOf(uint32(scrollPageSize)),
			WithPayload:    qdrant.NewWithPayload(true),
		})
		if err != nil {
			return nil, fmt.Errorf("qdrant scroll failed: %w", err)
		}
		fetched := len(points)
		// the offset point is returned again as the first hit of the next page
		if offset != nil && len(points) > 0 && points[0].GetId().String() == offset.String() {
			points = points[1:]
		}
		for _, p := range points {
			chunks = append(chunks, chunkFromPayload(p.GetPayload()))
		}
		if fetched < scrollPageSize || len(points) == 0 {
			break
		}
		offset = points[len(points)-1].GetId()
	}
	vectorDB.SortChunks(chunks)
	return chunks, nil
}

func (db *Index) Reset(ctx context.Context) error {
	if err := db.client.DeleteCollection(ctx, db.collection); err != nil {
		return fmt.Errorf("dropping collection %s: %w", db.collection, err)
	}
	if d := db.dimension.Load(); d > 0 {
		if err := db.createCollection(ctx, int(d)); err != nil {
			return err
		}
	}
	db.populated.Store(false)
	return nil
}

func (db *Index) Close() error {
	db.logger.Info("Shutting down Qdrant")
	return db.client.Close()
}
