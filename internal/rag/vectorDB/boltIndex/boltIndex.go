package boltIndex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/akolanti/RecallAPI/internal/domain/commonModels"
	"github.com/akolanti/RecallAPI/internal/domain/ragErrors"
	"github.com/akolanti/RecallAPI/internal/rag/vectorDB/memoryIndex"
	"github.com/akolanti/RecallAPI/pkg/logger_i"
	"go.etcd.io/bbolt"
)

var (
	bucketChunks = []byte("chunks")
	bucketMeta   = []byte("meta")
	keyIdentity  = []byte("identity")
)

type storedChunk struct {
	Chunk  commonModels.DocChunk `json:"chunk"`
	Vector []float32             `json:"vector"`
}

// Index persists chunks and vectors in bbolt and serves queries from an
// in-memory copy loaded at open. Writes go to disk first, then to memory,
// under one writer lock.
type Index struct {
	writeMu sync.Mutex
	db      *bbolt.DB
	mem     *memoryIndex.Index
	logger  *logger_i.Logger
}

func Open(path string) (*Index, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating index dir: %w", err)
		}
	}
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 2 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, b := range [][]byte{bucketChunks, bucketMeta} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	ix := &Index{
		db:     db,
		mem:    memoryIndex.New(),
		logger: logger_i.NewLogger("bolt_index"),
	}
	if err := ix.load(); err != nil {
		db.Close()
		return nil, err
	}
	return ix, nil
}

// load copies persisted chunks into memory. Identity is checked later by Bind.
func (ix *Index) load() error {
	count := 0
	err := ix.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).ForEach(func(k, v []byte) error {
			var sc storedChunk
			if err := json.Unmarshal(v, &sc); err != nil {
				return fmt.Errorf("decoding chunk %s: %w", k, err)
			}
			count++
			return ix.mem.Insert(context.Background(), sc.Chunk, sc.Vector)
		})
	})
	if err != nil {
		return err
	}
	ix.logger.Info("Loaded persisted index", "chunks", count)
	return nil
}

func (ix *Index) storedIdentity() (commonModels.EmbeddingIdentity, bool, error) {
	var (
		id    commonModels.EmbeddingIdentity
		found bool
	)
	err := ix.db.View(func(tx *bbolt.Tx) error {
		raw := tx.Bucket(bucketMeta).Get(keyIdentity)
		if raw == nil {
			return nil
		}
		found = true
		return json.Unmarshal(raw, &id)
	})
	return id, found, err
}

func (ix *Index) Bind(ctx context.Context, identity commonModels.EmbeddingIdentity) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	stored, found, err := ix.storedIdentity()
	if err != nil {
		return fmt.Errorf("reading index identity: %w", err)
	}
	if found && stored != identity {
		return fmt.Errorf("%w: index built with %s, embedder is %s", ragErrors.ErrIdentityMismatch, stored, identity)
	}
	if !found {
		raw, err := json.Marshal(identity)
		if err != nil {
			return err
		}
		if err := ix.db.Update(func(tx *bbolt.Tx) error {
			return tx.Bucket(bucketMeta).Put(keyIdentity, raw)
		}); err != nil {
			return fmt.Errorf("persisting index identity: %w", err)
		}
	}
	return ix.mem.Bind(ctx, identity)
}

func (ix *Index) Insert(ctx context.Context, chunk commonModels.DocChunk, vector []float32) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	if id, bound := ix.mem.Identity(); bound && len(vector) != id.Dimension {
		return fmt.Errorf("%w: expected %d, got %d", ragErrors.ErrDimensionMismatch, id.Dimension, len(vector))
	}
	raw, err := json.Marshal(storedChunk{Chunk: chunk, Vector: vector})
	if err != nil {
		return err
	}
	if err := ix.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChunks).Put([]byte(chunk.Key()), raw)
	}); err != nil {
		return fmt.Errorf("persisting chunk %s: %w", chunk.Key(), err)
	}
	return ix.mem.Insert(ctx, chunk, vector)
}

func (ix *Index) RemoveAll(ctx context.Context, docId string) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	prefix := []byte(docId + "#")
	err := ix.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(bucketChunks)
		var keys [][]byte
		c := b.Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			keys = append(keys, bytes.Clone(k))
		}
		// deleting under a live cursor skips entries
		for _, k := range keys {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("removing document %s: %w", docId, err)
	}
	return ix.mem.RemoveAll(ctx, docId)
}

func (ix *Index) Query(ctx context.Context, vector []float32, k int) (commonModels.RetrievalResult, error) {
	return ix.mem.Query(ctx, vector, k)
}

func (ix *Index) Size(ctx context.Context) (int, error) {
	return ix.mem.Size(ctx)
}

func (ix *Index) Populated() bool {
	return ix.mem.Populated()
}

func (ix *Index) Chunks(ctx context.Context) ([]commonModels.DocChunk, error) {
	return ix.mem.Chunks(ctx)
}

// Reset drops every chunk. The identity binding survives a corpus reset.
func (ix *Index) Reset(ctx context.Context) error {
	ix.writeMu.Lock()
	defer ix.writeMu.Unlock()

	err := ix.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketChunks); err != nil {
			return err
		}
		_, err := tx.CreateBucket(bucketChunks)
		return err
	})
	if err != nil {
		return fmt.Errorf("resetting index: %w", err)
	}
	return ix.mem.Reset(ctx)
}

func (ix *Index) Close() error {
	return ix.db.Close()
}
