package cluster

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
)

// QdrantIndex is a VectorIndex backed by a Qdrant collection, grounded
// on Tangerg-lynx/ai/providers/vectorstores/qdrant.VectorStore's
// collection-lifecycle and point-upsert shape, narrowed to the single
// upsert/neighbor-query pair clustering needs.
type QdrantIndex struct {
	client         *qdrant.Client
	collectionName string
}

// NewQdrantIndex wraps an already-connected client. The collection is
// created lazily on the first Upsert, once the vector dimension is
// known.
func NewQdrantIndex(client *qdrant.Client, collectionName string) *QdrantIndex {
	return &QdrantIndex{client: client, collectionName: collectionName}
}

func (q *QdrantIndex) ensureCollection(ctx context.Context, dims int) error {
	exists, err := q.client.CollectionExists(ctx, q.collectionName)
	if err != nil {
		return fmt.Errorf("cluster: check qdrant collection %s: %w", q.collectionName, err)
	}
	if exists {
		return nil
	}
	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collectionName,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     uint64(dims),
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("cluster: create qdrant collection %s: %w", q.collectionName, err)
	}
	return nil
}

// Upsert stores id's vector, creating the backing collection on first
// use.
func (q *QdrantIndex) Upsert(ctx context.Context, id string, vector []float64) error {
	if err := q.ensureCollection(ctx, len(vector)); err != nil {
		return err
	}
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collectionName,
		Points: []*qdrant.PointStruct{{
			Id:      qdrant.NewID(id),
			Vectors: qdrant.NewVectors(toFloat32(vector)...),
		}},
	})
	if err != nil {
		return fmt.Errorf("cluster: qdrant upsert %s: %w", id, err)
	}
	return nil
}

// Neighbors returns the IDs of points within threshold cosine
// similarity of vector, excluding id itself.
func (q *QdrantIndex) Neighbors(ctx context.Context, id string, vector []float64, threshold float64, limit int) ([]string, error) {
	scored, err := q.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: q.collectionName,
		Query:          qdrant.NewQuery(toFloat32(vector)...),
		Limit:          u64ptr(uint64(limit)),
		ScoreThreshold: f32ptr(float32(threshold)),
	})
	if err != nil {
		return nil, fmt.Errorf("cluster: qdrant query %s: %w", id, err)
	}

	ids := make([]string, 0, len(scored))
	for _, p := range scored {
		pointID := p.GetId()
		if pointID == nil {
			continue
		}
		uuid := pointID.GetUuid()
		if uuid == "" || uuid == id {
			continue
		}
		ids = append(ids, uuid)
	}
	return ids, nil
}

func toFloat32(v []float64) []float32 {
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(x)
	}
	return out
}

func u64ptr(v uint64) *uint64 { return &v }
func f32ptr(v float32) *float32 { return &v }
