package storage

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/forkcast/recsys/pkg/models"
)

// VectorIndex stores one embedding per recipe in a pgvector column and serves
// nearest-neighbor queries over it with the cosine distance operator.
type VectorIndex struct {
	db         Querier
	dimensions int
	logger     *logrus.Logger
}

func NewVectorIndex(db Querier, dimensions int, logger *logrus.Logger) *VectorIndex {
	return &VectorIndex{
		db:         db,
		dimensions: dimensions,
		logger:     logger,
	}
}

// Nearest returns up to k candidates closest to the query vector, excluding
// the given recipe ids. Scores are cosine distances; the result is ordered
// ascending, so the best match comes first. Fewer than k rows is not an
// error.
//
// pgx has no codec for pgvector's vector OID, so vectors cross the wire as
// real[]: parameters are cast to vector in SQL, reads cast back to real[].
func (vi *VectorIndex) Nearest(ctx context.Context, query []float32, k int, exclude []int64) ([]models.Candidate, error) {
	if len(query) != vi.dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d", len(query), vi.dimensions)
	}
	if exclude == nil {
		exclude = []int64{}
	}

	rows, err := vi.db.Query(ctx, `
		SELECT recipe_id, embedding <=> $1::vector AS score
		FROM recipe_embeddings
		WHERE NOT (recipe_id = ANY($2))
		ORDER BY embedding <=> $1::vector
		LIMIT $3`,
		query, exclude, k)
	if err != nil {
		return nil, fmt.Errorf("nearest-neighbor query failed: %w", err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		var c models.Candidate
		if err := rows.Scan(&c.RecipeID, &c.Score); err != nil {
			return nil, fmt.Errorf("failed to scan candidate: %w", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// Embeddings batch-fetches vectors by recipe id. Ids missing from the index
// are simply absent from the returned map.
func (vi *VectorIndex) Embeddings(ctx context.Context, ids []int64) (map[int64][]float32, error) {
	if len(ids) == 0 {
		return map[int64][]float32{}, nil
	}

	rows, err := vi.db.Query(ctx,
		`SELECT recipe_id, embedding::real[] FROM recipe_embeddings WHERE recipe_id = ANY($1)`,
		ids)
	if err != nil {
		return nil, fmt.Errorf("failed to query embeddings: %w", err)
	}
	defer rows.Close()

	embeddings := make(map[int64][]float32, len(ids))
	for rows.Next() {
		var id int64
		var embedding []float32
		if err := rows.Scan(&id, &embedding); err != nil {
			return nil, fmt.Errorf("failed to scan embedding: %w", err)
		}
		embeddings[id] = embedding
	}
	return embeddings, rows.Err()
}

// ListRecipeIDs enumerates every recipe id present in the index.
func (vi *VectorIndex) ListRecipeIDs(ctx context.Context) ([]int64, error) {
	rows, err := vi.db.Query(ctx, `SELECT recipe_id FROM recipe_embeddings ORDER BY recipe_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate index: %w", err)
	}
	return scanIDs(rows)
}

func (vi *VectorIndex) Upsert(ctx context.Context, recipeID int64, embedding []float32) error {
	if len(embedding) != vi.dimensions {
		return fmt.Errorf("embedding has %d dimensions, index expects %d", len(embedding), vi.dimensions)
	}

	_, err := vi.db.Exec(ctx, `
		INSERT INTO recipe_embeddings (recipe_id, embedding, updated_at)
		VALUES ($1, $2::vector, now())
		ON CONFLICT (recipe_id)
		DO UPDATE SET embedding = EXCLUDED.embedding, updated_at = now()`,
		recipeID, embedding)
	if err != nil {
		return fmt.Errorf("failed to upsert embedding: %w", err)
	}
	return nil
}

func (vi *VectorIndex) Delete(ctx context.Context, recipeID int64) error {
	_, err := vi.db.Exec(ctx,
		`DELETE FROM recipe_embeddings WHERE recipe_id = $1`,
		recipeID)
	if err != nil {
		return fmt.Errorf("failed to delete embedding: %w", err)
	}
	return nil
}
