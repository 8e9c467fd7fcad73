package implementation

import (
	"context"
	"time"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/mapper"
	"ai-gateway-be/internal/model"
	"ai-gateway-be/internal/repository/contract"
	"ai-gateway-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
)

type KnowledgeChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.KnowledgeChunkMapper
}

func NewKnowledgeChunkRepository(db *gorm.DB) contract.KnowledgeChunkRepository {
	return &KnowledgeChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewKnowledgeChunkMapper(),
	}
}

func (r *KnowledgeChunkRepositoryImpl) CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error {
	if len(chunks) == 0 {
		return nil
	}
	models := make([]*model.KnowledgeChunk, len(chunks))
	for i, c := range chunks {
		models[i] = r.mapper.ToModel(c)
	}

	if err := r.db.WithContext(ctx).Create(models).Error; err != nil {
		return err
	}

	// Update generated IDs back to entities
	for i, m := range models {
		*chunks[i] = *r.mapper.ToEntity(m)
	}
	return nil
}

func (r *KnowledgeChunkRepositoryImpl) DeleteBySourceDoc(ctx context.Context, sourceDoc string) error {
	return r.db.WithContext(ctx).
		Unscoped().
		Where("source_doc = ?", sourceDoc).
		Delete(&model.KnowledgeChunk{}).Error
}

func (r *KnowledgeChunkRepositoryImpl) FindWithoutEmbedding(ctx context.Context, sourceDoc string) ([]*entity.KnowledgeChunk, error) {
	specs := []specification.Specification{specification.WithoutEmbedding{}}
	if sourceDoc != "" {
		specs = append(specs, specification.BySourceDoc{SourceDoc: sourceDoc})
	}

	query := r.db.WithContext(ctx)
	for _, spec := range specs {
		query = spec.Apply(query)
	}

	var models []*model.KnowledgeChunk
	if err := query.Order("source_doc, chunk_index").Find(&models).Error; err != nil {
		return nil, err
	}

	chunks := make([]*entity.KnowledgeChunk, len(models))
	for i, m := range models {
		chunks[i] = r.mapper.ToEntity(m)
	}
	return chunks, nil
}

func (r *KnowledgeChunkRepositoryImpl) SetEmbedding(ctx context.Context, chunkId uuid.UUID, embedding []float32, processedAt time.Time) error {
	vec := pgvector.NewVector(embedding)
	return r.db.WithContext(ctx).
		Model(&model.KnowledgeChunk{}).
		Where("id = ?", chunkId).
		Updates(map[string]interface{}{
			"embedding":    vec,
			"processed_at": processedAt,
		}).Error
}

func (r *KnowledgeChunkRepositoryImpl) RankBySimilarity(ctx context.Context, queryVector []float32, limit int, threshold float64) ([]*entity.ScoredChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding <=> query_vector) is the similarity we rank on.
	type result struct {
		model.KnowledgeChunk
		Similarity float64
	}
	var results []result

	vec := pgvector.NewVector(queryVector)

	err := r.db.WithContext(ctx).
		Table("knowledge_chunks").
		Select("knowledge_chunks.*, 1 - (embedding <=> ?) as similarity", vec).
		Where("embedding IS NOT NULL").
		Where("deleted_at IS NULL").
		Where("1 - (embedding <=> ?) >= ?", vec, threshold).
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*entity.ScoredChunk, len(results))
	for i, res := range results {
		scored[i] = &entity.ScoredChunk{
			Chunk:      r.mapper.ToEntity(&res.KnowledgeChunk),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
