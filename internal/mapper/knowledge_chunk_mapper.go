package mapper

import (
	"encoding/json"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
)

type KnowledgeChunkMapper struct{}

func NewKnowledgeChunkMapper() *KnowledgeChunkMapper {
	return &KnowledgeChunkMapper{}
}

func (m *KnowledgeChunkMapper) ToEntity(c *model.KnowledgeChunk) *entity.KnowledgeChunk {
	var meta map[string]interface{}
	if len(c.Metadata) > 0 {
		_ = json.Unmarshal(c.Metadata, &meta)
	}
	e := &entity.KnowledgeChunk{
		Id:          c.Id,
		SourceDoc:   c.SourceDoc,
		ChunkIndex:  c.ChunkIndex,
		Content:     c.Content,
		Metadata:    meta,
		ProcessedAt: c.ProcessedAt,
		CreatedAt:   c.CreatedAt,
	}
	if c.Embedding != nil {
		e.Embedding = c.Embedding.Slice()
	}
	return e
}

func (m *KnowledgeChunkMapper) ToModel(e *entity.KnowledgeChunk) *model.KnowledgeChunk {
	var meta datatypes.JSON
	if e.Metadata != nil {
		if raw, err := json.Marshal(e.Metadata); err == nil {
			meta = raw
		}
	}
	c := &model.KnowledgeChunk{
		Id:          e.Id,
		SourceDoc:   e.SourceDoc,
		ChunkIndex:  e.ChunkIndex,
		Content:     e.Content,
		Metadata:    meta,
		ProcessedAt: e.ProcessedAt,
		CreatedAt:   e.CreatedAt,
	}
	if e.Embedding != nil {
		v := pgvector.NewVector(e.Embedding)
		c.Embedding = &v
	}
	return c
}
