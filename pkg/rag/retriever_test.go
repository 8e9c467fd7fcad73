package rag

import (
	"context"
	"errors"
	"testing"
	"time"

	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/pkg/logger"

	"github.com/google/uuid"
)

type fakeEmbedder struct {
	vec []float32
	err error
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return f.vec, f.err
}

type fakeChunkRepo struct {
	scored  []*entity.ScoredChunk
	rankErr error
	gotVec  []float32
	gotLim  int
}

func (f *fakeChunkRepo) CreateBulk(ctx context.Context, chunks []*entity.KnowledgeChunk) error {
	return nil
}

func (f *fakeChunkRepo) DeleteBySourceDoc(ctx context.Context, sourceDoc string) error { return nil }

func (f *fakeChunkRepo) FindWithoutEmbedding(ctx context.Context, sourceDoc string) ([]*entity.KnowledgeChunk, error) {
	return nil, nil
}

func (f *fakeChunkRepo) SetEmbedding(ctx context.Context, chunkId uuid.UUID, embedding []float32, processedAt time.Time) error {
	return nil
}

func (f *fakeChunkRepo) RankBySimilarity(ctx context.Context, queryVector []float32, limit int, threshold float64) ([]*entity.ScoredChunk, error) {
	f.gotVec = queryVector
	f.gotLim = limit
	return f.scored, f.rankErr
}

func scoredChunk(content string, similarity float64) *entity.ScoredChunk {
	return &entity.ScoredChunk{
		Chunk:      &entity.KnowledgeChunk{Id: uuid.New(), Content: content},
		Similarity: similarity,
	}
}

func TestRetrieverReturnsRankedChunks(t *testing.T) {
	repo := &fakeChunkRepo{scored: []*entity.ScoredChunk{
		scoredChunk("best match", 0.91),
		scoredChunk("second match", 0.72),
	}}
	r := NewRetriever(&fakeEmbedder{vec: []float32{0.1, 0.2}}, repo, logger.NewNopLogger(), 5, 0.35)

	got := r.Retrieve(context.Background(), "a question")
	if len(got) != 2 {
		t.Fatalf("chunks = %d, want 2", len(got))
	}
	if got[0].Chunk.Content != "best match" {
		t.Errorf("best-first ordering broken: %q", got[0].Chunk.Content)
	}
	if repo.gotLim != 5 {
		t.Errorf("limit = %d, want 5", repo.gotLim)
	}
	if len(repo.gotVec) != 2 {
		t.Errorf("query vector not passed through")
	}
}

func TestRetrieverEmbedFailureDegrades(t *testing.T) {
	repo := &fakeChunkRepo{scored: []*entity.ScoredChunk{scoredChunk("never reached", 0.9)}}
	r := NewRetriever(&fakeEmbedder{err: errors.New("embedder down")}, repo, logger.NewNopLogger(), 5, 0.35)

	if got := r.Retrieve(context.Background(), "a question"); got != nil {
		t.Errorf("expected empty result when embedding fails, got %d chunks", len(got))
	}
	if repo.gotVec != nil {
		t.Error("ranking must not run without a query vector")
	}
}

func TestRetrieverRankFailureDegrades(t *testing.T) {
	repo := &fakeChunkRepo{rankErr: errors.New("db down")}
	r := NewRetriever(&fakeEmbedder{vec: []float32{0.1}}, repo, logger.NewNopLogger(), 5, 0.35)

	if got := r.Retrieve(context.Background(), "a question"); got != nil {
		t.Errorf("expected empty result when ranking fails, got %d chunks", len(got))
	}
}

func TestContextText(t *testing.T) {
	if ContextText(nil) != "" {
		t.Error("empty chunk list must render empty context")
	}

	text := ContextText([]*entity.ScoredChunk{
		scoredChunk("first", 0.9),
		scoredChunk("second", 0.8),
	})
	if text != "first\n\nsecond" {
		t.Errorf("ContextText = %q", text)
	}
}
