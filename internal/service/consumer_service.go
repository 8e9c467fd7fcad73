package service

import (
	"context"
	"encoding/json"
	"time"

	"ai-gateway-be/internal/dto"
	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/internal/repository/unitofwork"
	"ai-gateway-be/pkg/embedding"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService runs the background jobs: embedding freshly ingested chunks
// and the periodic relevance-model refresh.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	embedTopic        string
	trainTopic        string
	uowFactory        unitofwork.RepositoryFactory
	embeddingProvider embedding.EmbeddingProvider
	log               logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	embedTopic string,
	trainTopic string,
	uowFactory unitofwork.RepositoryFactory,
	embeddingProvider embedding.EmbeddingProvider,
	log logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		embedTopic:        embedTopic,
		trainTopic:        trainTopic,
		uowFactory:        uowFactory,
		embeddingProvider: embeddingProvider,
		log:               log,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	embedMessages, err := cs.pubSub.Subscribe(ctx, cs.embedTopic)
	if err != nil {
		return err
	}
	trainMessages, err := cs.pubSub.Subscribe(ctx, cs.trainTopic)
	if err != nil {
		return err
	}

	go func() {
		for msg := range embedMessages {
			cs.processEmbedJob(ctx, msg)
		}
	}()
	go func() {
		for msg := range trainMessages {
			cs.processTrainJob(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processEmbedJob(ctx context.Context, msg *message.Message) {
	var payload dto.PublishEmbedChunksMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("ConsumerService", "failed to unmarshal embed job", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack() // malformed messages must not retry forever
		return
	}

	uow := cs.uowFactory.NewUnitOfWork(ctx)
	chunks, err := uow.KnowledgeChunkRepository().FindWithoutEmbedding(ctx, payload.SourceDoc)
	if err != nil {
		cs.log.Error("ConsumerService", "failed to list unprocessed chunks", map[string]interface{}{
			"source_doc": payload.SourceDoc,
			"error":      err.Error(),
		})
		msg.Nack()
		return
	}

	embedded := 0
	for _, chunk := range chunks {
		vec, err := cs.embeddingProvider.Embed(ctx, chunk.Content)
		if err != nil {
			cs.log.Warn("ConsumerService", "embedding failed for chunk", map[string]interface{}{
				"chunk_id": chunk.Id.String(),
				"error":    err.Error(),
			})
			continue
		}
		if err := uow.KnowledgeChunkRepository().SetEmbedding(ctx, chunk.Id, vec, time.Now()); err != nil {
			cs.log.Warn("ConsumerService", "failed to store embedding", map[string]interface{}{
				"chunk_id": chunk.Id.String(),
				"error":    err.Error(),
			})
			continue
		}
		embedded++
	}

	cs.log.Info("ConsumerService", "embed job finished", map[string]interface{}{
		"source_doc": payload.SourceDoc,
		"pending":    len(chunks),
		"embedded":   embedded,
	})
	msg.Ack()
}

func (cs *consumerService) processTrainJob(ctx context.Context, msg *message.Message) {
	var payload dto.PublishTrainModelMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.log.Error("ConsumerService", "failed to unmarshal train job", map[string]interface{}{
			"error": err.Error(),
		})
		msg.Ack()
		return
	}

	// Placeholder pass over the corpus until a real ranking model lands.
	// TODO: replace with the scheduled relevance-model refresh once the
	// offline training pipeline is wired up.
	cs.log.Info("ConsumerService", "train job received", map[string]interface{}{
		"source_doc": payload.SourceDoc,
	})
	msg.Ack()
}
