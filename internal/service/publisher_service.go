package service

import (
	"encoding/json"

	"ai-gateway-be/internal/dto"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
)

type IPublisherService interface {
	PublishEmbedChunks(sourceDoc string) error
	PublishTrainModel(sourceDoc string) error
}

type publisherService struct {
	pubSub     *gochannel.GoChannel
	embedTopic string
	trainTopic string
}

func NewPublisherService(pubSub *gochannel.GoChannel, embedTopic, trainTopic string) IPublisherService {
	return &publisherService{
		pubSub:     pubSub,
		embedTopic: embedTopic,
		trainTopic: trainTopic,
	}
}

func (ps *publisherService) PublishEmbedChunks(sourceDoc string) error {
	payload, err := json.Marshal(dto.PublishEmbedChunksMessage{SourceDoc: sourceDoc})
	if err != nil {
		return err
	}
	return ps.pubSub.Publish(ps.embedTopic, message.NewMessage(watermill.NewUUID(), payload))
}

func (ps *publisherService) PublishTrainModel(sourceDoc string) error {
	payload, err := json.Marshal(dto.PublishTrainModelMessage{SourceDoc: sourceDoc})
	if err != nil {
		return err
	}
	return ps.pubSub.Publish(ps.trainTopic, message.NewMessage(watermill.NewUUID(), payload))
}
