package mapper

import (
	"ai-gateway-be/internal/entity"
	"ai-gateway-be/internal/model"
)

type ChatMapper struct{}

func NewChatMapper() *ChatMapper {
	return &ChatMapper{}
}

func (m *ChatMapper) SessionToEntity(s *model.ChatSession) *entity.ChatSession {
	e := &entity.ChatSession{
		Id:         s.Id,
		UserId:     s.UserId,
		CreatedAt:  s.CreatedAt,
		LastSeenAt: s.LastSeenAt,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.DeletedAt.Valid {
		t := s.DeletedAt.Time
		e.DeletedAt = &t
		e.IsDeleted = true
	}
	return e
}

func (m *ChatMapper) SessionToModel(e *entity.ChatSession) *model.ChatSession {
	return &model.ChatSession{
		Id:         e.Id,
		UserId:     e.UserId,
		CreatedAt:  e.CreatedAt,
		LastSeenAt: e.LastSeenAt,
		UpdatedAt:  e.UpdatedAt,
	}
}

func (m *ChatMapper) MessageToEntity(msg *model.ChatMessage) *entity.ChatMessage {
	return &entity.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Content:       msg.Content,
		Source:        msg.Source,
		Confidence:    msg.Confidence,
		LatencyMs:     msg.LatencyMs,
		ContextChunks: msg.ContextChunks,
		CreatedAt:     msg.CreatedAt,
	}
}

func (m *ChatMapper) MessageToModel(msg *entity.ChatMessage) *model.ChatMessage {
	return &model.ChatMessage{
		Id:            msg.Id,
		ChatSessionId: msg.ChatSessionId,
		Role:          msg.Role,
		Content:       msg.Content,
		Source:        msg.Source,
		Confidence:    msg.Confidence,
		LatencyMs:     msg.LatencyMs,
		ContextChunks: msg.ContextChunks,
		CreatedAt:     msg.CreatedAt,
	}
}
