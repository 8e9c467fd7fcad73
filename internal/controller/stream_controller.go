package controller

import (
	"context"
	"sync"

	"ai-gateway-be/internal/dto"
	"ai-gateway-be/internal/pkg/logger"
	"ai-gateway-be/internal/service"
	"ai-gateway-be/pkg/pipeline"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
)

type streamInbound struct {
	SessionId string              `json:"session_id"`
	Query     string              `json:"query"`
	Overrides *dto.QueryOverrides `json:"overrides,omitempty"`
}

type streamOutbound struct {
	Type       string  `json:"type"` // "token" | "done" | "error"
	Content    string  `json:"content,omitempty"`
	Source     string  `json:"source,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
	Code       string  `json:"code,omitempty"`
	Message    string  `json:"message,omitempty"`
}

// StreamController upgrades to a websocket and relays response fragments as
// the pipeline produces them. One in-flight query per connection.
type StreamController struct {
	gatewayService service.IGatewayService
	log            logger.ILogger
}

func NewStreamController(gatewayService service.IGatewayService, log logger.ILogger) *StreamController {
	return &StreamController{
		gatewayService: gatewayService,
		log:            log,
	}
}

func (c *StreamController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/gateway/v1")
	h.Use("stream", func(ctx *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(ctx) {
			return ctx.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	h.Get("stream", websocket.New(c.serve))
}

func (c *StreamController) serve(conn *websocket.Conn) {
	defer conn.Close()

	for {
		var in streamInbound
		if err := conn.ReadJSON(&in); err != nil {
			return
		}
		if in.SessionId == "" || in.Query == "" {
			_ = conn.WriteJSON(streamOutbound{
				Type:    "error",
				Code:    pipeline.CodeInvalidInput,
				Message: "session_id and query are required",
			})
			continue
		}

		c.handleQuery(conn, &in)
	}
}

func (c *StreamController) handleQuery(conn *websocket.Conn, in *streamInbound) {
	// Websocket writes are not concurrency-safe; the sink and the final write
	// share one mutex.
	var writeMu sync.Mutex
	sink := func(token string) {
		writeMu.Lock()
		defer writeMu.Unlock()
		if err := conn.WriteJSON(streamOutbound{Type: "token", Content: token}); err != nil {
			c.log.Debug("StreamController", "token write failed", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	res, err := c.gatewayService.StreamQuery(context.Background(), &dto.QueryRequest{
		SessionId: in.SessionId,
		Query:     in.Query,
		Overrides: in.Overrides,
	}, sink)

	writeMu.Lock()
	defer writeMu.Unlock()
	if err != nil {
		_ = conn.WriteJSON(streamOutbound{
			Type:    "error",
			Code:    pipeline.CodeOf(err),
			Message: err.Error(),
		})
		return
	}
	_ = conn.WriteJSON(streamOutbound{
		Type:       "done",
		Source:     res.Source,
		Confidence: res.Confidence,
	})
}
