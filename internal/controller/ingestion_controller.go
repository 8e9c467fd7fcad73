package controller

import (
	"ai-gateway-be/internal/dto"
	"ai-gateway-be/internal/pkg/serverutils"
	"ai-gateway-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IIngestionController interface {
	RegisterRoutes(r fiber.Router)
	Ingest(ctx *fiber.Ctx) error
}

type ingestionController struct {
	ingestionService service.IIngestionService
}

func NewIngestionController(ingestionService service.IIngestionService) IIngestionController {
	return &ingestionController{
		ingestionService: ingestionService,
	}
}

func (c *ingestionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/knowledge/v1")
	h.Post("ingest", c.Ingest)
}

func (c *ingestionController) Ingest(ctx *fiber.Ctx) error {
	var req dto.IngestDocumentRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.ingestionService.IngestDocument(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success ingest document", res))
}
