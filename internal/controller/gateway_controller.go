package controller

import (
	"ai-gateway-be/internal/dto"
	"ai-gateway-be/internal/pkg/serverutils"
	"ai-gateway-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IGatewayController interface {
	RegisterRoutes(r fiber.Router)
	Query(ctx *fiber.Ctx) error
	History(ctx *fiber.Ctx) error
	CloseSession(ctx *fiber.Ctx) error
	CacheStats(ctx *fiber.Ctx) error
	ClearCache(ctx *fiber.Ctx) error
}

type gatewayController struct {
	gatewayService service.IGatewayService
}

func NewGatewayController(gatewayService service.IGatewayService) IGatewayController {
	return &gatewayController{
		gatewayService: gatewayService,
	}
}

func (c *gatewayController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/gateway/v1")
	h.Post("query", c.Query)
	h.Get("history/:sessionId", c.History)
	h.Delete("session/:sessionId", c.CloseSession)
	h.Get("cache/stats", c.CacheStats)
	h.Delete("cache", c.ClearCache)
}

func (c *gatewayController) Query(ctx *fiber.Ctx) error {
	var req dto.QueryRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.gatewayService.ProcessQuery(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success process query", res))
}

func (c *gatewayController) History(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("sessionId")
	limit := ctx.QueryInt("limit", 0)

	res, err := c.gatewayService.GetHistory(ctx.Context(), sessionId, limit)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success fetch history", res))
}

func (c *gatewayController) CloseSession(ctx *fiber.Ctx) error {
	sessionId := ctx.Params("sessionId")

	if err := c.gatewayService.CloseSession(ctx.Context(), sessionId); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success close session", nil))
}

func (c *gatewayController) CacheStats(ctx *fiber.Ctx) error {
	res, err := c.gatewayService.CacheStats(ctx.Context())
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success fetch cache stats", res))
}

func (c *gatewayController) ClearCache(ctx *fiber.Ctx) error {
	if err := c.gatewayService.ClearCache(ctx.Context()); err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success clear cache", nil))
}
