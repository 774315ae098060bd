package controller

import (
	"errors"

	"welding-recommender-be/internal/dto"
	"welding-recommender-be/internal/pkg/serverutils"
	"welding-recommender-be/internal/repository/contract"
	"welding-recommender-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type IAdvisorController interface {
	RegisterRoutes(r fiber.Router)
	CreateSession(ctx *fiber.Ctx) error
	GetSession(ctx *fiber.Ctx) error
	SendMessage(ctx *fiber.Ctx) error
	Select(ctx *fiber.Ctx) error
	Advance(ctx *fiber.Ctx) error
	Reset(ctx *fiber.Ctx) error
	Finalize(ctx *fiber.Ctx) error
	Transcript(ctx *fiber.Ctx) error
}

type advisorController struct {
	service service.IAdvisorService
}

func NewAdvisorController(service service.IAdvisorService) IAdvisorController {
	return &advisorController{service: service}
}

func (c *advisorController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/advisor/v1")
	h.Use(serverutils.JwtMiddleware)
	h.Post("/session", c.CreateSession)
	h.Get("/session/:id", c.GetSession)
	h.Post("/session/:id/message", c.SendMessage)
	h.Post("/session/:id/select", c.Select)
	h.Post("/session/:id/next", c.Advance)
	h.Post("/session/:id/reset", c.Reset)
	h.Post("/session/:id/finalize", c.Finalize)
	h.Get("/session/:id/transcript", c.Transcript)
}

func mapNotFound(err error) error {
	if errors.Is(err, contract.ErrSessionNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "session not found")
	}
	return err
}

func (c *advisorController) CreateSession(ctx *fiber.Ctx) error {
	var req dto.CreateSessionRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.CreateSession(ctx.Context(), &req)
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success create session", res))
}

func (c *advisorController) GetSession(ctx *fiber.Ctx) error {
	res, err := c.service.GetSession(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return mapNotFound(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get session", res))
}

func (c *advisorController) SendMessage(ctx *fiber.Ctx) error {
	var req dto.SendMessageRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.SendMessage(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return mapNotFound(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success process message", res))
}

func (c *advisorController) Select(ctx *fiber.Ctx) error {
	var req dto.SelectRequest
	if err := ctx.BodyParser(&req); err != nil {
		return err
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Select(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return mapNotFound(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success select product", res))
}

func (c *advisorController) Advance(ctx *fiber.Ctx) error {
	var req dto.AdvanceRequest
	if len(ctx.Body()) > 0 {
		if err := ctx.BodyParser(&req); err != nil {
			return err
		}
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Advance(ctx.Context(), ctx.Params("id"), &req)
	if err != nil {
		return mapNotFound(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success advance session", res))
}

func (c *advisorController) Reset(ctx *fiber.Ctx) error {
	res, err := c.service.Reset(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return mapNotFound(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success reset session", res))
}

func (c *advisorController) Finalize(ctx *fiber.Ctx) error {
	res, err := c.service.Finalize(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return mapNotFound(err)
	}

	return ctx.JSON(serverutils.SuccessResponse("Success finalize session", res))
}

func (c *advisorController) Transcript(ctx *fiber.Ctx) error {
	res, err := c.service.Transcript(ctx.Context(), ctx.Params("id"))
	if err != nil {
		return err
	}

	return ctx.JSON(serverutils.SuccessResponse("Success get transcript", res))
}
