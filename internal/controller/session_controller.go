package controller

import (
	"errors"

	"recall-be/internal/dto"
	"recall-be/internal/pkg/serverutils"
	"recall-be/internal/service"

	"github.com/gofiber/fiber/v2"
)

type ISessionController interface {
	RegisterRoutes(r fiber.Router)
	Start(ctx *fiber.Ctx) error
	Abandon(ctx *fiber.Ctx) error
	Show(ctx *fiber.Ctx) error
	Transcript(ctx *fiber.Ctx) error
	Metrics(ctx *fiber.Ctx) error
}

type sessionController struct {
	service service.ISessionService
	auth    fiber.Handler
}

func NewSessionController(service service.ISessionService, auth fiber.Handler) ISessionController {
	if auth == nil {
		auth = serverutils.PassThrough
	}
	return &sessionController{service: service, auth: auth}
}

func (c *sessionController) RegisterRoutes(r fiber.Router) {
	h := r.Group("/sessions")
	h.Use(c.auth)
	h.Post("/start", c.Start)
	h.Post("/:id/abandon", c.Abandon)
	h.Get("/:id/transcript", c.Transcript)
	h.Get("/:id/metrics", c.Metrics)
	h.Get("/:id", c.Show)
}

func (c *sessionController) Start(ctx *fiber.Ctx) error {
	var req dto.StartSessionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}

	if err := serverutils.ValidateRequest(req); err != nil {
		return err
	}

	res, err := c.service.Start(ctx.UserContext(), &req)
	if err != nil {
		return c.fail(ctx, err)
	}

	if res.IsResume {
		return ctx.JSON(serverutils.SuccessResponse("Session resumed", res))
	}
	body := serverutils.SuccessResponse("Session started", res)
	body.Code = fiber.StatusCreated
	return ctx.Status(fiber.StatusCreated).JSON(body)
}

func (c *sessionController) Abandon(ctx *fiber.Ctx) error {
	res, err := c.service.Abandon(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Session abandoned", res))
}

func (c *sessionController) Show(ctx *fiber.Ctx) error {
	res, err := c.service.Show(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success show session", res))
}

func (c *sessionController) Transcript(ctx *fiber.Ctx) error {
	res, err := c.service.Transcript(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get transcript", res))
}

func (c *sessionController) Metrics(ctx *fiber.Ctx) error {
	res, err := c.service.Metrics(ctx.UserContext(), ctx.Params("id"))
	if err != nil {
		return c.fail(ctx, err)
	}
	return ctx.JSON(serverutils.SuccessResponse("Success get session metrics", res))
}

// fail maps service sentinels to statuses; anything else goes to the error middleware.
func (c *sessionController) fail(ctx *fiber.Ctx, err error) error {
	var code int
	switch {
	case errors.Is(err, service.ErrRecallSetNotFound), errors.Is(err, service.ErrSessionNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, service.ErrSetArchived), errors.Is(err, service.ErrSessionNotInProgress):
		code = fiber.StatusConflict
	case errors.Is(err, service.ErrNoDuePoints):
		code = fiber.StatusUnprocessableEntity
	default:
		return err
	}
	return ctx.Status(code).JSON(serverutils.ErrorResponse(code, err.Error()))
}
