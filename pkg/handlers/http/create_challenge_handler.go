package http

import (
	"github.com/LeadFlux/AbuseGate/pkg/captcha"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type createChallengeRequest struct {
	Difficulty string `json:"difficulty"`
}

type createChallengeHandler struct {
	logger  *logrus.Logger
	manager *captcha.Manager
}

func NewCreateChallengeHandler(logger *logrus.Logger, manager *captcha.Manager) Handler {
	return &createChallengeHandler{logger: logger, manager: manager}
}

func (h *createChallengeHandler) Handle(ctx *fiber.Ctx) error {
	var req createChallengeRequest
	if err := ctx.BodyParser(&req); err != nil && len(ctx.Body()) > 0 {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	difficulty := captcha.DifficultyMedium
	if req.Difficulty != "" {
		parsed, ok := captcha.ParseDifficulty(req.Difficulty)
		if !ok {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid difficulty"})
		}
		difficulty = parsed
	}

	userCtx := &types.UserContext{
		IPAddress: ctx.IP(),
		UserAgent: ctx.Get(fiber.HeaderUserAgent),
	}
	challenge, err := h.manager.CreateChallenge(ctx.Context(), userCtx, difficulty)
	if err != nil {
		h.logger.WithError(err).Error("failed to create challenge")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create challenge"})
	}
	return ctx.Status(fiber.StatusCreated).JSON(challenge)
}
