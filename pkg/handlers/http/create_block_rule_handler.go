package http

import (
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/domain/blockrule"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type createBlockRuleRequest struct {
	Target     string `json:"target"`
	Value      string `json:"value"`
	Reason     string `json:"reason"`
	TTLSeconds int    `json:"ttl_seconds"`
}

type createBlockRuleHandler struct {
	logger *logrus.Logger
	repo   blockrule.Repository
}

func NewCreateBlockRuleHandler(logger *logrus.Logger, repo blockrule.Repository) Handler {
	return &createBlockRuleHandler{logger: logger, repo: repo}
}

func (h *createBlockRuleHandler) Handle(ctx *fiber.Ctx) error {
	var req createBlockRuleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	rule := &blockrule.Rule{
		Target: blockrule.Target(req.Target),
		Value:  req.Value,
		Reason: req.Reason,
	}
	if req.TTLSeconds > 0 {
		expires := time.Now().Add(time.Duration(req.TTLSeconds) * time.Second)
		rule.ExpiresAt = &expires
	}
	if err := rule.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.repo.Save(ctx.Context(), rule); err != nil {
		h.logger.WithError(err).Error("failed to create block rule")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create rule"})
	}
	return ctx.Status(fiber.StatusCreated).JSON(rule)
}
