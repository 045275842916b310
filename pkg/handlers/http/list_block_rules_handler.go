package http

import (
	"github.com/LeadFlux/AbuseGate/pkg/domain/blockrule"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type listBlockRulesHandler struct {
	logger *logrus.Logger
	repo   blockrule.Repository
}

func NewListBlockRulesHandler(logger *logrus.Logger, repo blockrule.Repository) Handler {
	return &listBlockRulesHandler{logger: logger, repo: repo}
}

func (h *listBlockRulesHandler) Handle(ctx *fiber.Ctx) error {
	rules, err := h.repo.List(ctx.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list block rules")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list rules"})
	}
	return ctx.Status(fiber.StatusOK).JSON(rules)
}
