package http

import (
	"github.com/LeadFlux/AbuseGate/pkg/domain/georule"
	"github.com/LeadFlux/AbuseGate/pkg/geo"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type deleteGeoRuleHandler struct {
	logger   *logrus.Logger
	repo     georule.Repository
	analyzer *geo.Analyzer
}

func NewDeleteGeoRuleHandler(logger *logrus.Logger, repo georule.Repository, analyzer *geo.Analyzer) Handler {
	return &deleteGeoRuleHandler{logger: logger, repo: repo, analyzer: analyzer}
}

func (h *deleteGeoRuleHandler) Handle(ctx *fiber.Ctx) error {
	ruleID, err := uuid.Parse(ctx.Params("rule_id"))
	if err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid rule_id"})
	}
	if err := h.repo.Delete(ctx.Context(), ruleID); err != nil {
		h.logger.WithError(err).Error("failed to delete geo rule")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to delete rule"})
	}
	h.analyzer.InvalidateRules()
	return ctx.SendStatus(fiber.StatusNoContent)
}
