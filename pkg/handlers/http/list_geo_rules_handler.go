package http

import (
	"github.com/LeadFlux/AbuseGate/pkg/domain/georule"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type listGeoRulesHandler struct {
	logger *logrus.Logger
	repo   georule.Repository
}

func NewListGeoRulesHandler(logger *logrus.Logger, repo georule.Repository) Handler {
	return &listGeoRulesHandler{logger: logger, repo: repo}
}

func (h *listGeoRulesHandler) Handle(ctx *fiber.Ctx) error {
	rules, err := h.repo.List(ctx.Context())
	if err != nil {
		h.logger.WithError(err).Error("failed to list geo rules")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to list rules"})
	}
	return ctx.JSON(fiber.Map{"rules": rules, "count": len(rules)})
}
