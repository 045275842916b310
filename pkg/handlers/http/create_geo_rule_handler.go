package http

import (
	"github.com/LeadFlux/AbuseGate/pkg/domain"
	"github.com/LeadFlux/AbuseGate/pkg/domain/georule"
	"github.com/LeadFlux/AbuseGate/pkg/geo"
	"github.com/LeadFlux/AbuseGate/pkg/types"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

type createGeoRuleRequest struct {
	Type           string   `json:"type"`
	Countries      []string `json:"countries"`
	MaxThreatLevel string   `json:"max_threat_level"`
	Priority       int      `json:"priority"`
	Enabled        bool     `json:"enabled"`
	Description    string   `json:"description"`
}

type createGeoRuleHandler struct {
	logger   *logrus.Logger
	repo     georule.Repository
	analyzer *geo.Analyzer
}

func NewCreateGeoRuleHandler(logger *logrus.Logger, repo georule.Repository, analyzer *geo.Analyzer) Handler {
	return &createGeoRuleHandler{logger: logger, repo: repo, analyzer: analyzer}
}

func (h *createGeoRuleHandler) Handle(ctx *fiber.Ctx) error {
	var req createGeoRuleRequest
	if err := ctx.BodyParser(&req); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}

	rule := &georule.Rule{
		Type:           georule.RuleType(req.Type),
		Countries:      req.Countries,
		MaxThreatLevel: types.ThreatLevel(req.MaxThreatLevel),
		Priority:       req.Priority,
		Enabled:        req.Enabled,
		Description:    req.Description,
	}
	if err := rule.Validate(); err != nil {
		return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
	}
	if err := h.repo.Save(ctx.Context(), rule); err != nil {
		if err == domain.ErrInvalidRuleType {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": err.Error()})
		}
		h.logger.WithError(err).Error("failed to create geo rule")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to create rule"})
	}

	h.analyzer.InvalidateRules()
	return ctx.Status(fiber.StatusCreated).JSON(rule)
}
