package http

import (
	"time"

	"github.com/LeadFlux/AbuseGate/pkg/bypass"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const defaultStatsPeriod = 24 * time.Hour

type bypassStatsHandler struct {
	logger   *logrus.Logger
	detector *bypass.Detector
}

func NewBypassStatsHandler(logger *logrus.Logger, detector *bypass.Detector) Handler {
	return &bypassStatsHandler{logger: logger, detector: detector}
}

func (h *bypassStatsHandler) Handle(ctx *fiber.Ctx) error {
	period := defaultStatsPeriod
	if raw := ctx.Query("period"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil || parsed <= 0 {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid period"})
		}
		period = parsed
	}

	stats, err := h.detector.StatsForPeriod(ctx.Context(), period)
	if err != nil {
		h.logger.WithError(err).Error("failed to compute bypass stats")
		return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "failed to compute stats"})
	}
	return ctx.Status(fiber.StatusOK).JSON(stats)
}
