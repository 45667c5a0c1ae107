package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-agent/internal/storage"
)

// HealthHandler responds to liveness and readiness probes.
type HealthHandler struct {
	serviceName string
	version     string
	identity    *storage.IdentityStore
	eventLog    *storage.EventLog
}

// NewHealthHandler returns a new handler instance.
func NewHealthHandler(serviceName, version string, identity *storage.IdentityStore, eventLog *storage.EventLog) *HealthHandler {
	return &HealthHandler{serviceName: serviceName, version: version, identity: identity, eventLog: eventLog}
}

// Live reports service liveness.
func (h *HealthHandler) Live(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":  "alive",
		"service": h.serviceName,
		"version": h.version,
	})
}

// Ready reports service readiness by checking dependencies.
func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	depStatus := fiber.Map{}
	ready := true

	if h.identity == nil || h.identity.Len() == 0 {
		depStatus["identity_store"] = "no users loaded"
		ready = false
	} else {
		depStatus["identity_store"] = "ok"
	}

	if _, err := h.eventLog.ReadAll(); err != nil {
		depStatus["event_log"] = err.Error()
		ready = false
	} else {
		depStatus["event_log"] = "ok"
	}

	if ready {
		return c.JSON(fiber.Map{
			"status":       "ready",
			"dependencies": depStatus,
		})
	}

	return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "DEPENDENCY_UNAVAILABLE",
			"message": "one or more dependencies unavailable",
			"details": depStatus,
		},
	})
}
