package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"service-availability/internal/domain"
	"service-availability/internal/service"
)

type AvailabilityHandler struct {
	service *service.AvailabilityService
}

func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

func (h *AvailabilityHandler) Register(g *echo.Group) {
	g.GET("/doctor/:doctorId", h.handleGetDoctor)
	g.GET("/doctor/:doctorId/range", h.handleGetRange)
	g.GET("/search", h.handleSearch)
	g.POST("/doctor/:doctorId/recurring", h.handleCreateRecurring)
	g.POST("/doctor/:doctorId/date", h.handleSetDate)
	g.POST("/doctor/:doctorId/remove-date", h.handleRemoveDate)
	g.DELETE("/:availabilityId/slot/:slotIndex", h.handleRemoveSlot)
	g.DELETE("/doctor/:doctorId/recurring/:ruleId", h.handleDeleteRecurring)
	g.DELETE("/doctor/:doctorId/date/:date", h.handleDeleteOverride)
}

type doctorAvailabilityResponse struct {
	DoctorID  uuid.UUID              `json:"doctor_id"`
	Rules     []domain.RecurringRule `json:"recurring_rules"`
	Overrides []domain.DateOverride  `json:"overrides"`
}

// handleGetDoctor serves both shapes of the doctor read: with ?date= it
// returns the single resolved day, without it the raw rules and overrides.
func (h *AvailabilityHandler) handleGetDoctor(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	if raw := c.QueryParam("date"); raw != "" {
		date, err := domain.ParseDate(raw)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
		}
		day, err := h.service.GetDay(c.Request().Context(), doctorID, date)
		if err != nil {
			return httpError(err)
		}
		return c.JSON(http.StatusOK, day)
	}

	rules, overrides, err := h.service.GetDoctorAvailability(c.Request().Context(), doctorID)
	if err != nil {
		return httpError(err)
	}
	if rules == nil {
		rules = []domain.RecurringRule{}
	}
	if overrides == nil {
		overrides = []domain.DateOverride{}
	}
	return c.JSON(http.StatusOK, doctorAvailabilityResponse{
		DoctorID:  doctorID,
		Rules:     rules,
		Overrides: overrides,
	})
}

func (h *AvailabilityHandler) handleGetRange(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	from, err := domain.ParseDate(c.QueryParam("from"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from date, expected YYYY-MM-DD")
	}
	to, err := domain.ParseDate(c.QueryParam("to"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid to date, expected YYYY-MM-DD")
	}

	days, err := h.service.Expand(c.Request().Context(), doctorID, from, to)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"days": days})
}

func (h *AvailabilityHandler) handleSearch(c echo.Context) error {
	date, err := domain.ParseDate(c.QueryParam("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}
	at, err := domain.ParseTimeOfDay(c.QueryParam("time"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid time, expected HH:MM")
	}

	matches, err := h.service.Search(c.Request().Context(), date, at, c.QueryParam("speciality"))
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, map[string]any{"matches": matches})
}

func (h *AvailabilityHandler) handleCreateRecurring(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	var rule domain.RecurringRule
	if err := c.Bind(&rule); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	created, err := h.service.CreateRecurringRule(c.Request().Context(), doctorID, rule)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, created)
}

type setDateRequest struct {
	Date         domain.Date        `json:"date"`
	Slots        []domain.SlotRange `json:"slots"`
	SlotDuration int                `json:"slot_duration_minutes"`
}

func (h *AvailabilityHandler) handleSetDate(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	var req setDateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	day, err := h.service.SetDateAvailability(c.Request().Context(), doctorID, req.Date, req.Slots, req.SlotDuration)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, day)
}

type removeDateRequest struct {
	Date domain.Date `json:"date"`
}

func (h *AvailabilityHandler) handleRemoveDate(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}

	var req removeDateRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	day, err := h.service.RemoveAvailabilityForDate(c.Request().Context(), doctorID, req.Date)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, day)
}

func (h *AvailabilityHandler) handleRemoveSlot(c echo.Context) error {
	slotIndex, err := strconv.Atoi(c.Param("slotIndex"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid slot index")
	}

	day, err := h.service.RemoveSlot(c.Request().Context(), c.Param("availabilityId"), slotIndex)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, day)
}

func (h *AvailabilityHandler) handleDeleteRecurring(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	ruleID, err := uuid.Parse(c.Param("ruleId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid rule id")
	}

	if err := h.service.DeleteRecurringRule(c.Request().Context(), doctorID, ruleID); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *AvailabilityHandler) handleDeleteOverride(c echo.Context) error {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid doctor id")
	}
	date, err := domain.ParseDate(c.Param("date"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
	}

	if err := h.service.DeleteOverride(c.Request().Context(), doctorID, date); err != nil {
		return httpError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func httpError(err error) *echo.HTTPError {
	var validation *domain.ValidationError
	switch {
	case errors.As(err, &validation):
		return echo.NewHTTPError(http.StatusBadRequest, map[string]string{
			"error": validation.Message,
			"field": validation.Field,
		})
	case errors.Is(err, service.ErrInvalidInput):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "not found")
	case errors.Is(err, service.ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "availability changed concurrently, re-fetch and retry")
	case errors.Is(err, service.ErrTimeout):
		return echo.NewHTTPError(http.StatusGatewayTimeout, "store timeout")
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, "internal error")
	}
}
