package audit

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	group := api.Group("", auth.RequireRole("admin", "manager"))
	group.GET("/audit/events", h.ListEvents)
	group.GET("/audit/ssn-access", h.ListSSNAccess)
}

func (h *Handler) ListEvents(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := EventFilter{
		Action:    c.QueryParam("action"),
		TableName: c.QueryParam("table"),
		UserID:    c.QueryParam("user_id"),
	}

	events, total, err := h.svc.ListEvents(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListSSNAccess(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := AccessFilter{
		UserID:    c.QueryParam("user_id"),
		PatientID: c.QueryParam("patient_id"),
		Action:    c.QueryParam("action"),
	}

	entries, total, err := h.svc.ListSSNAccess(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(entries, total, pg.Limit, pg.Offset))
}
