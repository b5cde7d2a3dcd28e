package workflow

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
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
	staff := api.Group("", auth.RequireRole("admin", "manager", "bd", "cs"))
	staff.PATCH("/patients/:id/status", h.ChangeStatus)
	staff.GET("/patients/:id/status-history", h.GetStatusHistory)
	staff.GET("/workflow/statuses", h.ListStatuses)
	staff.GET("/workflow/transitions", h.ListTransitions)
}

type changeStatusRequest struct {
	Status string `json:"status"`
	Note   string `json:"note"`
}

func (h *Handler) ChangeStatus(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req changeStatusRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	actor := Actor{
		UserID:    auth.UserIDFromContext(c.Request().Context()),
		Name:      auth.UserNameFromContext(c.Request().Context()),
		Role:      Role(auth.RoleFromContext(c.Request().Context())),
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}

	result, err := h.svc.ChangeStatus(c.Request().Context(), id, Status(req.Status), req.Note, actor)
	switch {
	case errors.Is(err, ErrPatientNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ErrConflict):
		return echo.NewHTTPError(http.StatusConflict, "patient status changed concurrently, reload and retry")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "status change failed")
	}

	if !result.Validation.IsValid {
		return c.JSON(http.StatusUnprocessableEntity, result)
	}
	return c.JSON(http.StatusOK, result)
}

func (h *Handler) GetStatusHistory(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	history, total, err := h.svc.StatusHistory(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(history, total, pg.Limit, pg.Offset))
}

func (h *Handler) ListStatuses(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{"statuses": AllStatuses})
}

type transitionView struct {
	To                Status `json:"to"`
	RequiresNote      bool   `json:"requires_note"`
	AutoAssignManager bool   `json:"auto_assign_manager"`
	HandoverToCS      bool   `json:"handover_to_cs"`
}

// ListTransitions reports the transitions the caller may perform from a
// given status, for UI selectors. Admins may ask on behalf of another
// role via ?role=.
func (h *Handler) ListTransitions(c echo.Context) error {
	from := Status(c.QueryParam("from"))
	if !from.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid from status")
	}

	role := Role(auth.RoleFromContext(c.Request().Context()))
	if override := c.QueryParam("role"); override != "" && role == RoleAdmin {
		role = Role(override)
	}
	if !role.Valid() {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid role")
	}

	views := make([]transitionView, 0)
	for _, rule := range AvailableTransitions(from, role) {
		views = append(views, transitionView{
			To:                rule.To,
			RequiresNote:      rule.RequiresNote,
			AutoAssignManager: rule.AutoAssignManager,
			HandoverToCS:      IsHandoverToCS(rule.From, rule.To),
		})
	}
	return c.JSON(http.StatusOK, map[string]any{
		"from":        from,
		"role":        role,
		"transitions": views,
	})
}
