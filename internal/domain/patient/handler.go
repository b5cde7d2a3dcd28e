package patient

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/internal/platform/ssn"
	"github.com/carehub/carehub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "manager", "bd", "cs", "doctor", "nurse"))
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/:id", h.GetPatient)

	intakeGroup := api.Group("", auth.RequireRole("admin", "manager", "bd"))
	intakeGroup.POST("/patients", h.RegisterPatient)
	intakeGroup.GET("/patients/lookup", h.LookupBySSN)

	writeGroup := api.Group("", auth.RequireRole("admin", "manager", "bd", "cs"))
	writeGroup.PUT("/patients/:id", h.UpdatePatient)

	// Plaintext RRN access; the guard enforces the same policy again.
	revealGroup := api.Group("", auth.RequireRole("admin", "manager"))
	revealGroup.GET("/patients/:id/ssn", h.RevealSSN)
	revealGroup.GET("/patients/export", h.ExportCSV)

	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.DELETE("/patients/:id", h.DeletePatient)
}

func actorFromContext(c echo.Context) ssn.Actor {
	return ssn.Actor{
		UserID:    auth.UserIDFromContext(c.Request().Context()),
		Role:      auth.RoleFromContext(c.Request().Context()),
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

// maskForRole blanks the masked RRN for roles outside the view policy.
func maskForRole(p *Patient, role string) *Patient {
	if !ssn.CanViewMasked(role) {
		p.SSNMasked = ""
	}
	return p
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	var in RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.svc.Register(c.Request().Context(), in, actorFromContext(c))
	switch {
	case errors.Is(err, ErrInvalidSSN):
		return echo.NewHTTPError(http.StatusBadRequest, "주민등록번호 형식이 올바르지 않습니다.")
	case errors.Is(err, ErrDuplicateSSN):
		return echo.NewHTTPError(http.StatusConflict, "이미 등록된 주민등록번호입니다.")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, maskForRole(p, auth.RoleFromContext(c.Request().Context())))
}

func (h *Handler) GetPatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(c.Request().Context(), id)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	role := auth.RoleFromContext(c.Request().Context())
	if ssn.CanViewMasked(role) {
		h.svc.RecordMaskedView(c.Request().Context(), id, actorFromContext(c))
	}
	return c.JSON(http.StatusOK, maskForRole(p, role))
}

func (h *Handler) ListPatients(c echo.Context) error {
	pg := pagination.FromContext(c)
	filter := Filter{
		Status:    c.QueryParam("status"),
		ManagerID: c.QueryParam("manager_id"),
		Query:     c.QueryParam("q"),
	}

	patients, total, err := h.svc.List(c.Request().Context(), filter, pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	role := auth.RoleFromContext(c.Request().Context())
	for _, p := range patients {
		maskForRole(p, role)
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) UpdatePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var in UpdateInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.svc.Update(c.Request().Context(), id, in)
	if errors.Is(err, ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, maskForRole(p, auth.RoleFromContext(c.Request().Context())))
}

func (h *Handler) DeletePatient(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) LookupBySSN(c echo.Context) error {
	rrn := c.QueryParam("ssn")
	if rrn == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "ssn query parameter is required")
	}

	p, err := h.svc.LookupBySSN(c.Request().Context(), rrn, actorFromContext(c))
	switch {
	case errors.Is(err, ErrInvalidSSN):
		return echo.NewHTTPError(http.StatusBadRequest, "주민등록번호 형식이 올바르지 않습니다.")
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, maskForRole(p, auth.RoleFromContext(c.Request().Context())))
}

func (h *Handler) RevealSSN(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}

	plaintext, err := h.svc.RevealSSN(c.Request().Context(), id, actorFromContext(c))
	switch {
	case errors.Is(err, ErrNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	case errors.Is(err, ssn.ErrRateLimited):
		return echo.NewHTTPError(http.StatusTooManyRequests, "조회 횟수를 초과했습니다. 잠시 후 다시 시도해주세요.")
	case errors.Is(err, ssn.ErrPermissionDenied):
		return echo.NewHTTPError(http.StatusForbidden, "주민등록번호를 조회할 권한이 없습니다.")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "decryption failed")
	}
	return c.JSON(http.StatusOK, map[string]string{"ssn": plaintext})
}

func (h *Handler) ExportCSV(c echo.Context) error {
	filter := Filter{
		Status:    c.QueryParam("status"),
		ManagerID: c.QueryParam("manager_id"),
	}

	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="patients.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	return h.svc.ExportCSV(c.Request().Context(), c.Response(), filter)
}
