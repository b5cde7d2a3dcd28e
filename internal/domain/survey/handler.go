package survey

import (
	"errors"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/carehub/carehub/internal/domain/patient"
	"github.com/carehub/carehub/internal/platform/auth"
	"github.com/carehub/carehub/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes wires the back-office token endpoints onto the
// authenticated group and the survey page endpoints onto the public one.
func (h *Handler) RegisterRoutes(api *echo.Group, public *echo.Group) {
	issueGroup := api.Group("", auth.RequireRole("admin", "manager", "bd"))
	issueGroup.POST("/surveys/tokens", h.IssueToken)
	issueGroup.GET("/surveys/tokens", h.ListTokens)

	public.GET("/surveys/:token", h.GetSurvey)
	public.POST("/surveys/:token", h.SubmitSurvey)
}

type issueTokenRequest struct {
	ExpiresInHours int `json:"expires_in_hours"`
}

func (h *Handler) IssueToken(c echo.Context) error {
	var req issueTokenRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ttl := time.Duration(req.ExpiresInHours) * time.Hour
	t, err := h.svc.Issue(c.Request().Context(), auth.UserIDFromContext(c.Request().Context()), ttl)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "token issue failed")
	}
	return c.JSON(http.StatusCreated, t)
}

func (h *Handler) ListTokens(c echo.Context) error {
	pg := pagination.FromContext(c)
	tokens, total, err := h.svc.List(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, pagination.NewResponse(tokens, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetSurvey(c echo.Context) error {
	t, err := h.svc.Get(c.Request().Context(), c.Param("token"))
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "설문을 찾을 수 없습니다.")
	case errors.Is(err, ErrTokenExpired):
		return echo.NewHTTPError(http.StatusGone, "설문 링크가 만료되었습니다.")
	case errors.Is(err, ErrTokenUsed):
		return echo.NewHTTPError(http.StatusGone, "이미 제출된 설문입니다.")
	case err != nil:
		return echo.NewHTTPError(http.StatusInternalServerError, "survey lookup failed")
	}
	return c.JSON(http.StatusOK, map[string]any{"expires_at": t.ExpiresAt})
}

func (h *Handler) SubmitSurvey(c echo.Context) error {
	var in patient.RegisterInput
	if err := c.Bind(&in); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	p, err := h.svc.Submit(c.Request().Context(), c.Param("token"), in)
	switch {
	case errors.Is(err, ErrTokenNotFound):
		return echo.NewHTTPError(http.StatusNotFound, "설문을 찾을 수 없습니다.")
	case errors.Is(err, ErrTokenExpired):
		return echo.NewHTTPError(http.StatusGone, "설문 링크가 만료되었습니다.")
	case errors.Is(err, ErrTokenUsed):
		return echo.NewHTTPError(http.StatusGone, "이미 제출된 설문입니다.")
	case errors.Is(err, patient.ErrInvalidSSN):
		return echo.NewHTTPError(http.StatusBadRequest, "주민등록번호 형식이 올바르지 않습니다.")
	case errors.Is(err, patient.ErrDuplicateSSN):
		return echo.NewHTTPError(http.StatusConflict, "이미 등록된 주민등록번호입니다.")
	case err != nil:
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	return c.JSON(http.StatusCreated, map[string]any{
		"patient_id": p.ID,
		"status":     p.Status,
	})
}
