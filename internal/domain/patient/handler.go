package patient

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentara/dentara/internal/platform/auth"
	"github.com/dentara/dentara/pkg/pagination"
)

// ChartDropper removes clinical chart state when a patient is deleted. The
// chart service satisfies it.
type ChartDropper interface {
	DeleteChart(patientID string)
}

type Handler struct {
	svc    *Service
	charts ChartDropper
}

func NewHandler(svc *Service, charts ChartDropper) *Handler {
	return &Handler{svc: svc, charts: charts}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "dentist", "assistant"))
	readGroup.GET("/patients", h.List)
	readGroup.GET("/patients/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "dentist", "assistant"))
	writeGroup.POST("/patients", h.Create)
	writeGroup.PUT("/patients/:id", h.Update)
	writeGroup.POST("/patients/:id/evolution", h.AppendEvolution)

	adminGroup := api.Group("", auth.RequireRole("admin", "dentist"))
	adminGroup.DELETE("/patients/:id", h.Delete)
}

type patientRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
	Notes string `json:"notes"`
}

func (h *Handler) Create(c echo.Context) error {
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	p, err := h.svc.Create(req.Name, req.Phone, req.Email, req.Notes, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req patientRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	p, err := h.svc.Update(id, req.Name, req.Phone, req.Email, req.Notes, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.Delete(id, actor); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	h.charts.DeleteChart(id.String())
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.Get(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "patient not found")
	}
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	patients := h.svc.List(c.QueryParam("q"))
	from, to := pg.Slice(len(patients))
	return c.JSON(http.StatusOK, pagination.NewResponse(patients[from:to], len(patients), pg.Limit, pg.Offset))
}

type evolutionRequest struct {
	Note string    `json:"note"`
	Date time.Time `json:"date"`
}

func (h *Handler) AppendEvolution(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req evolutionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	p, err := h.svc.AppendEvolution(id, req.Note, req.Date, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, p)
}
