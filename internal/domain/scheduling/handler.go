package scheduling

import (
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentara/dentara/internal/platform/auth"
	"github.com/dentara/dentara/internal/platform/messaging"
	"github.com/dentara/dentara/pkg/pagination"
)

// PhoneDirectory resolves patient display names to normalized phone numbers
// for recall contact links. The patient service satisfies it.
type PhoneDirectory interface {
	PhoneByName(name string) (string, bool)
}

type Handler struct {
	svc        *Service
	phones     PhoneDirectory
	clinicName string
}

func NewHandler(svc *Service, phones PhoneDirectory, clinicName string) *Handler {
	return &Handler{svc: svc, phones: phones, clinicName: clinicName}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "dentist", "assistant"))
	readGroup.GET("/appointments", h.List)
	readGroup.GET("/appointments/recall", h.Recall)
	readGroup.GET("/appointments/:id", h.Get)

	writeGroup := api.Group("", auth.RequireRole("admin", "dentist", "assistant"))
	writeGroup.POST("/appointments", h.Create)
	writeGroup.PUT("/appointments/:id", h.Update)
	writeGroup.DELETE("/appointments/:id", h.Delete)
}

type appointmentRequest struct {
	Name      string    `json:"name"`
	Date      time.Time `json:"date"`
	Treatment string    `json:"treatment"`
	Status    Status    `json:"status"`
}

func (h *Handler) Create(c echo.Context) error {
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	a, err := h.svc.Create(req.Name, req.Date, req.Treatment)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, a)
}

func (h *Handler) Update(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req appointmentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Status == "" {
		req.Status = StatusScheduled
	}
	a, err := h.svc.Update(id, req.Name, req.Date, req.Treatment, req.Status)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) Delete(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.Delete(id); err != nil {
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	a, err := h.svc.Get(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, a)
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	appts := h.svc.List()
	from, to := pg.Slice(len(appts))
	return c.JSON(http.StatusOK, pagination.NewResponse(appts[from:to], len(appts), pg.Limit, pg.Offset))
}

// Recall lists patients overdue for a visit, each with a prefilled contact
// link when a phone number is on file.
func (h *Handler) Recall(c echo.Context) error {
	entries := h.svc.RecallList(time.Now().UTC())
	for i, e := range entries {
		phone, ok := h.phones.PhoneByName(e.Name)
		if !ok {
			continue
		}
		text := fmt.Sprintf("Hola %s, te escribimos de %s. Ya pasaron varios meses desde tu última visita, ¿agendamos tu control?", e.Name, h.clinicName)
		entries[i].ContactLink = messaging.ComposeLink(phone, text)
	}
	return c.JSON(http.StatusOK, entries)
}
