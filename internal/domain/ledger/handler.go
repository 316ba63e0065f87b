package ledger

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/dentara/dentara/internal/platform/audit"
	"github.com/dentara/dentara/internal/platform/auth"
	"github.com/dentara/dentara/internal/platform/export"
	"github.com/dentara/dentara/pkg/pagination"
)

type Handler struct {
	svc        *Service
	trail      audit.Recorder
	clinicName string
}

func NewHandler(svc *Service, trail audit.Recorder, clinicName string) *Handler {
	return &Handler{svc: svc, trail: trail, clinicName: clinicName}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "dentist", "assistant"))
	readGroup.GET("/financials", h.List)
	readGroup.GET("/financials/summary", h.GetSummary)
	readGroup.GET("/financials/:id", h.Get)
	readGroup.GET("/financials/:id/quote", h.ExportQuote)

	writeGroup := api.Group("", auth.RequireRole("admin", "dentist"))
	writeGroup.POST("/financials/income", h.CreateIncome)
	writeGroup.POST("/financials/expenses", h.CreateExpense)
	writeGroup.POST("/financials/:id/payments", h.RecordPayment)
	writeGroup.DELETE("/financials/:id", h.DeleteExpense)
}

type createIncomeRequest struct {
	PatientName string    `json:"patient_name"`
	Description string    `json:"description"`
	Total       float64   `json:"total"`
	Paid        float64   `json:"paid"`
	Date        time.Time `json:"date"`
}

func (h *Handler) CreateIncome(c echo.Context) error {
	var req createIncomeRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	e, err := h.svc.CreateIncome(req.PatientName, req.Description, req.Total, req.Paid, req.Date, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

type createExpenseRequest struct {
	Description string     `json:"description"`
	Amount      float64    `json:"amount"`
	Category    string     `json:"category"`
	Date        time.Time  `json:"date"`
	PatientRef  *uuid.UUID `json:"patient_ref"`
}

func (h *Handler) CreateExpense(c echo.Context) error {
	var req createExpenseRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	e, err := h.svc.CreateExpense(req.Description, req.Amount, req.Category, req.Date, req.PatientRef, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusCreated, e)
}

type recordPaymentRequest struct {
	Amount        float64   `json:"amount"`
	Method        string    `json:"method"`
	Date          time.Time `json:"date"`
	ReceiptNumber string    `json:"receipt_number"`
}

func (h *Handler) RecordPayment(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req recordPaymentRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	e, err := h.svc.RecordPayment(id, req.Amount, req.Method, req.Date, req.ReceiptNumber, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, e)
}

func (h *Handler) DeleteExpense(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.DeleteExpense(id, actor); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) Get(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	return c.JSON(http.StatusOK, map[string]any{
		"entry":   e,
		"pending": e.PendingDisplay(),
	})
}

func (h *Handler) List(c echo.Context) error {
	pg := pagination.FromContext(c)
	entries := h.svc.List(EntryType(c.QueryParam("type")))
	from, to := pg.Slice(len(entries))
	return c.JSON(http.StatusOK, pagination.NewResponse(entries[from:to], len(entries), pg.Limit, pg.Offset))
}

func (h *Handler) GetSummary(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Summary())
}

// ExportQuote streams a printable quote for an income entry, payment
// history included.
func (h *Handler) ExportQuote(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	e, err := h.svc.Get(id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "entry not found")
	}
	if e.Type != TypeIncome {
		return echo.NewHTTPError(http.StatusBadRequest, "quotes exist for income entries only")
	}

	payments := make([]export.PaymentRow, len(e.Payments))
	for i, p := range e.Payments {
		payments[i] = export.PaymentRow{
			Amount:        p.Amount,
			Method:        p.Method,
			Date:          p.Date,
			ReceiptNumber: p.ReceiptNumber,
		}
	}
	snap := export.QuoteSnapshot{
		ClinicName:  h.clinicName,
		PatientName: e.PatientName,
		Description: e.Description,
		Date:        e.Date,
		Total:       e.Total,
		Paid:        e.EffectivePaid(),
		Pending:     e.PendingDisplay(),
		Payments:    payments,
	}

	var buf bytes.Buffer
	if err := export.QuoteCSV(&buf, snap); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.trail.Record(audit.Event{
		ActorID: auth.UserIDFromContext(c.Request().Context()),
		Action:  audit.ActionPDFGenerate,
		Details: fmt.Sprintf("quote export for entry %s", id),
	})

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=quote-%s.csv", id))
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
