package chart

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/dentara/dentara/internal/platform/audit"
	"github.com/dentara/dentara/internal/platform/auth"
	"github.com/dentara/dentara/internal/platform/export"
)

// PatientDirectory resolves patient ids to display names for exported
// documents. The patient service satisfies it.
type PatientDirectory interface {
	PatientName(id string) string
}

type Handler struct {
	svc   *Service
	dir   PatientDirectory
	trail audit.Recorder
}

func NewHandler(svc *Service, dir PatientDirectory, trail audit.Recorder) *Handler {
	return &Handler{svc: svc, dir: dir, trail: trail}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "dentist", "assistant"))
	readGroup.GET("/patients/:id/chart", h.GetChart)
	readGroup.GET("/patients/:id/chart/teeth/:tooth", h.GetTooth)
	readGroup.GET("/patients/:id/chart/indices", h.GetIndices)
	readGroup.GET("/patients/:id/chart/export", h.ExportChart)

	writeGroup := api.Group("", auth.RequireRole("admin", "dentist"))
	writeGroup.PUT("/patients/:id/chart/teeth/:tooth", h.SetTooth)
	writeGroup.PUT("/patients/:id/chart/teeth/:tooth/perio", h.SetPerio)
	writeGroup.PUT("/patients/:id/chart/teeth/:tooth/hygiene", h.SetHygiene)
}

func toothParam(c echo.Context) (int, error) {
	n, err := strconv.Atoi(c.Param("tooth"))
	if err != nil || !ValidTooth(n) {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid tooth number")
	}
	return n, nil
}

func (h *Handler) GetChart(c echo.Context) error {
	return c.JSON(http.StatusOK, h.svc.Chart(c.Param("id")))
}

func (h *Handler) GetTooth(c echo.Context) error {
	tooth, err := toothParam(c)
	if err != nil {
		return err
	}
	rec, err := h.svc.GetTooth(c.Param("id"), tooth)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"tooth":   tooth,
		"record":  rec,
		"display": rec.Display(),
	})
}

func (h *Handler) SetTooth(c echo.Context) error {
	tooth, err := toothParam(c)
	if err != nil {
		return err
	}
	var rec ToothRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	saved, err := h.svc.SetTooth(c.Param("id"), tooth, rec, actor)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{
		"tooth":   tooth,
		"record":  saved,
		"display": saved.Display(),
	})
}

func (h *Handler) SetPerio(c echo.Context) error {
	tooth, err := toothParam(c)
	if err != nil {
		return err
	}
	var rec PerioRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.SetPerio(c.Param("id"), tooth, rec, actor); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) SetHygiene(c echo.Context) error {
	tooth, err := toothParam(c)
	if err != nil {
		return err
	}
	var rec HygieneRecord
	if err := c.Bind(&rec); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.UserIDFromContext(c.Request().Context())
	if err := h.svc.SetHygiene(c.Param("id"), tooth, rec, actor); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) GetIndices(c echo.Context) error {
	id := c.Param("id")
	return c.JSON(http.StatusOK, map[string]int{
		"bleeding_index": h.svc.BleedingIndex(id),
		"plaque_index":   h.svc.PlaqueIndex(id),
	})
}

// ExportChart streams the odontogram as a CSV attachment. Every one of the
// 32 positions gets a row, recorded or not.
func (h *Handler) ExportChart(c echo.Context) error {
	id := c.Param("id")
	ch := h.svc.Chart(id)

	rows := make([]export.ToothRow, 0, len(FDITeeth))
	for _, n := range FDITeeth {
		rec, ok := ch.Teeth[n]
		if !ok {
			rec = DefaultTooth()
		}
		row := export.ToothRow{
			Number:     n,
			Display:    string(rec.Display()),
			Vestibular: string(rec.Faces[FaceVestibular]),
			Lingual:    string(rec.Faces[FaceLingual]),
			Mesial:     string(rec.Faces[FaceMesial]),
			Distal:     string(rec.Faces[FaceDistal]),
			Occlusal:   string(rec.Faces[FaceOcclusal]),
			Notes:      rec.Notes,
		}
		if rec.Treatment != nil {
			row.TreatmentName = rec.Treatment.Name
			row.TreatmentStatus = string(rec.Treatment.Status)
		}
		rows = append(rows, row)
	}

	var buf bytes.Buffer
	name := h.dir.PatientName(id)
	if err := export.ChartCSV(&buf, name, h.svc.BleedingIndex(id), h.svc.PlaqueIndex(id), rows); err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	h.trail.Record(audit.Event{
		ActorID:   auth.UserIDFromContext(c.Request().Context()),
		Action:    audit.ActionPDFGenerate,
		PatientID: id,
		Details:   "chart export",
	})

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=chart-%s.csv", id))
	return c.Blob(http.StatusOK, "text/csv", buf.Bytes())
}
