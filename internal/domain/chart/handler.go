package chart

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/ehr/records/internal/domain/errs"
	"github.com/ehr/records/internal/platform/auth"
	"github.com/ehr/records/internal/platform/metrics"
	"github.com/ehr/records/pkg/pagination"
)

type Handler struct {
	svc *Service
	m   *metrics.Metrics
}

func NewHandler(svc *Service, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, m: m}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	// Read endpoints: admin, physician, nurse, registrar.
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	readGroup.GET("/patients", h.ListPatients)
	readGroup.GET("/patients/:id", h.GetProjection)
	readGroup.GET("/patients/:id/history", h.GetHistory)
	readGroup.GET("/patients/:id/timeline", h.GetTimeline)

	// Write endpoints: admin, physician, registrar.
	writeGroup := api.Group("", auth.RequireRole("admin", "physician", "registrar"))
	writeGroup.POST("/patients", h.RegisterPatient)
	writeGroup.PUT("/patients/:id/record-number", h.SetRecordNumber)
	writeGroup.DELETE("/record-numbers/:id", h.DeleteRecordNumberEntry)
	writeGroup.POST("/patients/:id/admissions", h.AdmitPatient)
	writeGroup.POST("/admissions/:id/discharge", h.DischargePatient)
	writeGroup.POST("/admissions/:id/cancel-discharge", h.CancelDischarge)

	// Repair endpoint: admin only.
	adminGroup := api.Group("", auth.RequireRole("admin"))
	adminGroup.POST("/patients/:id/projection/refresh", h.RefreshProjection)
}

// observe records the operation outcome and maps domain errors to HTTP
// errors: validation 400, conflict 409, not found 404.
func (h *Handler) observe(operation string, start time.Time, err error) error {
	outcome := metrics.OutcomeOK
	var httpErr error
	switch {
	case err == nil:
	case errs.IsValidation(err):
		outcome = metrics.OutcomeValidation
		httpErr = echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errs.IsConflict(err):
		outcome = metrics.OutcomeConflict
		httpErr = echo.NewHTTPError(http.StatusConflict, err.Error())
	case errs.IsNotFound(err):
		outcome = metrics.OutcomeNotFound
		httpErr = echo.NewHTTPError(http.StatusNotFound, err.Error())
	default:
		outcome = metrics.OutcomeError
		httpErr = echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if h.m != nil {
		h.m.OperationsTotal.WithLabelValues(operation, outcome).Inc()
		h.m.OperationDuration.Observe(time.Since(start).Seconds())
	}
	return httpErr
}

func (h *Handler) RegisterPatient(c echo.Context) error {
	start := time.Now()
	var body struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	id := uuid.Nil
	if body.ID != "" {
		var err error
		id, err = uuid.Parse(body.ID)
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
		}
	}
	p, err := h.svc.RegisterPatient(c.Request().Context(), id, body.Name)
	if err != nil {
		return h.observe("register_patient", start, err)
	}
	h.observe("register_patient", start, nil)
	return c.JSON(http.StatusCreated, p)
}

func (h *Handler) GetProjection(c echo.Context) error {
	start := time.Now()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	p, err := h.svc.GetProjection(c.Request().Context(), id)
	if err != nil {
		return h.observe("get_projection", start, err)
	}
	h.observe("get_projection", start, nil)
	return c.JSON(http.StatusOK, p)
}

func (h *Handler) ListPatients(c echo.Context) error {
	start := time.Now()
	pg := pagination.FromContext(c)
	patients, total, err := h.svc.ListPatients(c.Request().Context(), pg.Limit, pg.Offset)
	if err != nil {
		return h.observe("list_patients", start, err)
	}
	h.observe("list_patients", start, nil)
	return c.JSON(http.StatusOK, pagination.NewResponse(patients, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetHistory(c echo.Context) error {
	start := time.Now()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	items, total, err := h.svc.GetHistory(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return h.observe("get_history", start, err)
	}
	h.observe("get_history", start, nil)
	return c.JSON(http.StatusOK, pagination.NewResponse(items, total, pg.Limit, pg.Offset))
}

func (h *Handler) GetTimeline(c echo.Context) error {
	start := time.Now()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	pg := pagination.FromContext(c)
	events, total, err := h.svc.GetTimeline(c.Request().Context(), id, pg.Limit, pg.Offset)
	if err != nil {
		return h.observe("get_timeline", start, err)
	}
	h.observe("get_timeline", start, nil)
	return c.JSON(http.StatusOK, pagination.NewResponse(events, total, pg.Limit, pg.Offset))
}

func (h *Handler) SetRecordNumber(c echo.Context) error {
	start := time.Now()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		RecordNumber  string     `json:"record_number"`
		Reason        *string    `json:"reason,omitempty"`
		EffectiveDate *time.Time `json:"effective_date,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	entry, err := h.svc.SetRecordNumber(c.Request().Context(), id, body.RecordNumber, body.Reason, body.EffectiveDate, actor)
	if err != nil {
		return h.observe("set_record_number", start, err)
	}
	h.observe("set_record_number", start, nil)
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) DeleteRecordNumberEntry(c echo.Context) error {
	start := time.Now()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	if err := h.svc.DeleteRecordNumberEntry(c.Request().Context(), id); err != nil {
		return h.observe("delete_record_number_entry", start, err)
	}
	h.observe("delete_record_number_entry", start, nil)
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) AdmitPatient(c echo.Context) error {
	start := time.Now()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Type       string    `json:"admission_type"`
		AdmittedAt time.Time `json:"admitted_at"`
		Bed        *string   `json:"bed,omitempty"`
		Diagnosis  *string   `json:"diagnosis,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	entry, err := h.svc.AdmitPatient(c.Request().Context(), id, body.Type, body.AdmittedAt, body.Bed, body.Diagnosis, actor)
	if err != nil {
		return h.observe("admit_patient", start, err)
	}
	h.observe("admit_patient", start, nil)
	return c.JSON(http.StatusCreated, entry)
}

func (h *Handler) DischargePatient(c echo.Context) error {
	start := time.Now()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var body struct {
		Type         string    `json:"discharge_type"`
		DischargedAt time.Time `json:"discharged_at"`
		Bed          *string   `json:"bed,omitempty"`
		Diagnosis    *string   `json:"diagnosis,omitempty"`
	}
	if err := c.Bind(&body); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	actor := auth.ActorFromContext(c.Request().Context())
	entry, err := h.svc.DischargePatient(c.Request().Context(), id, body.Type, body.DischargedAt, body.Bed, body.Diagnosis, actor)
	if err != nil {
		return h.observe("discharge_patient", start, err)
	}
	h.observe("discharge_patient", start, nil)
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) CancelDischarge(c echo.Context) error {
	start := time.Now()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	actor := auth.ActorFromContext(c.Request().Context())
	entry, err := h.svc.CancelDischarge(c.Request().Context(), id, actor)
	if err != nil {
		return h.observe("cancel_discharge", start, err)
	}
	h.observe("cancel_discharge", start, nil)
	return c.JSON(http.StatusOK, entry)
}

func (h *Handler) RefreshProjection(c echo.Context) error {
	start := time.Now()
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	proj, err := h.svc.RefreshProjection(c.Request().Context(), id)
	if err != nil {
		return h.observe("refresh_projection", start, err)
	}
	h.observe("refresh_projection", start, nil)
	return c.JSON(http.StatusOK, proj)
}
