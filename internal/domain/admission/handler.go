package admission

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/labstack/echo/v4"

	"github.com/morgenster/hims/internal/platform/auth"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	readGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse", "registrar"))
	readGroup.GET("/occupancy", h.OccupancySummary)
	readGroup.GET("/wards/:id/occupancy", h.WardOccupancy)
	readGroup.GET("/patients/:id/admissions", h.History)
	readGroup.POST("/patients/:id/admission/check", h.CheckAdmission)

	// Admissions and discharges are clinical actions.
	clinicalGroup := api.Group("", auth.RequireRole("admin", "physician", "nurse"))
	clinicalGroup.POST("/patients/:id/admission", h.Admit)
	clinicalGroup.POST("/patients/:id/discharge", h.InitiateDischarge)
	clinicalGroup.POST("/patients/:id/discharge/finalize", h.FinalizeDischarge)
}

type admissionRequest struct {
	WardID    uuid.UUID `json:"ward_id"`
	BedNumber int       `json:"bed_number"`
}

type checkRequest struct {
	WardID uuid.UUID `json:"ward_id"`
}

func (h *Handler) OccupancySummary(c echo.Context) error {
	summaries, err := h.svc.OccupancySummary(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, summaries)
}

func (h *Handler) WardOccupancy(c echo.Context) error {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	view, err := h.svc.WardOccupancyView(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, "ward not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, view)
}

func (h *Handler) CheckAdmission(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req checkRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.WardID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "ward_id is required")
	}
	res, err := h.svc.CheckAdmission(c.Request().Context(), patientID, req.WardID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *Handler) Admit(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	var req admissionRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.WardID == uuid.Nil {
		return echo.NewHTTPError(http.StatusBadRequest, "ward_id is required")
	}
	staff := auth.StaffFromContext(c.Request().Context())
	if staff.ID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "staff identity required")
	}

	rec, err := h.svc.Admit(c.Request().Context(), patientID, req.WardID, req.BedNumber, staff)
	if err != nil {
		return admissionError(err)
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) InitiateDischarge(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	staff := auth.StaffFromContext(c.Request().Context())
	if staff.ID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "staff identity required")
	}
	if err := h.svc.InitiateDischarge(c.Request().Context(), patientID, staff); err != nil {
		return admissionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) FinalizeDischarge(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	staff := auth.StaffFromContext(c.Request().Context())
	if staff.ID == "" {
		return echo.NewHTTPError(http.StatusUnauthorized, "staff identity required")
	}
	if err := h.svc.FinalizeDischarge(c.Request().Context(), patientID, staff); err != nil {
		return admissionError(err)
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) History(c echo.Context) error {
	patientID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	records, err := h.svc.History(c.Request().Context(), patientID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, records)
}

// admissionError maps the service's typed errors onto HTTP statuses.
// Eligibility failures are unprocessable, lost races and bad state
// transitions are conflicts.
func admissionError(err error) error {
	var (
		ve *ValidationError
		ce *ConflictError
		se *InvalidStateError
	)
	switch {
	case errors.As(err, &ve):
		return echo.NewHTTPError(http.StatusUnprocessableEntity, ve.Error())
	case errors.As(err, &ce):
		return echo.NewHTTPError(http.StatusConflict, ce.Error())
	case errors.As(err, &se):
		return echo.NewHTTPError(http.StatusConflict, se.Error())
	default:
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
}
