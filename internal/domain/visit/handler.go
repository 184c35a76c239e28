package visit

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medai/medai/internal/platform/filestore"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/visits", h.RecordVisit)
	api.GET("/visits/:id", h.GetVisit)
	api.GET("/patients/:email/visits", h.PatientVisits)
	api.GET("/patients/:email/medications", h.PatientMedications)
	api.GET("/doctors/:email/visits", h.DoctorVisits)
}

func (h *Handler) RecordVisit(c echo.Context) error {
	var req RecordRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	rec, err := h.svc.Record(c.Request().Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidRecord):
			return echo.NewHTTPError(http.StatusBadRequest, err.Error())
		case errors.Is(err, ErrAppointmentNotCompleted):
			return echo.NewHTTPError(http.StatusConflict, err.Error())
		case errors.Is(err, filestore.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		var unknown *filestore.UnknownReferenceError
		if errors.As(err, &unknown) {
			return echo.NewHTTPError(http.StatusNotFound, err.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, rec)
}

func (h *Handler) GetVisit(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	rec, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "visit record not found")
	}
	return c.JSON(http.StatusOK, rec)
}

func (h *Handler) PatientVisits(c echo.Context) error {
	visits, err := h.svc.History(c.Request().Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, visits)
}

func (h *Handler) PatientMedications(c echo.Context) error {
	meds, err := h.svc.CurrentMedications(c.Request().Context(), c.Param("email"))
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "patient not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if meds == nil {
		meds = []filestore.Medication{}
	}
	return c.JSON(http.StatusOK, meds)
}

func (h *Handler) DoctorVisits(c echo.Context) error {
	visits, err := h.svc.DoctorHistory(c.Request().Context(), c.Param("email"), c.QueryParam("patient_email"))
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, visits)
}
