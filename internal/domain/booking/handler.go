package booking

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/medai/medai/internal/platform/filestore"
	"github.com/medai/medai/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/appointments", h.BookAppointment)
	api.GET("/appointments", h.ListAppointments)
	api.GET("/appointments/:id", h.GetAppointment)
	api.POST("/appointments/:id/complete", h.CompleteAppointment)
	api.DELETE("/appointments/:id", h.CancelAppointment)
	api.GET("/doctors/:email/active-appointment", h.ActiveAppointment)
}

// rejection is the body returned for policy refusals: a machine-readable
// reason plus the human-readable message.
type rejection struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

func (h *Handler) BookAppointment(c echo.Context) error {
	var req BookRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	appt, err := h.svc.Book(c.Request().Context(), req)
	if err != nil {
		return bookingErrorResponse(c, err)
	}
	return c.JSON(http.StatusCreated, appt)
}

func (h *Handler) GetAppointment(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.JSON(http.StatusOK, appt)
}

func (h *Handler) ListAppointments(c echo.Context) error {
	var (
		appts []*filestore.Appointment
		err   error
	)
	if email := c.QueryParam("patient_email"); email != "" {
		appts, err = h.svc.ListByPatient(c.Request().Context(), email)
	} else {
		appts, err = h.svc.List(c.Request().Context())
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	p := pagination.FromContext(c)
	start, end := p.Slice(len(appts))
	return c.JSON(http.StatusOK, pagination.NewResponse(appts[start:end], len(appts), p.Limit, p.Offset))
}

func (h *Handler) CompleteAppointment(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	appt, changed, err := h.svc.Complete(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"appointment": appt,
		"changed":     changed,
	})
}

func (h *Handler) CancelAppointment(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	cancelled, err := h.svc.Cancel(c.Request().Context(), id)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	if !cancelled {
		return echo.NewHTTPError(http.StatusNotFound, "appointment not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) ActiveAppointment(c echo.Context) error {
	appt, err := h.svc.ActiveAppointment(c.Request().Context(), c.Param("email"))
	if err != nil {
		switch {
		case errors.Is(err, filestore.ErrNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "doctor not found")
		case errors.Is(err, ErrNoAppointments):
			return echo.NewHTTPError(http.StatusNotFound, ErrNoAppointments.Error())
		case errors.Is(err, ErrNoActiveAppointment):
			return echo.NewHTTPError(http.StatusNotFound, ErrNoActiveAppointment.Error())
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, appt)
}

// bookingErrorResponse maps booking failures onto the API contract: parse and
// range failures are the caller's fault (400), policy refusals and commit
// races are conflicts (409) carrying a machine-readable reason, and a missing
// doctor pool is 404.
func bookingErrorResponse(c echo.Context, err error) error {
	switch Reason(err) {
	case ReasonParse, ReasonInvalidTime:
		return c.JSON(http.StatusBadRequest, rejection{Reason: Reason(err), Message: err.Error()})
	case ReasonDuplicateBooking, ReasonDuplicateSymptom, ReasonRateLimited,
		ReasonDoctorConflict, ReasonRaceCondition:
		return c.JSON(http.StatusConflict, rejection{Reason: Reason(err), Message: err.Error()})
	}
	switch {
	case errors.Is(err, ErrInvalidRequest):
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrNoDoctorAvailable):
		return echo.NewHTTPError(http.StatusNotFound, err.Error())
	case errors.Is(err, ErrNoOpenSlot):
		return echo.NewHTTPError(http.StatusConflict, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
