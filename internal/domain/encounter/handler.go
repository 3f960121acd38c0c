package encounter

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ehr/encounters/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(g *echo.Group) {
	g.GET("/encounters", h.ListEncounters)
	g.POST("/encounters", h.CreateEncounter)
	g.GET("/encounters/:id", h.GetEncounter)
	g.PATCH("/encounters/:id/status", h.UpdateEncounterStatus)
	g.GET("/statuses", h.ListStatuses)
}

func (h *Handler) CreateEncounter(c echo.Context) error {
	var in CreateInput
	if err := c.Bind(&in); err != nil {
		return bindError(err, "invalid request body")
	}
	enc, err := h.svc.Create(c.Request().Context(), in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusCreated, enc)
}

func (h *Handler) GetEncounter(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	enc, err := h.svc.Get(c.Request().Context(), id)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, enc)
}

// ListEncounters returns every encounter in creation order. Optional limit
// and offset query parameters select a window; X-Total-Count always carries
// the full count.
func (h *Handler) ListEncounters(c echo.Context) error {
	page, err := pagination.FromContext(c)
	if err != nil {
		return err
	}
	items, err := h.svc.ListAll(c.Request().Context())
	if err != nil {
		return err
	}
	pagination.SetHeaders(c, page, len(items))
	return c.JSON(http.StatusOK, pagination.Slice(items, page))
}

func (h *Handler) UpdateEncounterStatus(c echo.Context) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	// Unknown ids are reported before the body is looked at.
	if _, err := h.svc.Get(c.Request().Context(), id); err != nil {
		return httpError(err)
	}
	var in TransitionInput
	if err := c.Bind(&in); err != nil {
		return bindError(err, "status is required and must be a string")
	}
	enc, err := h.svc.ApplyTransition(c.Request().Context(), id, in)
	if err != nil {
		return httpError(err)
	}
	return c.JSON(http.StatusOK, enc)
}

// StatusInfo describes one workflow state for clients building forms.
type StatusInfo struct {
	Status       Status   `json:"status"`
	RequiresExam bool     `json:"requiresExam"`
	Next         []Status `json:"next"`
}

func (h *Handler) ListStatuses(c echo.Context) error {
	statuses := Statuses()
	out := make([]StatusInfo, 0, len(statuses))
	for _, s := range statuses {
		out = append(out, StatusInfo{
			Status:       s,
			RequiresExam: RequiresExam(s),
			Next:         AllowedTransitions(s),
		})
	}
	return c.JSON(http.StatusOK, out)
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, echo.NewHTTPError(http.StatusBadRequest, "invalid id")
	}
	return id, nil
}

// bindError keeps size-limit rejections and reports every other decoding
// failure as a 400 with msg.
func bindError(err error, msg string) error {
	// The binder may wrap the reader's error in its own 400.
	for e := err; e != nil; e = errors.Unwrap(e) {
		if he, ok := e.(*echo.HTTPError); ok && he.Code == http.StatusRequestEntityTooLarge {
			return he
		}
	}
	return echo.NewHTTPError(http.StatusBadRequest, msg)
}

// httpError maps domain errors to HTTP errors. Anything unrecognized is
// returned unchanged and becomes a 500 in the server's error handler.
func httpError(err error) error {
	var (
		verr *ValidationError
		cerr *ConflictError
		nerr *NotFoundError
	)
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, verr.Error())
	case errors.As(err, &cerr):
		return echo.NewHTTPError(http.StatusConflict, cerr.Error())
	case errors.As(err, &nerr):
		return echo.NewHTTPError(http.StatusNotFound, "encounter not found")
	}
	return err
}
