// Package activities implements the public HTTP handlers for listing
// extracurricular activities and managing their participant rosters.
//
// Route layout:
//
//	GET    /activities                            list every activity
//	POST   /activities/:name/signup?email=        add a student
//	DELETE /activities/:name/participants?email=  remove a student
//
// Error bodies carry a single "detail" string so the front-end can show it as is.
package activities

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/mergington/activity-signup/internal/activities"
	"github.com/mergington/activity-signup/internal/middleware"
	"github.com/mergington/activity-signup/internal/telemetry"
)

// Store is the part of *activities.Registry the handlers need.
type Store interface {
	List() activities.Catalog
	Signup(name, email string) (activities.Activity, error)
	Unregister(name, email string) (activities.Activity, error)
}

// Handler holds the dependencies for the activity endpoints.
type Handler struct {
	store Store
}

// NewHandler creates a new Handler.
func NewHandler(store Store) *Handler {
	return &Handler{store: store}
}

const missingEmailDetail = "email query parameter is required"

// emailParam returns ?email= as given. Only its absence is an error; an empty
// value is passed on to the registry like any other.
func emailParam(c *gin.Context) (string, bool) {
	return c.GetQuery("email")
}

// ---- GET /activities -------------------------------------------------------

// @Summary      List activities
// @Description  Returns every activity keyed by name, in catalogue order, with its current participants.
// @Tags         Activities
// @Produce      json
// @Success      200  {object}  map[string]activities.Activity
// @Router       /activities [get]
func (h *Handler) List(c *gin.Context) {
	c.JSON(http.StatusOK, h.store.List())
}

// ---- POST /activities/:name/signup -----------------------------------------

// @Summary      Sign up for an activity
// @Tags         Activities
// @Produce      json
// @Param        name   path   string  true  "Activity name"
// @Param        email  query  string  true  "Student email"
// @Success      200  {object}  map[string]string  "message"
// @Failure      400  {object}  map[string]string  "Already signed up, or activity full"
// @Failure      404  {object}  map[string]string  "Activity not found"
// @Failure      422  {object}  map[string]string  "Missing email"
// @Router       /activities/{name}/signup [post]
func (h *Handler) Signup(c *gin.Context) {
	name := c.Param("name")

	email, ok := emailParam(c)
	if !ok {
		telemetry.ActivitySignupsTotal.WithLabelValues(telemetry.OutcomeInvalid).Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": missingEmailDetail})
		return
	}

	activity, err := h.store.Signup(name, email)
	if err != nil {
		status := statusFor(err)
		telemetry.ActivitySignupsTotal.WithLabelValues(outcomeFor(err)).Inc()
		slog.Debug("signup rejected",
			"activity", name, "email", email, "status", status, "reason", err.Error(),
			"request_id", middleware.RequestID(c))
		c.JSON(status, gin.H{"detail": err.Error()})
		return
	}

	telemetry.ActivitySignupsTotal.WithLabelValues(telemetry.OutcomeSuccess).Inc()
	slog.Info("student signed up",
		"activity", activity.Name, "email", email, "spots_left", activity.SpotsLeft(),
		"request_id", middleware.RequestID(c))

	c.JSON(http.StatusOK, gin.H{"message": "Signed up " + email + " for " + activity.Name})
}

// ---- DELETE /activities/:name/participants ---------------------------------

// @Summary      Unregister from an activity
// @Tags         Activities
// @Produce      json
// @Param        name   path   string  true  "Activity name"
// @Param        email  query  string  true  "Student email"
// @Success      200  {object}  map[string]string  "message"
// @Failure      404  {object}  map[string]string  "Activity or participant not found"
// @Failure      422  {object}  map[string]string  "Missing email"
// @Router       /activities/{name}/participants [delete]
func (h *Handler) Unregister(c *gin.Context) {
	name := c.Param("name")

	email, ok := emailParam(c)
	if !ok {
		telemetry.ActivityUnregistrationsTotal.WithLabelValues(telemetry.OutcomeInvalid).Inc()
		c.JSON(http.StatusUnprocessableEntity, gin.H{"detail": missingEmailDetail})
		return
	}

	activity, err := h.store.Unregister(name, email)
	if err != nil {
		status := statusFor(err)
		telemetry.ActivityUnregistrationsTotal.WithLabelValues(outcomeFor(err)).Inc()
		slog.Debug("unregister rejected",
			"activity", name, "email", email, "status", status, "reason", err.Error(),
			"request_id", middleware.RequestID(c))
		c.JSON(status, gin.H{"detail": err.Error()})
		return
	}

	telemetry.ActivityUnregistrationsTotal.WithLabelValues(telemetry.OutcomeSuccess).Inc()
	slog.Info("student unregistered",
		"activity", activity.Name, "email", email, "spots_left", activity.SpotsLeft(),
		"request_id", middleware.RequestID(c))

	c.JSON(http.StatusOK, gin.H{"message": "Unregistered " + email + " from " + activity.Name})
}

// statusFor maps registry errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case activities.IsNotFound(err):
		return http.StatusNotFound
	case activities.IsConflict(err):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func outcomeFor(err error) string {
	switch {
	case activities.IsNotFound(err):
		return telemetry.OutcomeNotFound
	case activities.IsConflict(err):
		return telemetry.OutcomeConflict
	default:
		return telemetry.OutcomeInvalid
	}
}
