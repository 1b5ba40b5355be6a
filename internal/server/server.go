// ABOUTME: HTTP surface of the remote trip store, built on fiber
// ABOUTME: Trip CRUD, paginated listing, and GPX export endpoints

package server

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/bradwbu/Trekr/internal/gpx"
	"github.com/bradwbu/Trekr/internal/models"
	"github.com/bradwbu/Trekr/internal/remote"
)

// Config holds server configuration.
type Config struct {
	// Token is the bearer token clients must present. Empty disables auth.
	Token string
	// Log receives request and error logs; defaults to the standard logger.
	Log *logrus.Logger
}

// New builds the fiber application serving the trip store API.
func New(store *TripStore, cfg Config) *fiber.App {
	log := cfg.Log
	if log == nil {
		log = logrus.StandardLogger()
	}

	app := fiber.New(fiber.Config{
		AppName:               "trekr-server",
		DisableStartupMessage: true,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			if code >= 500 {
				log.WithError(err).WithField("path", c.Path()).Error("request failed")
			}
			return c.Status(code).JSON(remote.ErrorResponse{Error: err.Error()})
		},
	})

	app.Use(recover.New())
	app.Use(logger.New())

	h := &handlers{store: store, log: log}

	api := app.Group("/", requireBearer(cfg.Token))
	api.Post("/trips", h.createTrip)
	api.Get("/trips", h.listTrips)
	api.Get("/trips/:id", h.getTrip)
	api.Put("/trips/:id", h.updateTrip)
	api.Delete("/trips/:id", h.deleteTrip)
	api.Get("/trips/:id/export", h.exportTrip)

	return app
}

// requireBearer rejects requests without the expected capability token.
func requireBearer(token string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if token == "" {
			return c.Next()
		}
		if c.Get("Authorization") != "Bearer "+token {
			return fiber.NewError(fiber.StatusUnauthorized, "missing or invalid token")
		}
		return c.Next()
	}
}

type handlers struct {
	store *TripStore
	log   *logrus.Logger
}

func (h *handlers) createTrip(c *fiber.Ctx) error {
	var req remote.CreateTripRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if fields := validateTrip(req); len(fields) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(remote.ErrorResponse{
			Error:  "validation failed",
			Fields: fields,
		})
	}

	trip, created, err := h.store.CreateTrip(req, c.Get("Idempotency-Key"))
	if err != nil {
		return fmt.Errorf("create trip: %w", err)
	}
	if created {
		h.log.WithFields(logrus.Fields{
			"trip_id":   trip.ID,
			"locations": len(trip.Locations),
		}).Info("trip created")
	} else {
		h.log.WithField("trip_id", trip.ID).Info("duplicate create replayed")
	}
	return c.Status(fiber.StatusCreated).JSON(trip)
}

func (h *handlers) listTrips(c *fiber.Ctx) error {
	q := remote.ListQuery{
		Page:   c.QueryInt("page", 1),
		Limit:  c.QueryInt("limit", 20),
		Search: c.Query("search"),
	}
	var err error
	if q.From, err = parseTimeQuery(c.Query("from")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid from date")
	}
	if q.To, err = parseTimeQuery(c.Query("to")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid to date")
	}
	if q.UpdatedSince, err = parseTimeQuery(c.Query("updated_since")); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid updated_since timestamp")
	}

	resp, err := h.store.ListTrips(q)
	if err != nil {
		return fmt.Errorf("list trips: %w", err)
	}
	return c.JSON(resp)
}

func (h *handlers) getTrip(c *fiber.Ctx) error {
	trip, err := h.store.GetTrip(c.Params("id"))
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "trip not found")
	}
	if err != nil {
		return fmt.Errorf("get trip: %w", err)
	}
	return c.JSON(trip)
}

func (h *handlers) updateTrip(c *fiber.Ctx) error {
	var req remote.CreateTripRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if fields := validateTrip(req); len(fields) > 0 {
		return c.Status(fiber.StatusBadRequest).JSON(remote.ErrorResponse{
			Error:  "validation failed",
			Fields: fields,
		})
	}

	trip, err := h.store.UpdateTrip(c.Params("id"), req)
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "trip not found")
	}
	if err != nil {
		return fmt.Errorf("update trip: %w", err)
	}
	h.log.WithField("trip_id", trip.ID).Info("trip updated")
	return c.JSON(trip)
}

func (h *handlers) deleteTrip(c *fiber.Ctx) error {
	err := h.store.DeleteTrip(c.Params("id"))
	if errors.Is(err, ErrNotFound) {
		// Idempotent delete: the record is gone either way, but the
		// status still says whether this call removed it.
		return fiber.NewError(fiber.StatusNotFound, "trip not found")
	}
	if err != nil {
		return fmt.Errorf("delete trip: %w", err)
	}
	h.log.WithField("trip_id", c.Params("id")).Info("trip deleted")
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *handlers) exportTrip(c *fiber.Ctx) error {
	trip, err := h.store.GetTrip(c.Params("id"))
	if errors.Is(err, ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "trip not found")
	}
	if err != nil {
		return fmt.Errorf("get trip: %w", err)
	}

	data, err := gpx.Encode(trip.ToLocalTrip(""))
	if err != nil {
		return fmt.Errorf("encode gpx: %w", err)
	}

	c.Set(fiber.HeaderContentType, gpx.ContentType)
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf("attachment; filename=%q", gpx.Filename(trip.Name)))
	return c.Send(data)
}

// validateTrip enforces the wire contract for create and update bodies.
func validateTrip(req remote.CreateTripRequest) []remote.FieldError {
	var fields []remote.FieldError
	if req.Name == "" {
		fields = append(fields, remote.FieldError{
			Field: "name", Message: "name is required",
		})
	}
	if len(req.Locations) < 2 {
		fields = append(fields, remote.FieldError{
			Field: "locations", Message: "at least 2 locations are required",
		})
	}
	for i, l := range req.Locations {
		if err := models.ValidateCoordinates(l.Latitude, l.Longitude); err != nil {
			fields = append(fields, remote.FieldError{
				Field:   fmt.Sprintf("locations[%d]", i),
				Message: err.Error(),
			})
		}
	}
	if req.StartTime.IsZero() {
		fields = append(fields, remote.FieldError{
			Field: "startTime", Message: "startTime is required",
		})
	}
	if req.EndTime.IsZero() {
		fields = append(fields, remote.FieldError{
			Field: "endTime", Message: "endTime is required",
		})
	}
	if !req.StartTime.IsZero() && !req.EndTime.IsZero() && !req.EndTime.After(req.StartTime) {
		fields = append(fields, remote.FieldError{
			Field: "endTime", Message: "endTime must be after startTime",
		})
	}
	return fields
}

func parseTimeQuery(v string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, v); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized time %q", v)
}
