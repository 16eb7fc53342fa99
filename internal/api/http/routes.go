package httpapi

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/i474232898/weather-aqi-monitor/internal/store"
	"github.com/i474232898/weather-aqi-monitor/internal/weather"
)

var validate = validator.New()

// requestTimeout bounds the upstream work done for a single API call.
const requestTimeout = 30 * time.Second

// RegisterRoutes wires the HTTP handlers into the Fiber app.
//
// JSON answers of /api/weather and /api/history, and failed exports, are
// encoded as a two element array [body, status]; the HTTP status line
// carries the same code. A missing city is answered with a plain
// {"error": ...} object and 400.
func RegisterRoutes(app *fiber.App, service *weather.Service, log *zap.Logger) {
	if log == nil {
		log = zap.NewNop()
	}
	api := app.Group("/api")

	api.Get("/weather", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "City parameter is required")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
		defer cancel()

		snapshot, err := service.Current(ctx, q.City)
		if err != nil {
			status, msg := weatherError(err)
			if status == fiber.StatusInternalServerError {
				log.Error("current weather failed", zap.String("city", q.City), zap.Error(err))
			}
			return envelope(c, status, errorBody(msg))
		}
		return envelope(c, fiber.StatusOK, snapshot)
	})

	api.Get("/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
		defer cancel()

		history, err := service.History(ctx, req.City, req.Days)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return envelope(c, fiber.StatusNotFound, errorBody("No historical data available"))
			}
			status, msg := weatherError(err)
			if status == fiber.StatusInternalServerError {
				log.Error("history query failed", zap.String("city", req.City), zap.Error(err))
				msg = "failed to fetch weather history"
			}
			return envelope(c, status, errorBody(msg))
		}
		return envelope(c, fiber.StatusOK, history)
	})

	api.Get("/export", func(c *fiber.Ctx) error {
		q, err := parseCityQuery(c)
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "City parameter is required")
		}

		ctx, cancel := context.WithTimeout(c.UserContext(), requestTimeout)
		defer cancel()

		path, err := service.ExportCSV(ctx, q.City)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return envelope(c, fiber.StatusNotFound, errorBody("No data available"))
			}
			status, msg := weatherError(err)
			if status == fiber.StatusInternalServerError {
				log.Error("export failed", zap.String("city", q.City), zap.Error(err))
				msg = "Export failed"
			}
			return envelope(c, status, errorBody(msg))
		}
		data, err := os.ReadFile(path)
		if err != nil {
			log.Error("read export file failed", zap.String("path", path), zap.Error(err))
			return envelope(c, fiber.StatusInternalServerError, errorBody("Export failed"))
		}
		c.Attachment(filepath.Base(path))
		c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		return c.Send(data)
	})
}

// ErrorHandler renders errors that escape a handler as {"error": message}.
func ErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
	}
	return c.Status(code).JSON(errorBody(err.Error()))
}

func envelope(c *fiber.Ctx, status int, body any) error {
	return c.Status(status).JSON([]any{body, status})
}

func errorBody(msg string) fiber.Map {
	return fiber.Map{"error": msg}
}

// weatherError maps service errors to a status code and a user-facing message.
func weatherError(err error) (int, string) {
	switch {
	case errors.Is(err, weather.ErrInvalidCity):
		return fiber.StatusBadRequest, "Invalid city name"
	case errors.Is(err, weather.ErrInvalidDays):
		return fiber.StatusBadRequest, "days must be a positive integer"
	case errors.Is(err, weather.ErrCityNotFound):
		return fiber.StatusNotFound, "City not found"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "upstream request timed out"
	default:
		return fiber.StatusInternalServerError, "failed to fetch weather data"
	}
}

// cityQuery holds the city query parameter shared by all endpoints.
type cityQuery struct {
	City string `validate:"required"`
}

func parseCityQuery(c *fiber.Ctx) (cityQuery, error) {
	q := cityQuery{City: c.Query("city")}
	if err := validate.Struct(q); err != nil {
		return q, err
	}
	return q, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	City string `validate:"required"`
	Days int    `validate:"min=1"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.City = c.Query("city")
	if h.City == "" {
		return errors.New("City parameter is required")
	}

	h.Days = 7
	if v := c.Query("days"); v != "" {
		days, err := strconv.Atoi(v)
		if err != nil {
			return errors.New("days must be an integer")
		}
		h.Days = days
	}

	if err := validate.Struct(h); err != nil {
		return errors.New("days must be a positive integer")
	}
	return nil
}
