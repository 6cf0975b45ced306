package main

import (
	"errors"
	"log/slog"
	"math"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"

	"github.com/cpbynwol/go-depthprofile"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "depthprofile",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "Total HTTP requests processed",
	}, []string{"method", "path", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "depthprofile",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "HTTP request latency in seconds",
		Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
	}, []string{"method", "path"})
)

const unmatchedPath = "unmatched"

// APIError is a structured error response.
type APIError struct {
	Status    int    `json:"status"`
	Code      string `json:"code"`
	Message   string `json:"message"`
	RequestID string `json:"request_id,omitempty"`
}

// A locationJSON is a location's grid as served to clients.
type locationJSON struct {
	Name        string                   `json:"name"`
	BoundingBox depthprofile.BoundingBox `json:"bounding_box"`
	Lon         []float64                `json:"lon"`
	Lat         []float64                `json:"lat"`
	Matrix      [][]*float64             `json:"matrix"`
}

type recordErrorJSON struct {
	Index    int    `json:"index"`
	Location string `json:"location"`
	Error    string `json:"error"`
}

type locationsJSON struct {
	Locations []string          `json:"locations"`
	Errors    []recordErrorJSON `json:"errors"`
}

// newApp returns a new fiber.App serving service.
func newApp(service *depthprofile.Service, cfg *Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "depthprofile",
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(metricsMiddleware())
	app.Use(accessLogMiddleware())

	app.Get("/metrics", metricsHandler())

	v1 := app.Group("/v1")
	v1.Get("/health", healthHandler(service))
	v1.Get("/locations", locationsHandler(service))
	v1.Get("/locations/:name", locationHandler(service))
	v1.Get("/locations/:name/profile", profileHandler(service, cfg.Profile.Samples))
	v1.Post("/reload", reloadHandler(service))

	return app
}

func healthHandler(service *depthprofile.Service) fiber.Handler {
	startedAt := time.Now()
	return func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "healthy",
			"uptime":    time.Since(startedAt).String(),
			"locations": len(service.Locations()),
		})
	}
}

func locationsHandler(service *depthprofile.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		return c.JSON(newLocationsJSON(service))
	}
}

func locationHandler(service *depthprofile.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		field, err := service.Field(c.Params("name"))
		if err != nil {
			return err
		}
		axes := field.Axes()
		return c.JSON(&locationJSON{
			Name:        field.Name(),
			BoundingBox: field.BoundingBox(),
			Lon:         axes.Lon,
			Lat:         axes.Lat,
			Matrix:      finiteMatrix(field.Matrix()),
		})
	}
}

func profileHandler(service *depthprofile.Service, defaultSamples int) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start, err := parsePoint(c.Query("start"))
		if err != nil {
			return err
		}
		end, err := parsePoint(c.Query("end"))
		if err != nil {
			return err
		}
		samples := defaultSamples
		if n := c.Query("n"); n != "" {
			samples, err = strconv.Atoi(n)
			if err != nil {
				return fiber.NewError(fiber.StatusBadRequest, "n: "+err.Error())
			}
		}
		profile, err := service.Profile(c.UserContext(), c.Params("name"), depthprofile.ProfileRequest{
			Start:   start,
			End:     end,
			Samples: samples,
		})
		if err != nil {
			return err
		}
		return c.JSON(profile)
	}
}

func reloadHandler(service *depthprofile.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if err := service.Reload(c.UserContext()); err != nil {
			return err
		}
		logRecordErrors(service.Errors())
		slog.Info("catalog reloaded", slog.Int("locations", len(service.Locations())))
		return c.JSON(newLocationsJSON(service))
	}
}

func newLocationsJSON(service *depthprofile.Service) *locationsJSON {
	recordErrs := service.Errors()
	result := &locationsJSON{
		Locations: service.Locations(),
		Errors:    make([]recordErrorJSON, 0, len(recordErrs)),
	}
	if result.Locations == nil {
		result.Locations = []string{}
	}
	for _, recordErr := range recordErrs {
		result.Errors = append(result.Errors, recordErrorJSON{
			Index:    recordErr.Index,
			Location: recordErr.Location,
			Error:    recordErr.Err.Error(),
		})
	}
	return result
}

// finiteMatrix returns matrix with non-finite values replaced by nil.
func finiteMatrix(matrix [][]float64) [][]*float64 {
	result := make([][]*float64, len(matrix))
	for i, row := range matrix {
		result[i] = make([]*float64, len(row))
		for j := range row {
			if !math.IsNaN(row[j]) && !math.IsInf(row[j], 0) {
				result[i][j] = &row[j]
			}
		}
	}
	return result
}

// errorHandler writes err as an APIError.
func errorHandler(c *fiber.Ctx, err error) error {
	status, code := fiber.StatusInternalServerError, "internal_error"
	var fiberErr *fiber.Error
	switch {
	case errors.As(err, &fiberErr):
		status, code = fiberErr.Code, "error"
		switch fiberErr.Code {
		case fiber.StatusBadRequest:
			code = "bad_request"
		case fiber.StatusNotFound:
			code = "not_found"
		case fiber.StatusMethodNotAllowed:
			code = "method_not_allowed"
		}
	case errors.Is(err, depthprofile.ErrInvalidRequest):
		status, code = fiber.StatusBadRequest, "invalid_request"
	case errors.Is(err, depthprofile.ErrOutOfDomain):
		status, code = fiber.StatusBadRequest, "out_of_domain"
	case errors.Is(err, depthprofile.ErrUnknownLocation):
		status, code = fiber.StatusNotFound, "unknown_location"
	case errors.Is(err, depthprofile.ErrGridParse),
		errors.Is(err, depthprofile.ErrBoundingBoxParse),
		errors.Is(err, depthprofile.ErrMalformedRecord):
		status, code = fiber.StatusUnprocessableEntity, "malformed_record"
	case errors.Is(err, depthprofile.ErrCatalogUnavailable):
		status, code = fiber.StatusServiceUnavailable, "catalog_unavailable"
	}
	reqID, _ := c.Locals("requestid").(string)
	return c.Status(status).JSON(APIError{
		Status:    status,
		Code:      code,
		Message:   err.Error(),
		RequestID: reqID,
	})
}

// accessLogMiddleware logs each request with its final status. Errors from
// later handlers are written by the app's error handler before logging.
func accessLogMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		var err error
		if chainErr := c.Next(); chainErr != nil {
			if err = c.App().Config().ErrorHandler(c, chainErr); err != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()
		level := slog.LevelInfo
		switch {
		case status >= 500:
			level = slog.LevelError
		case status >= 400:
			level = slog.LevelWarn
		}
		reqID, _ := c.Locals("requestid").(string)
		slog.LogAttrs(c.UserContext(), level, c.Method()+" "+c.Path(),
			slog.Int("status", status),
			slog.Duration("latency", time.Since(start)),
			slog.Int("bytes_out", len(c.Response().Body())),
			slog.String("request_id", reqID),
		)
		return err
	}
}

// metricsMiddleware records request metrics labelled by route pattern.
// Requests that reach no route share the unmatchedPath label.
func metricsMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		path := unmatchedPath
		// Without a matching handler the last route is a middleware.
		if route := c.Route(); route.Method == c.Method() && route.Path != "" {
			path = route.Path
		}
		httpRequestsTotal.WithLabelValues(c.Method(), path, strconv.Itoa(c.Response().StatusCode())).Inc()
		httpRequestDuration.WithLabelValues(c.Method(), path).Observe(time.Since(start).Seconds())
		return err
	}
}

// metricsHandler serves Prometheus metrics.
func metricsHandler() fiber.Handler {
	handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
	return func(c *fiber.Ctx) error {
		handler(c.Context())
		return nil
	}
}
