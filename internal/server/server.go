package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/delordemm1/lms-api/internal/config"
	lmsmw "github.com/delordemm1/lms-api/internal/middleware"
	"github.com/delordemm1/lms-api/internal/modules/course"
	"github.com/delordemm1/lms-api/internal/modules/user"
	"github.com/delordemm1/lms-api/internal/session"
)

// Deps are the services the HTTP layer exposes.
type Deps struct {
	Users    user.Service
	Courses  course.Service
	Sessions session.Minter

	// Checks are pinged by /health. A failing check turns the response into a 503.
	Checks map[string]func(context.Context) error
}

type healthResponse struct {
	Body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks,omitempty"`
	}
}

// New creates the chi router with every module's routes mounted on one Huma API.
func New(cfg *config.Config, log *slog.Logger, deps Deps) chi.Router {
	router := chi.NewMux()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(lmsmw.RequestLogger(log))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	apiConfig := huma.DefaultConfig(cfg.App.Name+" API", "1.0.0")
	apiConfig.Components.SecuritySchemes = map[string]*huma.SecurityScheme{
		"bearer": {
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
		},
	}
	api := humachi.New(router, apiConfig)

	user.NewHandler(deps.Users, log, deps.Sessions).RegisterRoutes(api)
	course.NewHandler(deps.Courses, log, deps.Sessions).RegisterRoutes(api)

	huma.Register(api, huma.Operation{
		OperationID: "get-health",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health Check",
		Description: "Responds with the server's health status and the state of its backing stores.",
	}, func(ctx context.Context, _ *struct{}) (*healthResponse, error) {
		return health(ctx, deps.Checks)
	})

	return router
}

func health(ctx context.Context, checks map[string]func(context.Context) error) (*healthResponse, error) {
	resp := &healthResponse{}
	resp.Body.Status = "ok"
	if len(checks) == 0 {
		return resp, nil
	}

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	names := make([]string, 0, len(checks))
	errs := make([]error, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	var g errgroup.Group
	for i, name := range names {
		g.Go(func() error {
			errs[i] = checks[name](ctx)
			return nil
		})
	}
	_ = g.Wait()

	resp.Body.Checks = make(map[string]string, len(checks))
	failed := false
	for i, name := range names {
		if errs[i] != nil {
			failed = true
			resp.Body.Checks[name] = "unavailable"
			continue
		}
		resp.Body.Checks[name] = "ok"
	}
	if failed {
		return nil, huma.Error503ServiceUnavailable("one or more dependencies are unavailable")
	}
	return resp, nil
}
