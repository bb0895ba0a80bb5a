// Package server exposes the conversion pipeline as an HTTP service. One
// endpoint accepts a technical report URL plus rendering options and responds
// with the finished publication.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"r2epub/config"
	"r2epub/convert"
	"r2epub/epub"
	"r2epub/fetch"
	"r2epub/respec"
	"r2epub/state"
	"r2epub/tr"
)

// shutdownTimeout bounds how long in-flight conversions may delay exit.
const shutdownTimeout = 10 * time.Second

type service struct {
	env      *state.LocalEnv
	client   *fetch.Client
	renderer *respec.Client
	log      *zap.Logger
}

func newService(env *state.LocalEnv, log *zap.Logger) *service {
	client := fetch.NewClient(env.Cfg.Fetch, env.Log)
	return &service{
		env:      env,
		client:   client,
		renderer: respec.NewClient(env.Cfg.Respec, client, env.Log),
		log:      log,
	}
}

func (s *service) registerRoutes(e *echo.Echo) {
	e.GET("/convert", s.handleConvert)
	e.POST("/convert", s.handleConvert)
}

// handleConvert converts the report named by the url parameter and returns
// the publication as an attachment. Parameters come from the query string or
// a form body, rendering options mirror the convert command flags.
func (s *service) handleConvert(c echo.Context) error {
	src := c.FormValue("url")
	if len(src) == 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "parameter url is required"})
	}

	opts := config.ChapterOptions{
		SpecStatus:   c.FormValue("specStatus"),
		PublishDate:  c.FormValue("publishDate"),
		SectionLinks: formFlag(c, "addSectionLinks") || s.env.Cfg.Document.SectionLinks,
		TOCDepth:     s.env.Cfg.Document.TOCDepth,
	}
	if v := c.FormValue("maxTocLevel"); len(v) != 0 {
		depth, err := strconv.Atoi(v)
		if err != nil || depth < 0 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": fmt.Sprintf("bad maxTocLevel value %q", v)})
		}
		opts.TOCDepth = depth
	}

	ctx := s.env.WithContext(c.Request().Context())
	name, data, err := convert.Convert(ctx, s.client, s.renderer, src, formFlag(c, "respec"), opts, s.log)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, fetch.ErrInvalidURL) || errors.Is(err, tr.ErrMissingConfig) {
			status = http.StatusBadRequest
		}
		s.log.Error("Conversion failed", zap.String("source", src), zap.Error(err))
		return c.JSON(status, echo.Map{"error": err.Error()})
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, epub.MimetypeContent, data)
}

// formFlag interprets a request parameter as a boolean switch.
func formFlag(c echo.Context, name string) bool {
	v, err := strconv.ParseBool(c.FormValue(name))
	return err == nil && v
}

// Run starts the conversion service and blocks until the context is canceled
// or the listener fails.
func Run(ctx context.Context, cmd *cli.Command) error {
	env := state.EnvFromContext(ctx)
	log := env.Log.Named("server")

	host := env.Cfg.Server.Host
	if cmd.IsSet("host") {
		host = cmd.String("host")
	}
	port := env.Cfg.Server.Port
	if cmd.IsSet("port") {
		port = int(cmd.Int("port"))
	}

	if env.Cfg.Document.Images.Cover.Generate && env.Cfg.Document.Images.Cover.TemplatePath != "" {
		data, err := os.ReadFile(env.Cfg.Document.Images.Cover.TemplatePath)
		if err != nil {
			return fmt.Errorf("unable to read cover template from %q: %w", env.Cfg.Document.Images.Cover.TemplatePath, err)
		}
		env.CoverTemplate = data
	}

	e := newEcho(env, log)
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Start(addr)
	}()
	log.Info("Conversion service listening", zap.String("address", addr))

	select {
	case err := <-errCh:
		return fmt.Errorf("unable to run the service: %w", err)
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(sctx); err != nil {
		return fmt.Errorf("unable to stop the service cleanly: %w", err)
	}
	log.Info("Conversion service stopped")
	return nil
}

// newEcho assembles the router with logging and panic recovery wired to our
// logger.
func newEcho(env *state.LocalEnv, log *zap.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:  true,
		LogURI:     true,
		LogStatus:  true,
		LogLatency: true,
		LogError:   true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", v.URI),
				zap.Int("status", v.Status),
				zap.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				fields = append(fields, zap.Error(v.Error))
			}
			log.Info("Request served", fields...)
			return nil
		},
	}))
	e.Use(middleware.Recover())

	newService(env, log).registerRoutes(e)
	return e
}
