// Package server is the thin HTTP transport over the analysis pipeline.
// It decodes multipart uploads and maps pipeline outcomes to status codes;
// all real logic lives in the pipeline.
package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/axoncare-ai/hemolens"
)

const serviceVersion = "1.0.0"

type Server struct {
	echo           *echo.Echo
	pipeline       *hemolens.Pipeline
	maxUploadBytes int64
	logger         *slog.Logger
}

func New(pipeline *hemolens.Pipeline, maxUploadBytes int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORS())

	s := &Server{
		echo:           e,
		pipeline:       pipeline,
		maxUploadBytes: maxUploadBytes,
		logger:         logger.With("component", "server"),
	}

	e.GET("/", s.handleRoot)
	e.GET("/health", s.handleHealth)
	e.POST("/analyze", s.handleAnalyze)

	return s
}

func (s *Server) Start(addr string) error {
	s.logger.Info("http server listening", "addr", addr)
	return s.echo.Start(addr)
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}

// Handler exposes the routing tree for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

func (s *Server) handleRoot(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"message": "Blood Test Report Analyzer API is running",
		"version": serviceVersion,
		"status":  "healthy",
	})
}

func (s *Server) handleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "healthy",
		"service": "Blood Test Report Analyzer",
		"version": serviceVersion,
		"endpoints": map[string]string{
			"analyze": "/analyze - POST - Upload and analyze blood test reports",
			"health":  "/health - GET - Service health status",
		},
	})
}

func (s *Server) handleAnalyze(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorPayload("a PDF file is required in the 'file' field"))
	}

	src, err := fileHeader.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorPayload("could not read the uploaded file"))
	}
	defer src.Close()

	// One byte of slack past the cap lets the pipeline report the size
	// violation itself instead of the transport silently truncating.
	payload, err := io.ReadAll(io.LimitReader(src, s.maxUploadBytes+1))
	if err != nil {
		return c.JSON(http.StatusBadRequest, errorPayload("could not read the uploaded file"))
	}

	outcome := s.pipeline.Run(c.Request().Context(), hemolens.Request{
		Payload:           payload,
		DeclaredMediaType: fileHeader.Header.Get("Content-Type"),
		SizeBytes:         int64(len(payload)),
		Filename:          fileHeader.Filename,
		Query:             c.FormValue("query"),
	})

	switch outcome.Status {
	case hemolens.OutcomeComplete:
		return c.JSON(http.StatusOK, map[string]any{
			"status":          "success",
			"query":           outcome.Query,
			"analysis":        outcome.Analysis.Commentary,
			"recommendations": outcome.Advisory.Guidance,
			"evidence":        outcome.EvidenceSummary,
			"file_processed":  fileHeader.Filename,
			"file_size_bytes": len(payload),
			"processing_id":   outcome.RunID,
		})

	case hemolens.OutcomeRejected:
		return c.JSON(http.StatusBadRequest, map[string]any{
			"status":        "rejected",
			"reason":        outcome.Reason,
			"processing_id": outcome.RunID,
		})

	default:
		return s.renderFailure(c, outcome)
	}
}

// renderFailure maps failed outcomes: bad-upload kinds are client errors
// with a safe fixed message; everything else is a generic 500 with the
// stage and kind going only to the logs.
func (s *Server) renderFailure(c echo.Context, outcome hemolens.Outcome) error {
	if outcome.ErrorKind.InputKind() {
		status := http.StatusBadRequest
		message := "the uploaded file could not be accepted"
		switch outcome.ErrorKind {
		case hemolens.KindSizeExceeded:
			status = http.StatusRequestEntityTooLarge
			message = "the uploaded file exceeds the maximum allowed size"
		case hemolens.KindEmptyPayload:
			message = "the uploaded file is empty"
		case hemolens.KindInvalidMediaType:
			message = "only PDF blood test reports are supported"
		}
		return c.JSON(status, errorPayload(message))
	}

	s.logger.Error("analysis request failed",
		"processing_id", outcome.RunID,
		"stage", outcome.FailedStage,
		"kind", outcome.ErrorKind,
		"error", outcome.Err())

	return c.JSON(http.StatusInternalServerError,
		errorPayload("an unexpected error occurred while processing your blood report"))
}

func errorPayload(message string) map[string]string {
	return map[string]string{
		"status":  "error",
		"message": message,
	}
}
