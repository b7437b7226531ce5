package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/jengzang/antrak/internal/database"
	"github.com/jengzang/antrak/internal/ingest"
	"github.com/jengzang/antrak/internal/models"
	"github.com/jengzang/antrak/internal/nmea"
	"github.com/jengzang/antrak/internal/repository"
	"github.com/jengzang/antrak/internal/service"
	"github.com/jengzang/antrak/pkg/response"
)

// TrackHandler handles HTTP requests for positions and tracks
type TrackHandler struct {
	trackService  *service.TrackService
	reportService *service.ReportService
	trackRepo     *repository.TrackRepository
	maxBody       int64
}

// NewTrackHandler creates a new track handler
func NewTrackHandler(trackService *service.TrackService, reportService *service.ReportService, trackRepo *repository.TrackRepository, maxBody int64) *TrackHandler {
	return &TrackHandler{
		trackService:  trackService,
		reportService: reportService,
		trackRepo:     trackRepo,
		maxBody:       maxBody,
	}
}

// UploadPositions handles POST /api/v1/devices/:device/positions?format=nmea|gpx
func (h *TrackHandler) UploadPositions(c *gin.Context) {
	format, err := ingest.ParseFormat(c.DefaultQuery("format", string(ingest.FormatNMEA)))
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	body := c.Request.Body
	if h.maxBody > 0 {
		body = http.MaxBytesReader(c.Writer, body, h.maxBody)
	}

	result, err := h.trackService.Ingest(c.Request.Context(), c.Param("device"), body, format)
	if err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, nmea.ErrParse):
			response.BadRequest(c, err.Error())
		case errors.As(err, &tooLarge):
			response.TooLarge(c)
		default:
			response.InternalError(c, err.Error())
		}
		return
	}

	response.Success(c, result)
}

// AddTrack handles POST /api/v1/devices/:device/tracks
func (h *TrackHandler) AddTrack(c *gin.Context) {
	var req models.Track
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	track, err := h.trackService.SetTrack(c.Request.Context(), c.Param("device"), req.Trip, req.Name, req.Start, req.End)
	if err != nil {
		if errors.Is(err, repository.ErrNoPositions) {
			response.NotFound(c, "No positions in track period")
			return
		}
		response.BadRequest(c, err.Error())
		return
	}

	response.Success(c, track)
}

// ListTracks handles GET /api/v1/devices/:device/tracks?q=
func (h *TrackHandler) ListTracks(c *gin.Context) {
	tracks, err := h.trackService.ListTracks(c.Request.Context(), c.Param("device"), c.Query("q"))
	if err != nil {
		queryError(c, err)
		return
	}

	response.List(c, tracks)
}

// TrackSummary handles GET /api/v1/devices/:device/tracks/summary?q=
func (h *TrackHandler) TrackSummary(c *gin.Context) {
	rows, err := h.reportService.Summary(c.Request.Context(), c.Param("device"), c.Query("q"))
	if err != nil {
		queryError(c, err)
		return
	}

	response.List(c, rows)
}

// TrackPositions handles GET /api/v1/devices/:device/tracks/positions?q=
func (h *TrackHandler) TrackPositions(c *gin.Context) {
	rows, err := h.trackRepo.LoadPositions(c.Request.Context(), c.Param("device"), c.Query("q"))
	if err != nil {
		queryError(c, err)
		return
	}

	response.List(c, rows)
}

func queryError(c *gin.Context, err error) {
	if errors.Is(err, database.ErrInvalidPattern) {
		response.BadRequest(c, err.Error())
		return
	}
	response.InternalError(c, err.Error())
}
