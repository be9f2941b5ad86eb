// Package api provides the REST API server for midi2gcode
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"github.com/james-see/midi2gcode/pkg/converter"
	"github.com/james-see/midi2gcode/pkg/converter/dialects"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// maxUploadSize bounds the request body of an upload
const maxUploadSize = 8 << 20

// @title midi2gcode API
// @version 1.0
// @description API for converting MIDI files into beeper G-code and RouterOS scripts
// @host localhost:8080
// @BasePath /api/v1

// StartServer starts the API server on the specified port
func StartServer(port int, logger *log.Logger) error {
	logger.Info("starting API server", "port", port)
	return NewRouter(logger).Run(fmt.Sprintf(":%d", port))
}

// NewRouter builds the gin engine with all routes
func NewRouter(logger *log.Logger) *gin.Engine {
	if logger == nil {
		logger = log.Default()
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(logger))

	// CORS middleware
	r.Use(corsMiddleware())

	// Health check
	r.GET("/health", healthCheck)

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/dialects", listDialects)
		v1.POST("/convert", handleConvert)
		v1.POST("/inspect", handleInspect)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

func requestLogger(logger *log.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := log.WithContext(c.Request.Context(), logger)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
		logger.Debug("request", "method", c.Request.Method, "path", c.Request.URL.Path, "status", c.Writer.Status())
	}
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "midi2gcode",
	})
}

// listDialects godoc
// @Summary List output dialects
// @Description Returns the supported output dialects
// @Tags info
// @Produce json
// @Success 200 {object} map[string][]map[string]string
// @Router /api/v1/dialects [get]
func listDialects(c *gin.Context) {
	var out []map[string]string
	for _, name := range dialects.Names() {
		d, _ := dialects.Get(name)
		out = append(out, map[string]string{
			"id":          d.Name(),
			"description": d.Description(),
			"extension":   d.Extension(),
		})
	}
	c.JSON(http.StatusOK, gin.H{"dialects": out})
}

// handleConvert godoc
// @Summary Convert MIDI to a tone program
// @Description Upload a MIDI file and receive a G-code or RouterOS program
// @Tags convert
// @Accept multipart/form-data
// @Produce text/plain
// @Param file formData file true "MIDI file to convert"
// @Param dialect query string false "Output dialect (default: marlin)"
// @Param channel query int false "MIDI channel (default: 0)"
// @Param gap query int false "Silence after each tone in ms (default: 30)"
// @Param tempo query int false "Default tempo in microseconds per beat (default: 500000)"
// @Param tempo_track query int false "Track holding tempo events (default: 0)"
// @Param order query string false "interleave or concatenate (default: interleave)"
// @Param transpose query int false "Semitones to transpose"
// @Param comments query bool false "Annotate tones with note names"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Failure 413 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/convert [post]
func handleConvert(c *gin.Context) {
	res, filename, ok := runConversion(c)
	if !ok {
		return
	}

	d, _ := dialects.Get(res.Dialect)
	outputName := strings.TrimSuffix(filepath.Base(filename), filepath.Ext(filename))
	if outputName == "" || outputName == "." {
		outputName = "converted"
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s%s", outputName, d.Extension()))
	c.Header("X-Tone-Count", strconv.Itoa(res.Stats.Tones))
	c.Data(http.StatusOK, "text/plain; charset=utf-8", res.Program)
}

// handleInspect godoc
// @Summary Inspect a MIDI conversion
// @Description Upload a MIDI file and receive conversion diagnostics
// @Tags convert
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "MIDI file to inspect"
// @Param channel query int false "MIDI channel (default: 0)"
// @Success 200 {object} converter.Stats
// @Failure 400 {object} map[string]string
// @Failure 413 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/inspect [post]
func handleInspect(c *gin.Context) {
	res, _, ok := runConversion(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"stats":       res.Stats,
		"breakpoints": res.Breakpoints,
		"empty":       res.Empty(),
	})
}

func runConversion(c *gin.Context) (*converter.Result, string, bool) {
	opts, err := parseOptions(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}

	dialect, err := dialects.Get(c.Query("dialect"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, "", false
	}

	if c.Request.ContentLength > maxUploadSize {
		tooLarge(c)
		return nil, "", false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	// Get uploaded file
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			tooLarge(c)
			return nil, "", false
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return nil, "", false
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return nil, "", false
	}

	res, err := converter.New(dialect, opts).Convert(c.Request.Context(), data)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, converter.ErrMalformedStream) ||
			errors.Is(err, converter.ErrUnsupportedTimeFormat) ||
			errors.Is(err, converter.ErrOutOfOrderTempoEvent) ||
			errors.Is(err, converter.ErrInvalidTempo) {
			status = http.StatusUnprocessableEntity
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return nil, "", false
	}
	return res, header.Filename, true
}

func tooLarge(c *gin.Context) {
	c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": fmt.Sprintf("upload exceeds %d bytes", maxUploadSize)})
}

func parseOptions(c *gin.Context) (converter.Options, error) {
	opts := converter.DefaultOptions()

	intParam := func(name string, dst *int) error {
		v := c.Query(name)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %q", name, v)
		}
		*dst = n
		return nil
	}

	channel := int(opts.Channel)
	tempo := int(opts.MicrosecondsPerBeat)
	for name, dst := range map[string]*int{
		"channel":     &channel,
		"gap":         &opts.GapMs,
		"tempo":       &tempo,
		"tempo_track": &opts.TempoTrack,
		"transpose":   &opts.Transpose,
	} {
		if err := intParam(name, dst); err != nil {
			return opts, err
		}
	}
	if channel < 0 || channel > 15 {
		return opts, fmt.Errorf("%w: channel %d out of range 0-15", converter.ErrInvalidOptions, channel)
	}
	if tempo <= 0 {
		return opts, fmt.Errorf("%w: tempo must be positive", converter.ErrInvalidOptions)
	}
	opts.Channel = uint8(channel)
	opts.MicrosecondsPerBeat = uint32(tempo)

	order, err := converter.ParseOrder(c.Query("order"))
	if err != nil {
		return opts, err
	}
	opts.Order = order

	if v := c.Query("comments"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid comments: %q", v)
		}
		opts.Comments = b
	}

	return opts, opts.Validate()
}
