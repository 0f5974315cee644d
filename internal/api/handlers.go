package api

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/youruser/frameapp/internal/assets"
	"github.com/youruser/frameapp/internal/config"
	"github.com/youruser/frameapp/internal/greeting"
	imagepkg "github.com/youruser/frameapp/internal/image"
	"github.com/youruser/frameapp/internal/metrics"
	"github.com/youruser/frameapp/internal/util"
)

const (
	defaultQRSize = 400
	minQRSize     = 64
	maxQRSize     = 1024
	// multipart headers and the other fields on top of the photo itself
	formOverheadBytes = 1 << 20
)

// Handler serves the frame API.
type Handler struct {
	cfg     *config.Config
	assets  *assets.Set
	fetcher imagepkg.BytesGetter
	logger  *slog.Logger
	now     func() time.Time
}

// NewHandler creates a Handler. fetcher may be nil when image_url is
// disabled.
func NewHandler(cfg *config.Config, set *assets.Set, fetcher imagepkg.BytesGetter, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{cfg: cfg, assets: set, fetcher: fetcher, logger: logger, now: time.Now}
}

func (h *Handler) selector(locale string) greeting.Selector {
	l := greeting.Locale(h.cfg.Greeting.Locale)
	if locale != "" {
		l = greeting.Locale(locale)
	}
	return greeting.Selector{Year: h.cfg.Greeting.Year, Locale: l}
}

// health
func (h *Handler) health(c *gin.Context) {
	missing := h.assets.Check()
	ready := h.assets.FramesReady()
	metrics.SetAssetsReady(ready)

	switch {
	case !ready:
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "missing": missing})
	case len(missing) > 0:
		// font only: captions fall back to the builtin face
		c.JSON(http.StatusOK, gin.H{"status": "degraded", "missing": missing})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// message returns the greeting for ?date= (default today in UTC+8).
func (h *Handler) message(c *gin.Context) {
	locale := c.Query("locale")
	if locale != "" && !greeting.ValidLocale(greeting.Locale(locale)) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("unsupported locale %q", locale)})
		return
	}

	day := greeting.Today(h.now())
	if s := c.Query("date"); s != "" {
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		day = d
	}

	c.JSON(http.StatusOK, gin.H{
		"date":    day.Format(time.DateOnly),
		"message": h.selector(locale).Message(day),
	})
}

// frame returns the blank frame shown before a photo is chosen.
func (h *Handler) frame(c *gin.Context) {
	o, err := assets.ParseOrientation(c.Param("orientation"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	frame, err := imagepkg.LoadFrame(h.assets.FramePath(o))
	if err != nil {
		requestLogger(c, h.logger).Error("load frame", "orientation", o, "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	buf := new(bytes.Buffer)
	if err := imagepkg.Encode(buf, frame, imagepkg.FormatPNG, 0); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, imagepkg.FormatPNG.ContentType(), buf.Bytes())
}

// qr endpoint returns a PNG of a QR for "text" query param, defaulting to
// today's message
func (h *Handler) qr(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		text = h.selector("").Message(greeting.Today(h.now()))
	}
	size := defaultQRSize
	if v, err := strconv.Atoi(c.Query("size")); err == nil {
		size = min(max(v, minQRSize), maxQRSize)
	}
	b, err := imagepkg.GenerateQRPNG(text, size)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Data(http.StatusOK, "image/png", b)
}

// composeForm is the multipart body of POST /api/compose.
type composeForm struct {
	Image       *multipart.FileHeader `form:"image"`
	ImageURL    string                `form:"image_url"`
	Orientation string                `form:"orientation"`
	AddMessage  bool                  `form:"add_message,default=true"`
	Mode        string                `form:"mode"`
	Scale       float64               `form:"scale,default=100"`
	OffsetX     float64               `form:"offset_x"`
	OffsetY     float64               `form:"offset_y"`
	Rotation    float64               `form:"rotation"`
	Message     string                `form:"message"`
	Style       string                `form:"style"`
	QRText      string                `form:"qr_text"`
	Format      string                `form:"format"`
}

// composeParams is composeForm after validation.
type composeParams struct {
	orientation assets.Orientation
	strategy    imagepkg.Strategy
	placement   imagepkg.Placement
	style       imagepkg.CaptionStyle
	format      imagepkg.OutputFormat
}

func (h *Handler) parseComposeForm(f *composeForm) (composeParams, error) {
	var (
		p   composeParams
		err error
	)
	if p.orientation, err = assets.ParseOrientation(f.Orientation); err != nil {
		return p, err
	}
	if p.strategy, err = imagepkg.ParseStrategy(strings.ToLower(strings.TrimSpace(f.Mode))); err != nil {
		return p, err
	}
	if p.style, err = imagepkg.ParseCaptionStyle(strings.ToLower(strings.TrimSpace(f.Style))); err != nil {
		return p, err
	}
	format := f.Format
	if format == "" {
		format = h.cfg.Output.Format
	}
	if p.format, err = imagepkg.ParseOutputFormat(format); err != nil {
		return p, err
	}
	for _, v := range []float64{f.Scale, f.OffsetX, f.OffsetY, f.Rotation} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return p, errors.New("placement values must be finite numbers")
		}
	}
	p.placement = imagepkg.Placement{
		ScalePercent: int(math.Round(f.Scale)),
		OffsetX:      int(math.Round(f.OffsetX)),
		OffsetY:      int(math.Round(f.OffsetY)),
		Rotation:     f.Rotation,
	}.Normalize()
	return p, nil
}

// compose builds the framed photo. A missing or unreadable photo yields the
// blank frame; a missing frame is fatal.
func (h *Handler) compose(c *gin.Context) {
	start := time.Now()
	log := requestLogger(c, h.logger)
	maxUpload := h.cfg.MaxUploadBytes()

	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUpload+formOverheadBytes)
	var form composeForm
	if err := c.ShouldBind(&form); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	params, err := h.parseComposeForm(&form)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if form.ImageURL != "" && !h.cfg.Fetch.Enabled {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image_url is disabled"})
		return
	}

	strategy := string(params.strategy)
	frame, err := imagepkg.LoadFrame(h.assets.FramePath(params.orientation))
	if err != nil {
		log.Error("load frame", "orientation", params.orientation, "error", err)
		metrics.RecordCompose(strategy, metrics.ResultError, time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	photo, err := h.readPhoto(c.Request.Context(), &form, maxUpload)
	switch {
	case errors.Is(err, util.ErrTooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "upload too large"})
		return
	case err != nil:
		log.Info("no usable photo, returning blank frame", "error", err)
	}

	req := imagepkg.ComposeRequest{
		Frame:      frame,
		Photo:      photo,
		Strategy:   params.strategy,
		Placement:  params.placement,
		AddCaption: form.AddMessage,
		Style:      params.style,
		QRText:     form.QRText,
	}
	if photo != nil && form.AddMessage {
		msg := h.selector("").Message(greeting.Today(h.now()))
		req.Caption = imagepkg.ResolveCaption(form.Message, msg)
		req.Font = h.loadFont(log)
	}

	res, err := imagepkg.Compose(req)
	if err != nil {
		log.Error("compose", "error", err)
		metrics.RecordCompose(strategy, metrics.ResultError, time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	buf := new(bytes.Buffer)
	if err := imagepkg.Encode(buf, res.Image, params.format, h.cfg.Output.JPEGQuality); err != nil {
		log.Error("encode", "format", params.format, "error", err)
		metrics.RecordCompose(strategy, metrics.ResultError, time.Since(start))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	result := metrics.ResultOK
	if res.FrameOnly {
		result = metrics.ResultFrameOnly
		c.Header("X-Composite", "frame-only")
	}
	metrics.RecordCompose(strategy, result, time.Since(start))
	if res.Caption != nil {
		log.Debug("caption drawn", "font_size", res.Caption.FontSize, "box", res.Caption.Box.String(), "fallback", res.Caption.Fallback)
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", params.format.Filename()))
	c.Data(http.StatusOK, params.format.ContentType(), buf.Bytes())
}

// readPhoto returns the uploaded or linked photo. Errors other than
// util.ErrTooLarge wrap imagepkg.ErrNoImage.
func (h *Handler) readPhoto(ctx context.Context, form *composeForm, maxUpload int64) (image.Image, error) {
	switch {
	case form.Image != nil:
		if form.Image.Size > maxUpload {
			return nil, util.ErrTooLarge
		}
		f, err := form.Image.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: open upload: %v", imagepkg.ErrNoImage, err)
		}
		defer f.Close()
		return imagepkg.DecodeImage(f)
	case form.ImageURL != "" && h.fetcher != nil:
		return imagepkg.DownloadImage(ctx, h.fetcher, form.ImageURL)
	}
	return nil, imagepkg.ErrNoImage
}

// loadFont resolves the caption font per request. Failure degrades to the
// builtin face.
func (h *Handler) loadFont(log *slog.Logger) *imagepkg.Font {
	f, err := imagepkg.LoadFont(imagepkg.FontCandidates(h.assets.FontPath(), h.assets.FontGlobs())...)
	if err != nil {
		log.Warn("caption font unavailable, using builtin", "error", err)
	}
	if f.Fallback() {
		metrics.RecordFontFallback()
	}
	return f
}

// index serves the upload page.
func index(c *gin.Context) {
	c.Data(http.StatusOK, "text/html; charset=utf-8", indexHTML)
}
