package server

import (
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/nvr-ai/safegaze/detection"
	"github.com/nvr-ai/safegaze/images"
	"github.com/nvr-ai/safegaze/pipeline"
	"github.com/nvr-ai/safegaze/wire"
)

// imageField is the multipart field carrying the upload.
const imageField = "image"

type urlRequest struct {
	URL string `json:"url" binding:"required"`
}

type messageRequest struct {
	Message string `json:"message" binding:"required"`
}

type messageResponse struct {
	Kind   string          `json:"kind"`
	UID    string          `json:"uid,omitempty"`
	Script string          `json:"script,omitempty"`
	Reason pipeline.Reason `json:"reason,omitempty"`
}

func (s *Server) handleHealth(c *gin.Context) {
	body := gin.H{"status": "ok"}
	if s.health != nil {
		for k, v := range s.health() {
			body[k] = v
		}
	}
	c.JSON(http.StatusOK, body)
}

// handleDetect accepts a raw image body, a multipart "image" field or a JSON
// {"url": ...} and returns the wire payload.
func (s *Server) handleDetect(c *gin.Context) {
	var (
		data []byte
		err  error
	)
	if c.ContentType() == gin.MIMEJSON {
		var req urlRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		data, err = s.fetch(c, req.URL)
		if err != nil {
			s.writeFailClosed(c, pipeline.ReasonFetchFailed, err)
			return
		}
	} else {
		data, err = s.readImage(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	entry, hit := s.detect(data, func() pipeline.Outcome {
		return s.detector.ProcessBytes(c.Request.Context(), data)
	})
	s.writeResult(c, entry, hit)
}

// handleRedact renders the uploaded image and returns it as PNG.
func (s *Server) handleRedact(c *gin.Context) {
	data, err := s.readImage(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	img, _, err := images.Decode(data)
	if err != nil {
		c.JSON(http.StatusUnsupportedMediaType, gin.H{"error": err.Error(), "reason": pipeline.ReasonDecodeFailed})
		return
	}

	ctx := c.Request.Context()
	entry, hit := s.detect(data, func() pipeline.Outcome {
		return s.detector.Process(ctx, img)
	})

	out, err := s.renderer.Render(ctx, entry.result, img)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
		return
	}
	png, err := images.EncodePNG(out.Image)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Header(HeaderReason, string(entry.reason))
	c.Header(HeaderCache, cacheStatus(hit))
	c.Header(HeaderState, out.State.String())
	c.Header(HeaderRedacted, strconv.Itoa(out.Redacted))
	c.Data(http.StatusOK, "image/png", png)
}

// handleMessage handles one page-script message.
func (s *Server) handleMessage(c *gin.Context) {
	var req messageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	msg := wire.ParseMessage(req.Message)
	switch msg.Kind {
	case wire.KindReplaced:
		s.telemetry.ImageBlurred()
		c.JSON(http.StatusOK, messageResponse{Kind: msg.Kind.String()})
	case wire.KindProcess:
		var entry cacheEntry
		data, err := s.fetch(c, msg.URL)
		if err != nil {
			s.logger(c).Warn("fetch failed", zap.String("url", msg.URL), zap.Error(err))
			entry = failClosed(pipeline.ReasonFetchFailed)
		} else {
			entry, _ = s.detect(data, func() pipeline.Outcome {
				return s.detector.ProcessBytes(c.Request.Context(), data)
			})
		}
		payload, err := wire.Encode(entry.result)
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, messageResponse{
			Kind:   msg.Kind.String(),
			UID:    msg.UID,
			Script: wire.HandlerCall(msg.UID, payload),
			Reason: entry.reason,
		})
	default:
		s.logger(c).Info("page script", zap.String("message", msg.Text))
		c.JSON(http.StatusOK, messageResponse{Kind: msg.Kind.String()})
	}
}

func (s *Server) fetch(c *gin.Context, url string) ([]byte, error) {
	if s.fetcher == nil {
		return nil, pipeline.ErrNoFetcher
	}
	return s.fetcher.Fetch(c.Request.Context(), url)
}

// readImage reads the upload from a multipart field or the raw body.
func (s *Server) readImage(c *gin.Context) ([]byte, error) {
	limit := s.cfg.MaxUploadBytes
	if strings.HasPrefix(c.ContentType(), "multipart/") {
		fh, err := c.FormFile(imageField)
		if err != nil {
			return nil, errors.Wrapf(err, "multipart field %q", imageField)
		}
		if limit > 0 && fh.Size > limit {
			return nil, errors.Errorf("upload of %d bytes exceeds %d", fh.Size, limit)
		}
		f, err := fh.Open()
		if err != nil {
			return nil, errors.Wrap(err, "open upload")
		}
		defer f.Close()
		return io.ReadAll(f)
	}

	body := c.Request.Body
	if limit > 0 {
		body = http.MaxBytesReader(c.Writer, body, limit)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(data) == 0 {
		return nil, errors.New("empty body")
	}
	return data, nil
}

func (s *Server) writeResult(c *gin.Context, entry cacheEntry, hit bool) {
	payload, err := wire.Encode(entry.result)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.Header(HeaderReason, string(entry.reason))
	c.Header(HeaderCache, cacheStatus(hit))
	c.Data(http.StatusOK, gin.MIMEJSON, payload)
}

// writeFailClosed answers with the unsafe payload when the image could not be obtained.
func (s *Server) writeFailClosed(c *gin.Context, reason pipeline.Reason, err error) {
	s.logger(c).Warn("failing closed", zap.String("reason", string(reason)), zap.Error(err))
	s.writeResult(c, failClosed(reason), false)
}

func failClosed(reason pipeline.Reason) cacheEntry {
	return cacheEntry{result: detection.DetectionResult{IsNSFW: true}, reason: reason}
}

func cacheStatus(hit bool) string {
	if hit {
		return "hit"
	}
	return "miss"
}
