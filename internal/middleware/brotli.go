package middleware

import (
	"net/http"
	"strings"

	"github.com/andybalholm/brotli"
	"github.com/gin-gonic/gin"
)

// BrotliConfig tunes response compression. SkipPrefixes lists path
// prefixes that stream (system metrics SSE, proctor WebSocket) and must stay raw.
type BrotliConfig struct {
	Quality      int
	MinLength    int
	SkipPrefixes []string
}

const defaultBrotliMinLength = 1024

type writerMode int

const (
	modeBuffering writerMode = iota
	modeCompressing
	modePlain
)

// compressWriter holds output back until MinLength bytes are buffered. Short
// bodies leave uncompressed; longer ones switch to brotli for the rest of
// the response. Once anything went out uncompressed, the rest stays plain.
type compressWriter struct {
	gin.ResponseWriter
	enc       *brotli.Writer
	pending   []byte
	minLength int
	mode      writerMode
}

func (w *compressWriter) Write(data []byte) (int, error) {
	switch w.mode {
	case modeCompressing:
		return w.enc.Write(data)
	case modePlain:
		return w.ResponseWriter.Write(data)
	}

	if strings.HasPrefix(w.ResponseWriter.Header().Get("Content-Type"), "text/event-stream") {
		if err := w.goPlain(); err != nil {
			return 0, err
		}
		return w.ResponseWriter.Write(data)
	}

	w.pending = append(w.pending, data...)
	if len(w.pending) < w.minLength {
		return len(data), nil
	}

	w.mode = modeCompressing
	h := w.ResponseWriter.Header()
	h.Set("Content-Encoding", "br")
	h.Del("Content-Length")
	if _, err := w.enc.Write(w.pending); err != nil {
		return 0, err
	}
	w.pending = nil
	return len(data), nil
}

func (w *compressWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}

// goPlain sends anything held back uncompressed and disables compression.
func (w *compressWriter) goPlain() error {
	w.mode = modePlain
	if len(w.pending) == 0 {
		return nil
	}
	_, err := w.ResponseWriter.Write(w.pending)
	w.pending = nil
	return err
}

// Flush pushes whatever is held back to the client.
func (w *compressWriter) Flush() {
	if w.mode == modeCompressing {
		_ = w.enc.Flush()
	} else {
		_ = w.goPlain()
	}
	w.ResponseWriter.Flush()
}

func (w *compressWriter) finish() error {
	if w.mode == modeCompressing {
		return w.enc.Close()
	}
	return w.goPlain()
}

// BrotliWithConfig compresses responses for clients that accept "br".
func BrotliWithConfig(cfg BrotliConfig) gin.HandlerFunc {
	if cfg.Quality < brotli.BestSpeed || cfg.Quality > brotli.BestCompression {
		cfg.Quality = brotli.DefaultCompression
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = defaultBrotliMinLength
	}

	return func(c *gin.Context) {
		if skipCompression(c, cfg.SkipPrefixes) || !acceptsBrotli(c.Request) {
			c.Next()
			return
		}

		c.Header("Vary", "Accept-Encoding")
		w := &compressWriter{
			ResponseWriter: c.Writer,
			enc:            brotli.NewWriterLevel(c.Writer, cfg.Quality),
			minLength:      cfg.MinLength,
		}
		c.Writer = w
		defer func() {
			if err := w.finish(); err != nil {
				_ = c.Error(err)
			}
		}()

		c.Next()
	}
}

// skipCompression passes event streams, WebSocket upgrades and configured
// prefixes through untouched.
func skipCompression(c *gin.Context, prefixes []string) bool {
	if strings.Contains(c.GetHeader("Accept"), "text/event-stream") {
		return true
	}
	if strings.EqualFold(c.GetHeader("Upgrade"), "websocket") {
		return true
	}
	for _, prefix := range prefixes {
		if strings.HasPrefix(c.Request.URL.Path, prefix) {
			return true
		}
	}
	return false
}

// acceptsBrotli honours "br" in Accept-Encoding unless it is sent with q=0.
func acceptsBrotli(r *http.Request) bool {
	if r.Method == http.MethodHead {
		return false
	}
	for _, enc := range strings.Split(r.Header.Get("Accept-Encoding"), ",") {
		name, params, _ := strings.Cut(strings.TrimSpace(enc), ";")
		if !strings.EqualFold(strings.TrimSpace(name), "br") {
			continue
		}
		q := strings.ReplaceAll(strings.ToLower(params), " ", "")
		return q != "q=0" && q != "q=0.0" && q != "q=0.00" && q != "q=0.000"
	}
	return false
}
