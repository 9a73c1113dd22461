package api

import (
	"bytes"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"

	"crudbind/internal/editor"
	"crudbind/internal/nested"
)

// decodeEnvelope: JSON-тело как есть, иначе query + форма в скобочной нотации.
// Второе значение: ключи data в порядке отправки (для multipart: nil).
func decodeEnvelope(c *gin.Context) (nested.Record, []string, error) {
	switch ct := c.ContentType(); {
	case ct == binding.MIMEJSON:
		var rec nested.Record
		if err := c.ShouldBindBodyWith(&rec, binding.JSON); err != nil {
			return nil, nil, err
		}
		if rec == nil {
			return nested.Record{}, nil, nil
		}
		body := c.MustGet(gin.BodyBytesKey).([]byte)
		order, err := nested.JSONKeyOrder(body, "data")
		if err != nil {
			return nil, nil, err
		}
		return rec, order, nil
	case strings.HasPrefix(ct, "multipart/"):
		if err := c.Request.ParseMultipartForm(32 << 20); err != nil {
			return nil, nil, err
		}
		rec, err := nested.Unflatten(c.Request.Form)
		return rec, nil, err
	}

	var body []byte
	if c.Request.Body != nil {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			return nil, nil, err
		}
		body = b
		c.Request.Body = io.NopCloser(bytes.NewReader(b))
	}
	if err := c.Request.ParseForm(); err != nil {
		return nil, nil, err
	}
	rec, err := nested.Unflatten(c.Request.Form)
	if err != nil {
		return nil, nil, err
	}
	// ParseForm ставит значения тела раньше query
	order := nested.FormKeyOrder(string(body), "data")
	order = append(order, nested.FormKeyOrder(c.Request.URL.RawQuery, "data")...)
	return rec, order, nil
}

// GET|POST /api/editors/:name
func ProcessHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := s.Registry.Editor(c.Param("name"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Editor not found"})
			return
		}
		rec, order, err := decodeEnvelope(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}
		req, err := editor.RequestFromRecord(rec)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request", "details": err.Error()})
			return
		}
		req.Keys = order
		out, err := e.Process(c.Request.Context(), req)
		if err != nil {
			processError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// POST /api/editors/:name/upload, multipart: upload=<файл>, uploadField=<имя поля>
func UploadHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := s.Registry.Editor(c.Param("name"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Editor not found"})
			return
		}
		file, hdr, err := c.Request.FormFile("upload")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "multipart file not found (field name 'upload')"})
			return
		}
		defer file.Close()

		out, err := e.Process(c.Request.Context(), &editor.Request{
			Action: "upload",
			Upload: &editor.UploadRequest{
				Field:  c.PostForm("uploadField"),
				Name:   safeName(hdr.Filename),
				Mime:   hdr.Header.Get("Content-Type"),
				Reader: file,
			},
		})
		if err != nil {
			processError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
