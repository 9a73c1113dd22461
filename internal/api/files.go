package api

import (
	"errors"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"crudbind/internal/blob"
)

func safeName(name string) string {
	name = strings.TrimSpace(filepath.Base(filepath.FromSlash(name)))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return "file"
	}
	return name
}

// GET /api/files/*key[?name=отчёт.pdf]
func DownloadHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.Blob == nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "blob store not configured"})
			return
		}
		key := strings.TrimPrefix(c.Param("key"), "/")
		p, err := s.Blob.Path(key)
		if errors.Is(err, blob.ErrBadKey) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file key"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if st, err := os.Stat(p); err != nil || st.IsDir() {
			c.JSON(http.StatusNotFound, gin.H{"error": "File not found"})
			return
		}
		name := path.Base(key)
		if q := c.Query("name"); q != "" {
			name = safeName(q)
		}
		c.FileAttachment(p, name)
	}
}
