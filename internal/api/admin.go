package api

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"crudbind/internal/registry"
)

type reloadReq struct {
	DSLRoot   string `json:"dsl_root"`   // директория с *.dsl
	EnumsRoot string `json:"enums_root"` // директория со справочниками enum
}

// POST /api/admin/reload: перечитать DSL и справочники. При проблемах набор
// редакторов не меняется.
func AdminReloadHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req reloadReq
		if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid JSON"})
			return
		}
		dslRoot := strings.TrimSpace(req.DSLRoot)
		if dslRoot == "" {
			dslRoot = s.DSLDir
		}
		enumsRoot := strings.TrimSpace(req.EnumsRoot)
		if enumsRoot == "" {
			enumsRoot = s.EnumsDir
		}

		issues, err := s.Registry.Reload(dslRoot, enumsRoot)
		switch {
		case errors.Is(err, registry.ErrLint):
			c.JSON(http.StatusBadRequest, gin.H{
				"error":     "dsl has blocking issues",
				"issues":    issues,
				"dslRoot":   dslRoot,
				"enumsRoot": enumsRoot,
			})
			return
		case err != nil:
			c.JSON(http.StatusBadRequest, gin.H{"error": "reload failed", "details": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"ok":        true,
			"dslRoot":   dslRoot,
			"enumsRoot": enumsRoot,
			"editors":   len(s.Registry.Names()),
			"enums":     len(s.Registry.Enums()),
		})
	}
}
