package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crudbind/internal/editor"
)

type metaEditorListItem struct {
	Name     string `json:"name"`
	Table    string `json:"table"`
	Writable bool   `json:"writable"`
}

func MetaListHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		names := s.Registry.Names()
		out := make([]metaEditorListItem, 0, len(names))
		for _, n := range names {
			e, ok := s.Registry.Editor(n)
			if !ok {
				continue
			}
			out = append(out, metaEditorListItem{Name: e.Name(), Table: e.Tables()[0], Writable: e.Writable()})
		}
		c.JSON(http.StatusOK, out)
	}
}

type metaField struct {
	Name    string `json:"name"`
	DB      string `json:"db"`
	Set     string `json:"set"`
	Get     bool   `json:"get"`
	Options bool   `json:"options,omitempty"`
	Upload  string `json:"upload,omitempty"` // таблица файлов
}

type metaEditor struct {
	Name       string        `json:"name"`
	Tables     []string      `json:"tables"`
	PKey       []string      `json:"pkey"`
	IDPrefix   string        `json:"idPrefix"`
	RowIDField string        `json:"rowIdField"`
	Writable   bool          `json:"writable"`
	Joins      []editor.Join `json:"joins,omitempty"`
	Fields     []metaField   `json:"fields"`
}

func setName(t editor.SetType) string {
	switch t {
	case editor.SetNone:
		return "none"
	case editor.SetCreate:
		return "create"
	case editor.SetEdit:
		return "edit"
	}
	return "both"
}

func MetaEditorHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		e, ok := s.Registry.Editor(c.Param("name"))
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Editor not found"})
			return
		}
		fields := make([]metaField, 0, len(e.Fields()))
		for _, f := range e.Fields() {
			mf := metaField{
				Name:    f.Name(),
				DB:      f.DBField(),
				Set:     setName(f.SetType()),
				Get:     f.IsReadable(),
				Options: f.OptionsSource() != nil,
			}
			if up := f.UploadTarget(); up != nil {
				mf.Upload = up.Table
			}
			fields = append(fields, mf)
		}
		c.JSON(http.StatusOK, metaEditor{
			Name:       e.Name(),
			Tables:     e.Tables(),
			PKey:       e.PKey(),
			IDPrefix:   e.IDPrefix(),
			RowIDField: e.RowIDField(),
			Writable:   e.Writable(),
			Joins:      e.Joins(),
			Fields:     fields,
		})
	}
}

// GET /api/enums/:name: справочник целиком, включая недействующие пункты.
func EnumHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		name := c.Param("name")
		dir, ok := s.Registry.Enums().Get(name)
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "Enum not found"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"name": dir.Name, "items": dir.Items})
	}
}
