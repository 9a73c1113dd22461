package api

import "github.com/gin-gonic/gin"

// NewRouter собирает gin.Engine со всеми маршрутами.
func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logger(), Recovery())

	api := r.Group("/api")
	{
		api.GET("/meta", MetaListHandler(s))
		api.GET("/meta/:name", MetaEditorHandler(s))
		api.GET("/enums/:name", EnumHandler(s))

		api.POST("/editors/:name/upload", UploadHandler(s))
		api.GET("/editors/:name", ProcessHandler(s))
		api.POST("/editors/:name", ProcessHandler(s))

		api.GET("/files/*key", DownloadHandler(s))
		api.POST("/admin/reload", AdminReloadHandler(s))
	}
	return r
}
