// Package api: HTTP-обвязка над редакторами реестра.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"crudbind/internal/blob"
	"crudbind/internal/editor"
	"crudbind/internal/registry"
)

// Server: то, что нужно обработчикам. Blob может быть nil, тогда файлы не отдаются.
type Server struct {
	Registry *registry.Registry
	Blob     *blob.Local
	DSLDir   string
	EnumsDir string
}

// Run слушает addr до отмены ctx, затем даёт запросам 5 секунд на завершение.
func Run(ctx context.Context, addr string, s *Server) error {
	srv := &http.Server{Addr: addr, Handler: NewRouter(s), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	log.WithField("addr", addr).Info("http server started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return nil
}

// processError: ответ на ошибку, которую вернул Process.
func processError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	if errors.Is(err, editor.ErrKeyArity) {
		status = http.StatusBadRequest
	}
	requestLog(c).WithError(err).Error("process failed")
	c.JSON(status, gin.H{"error": err.Error()})
}
