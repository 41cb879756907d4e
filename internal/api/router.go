// api/router.go
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func NewRouter(s *Server) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), RequestID(), AccessLog())

	apiGroup := r.Group("/api")
	{
		// служебные маршруты регистрируем до /:resource
		apiGroup.GET("/meta/keys", MetaKeysHandler(s))
		apiGroup.GET("/meta/keys/:resource", MetaResourceHandler(s))
		apiGroup.POST("/admin/reload", AdminReloadHandler(s))

		// rpc/<fn>: слэш в :resource не проходит
		mountResource(apiGroup.Group("/rpc/:fn"), s)
		mountResource(apiGroup.Group("/:resource"), s)
	}
	return r
}

func mountResource(g *gin.RouterGroup, s *Server) {
	g.GET("/_many", GetManyHandler(s))
	g.PATCH("/_many", UpdateManyHandler(s))
	g.DELETE("/_many", DeleteManyHandler(s))
	g.GET("/_reference/:target/:id", ReferenceHandler(s))
	g.POST("/_id/encode", EncodeIDHandler(s))
	g.POST("/_id/decode", DecodeIDHandler(s))

	// обычные операции
	g.GET("", ListHandler(s))
	g.POST("", CreateHandler(s))
	g.GET("/:id", GetOneHandler(s))
	g.PATCH("/:id", UpdateHandler(s))
	g.DELETE("/:id", DeleteHandler(s))
}

// RunServer слушает addr до отмены ctx, потом мягко гасит сервер.
func RunServer(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
