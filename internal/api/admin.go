package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// POST /api/admin/reload
func AdminReloadHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if s.Reload == nil {
			c.JSON(http.StatusNotImplemented, gin.H{"error": "reload is not configured"})
			return
		}

		// 1) собираем новую карту ключей
		keys, issues, err := s.Reload(c.Request.Context())
		if err != nil {
			_ = c.Error(err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "key catalog load error", "details": err.Error()})
			return
		}

		// 2) линтер нашёл проблемы — старую карту не трогаем
		if len(issues) > 0 {
			c.JSON(http.StatusUnprocessableEntity, gin.H{
				"error":  "key catalogs have blocking issues",
				"issues": issues,
				"hint":   "fix catalogs and retry",
			})
			return
		}

		// 3) атомарная замена
		before := len(s.Registry.Resources())
		s.Registry.Swap(keys)
		after := len(s.Registry.Resources())
		log.Info().Int("before", before).Int("after", after).Msg("primary keys reloaded")

		c.JSON(http.StatusOK, gin.H{"ok": true, "resources": after})
	}
}
