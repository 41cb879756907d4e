package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"crmgate/internal/postgrest"
)

// ===== META HANDLERS =====

type metaKeyItem struct {
	Resource   string               `json:"resource"`
	PrimaryKey postgrest.PrimaryKey `json:"primaryKey"`
	Compound   bool                 `json:"compound"`
}

// GET /api/meta/keys
func MetaKeysHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		// один снимок карты на весь ответ
		keys := s.Registry.Keys()
		out := make([]metaKeyItem, 0, len(keys))
		for _, name := range sortedNames(keys) {
			pk := keys[name]
			out = append(out, metaKeyItem{Resource: name, PrimaryKey: pk, Compound: pk.IsCompound()})
		}
		c.JSON(http.StatusOK, gin.H{"default": postgrest.DefaultPrimaryKey, "resources": out})
	}
}

// GET /api/meta/keys/:resource — ключ ресурса; незнакомый ресурс получает ключ по умолчанию.
func MetaResourceHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		name, pk, configured := s.Registry.Lookup(c.Param("resource"))
		c.JSON(http.StatusOK, gin.H{
			"resource":   name,
			"primaryKey": pk,
			"compound":   pk.IsCompound(),
			"configured": configured,
		})
	}
}
