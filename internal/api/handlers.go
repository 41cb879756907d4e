package api

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"crmgate/internal/dataprovider"
	"crmgate/internal/postgrest"
	"crmgate/internal/reference"
)

// ReloadFunc заново собирает карту ключей (справочники, интроспекция, конфиг).
type ReloadFunc func(ctx context.Context) (postgrest.PrimaryKeyMap, []reference.KeyIssue, error)

// Server: всё, что нужно хендлерам.
type Server struct {
	Registry *Registry
	Provider *dataprovider.Provider
	// BaseURL PostgREST: из него собирается поле url в ответе
	BaseURL string
	Reload  ReloadFunc
}

// NewServer связывает провайдер с реестром: после reload провайдер сразу видит новые ключи.
func NewServer(reg *Registry, baseURL string, options ...dataprovider.Option) *Server {
	options = append([]dataprovider.Option{dataprovider.WithPrimaryKeys(reg)}, options...)
	return &Server{
		Registry: reg,
		Provider: dataprovider.New(options...),
		BaseURL:  baseURL,
	}
}

func (s *Server) respond(c *gin.Context, req dataprovider.Request, err error) {
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, planJSON(req, s.BaseURL))
}

// GET /api/:resource
func ListHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		lp, errs := parseListParams(c.Request.URL.Query())
		if len(errs) > 0 {
			abortWithErrors(c, errs)
			return
		}
		req, err := s.Provider.GetList(resourceOf(c), lp)
		s.respond(c, req, err)
	}
}

// GET /api/:resource/:id
func GetOneHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta, errs := parseMeta(c.Request.URL.Query())
		if len(errs) > 0 {
			abortWithErrors(c, errs)
			return
		}
		req, err := s.Provider.GetOne(resourceOf(c), c.Param("id"), meta)
		s.respond(c, req, err)
	}
}

// GET /api/:resource/_many?id=..&id=..
func GetManyHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		ids, errs := manyIDs(q)
		meta, merrs := parseMeta(q)
		if errs = append(errs, merrs...); len(errs) > 0 {
			abortWithErrors(c, errs)
			return
		}
		req, err := s.Provider.GetMany(resourceOf(c), ids, meta)
		s.respond(c, req, err)
	}
}

// GET /api/:resource/_reference/:target/:id
func ReferenceHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		lp, errs := parseListParams(c.Request.URL.Query())
		if len(errs) > 0 {
			abortWithErrors(c, errs)
			return
		}
		req, err := s.Provider.GetManyReference(resourceOf(c), c.Param("target"), c.Param("id"), lp)
		s.respond(c, req, err)
	}
}

// POST /api/:resource
func CreateHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireJSON(c) {
			return
		}
		meta, errs := parseMeta(c.Request.URL.Query())
		if len(errs) > 0 {
			abortWithErrors(c, errs)
			return
		}
		rec, ok := readRecord(c)
		if !ok {
			return
		}
		req, err := s.Provider.Create(resourceOf(c), rec, meta)
		s.respond(c, req, err)
	}
}

// PATCH /api/:resource/:id
func UpdateHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireJSON(c) {
			return
		}
		meta, errs := parseMeta(c.Request.URL.Query())
		if len(errs) > 0 {
			abortWithErrors(c, errs)
			return
		}
		rec, ok := readRecord(c)
		if !ok {
			return
		}
		req, err := s.Provider.Update(resourceOf(c), c.Param("id"), rec, meta)
		s.respond(c, req, err)
	}
}

// PATCH /api/:resource/_many?id=..
func UpdateManyHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !requireJSON(c) {
			return
		}
		q := c.Request.URL.Query()
		ids, errs := manyIDs(q)
		meta, merrs := parseMeta(q)
		if errs = append(errs, merrs...); len(errs) > 0 {
			abortWithErrors(c, errs)
			return
		}
		rec, ok := readRecord(c)
		if !ok {
			return
		}
		req, err := s.Provider.UpdateMany(resourceOf(c), ids, rec, meta)
		s.respond(c, req, err)
	}
}

// DELETE /api/:resource/:id
func DeleteHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		meta, errs := parseMeta(c.Request.URL.Query())
		if len(errs) > 0 {
			abortWithErrors(c, errs)
			return
		}
		req, err := s.Provider.Delete(resourceOf(c), c.Param("id"), meta)
		s.respond(c, req, err)
	}
}

// DELETE /api/:resource/_many?id=..
func DeleteManyHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		q := c.Request.URL.Query()
		ids, errs := manyIDs(q)
		meta, merrs := parseMeta(q)
		if errs = append(errs, merrs...); len(errs) > 0 {
			abortWithErrors(c, errs)
			return
		}
		req, err := s.Provider.DeleteMany(resourceOf(c), ids, meta)
		s.respond(c, req, err)
	}
}

// POST /api/:resource/_id/encode — запись → виртуальный id
func EncodeIDHandler(s *Server) gin.HandlerFunc {
	return func(c *gin.Context) {
		rec, ok := readRecord(c)
		if !ok {
			return
		}
		resource := resourceOf(c)
		pk := s.Provider.PrimaryKey(resource)
		id, err := postgrest.EncodeID(rec, pk)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"resource": resource, "primaryKey": pk, "id": id})
	}
}

// POST /api/:resource/_id/decode — {"id": ...} → значения колонок ключа
func DecodeIDHandler(s *Server) gin.HandlerFunc {
	type req struct {
		ID any `json:"id"`
	}
	return func(c *gin.Context) {
		var body req
		if err := readJSON(c, &body); err != nil || body.ID == nil {
			abortWithErrors(c, []FieldError{ferr(ErrInvalidJSON, "id", `body must look like {"id": ...}`)})
			return
		}
		resource := resourceOf(c)
		pk := s.Provider.PrimaryKey(resource)
		values, err := postgrest.DecodeID(body.ID, pk)
		if err != nil {
			abortWithError(c, err)
			return
		}
		cols := make(gin.H, len(pk))
		for i, col := range pk {
			cols[col] = values[i]
		}
		c.JSON(http.StatusOK, gin.H{"resource": resource, "primaryKey": pk, "values": values, "columns": cols})
	}
}
