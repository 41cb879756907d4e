package api

import (
	"bytes"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	gojson "github.com/goccy/go-json"

	"crmgate/internal/dataprovider"
	"crmgate/internal/postgrest"
)

// planJSON: спланированный запрос в виде ответа API.
func planJSON(req dataprovider.Request, base string) gin.H {
	var body any
	if len(req.Body) > 0 {
		body = gojson.RawMessage(req.Body)
	}
	query := req.Query
	if query == nil {
		query = map[string][]string{}
	}
	return gin.H{
		"method":  req.Method,
		"path":    req.Path,
		"query":   query,
		"url":     req.URL(base),
		"headers": req.Header,
		"body":    body,
	}
}

// resourceOf: /api/rpc/:fn → "rpc/<fn>", иначе :resource.
func resourceOf(c *gin.Context) string {
	if fn := c.Param("fn"); fn != "" {
		return "rpc/" + fn
	}
	return c.Param("resource")
}

// readJSON читает тело с json.Number вместо float64.
func readJSON(c *gin.Context, dst any) error {
	raw, err := c.GetRawData()
	if err != nil {
		return err
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.New("empty body")
	}
	dec := gojson.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(dst)
}

func readRecord(c *gin.Context) (postgrest.Record, bool) {
	var rec postgrest.Record
	if err := readJSON(c, &rec); err != nil || rec == nil {
		abortWithErrors(c, []FieldError{ferr(ErrInvalidJSON, "body", "body must be a JSON object")})
		return nil, false
	}
	return rec, true
}

func wantsJSON(c *gin.Context) bool {
	ct := c.ContentType()
	return ct == "" || strings.HasSuffix(ct, "json")
}

func requireJSON(c *gin.Context) bool {
	if !wantsJSON(c) {
		c.AbortWithStatusJSON(http.StatusUnsupportedMediaType, gin.H{"error": "expected application/json"})
		return false
	}
	return true
}
