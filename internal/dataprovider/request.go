package dataprovider

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// Request: спланированный HTTP-запрос к PostgREST. Отправка — забота вызывающего.
type Request struct {
	Method string      `json:"method"`
	Path   string      `json:"path"`
	Query  url.Values  `json:"query"`
	Header http.Header `json:"headers"`
	Body   []byte      `json:"-"`
}

// URL собирает адрес относительно базового URL PostgREST. Ключи query сортируются (url.Values.Encode).
func (r Request) URL(base string) string {
	u := strings.TrimRight(base, "/") + "/" + strings.TrimLeft(r.Path, "/")
	if enc := r.Query.Encode(); enc != "" {
		u += "?" + enc
	}
	return u
}

// HTTPRequest превращает план в *http.Request.
func (r Request) HTTPRequest(ctx context.Context, base string) (*http.Request, error) {
	var body io.Reader
	if len(r.Body) > 0 {
		body = bytes.NewReader(r.Body)
	}
	req, err := http.NewRequestWithContext(ctx, r.Method, r.URL(base), body)
	if err != nil {
		return nil, err
	}
	for k, vals := range r.Header {
		for _, v := range vals {
			req.Header.Add(k, v)
		}
	}
	return req, nil
}
