package dataprovider

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	gojson "github.com/goccy/go-json"

	"crmgate/internal/postgrest"
)

// ErrMissingContentRange: PostgREST не вернул Content-Range (нет Prefer: count=exact или CORS не пропускает заголовок).
var ErrMissingContentRange = errors.New("the Content-Range header is missing in the HTTP response")

// Response: ответ PostgREST в том виде, который нужен для разбора.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// APIError: ошибка PostgREST ({"code","message","details","hint"}).
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("postgrest %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("postgrest %d: %s", e.Status, e.Message)
}

// ListResult: страница записей и общее число (-1, если неизвестно).
type ListResult struct {
	Data  []postgrest.Record `json:"data"`
	Total int                `json:"total"`
}

// DecodeList разбирает ответ getList/getManyReference.
func (p *Provider) DecodeList(resource string, resp Response) (ListResult, error) {
	if err := checkStatus(resp); err != nil {
		return ListResult{}, err
	}
	cr := resp.Header.Get("Content-Range")
	if cr == "" {
		return ListResult{}, ErrMissingContentRange
	}
	total, err := ParseContentRange(cr)
	if err != nil {
		return ListResult{}, err
	}
	data, err := p.DecodeMany(resource, resp)
	if err != nil {
		return ListResult{}, err
	}
	return ListResult{Data: data, Total: total}, nil
}

// DecodeMany: массив записей с виртуальными id.
func (p *Provider) DecodeMany(resource string, resp Response) ([]postgrest.Record, error) {
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var rows []postgrest.Record
	if err := decodeJSON(resp.Body, &rows); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resource, err)
	}
	pk := p.PrimaryKey(resource)
	out := make([]postgrest.Record, 0, len(rows))
	for _, row := range rows {
		rec, err := postgrest.DataWithVirtualID(row, pk)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

// DecodeOne: одна запись (Accept: application/vnd.pgrst.object+json).
func (p *Provider) DecodeOne(resource string, resp Response) (postgrest.Record, error) {
	if err := checkStatus(resp); err != nil {
		return nil, err
	}
	var row postgrest.Record
	if err := decodeJSON(resp.Body, &row); err != nil {
		return nil, fmt.Errorf("decode %s: %w", resource, err)
	}
	return postgrest.DataWithVirtualID(row, p.PrimaryKey(resource))
}

// EncodedIDs: идентификаторы записей (ответ updateMany/deleteMany).
func (p *Provider) EncodedIDs(resource string, records []postgrest.Record) ([]any, error) {
	pk := p.PrimaryKey(resource)
	ids := make([]any, 0, len(records))
	for _, rec := range records {
		id, err := postgrest.EncodeID(rec, pk)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// ParseContentRange достаёт total из "0-24/240" или "*/0"; "*" после слэша даёт -1.
func ParseContentRange(v string) (int, error) {
	i := strings.LastIndexByte(v, '/')
	if i < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", v)
	}
	totalStr := strings.TrimSpace(v[i+1:])
	if totalStr == "*" {
		return -1, nil
	}
	total, err := strconv.Atoi(totalStr)
	if err != nil || total < 0 {
		return 0, fmt.Errorf("invalid Content-Range %q", v)
	}
	return total, nil
}

func checkStatus(resp Response) error {
	if resp.Status < 400 {
		return nil
	}
	apiErr := &APIError{Status: resp.Status}
	if err := decodeJSON(resp.Body, apiErr); err != nil || apiErr.Message == "" {
		apiErr.Message = strings.TrimSpace(string(resp.Body))
		if apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.Status)
		}
	}
	return apiErr
}

func decodeJSON(body []byte, v any) error {
	dec := gojson.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	return dec.Decode(v)
}
