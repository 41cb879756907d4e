package dataprovider

import (
	"bytes"
	"errors"
	"net/http"
	"net/url"
	"strconv"

	gojson "github.com/goccy/go-json"

	"crmgate/internal/postgrest"
)

const (
	mimeJSON   = "application/json"
	mimeObject = "application/vnd.pgrst.object+json"
)

// ErrUnsupportedQuery: ids нельзя выразить запросом для этого ресурса.
var ErrUnsupportedQuery = postgrest.ErrUnsupportedQuery

// KeyResolver отдаёт первичный ключ ресурса.
type KeyResolver interface {
	PrimaryKey(resource string) postgrest.PrimaryKey
}

// Pagination: номер страницы с 1 и размер страницы. PerPage <= 0 — без limit/offset.
type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"perPage"`
}

// ListParams: параметры getList/getManyReference.
type ListParams struct {
	Pagination Pagination
	Sort       postgrest.Sort
	Filter     postgrest.Filter
	Meta       *postgrest.Meta
	// Nulls перекрывает политику провайдера для одного запроса
	Nulls postgrest.NullsPolicy
}

// Provider планирует запросы админки к PostgREST.
type Provider struct {
	keys          KeyResolver
	schema        string
	defaultListOp postgrest.Operator
	nulls         postgrest.NullsPolicy
}

type Option func(*Provider)

// WithPrimaryKeys задаёт источник первичных ключей (по умолчанию у всех ["id"]).
func WithPrimaryKeys(keys KeyResolver) Option {
	return func(p *Provider) {
		p.keys = keys
	}
}

// WithSchema: схема по умолчанию (заголовки Accept-Profile/Content-Profile).
func WithSchema(schema string) Option {
	return func(p *Provider) {
		p.schema = schema
	}
}

// WithDefaultListOp: оператор для ключей фильтра без "@".
func WithDefaultListOp(op postgrest.Operator) Option {
	return func(p *Provider) {
		p.defaultListOp = op
	}
}

// WithNullsPolicy: политика размещения NULL при сортировке.
func WithNullsPolicy(policy postgrest.NullsPolicy) Option {
	return func(p *Provider) {
		p.nulls = policy
	}
}

func New(options ...Option) *Provider {
	p := &Provider{
		keys:          postgrest.PrimaryKeyMap{},
		defaultListOp: postgrest.OpEq,
		nulls:         postgrest.DefaultNullsPolicy,
	}
	for _, option := range options {
		if option != nil {
			option(p)
		}
	}
	return p
}

// PrimaryKey: ключ ресурса с учётом конфигурации.
func (p *Provider) PrimaryKey(resource string) postgrest.PrimaryKey {
	return p.keys.PrimaryKey(resource)
}

// GetList: выборка страницы со счётчиком в Content-Range.
func (p *Provider) GetList(resource string, params ListParams) (Request, error) {
	q, err := p.listQuery(resource, params)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodGet,
		Path:   resource,
		Query:  q,
		Header: p.header(http.MethodGet, params.Meta, mimeJSON, "count=exact"),
	}, nil
}

// GetOne: одна запись по id (виртуальному или настоящему).
func (p *Provider) GetOne(resource string, id any, meta *postgrest.Meta) (Request, error) {
	q, err := postgrest.GetQuery(p.PrimaryKey(resource), []any{id}, resource, meta)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodGet,
		Path:   resource,
		Query:  q,
		Header: p.header(http.MethodGet, meta, mimeObject, ""),
	}, nil
}

// GetMany: записи по списку id.
func (p *Provider) GetMany(resource string, ids []any, meta *postgrest.Meta) (Request, error) {
	q, err := postgrest.GetQuery(p.PrimaryKey(resource), ids, resource, meta)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodGet,
		Path:   resource,
		Query:  q,
		Header: p.header(http.MethodGet, meta, mimeJSON, ""),
	}, nil
}

// GetManyReference: страница записей, ссылающихся на id через колонку target.
func (p *Provider) GetManyReference(resource, target string, id any, params ListParams) (Request, error) {
	q, err := p.listQuery(resource, params)
	if err != nil {
		return Request{}, err
	}
	q[target] = append([]string{"eq." + postgrest.FormatValue(id)}, q[target]...)
	return Request{
		Method: http.MethodGet,
		Path:   resource,
		Query:  q,
		Header: p.header(http.MethodGet, params.Meta, mimeJSON, "count=exact"),
	}, nil
}

// Create: вставка; виртуальный id в теле не отправляется.
func (p *Provider) Create(resource string, data postgrest.Record, meta *postgrest.Meta) (Request, error) {
	pk := p.PrimaryKey(resource)
	body, err := marshalBody(postgrest.DataWithoutVirtualID(data, pk))
	if err != nil {
		return Request{}, err
	}
	q := url.Values{}
	if sel := meta.Select(); sel != "" {
		q.Set("select", sel)
	}
	return Request{
		Method: http.MethodPost,
		Path:   resource,
		Query:  q,
		Header: p.header(http.MethodPost, meta, mimeObject, "return=representation"),
		Body:   body,
	}, nil
}

// Update: PATCH одной записи; колонки ключа из тела убираются.
func (p *Provider) Update(resource string, id any, data postgrest.Record, meta *postgrest.Meta) (Request, error) {
	return p.patch(resource, []any{id}, data, meta, mimeObject)
}

// UpdateMany: PATCH по списку id.
func (p *Provider) UpdateMany(resource string, ids []any, data postgrest.Record, meta *postgrest.Meta) (Request, error) {
	return p.patch(resource, ids, data, meta, mimeJSON)
}

// Delete: удаление одной записи с возвратом удалённой.
func (p *Provider) Delete(resource string, id any, meta *postgrest.Meta) (Request, error) {
	return p.remove(resource, []any{id}, meta, mimeObject)
}

// DeleteMany: удаление по списку id.
func (p *Provider) DeleteMany(resource string, ids []any, meta *postgrest.Meta) (Request, error) {
	return p.remove(resource, ids, meta, mimeJSON)
}

func (p *Provider) patch(resource string, ids []any, data postgrest.Record, meta *postgrest.Meta, accept string) (Request, error) {
	pk := p.PrimaryKey(resource)
	if len(ids) == 0 {
		return Request{}, errors.New("update: no ids")
	}
	q, err := postgrest.GetQuery(pk, ids, resource, meta)
	if err != nil {
		return Request{}, err
	}
	payload := postgrest.RemovePrimaryKey(postgrest.DataWithoutVirtualID(data, pk), pk)
	body, err := marshalBody(payload)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodPatch,
		Path:   resource,
		Query:  q,
		Header: p.header(http.MethodPatch, meta, accept, "return=representation"),
		Body:   body,
	}, nil
}

func (p *Provider) remove(resource string, ids []any, meta *postgrest.Meta, accept string) (Request, error) {
	// DELETE без фильтра снёс бы всю таблицу
	if len(ids) == 0 {
		return Request{}, errors.New("delete: no ids")
	}
	q, err := postgrest.GetQuery(p.PrimaryKey(resource), ids, resource, meta)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Method: http.MethodDelete,
		Path:   resource,
		Query:  q,
		Header: p.header(http.MethodDelete, meta, accept, "return=representation"),
	}, nil
}

func (p *Provider) listQuery(resource string, params ListParams) (url.Values, error) {
	pk := p.PrimaryKey(resource)
	compiled, err := postgrest.ParseFilters(postgrest.FilterParams{Filter: params.Filter, Meta: params.Meta}, p.defaultListOp)
	if err != nil {
		return nil, err
	}

	q := compiled.Filter
	if pg := params.Pagination; pg.PerPage > 0 {
		page := pg.Page
		if page < 1 {
			page = 1
		}
		q.Set("offset", strconv.Itoa((page-1)*pg.PerPage))
		q.Set("limit", strconv.Itoa(pg.PerPage))
	}
	if params.Sort.Field != "" {
		nulls := p.nulls
		if params.Nulls != "" {
			nulls = params.Nulls
		}
		q.Set("order", postgrest.GetOrderBy(params.Sort.Field, params.Sort.Order, pk, nulls))
	}
	if compiled.Select != "" {
		q.Set("select", compiled.Select)
	}
	return q, nil
}

func (p *Provider) header(method string, meta *postgrest.Meta, accept, prefer string) http.Header {
	h := http.Header{}
	h.Set("Accept", accept)
	if prefer != "" {
		h.Set("Prefer", prefer)
	}
	if method == http.MethodPost || method == http.MethodPatch {
		h.Set("Content-Type", mimeJSON)
	}

	schema := p.schema
	if meta != nil {
		for k, v := range meta.Headers {
			h.Set(k, v)
		}
		if meta.Schema != "" {
			schema = meta.Schema
		}
	}
	if schema != "" {
		if method == http.MethodGet || method == http.MethodHead {
			h.Set("Accept-Profile", schema)
		} else {
			h.Set("Content-Profile", schema)
		}
	}
	return h
}

func marshalBody(rec postgrest.Record) ([]byte, error) {
	var buf bytes.Buffer
	enc := gojson.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return nil, err
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}
