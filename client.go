package couchparty

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	log "github.com/sirupsen/logrus"
)

var jsonc = jsoniter.ConfigCompatibleWithStandardLibrary

// DocumentStore is the document database the mapping layer talks to.
// GetDocument returns an error wrapping ErrDocumentNotFound for a missing
// document, PutDocument one wrapping ErrDocumentConflict on a revision
// mismatch. Transport failures are ErrorUnavailable.
type DocumentStore interface {
	GetDocument(ctx context.Context, db, id string, doc any) error
	PutDocument(ctx context.Context, db, id string, doc any, rev string) (string, error)
	QueryView(ctx context.Context, db, ddocID, view string, opts Options) (*ViewResult, error)
}

// ViewResult is the body of a view response.
type ViewResult struct {
	TotalRows int       `json:"total_rows"`
	Offset    int       `json:"offset"`
	Rows      []ViewRow `json:"rows"`
}

type ViewRow struct {
	ID    string          `json:"id,omitempty"`
	Key   json.RawMessage `json:"key"`
	Value json.RawMessage `json:"value"`
	Doc   json.RawMessage `json:"doc,omitempty"`
	Error string          `json:"error,omitempty"`
}

// HasDoc is false for rows without an embedded document or with a null one
// (deleted document referenced by the index).
func (r ViewRow) HasDoc() bool {
	return len(r.Doc) > 0 && string(r.Doc) != "null"
}

// HTTPClient implements DocumentStore over the CouchDB HTTP API.
type HTTPClient struct {
	base *url.URL
	hc   *http.Client
}

var _ DocumentStore = &HTTPClient{}

// NewHTTPClient makes a client for the server at baseURL. Credentials may be
// passed in the url userinfo. A nil hc means http.DefaultClient.
func NewHTTPClient(baseURL string, hc *http.Client) (*HTTPClient, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, ErrorConfiguration{Message: fmt.Sprintf("bad server url %q: %s", baseURL, err)}
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, ErrorConfiguration{Message: fmt.Sprintf("bad server url %q", baseURL)}
	}
	if hc == nil {
		hc = http.DefaultClient
	}
	return &HTTPClient{base: u, hc: hc}, nil
}

func (c *HTTPClient) url(q url.Values, segs ...string) string {
	esc := make([]string, 0, len(segs))
	for _, s := range segs {
		esc = append(esc, pathEscape(s))
	}
	ret := strings.TrimSuffix(c.base.Scheme+"://"+c.base.Host+c.base.EscapedPath(), "/") +
		"/" + strings.Join(esc, "/")
	if len(q) > 0 {
		ret += "?" + q.Encode()
	}
	return ret
}

// design document ids keep their slash, everything else is escaped
func pathEscape(s string) string {
	if name, ok := strings.CutPrefix(s, "_design/"); ok {
		return "_design/" + url.PathEscape(name)
	}
	return url.PathEscape(s)
}

func (c *HTTPClient) do(ctx context.Context, op, method, target string, body any, out any) (http.Header, error) {
	var rd io.Reader
	if body != nil {
		b, err := jsonc.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.base.User != nil {
		pass, _ := c.base.User.Password()
		req.SetBasicAuth(c.base.User.Username(), pass)
	}

	logger.WithFields(log.Fields{"method": method, "url": target}).Trace("couchdb request")

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, ErrorUnavailable{Op: op, Err: err}
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, ErrorUnavailable{Op: op, Err: err}
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return resp.Header, statusError(op, resp.StatusCode, b)
	}
	if out != nil {
		if err := jsonc.Unmarshal(b, out); err != nil {
			return resp.Header, fmt.Errorf("%s: decode response: %w", op, err)
		}
	}
	return resp.Header, nil
}

func statusError(op string, status int, body []byte) error {
	re := &ResponseError{StatusCode: status}
	_ = jsonc.Unmarshal(body, re)
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("%s: %w: %s", op, ErrDocumentNotFound, re.Reason)
	case status == http.StatusConflict:
		return fmt.Errorf("%s: %w: %s", op, ErrDocumentConflict, re.Reason)
	case status >= http.StatusInternalServerError:
		return ErrorUnavailable{Op: op, Err: re}
	}
	return fmt.Errorf("%s: %w", op, re)
}

func (c *HTTPClient) GetDocument(ctx context.Context, db, id string, doc any) error {
	_, err := c.do(ctx, "GetDocument", http.MethodGet, c.url(nil, db, id), nil, doc)
	return err
}

type okResponse struct {
	OK  bool   `json:"ok"`
	ID  string `json:"id"`
	Rev string `json:"rev"`
}

func (c *HTTPClient) PutDocument(ctx context.Context, db, id string, doc any, rev string) (string, error) {
	q := url.Values{}
	if rev != "" {
		q.Set("rev", rev)
	}
	resp := okResponse{}
	if _, err := c.do(ctx, "PutDocument", http.MethodPut, c.url(q, db, id), doc, &resp); err != nil {
		return "", err
	}
	return resp.Rev, nil
}

// CreateDocument stores doc under a new random id.
func (c *HTTPClient) CreateDocument(ctx context.Context, db string, doc any) (string, string, error) {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	rev, err := c.PutDocument(ctx, db, id, doc, "")
	if err != nil {
		return "", "", err
	}
	return id, rev, nil
}

func (c *HTTPClient) DeleteDocument(ctx context.Context, db, id, rev string) error {
	q := url.Values{}
	q.Set("rev", rev)
	_, err := c.do(ctx, "DeleteDocument", http.MethodDelete, c.url(q, db, id), nil, nil)
	return err
}

// CreateDatabase creates db, an existing database is not an error.
func (c *HTTPClient) CreateDatabase(ctx context.Context, db string) error {
	_, err := c.do(ctx, "CreateDatabase", http.MethodPut, c.url(nil, db), nil, nil)
	var re *ResponseError
	if errors.As(err, &re) && re.StatusCode == http.StatusPreconditionFailed {
		return nil
	}
	return err
}

func (c *HTTPClient) DeleteDatabase(ctx context.Context, db string) error {
	_, err := c.do(ctx, "DeleteDatabase", http.MethodDelete, c.url(nil, db), nil, nil)
	return err
}

func (c *HTTPClient) QueryView(ctx context.Context, db, ddocID, view string, opts Options) (*ViewResult, error) {
	q, err := encodeOptions(opts)
	if err != nil {
		return nil, err
	}
	ret := &ViewResult{}
	if _, err := c.do(ctx, "QueryView", http.MethodGet, c.url(q, db, ddocID, "_view", view), nil, ret); err != nil {
		return nil, err
	}
	return ret, nil
}

// encodeOptions converts query options to url parameters. Key options are
// json encoded as CouchDB expects, local options are skipped.
func encodeOptions(opts Options) (url.Values, error) {
	q := url.Values{}
	for _, k := range opts.Keys() {
		if _, ok := localOptions[k]; ok {
			continue
		}
		v := opts[k]
		if _, ok := jsonOptions[k]; ok {
			b, err := jsonc.Marshal(v)
			if err != nil {
				return nil, ErrorConfiguration{Message: fmt.Sprintf("option %s: %s", k, err)}
			}
			q.Set(k, string(b))
			continue
		}
		switch vv := v.(type) {
		case string:
			q.Set(k, vv)
		case bool:
			q.Set(k, strconv.FormatBool(vv))
		case int:
			q.Set(k, strconv.Itoa(vv))
		case int64:
			q.Set(k, strconv.FormatInt(vv, 10))
		case float64:
			q.Set(k, strconv.FormatFloat(vv, 'f', -1, 64))
		case json.Number:
			q.Set(k, vv.String())
		default:
			b, err := jsonc.Marshal(v)
			if err != nil {
				return nil, ErrorConfiguration{Message: fmt.Sprintf("option %s: %s", k, err)}
			}
			q.Set(k, string(b))
		}
	}
	return q, nil
}
