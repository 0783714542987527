// Package couchtest is an in-process CouchDB double for tests. It keeps
// documents in memory, serves the document, design and view endpoints and
// counts the calls it receives.
package couchtest

import (
	"crypto/md5"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/valyala/fastjson"
)

var (
	ErrBadJSON          = errors.New("bad_request")
	ErrDatabaseNotFound = errors.New("not_found")
	ErrDatabaseExists   = errors.New("file_exists")
	ErrDocumentNotFound = errors.New("not_found")
	ErrDocumentConflict = errors.New("conflict")
	ErrViewNotFound     = errors.New("missing_named_view")
	ErrCompilation      = errors.New("compilation_error")
	ErrUnavailable      = errors.New("unavailable")
)

// Call kinds counted by the server.
const (
	GetDesign = "GET design"
	PutDesign = "PUT design"
	GetView   = "GET view"
	GetDoc    = "GET doc"
	PutDoc    = "PUT doc"
)

var parserPool fastjson.ParserPool

type document struct {
	ID        string
	Version   int
	Signature string
	Data      []byte // body without _id and _rev
}

func (doc *document) Rev() string {
	return fmt.Sprintf("%d-%s", doc.Version, doc.Signature)
}

// JSON is the document with its meta fields.
func (doc *document) JSON() []byte {
	var a fastjson.Arena
	meta := fmt.Sprintf(`{"_id":%s,"_rev":"%s"`, a.NewString(doc.ID).MarshalTo(nil), doc.Rev())
	if len(doc.Data) <= 2 {
		return []byte(meta + "}")
	}
	return append([]byte(meta+","), doc.Data[1:]...)
}

type database struct {
	docs map[string]*document
}

type Server struct {
	*httptest.Server

	mu           sync.Mutex
	dbs          map[string]*database
	calls        map[string]int
	rejectDesign int
	failViews    int
}

// NewServer starts a server with the given databases created.
func NewServer(dbs ...string) *Server {
	s := &Server{
		dbs:   make(map[string]*database),
		calls: make(map[string]int),
	}
	for _, db := range dbs {
		s.dbs[db] = &database{docs: make(map[string]*document)}
	}
	s.Server = httptest.NewServer(s.router())
	return s
}

func (s *Server) router() *mux.Router {
	router := mux.NewRouter().StrictSlash(true)

	router.Methods(http.MethodPut).Path("/{db}").HandlerFunc(s.PutDatabase)
	router.Methods(http.MethodDelete).Path("/{db}").HandlerFunc(s.DeleteDatabase)
	router.Methods(http.MethodPost).Path("/{db}").HandlerFunc(s.PostDocument)
	router.Methods(http.MethodGet).Path("/{db}/_design/{ddoc}/_view/{view}").HandlerFunc(s.SelectView)
	router.Methods(http.MethodGet).Path("/{db}/_design/{ddoc}").HandlerFunc(s.GetDDocument)
	router.Methods(http.MethodPut).Path("/{db}/_design/{ddoc}").HandlerFunc(s.PutDDocument)
	router.Methods(http.MethodDelete).Path("/{db}/_design/{ddoc}").HandlerFunc(s.DeleteDDocument)
	router.Methods(http.MethodGet).Path("/{db}/{docid}").HandlerFunc(s.GetDocument)
	router.Methods(http.MethodPut).Path("/{db}/{docid}").HandlerFunc(s.PutDocument)
	router.Methods(http.MethodDelete).Path("/{db}/{docid}").HandlerFunc(s.DeleteDocument)

	return router
}

// Calls returns how many requests of kind were served.
func (s *Server) Calls(kind string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[kind]
}

// TotalCalls counts every design and view request.
func (s *Server) TotalCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, c := range s.calls {
		n += c
	}
	return n
}

func (s *Server) ResetCalls() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = make(map[string]int)
}

// RejectDesignWrites makes the next n design document writes fail with a
// conflict.
func (s *Server) RejectDesignWrites(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rejectDesign = n
}

// FailViews makes the next n view queries answer 503.
func (s *Server) FailViews(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failViews = n
}

// Put stores a json document directly, it returns the id and the revision.
func (s *Server) Put(db, body string) (string, string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.putLocked(db, "", "", []byte(body))
	if err != nil {
		return "", "", err
	}
	return doc.ID, doc.Rev(), nil
}

// Document returns a stored document with its meta fields.
func (s *Server) Document(db, id string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dbs[db]
	if !ok {
		return nil, false
	}
	doc, ok := d.docs[id]
	if !ok {
		return nil, false
	}
	return doc.JSON(), true
}

func (s *Server) count(kind string) {
	s.calls[kind]++
}

func (s *Server) PutDatabase(w http.ResponseWriter, r *http.Request) {
	db := mux.Vars(r)["db"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[db]; ok {
		NotOK(ErrDatabaseExists, w)
		return
	}
	s.dbs[db] = &database{docs: make(map[string]*document)}
	OK(w, http.StatusCreated, `{"ok":true}`)
}

func (s *Server) DeleteDatabase(w http.ResponseWriter, r *http.Request) {
	db := mux.Vars(r)["db"]
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.dbs[db]; !ok {
		NotOK(ErrDatabaseNotFound, w)
		return
	}
	delete(s.dbs, db)
	OK(w, http.StatusOK, `{"ok":true}`)
}

func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(GetDoc)
	s.getLocked(w, vars["db"], vars["docid"])
}

func (s *Server) GetDDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(GetDesign)
	s.getLocked(w, vars["db"], "_design/"+vars["ddoc"])
}

func (s *Server) getLocked(w http.ResponseWriter, db, id string) {
	d, ok := s.dbs[db]
	if !ok {
		NotOK(ErrDatabaseNotFound, w)
		return
	}
	doc, ok := d.docs[id]
	if !ok {
		NotOK(ErrDocumentNotFound, w)
		return
	}
	OK(w, http.StatusOK, string(doc.JSON()))
}

func (s *Server) PostDocument(w http.ResponseWriter, r *http.Request) {
	s.putHandler(w, r, mux.Vars(r)["db"], "", PutDoc)
}

func (s *Server) PutDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.putHandler(w, r, vars["db"], vars["docid"], PutDoc)
}

func (s *Server) PutDDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.putHandler(w, r, vars["db"], "_design/"+vars["ddoc"], PutDesign)
}

func (s *Server) putHandler(w http.ResponseWriter, r *http.Request, db, id, kind string) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1048576))
	if err != nil {
		NotOK(err, w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(kind)

	if kind == PutDesign && s.rejectDesign > 0 {
		s.rejectDesign--
		NotOK(ErrDocumentConflict, w)
		return
	}

	doc, err := s.putLocked(db, id, r.URL.Query().Get("rev"), body)
	if err != nil {
		NotOK(err, w)
		return
	}
	OK(w, http.StatusCreated, fmt.Sprintf(`{"ok":true,"id":"%s","rev":"%s"}`, doc.ID, doc.Rev()))
}

func (s *Server) putLocked(db, id, rev string, body []byte) (*document, error) {
	d, ok := s.dbs[db]
	if !ok {
		return nil, ErrDatabaseNotFound
	}

	parser := parserPool.Get()
	defer parserPool.Put(parser)
	v, err := parser.ParseBytes(body)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", err, ErrBadJSON)
	}
	if v.Type() != fastjson.TypeObject {
		return nil, fmt.Errorf("payload expected as json object: %w", ErrBadJSON)
	}

	if id == "" && v.Exists("_id") {
		id = string(v.GetStringBytes("_id"))
	}
	if id == "" {
		id = strings.ReplaceAll(uuid.NewString(), "-", "")
	}
	if rev == "" && v.Exists("_rev") {
		rev = string(v.GetStringBytes("_rev"))
	}
	v.Del("_id")
	v.Del("_rev")

	cur, exists := d.docs[id]
	switch {
	case exists && cur.Rev() != rev:
		return nil, ErrDocumentConflict
	case !exists && rev != "":
		return nil, ErrDocumentConflict
	}

	doc := &document{ID: id, Data: v.MarshalTo(nil)}
	if exists {
		doc.Version = cur.Version
	}
	doc.Version++
	doc.Signature = fmt.Sprintf("%x", md5.Sum(doc.Data))
	d.docs[id] = doc
	return doc, nil
}

func (s *Server) DeleteDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.deleteHandler(w, r, vars["db"], vars["docid"])
}

func (s *Server) DeleteDDocument(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.deleteHandler(w, r, vars["db"], "_design/"+vars["ddoc"])
}

func (s *Server) deleteHandler(w http.ResponseWriter, r *http.Request, db, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	d, ok := s.dbs[db]
	if !ok {
		NotOK(ErrDatabaseNotFound, w)
		return
	}
	cur, ok := d.docs[id]
	if !ok {
		NotOK(ErrDocumentNotFound, w)
		return
	}
	if cur.Rev() != r.URL.Query().Get("rev") {
		NotOK(ErrDocumentConflict, w)
		return
	}
	delete(d.docs, id)
	OK(w, http.StatusOK, fmt.Sprintf(`{"ok":true,"id":"%s","rev":"%d-%s"}`, id, cur.Version+1, cur.Signature))
}

func (s *Server) SelectView(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.count(GetView)

	if s.failViews > 0 {
		s.failViews--
		NotOK(ErrUnavailable, w)
		return
	}

	d, ok := s.dbs[vars["db"]]
	if !ok {
		NotOK(ErrDatabaseNotFound, w)
		return
	}
	q, err := parseViewQuery(r.URL.Query())
	if err != nil {
		NotOK(err, w)
		return
	}
	rs, err := d.selectView("_design/"+vars["ddoc"], vars["view"], q)
	if err != nil {
		NotOK(err, w)
		return
	}
	OK(w, http.StatusOK, string(rs))
}

func OK(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body)
}

func NotOK(err error, w http.ResponseWriter) {
	statusCode := http.StatusInternalServerError
	switch {
	case errors.Is(err, ErrDatabaseExists):
		statusCode = http.StatusPreconditionFailed
	case errors.Is(err, ErrDocumentConflict):
		statusCode = http.StatusConflict
	case errors.Is(err, ErrDatabaseNotFound), errors.Is(err, ErrDocumentNotFound), errors.Is(err, ErrViewNotFound):
		statusCode = http.StatusNotFound
	case errors.Is(err, ErrBadJSON), errors.Is(err, ErrCompilation):
		statusCode = http.StatusBadRequest
	case errors.Is(err, ErrUnavailable):
		statusCode = http.StatusServiceUnavailable
	}

	code := err.Error()
	reason := code
	if i := strings.LastIndex(code, ": "); i >= 0 {
		reason = code[:i]
		code = code[i+2:]
	}
	var a fastjson.Arena
	body := a.NewObject()
	body.Set("error", a.NewString(code))
	body.Set("reason", a.NewString(reason))
	OK(w, statusCode, string(body.MarshalTo(nil)))
}

func parseBool(s string, def bool) (bool, error) {
	if s == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid boolean %q: %w", s, ErrBadJSON)
	}
	return b, nil
}
