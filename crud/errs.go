package crud

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/covrom/couchparty"
	"github.com/go-chi/render"
)

// ErrResponse renderer type for handling all sorts of errors.
type ErrResponse struct {
	Err            error `json:"-"` // low-level runtime error
	HTTPStatusCode int   `json:"-"` // http response status code

	StatusText string `json:"status"`          // user-level status message
	AppCode    int64  `json:"code,omitempty"`  // application-specific error code
	ErrorText  string `json:"error,omitempty"` // application-level error message, for debugging
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func (e *ErrResponse) Error() string {
	return fmt.Sprintf("%d %s %s", e.AppCode, e.StatusText, e.ErrorText)
}

func ErrBadRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

// ErrRender maps the store errors to http statuses.
func ErrRender(err error) render.Renderer {
	var (
		cfg  couchparty.ErrorConfiguration
		nf   couchparty.ErrorNotFound
		nodb couchparty.ErrorNoDatabase
		cf   couchparty.ErrorConflict
		un   couchparty.ErrorUnavailable
	)
	ret := &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Internal error.",
		ErrorText:      err.Error(),
	}
	switch {
	case errors.As(err, &cfg), errors.As(err, &nodb):
		ret.HTTPStatusCode = http.StatusBadRequest
		ret.StatusText = "Invalid request."
	case errors.As(err, &nf), errors.Is(err, couchparty.ErrDocumentNotFound):
		ret.HTTPStatusCode = http.StatusNotFound
		ret.StatusText = "Resource not found."
	case errors.As(err, &cf), errors.Is(err, couchparty.ErrDocumentConflict):
		ret.HTTPStatusCode = http.StatusConflict
		ret.StatusText = "Conflict."
	case errors.As(err, &un):
		ret.HTTPStatusCode = http.StatusServiceUnavailable
		ret.StatusText = "Store unavailable."
	}
	return ret
}
