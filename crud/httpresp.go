package crud

import (
	"context"
	"net/http"

	"github.com/covrom/couchparty"
	"github.com/go-chi/render"
	log "github.com/sirupsen/logrus"
)

// Pager is a source of collection pages, usually a *couchparty.CollectionProxy.
type Pager interface {
	Page(ctx context.Context, n int) ([]couchparty.Record, error)
	PageSize() int
}

type PageResponse struct {
	Page    int                 `json:"page"`
	PerPage int                 `json:"per_page"`
	Rows    []couchparty.Record `json:"rows"`
}

func (p *PageResponse) Render(w http.ResponseWriter, r *http.Request) error {
	return nil
}

// ResponsePage renders page n of p as json.
func ResponsePage(w http.ResponseWriter, r *http.Request, p Pager, n int) {
	rows, err := p.Page(r.Context(), n)
	if err != nil {
		log.WithError(err).WithField("page", n).Error("ResponsePage")
		render.Render(w, r, ErrRender(err))
		return
	}
	if rows == nil {
		rows = []couchparty.Record{}
	}
	render.Render(w, r, &PageResponse{
		Page:    n,
		PerPage: p.PageSize(),
		Rows:    rows,
	})
}

// CollectionHandler serves pages of a view, the page and key range come from
// the request query.
func CollectionHandler(s *couchparty.CouchStore, typ couchparty.TypeName, view string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pr, err := PageRequestFrom(r, couchparty.DefaultPageSize)
		if err != nil {
			render.Render(w, r, ErrBadRequest(err))
			return
		}
		proxy, err := s.Collection(typ, view, pr.Query, pr.PerPage)
		if err != nil {
			render.Render(w, r, ErrRender(err))
			return
		}
		ResponsePage(w, r, proxy, pr.Page)
	}
}
