package couchparty

import (
	"context"
	"errors"
	"fmt"

	"github.com/covrom/couchparty/ddoc"
)

// loadDesign reads the stored design document, nil when there is none.
func (s *CouchStore) loadDesign(ctx context.Context, db, id string) (*ddoc.Design, error) {
	ret := &ddoc.Design{}
	if err := s.client.GetDocument(ctx, db, id, ret); err != nil {
		if errors.Is(err, ErrDocumentNotFound) {
			return nil, nil
		}
		return nil, storeError("loadDesign", err)
	}
	return ret, nil
}

// saveDesign writes doc over rev and returns the new revision.
func (s *CouchStore) saveDesign(ctx context.Context, db string, doc *ddoc.Design, rev string) (string, error) {
	body := *doc
	body.Rev = ""
	newRev, err := s.client.PutDocument(ctx, db, doc.ID, &body, rev)
	if err != nil {
		return "", err
	}
	if newRev == "" {
		return "", ErrorUnavailable{Op: "saveDesign", Err: fmt.Errorf("store returned no revision for %s", doc.ID)}
	}
	return newRev, nil
}
