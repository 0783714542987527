package couchparty_test

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/covrom/couchparty"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// couchURL is the real CouchDB server for TestBasicUsage, empty when neither
// COUCHDB_URL nor docker is available.
var couchURL string

func TestMain(m *testing.M) {
	couchURL = os.Getenv("COUCHDB_URL")
	if couchURL != "" {
		os.Exit(m.Run())
	}

	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		log.Warnf("docker is unavailable, skipping integration tests: %s", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "couchdb",
		Tag:        "3.3",
		Env: []string{
			"COUCHDB_USER=admin",
			"COUCHDB_PASSWORD=secret",
		},
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
		config.RestartPolicy = docker.RestartPolicy{Name: "no"}
	})
	if err != nil {
		log.Fatalf("could not start couchdb: %s", err)
	}
	resource.Expire(300)

	couchURL = fmt.Sprintf("http://admin:secret@%s", resource.GetHostPort("5984/tcp"))

	pool.MaxWait = 2 * time.Minute
	if err := pool.Retry(func() error {
		resp, err := http.Get(couchURL + "/_up")
		if err != nil {
			return err
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("couchdb is not up: %s", resp.Status)
		}
		return nil
	}); err != nil {
		log.Fatalf("could not connect to couchdb: %s", err)
	}

	code := m.Run()

	if err := pool.Purge(resource); err != nil {
		log.Fatalf("could not purge couchdb: %s", err)
	}

	os.Exit(code)
}

func TestBasicUsage(t *testing.T) {
	if couchURL == "" {
		t.Skip("no couchdb server")
	}
	ctx := context.Background()

	client, err := couchparty.NewHTTPClient(couchURL, nil)
	require.NoError(t, err)
	db := fmt.Sprintf("basic_%d", time.Now().UnixNano())
	require.NoError(t, client.CreateDatabase(ctx, db))
	defer client.DeleteDatabase(ctx, db)

	s := couchparty.NewCouchStore(client, db)
	require.NoError(t, couchparty.Register(s, couchparty.MD[Course]{}))
	require.NoError(t, s.Migrate(ctx))

	for i, title := range []string{"ddd", "aaa", "eee", "bbb"} {
		_, _, err := client.CreateDocument(ctx, db, Course{
			Document: couchparty.Document{Type: "Course"},
			Title:    title,
			Active:   i%2 == 0,
		})
		require.NoError(t, err)
	}

	_, err = s.ViewBy("Course", []string{"title"}, couchparty.ViewByOptions{})
	require.NoError(t, err)
	require.NoError(t, s.UpdateViews(ctx, "Course", db))

	res, err := s.Query(ctx, "Course", "by_title", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"aaa", "bbb", "ddd", "eee"}, titles(t, res.Records))

	n, err := s.Count(ctx, "Course", nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)

	rec, ok, err := s.FindBy(ctx, "Course", "find_by_title_and_active", []any{"ddd", true}, nil)
	require.NoError(t, err)
	require.True(t, ok)
	c, _ := couchparty.As[Course](rec)
	assert.Equal(t, "ddd", c.Title)

	stored, err := s.StoredDesign(ctx, "Course", db)
	require.NoError(t, err)
	assert.Contains(t, stored.Views, "by_title_and_active")

	// a second process with the same declarations does not rewrite
	s2 := couchparty.NewCouchStore(client, db)
	require.NoError(t, couchparty.Register(s2, couchparty.MD[Course]{}))
	for _, props := range [][]string{{"title"}, {"title", "active"}} {
		_, err = s2.ViewBy("Course", props, couchparty.ViewByOptions{})
		require.NoError(t, err)
	}
	require.NoError(t, s2.EnsureDesign(ctx, "Course", db))
	dd, _ := s2.Design("Course")
	assert.Equal(t, stored.Rev, dd.Rev())

	p, err := s.Collection("Course", "by_title", nil, 3)
	require.NoError(t, err)
	page, err := p.Page(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"eee"}, titles(t, page))
}
