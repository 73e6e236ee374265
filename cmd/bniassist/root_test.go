package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaenox/bni-assistant/internal/storage"
	"github.com/xaenox/bni-assistant/pkg/config"
	"go.uber.org/zap"
)

func TestOpenStorage(t *testing.T) {
	ctx := context.Background()
	logger := zap.NewNop()

	store, err := openStorage(ctx, config.DatabaseConfig{UseInMemory: true}, logger)
	require.NoError(t, err)
	assert.Equal(t, storage.DialectSQLite, store.Dialect())
	require.NoError(t, store.Close())

	path := filepath.Join(t.TempDir(), "bni.db")
	store, err = openStorage(ctx, config.DatabaseConfig{Driver: "sqlite", Path: path}, logger)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = openStorage(ctx, config.DatabaseConfig{Driver: "sqlite"}, logger)
	assert.Error(t, err)
}

func TestIngestCommand(t *testing.T) {
	feed := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/details":
			w.Write([]byte(`{"data":[{"id":1,"member_name":"Asha"},{"id":2,"member_name":"Irene"}]}`))
		default:
			w.Write([]byte(`{"data":[{"NAME":"Asha","Total_Score":"70"}]}`))
		}
	}))
	defer feed.Close()

	t.Setenv("DATABASE_USE_IN_MEMORY", "true")
	t.Setenv("INGEST_DETAILS_URL", feed.URL+"/details")
	t.Setenv("INGEST_SCORES_URL", feed.URL+"/scores")

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"ingest", "--replace-scores", "--config", filepath.Join(t.TempDir(), "missing.yaml")})

	require.NoError(t, root.Execute())
	assert.Equal(t, "Data inserted successfully: 2 members, 1 score rows\n", out.String())
}
