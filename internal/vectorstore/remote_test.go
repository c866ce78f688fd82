package vectorstore

import (
	"context"
	"net"
	"os"
	"strconv"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// exerciseBackend runs the engine contract against a live backend.
func exerciseBackend(t *testing.T, backend Backend) {
	t.Helper()
	ctx := context.Background()
	e := NewEngine(t.TempDir(), backend)
	require.NoError(t, e.Connect(ctx))
	defer e.Disconnect()

	name := "ragpipe_test_" + uuid.NewString()[:8]
	require.NoError(t, e.CreateCollection(ctx, name))
	defer e.DeleteCollection(ctx, name)

	n, err := e.AddVectors(ctx, AddRequest{
		Collection: name,
		Documents:  []string{"east", "north"},
		Embeddings: [][]float32{{1, 0, 0}, {0, 1, 0}},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	res, err := e.QueryEmbeddings(ctx, name, [][]float32{{1, 0, 0}}, 1)
	require.NoError(t, err)
	require.Len(t, res[0].IDs, 1)
	assert.Equal(t, "east", res[0].Documents[0])

	info, err := e.GetCollectionInfo(ctx, name)
	require.NoError(t, err)
	assert.Equal(t, 2, info.NumVectors)
}

func TestQdrantBackend(t *testing.T) {
	addr := os.Getenv("RAGPIPE_QDRANT_ADDR")
	if addr == "" {
		t.Skip("RAGPIPE_QDRANT_ADDR not set")
	}
	host, portStr, err := net.SplitHostPort(addr)
	require.NoError(t, err)
	port, err := strconv.Atoi(portStr)
	require.NoError(t, err)
	exerciseBackend(t, NewQdrantBackend(QdrantOptions{Host: host, Port: port}))
}

func TestMilvusBackend(t *testing.T) {
	addr := os.Getenv("RAGPIPE_MILVUS_ADDR")
	if addr == "" {
		t.Skip("RAGPIPE_MILVUS_ADDR not set")
	}
	exerciseBackend(t, NewMilvusBackend(MilvusOptions{Address: addr}))
}

func TestMilvusName(t *testing.T) {
	assert.Equal(t, "my_doc", milvusName("my-doc"))
	assert.Equal(t, "c_2024_report", milvusName("2024-report"))
}

func TestPointIDStable(t *testing.T) {
	assert.Equal(t, pointID("c", "1").GetUuid(), pointID("c", "1").GetUuid())
	assert.NotEqual(t, pointID("c", "1").GetUuid(), pointID("d", "1").GetUuid())
}
