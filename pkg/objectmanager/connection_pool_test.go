package objectmanager_test

import (
	"testing"

	"lodestar.build/pkg/cluster"
	"lodestar.build/pkg/controlplane"
	"lodestar.build/pkg/objectdirectory"
	"lodestar.build/pkg/objectmanager"

	"github.com/stretchr/testify/require"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"

	"google.golang.org/grpc"
)

var (
	selfID = cluster.MustNewNodeID("0000000000000000000000000000000000000000000000000000ffff")
	nodeA  = cluster.MustNewNodeID("01010101010101010101010101010101010101010101010101010101")
	nodeB  = cluster.MustNewNodeID("02020202020202020202020202020202020202020202020202020202")
)

func newTestPool(t *testing.T) (*objectmanager.ConnectionPool, *controlplane.NodeTable) {
	nodeTable := controlplane.NewNodeTable(selfID)
	require.NoError(t, nodeTable.HandleNodeAdded(nodeA, cluster.NodeInfo{
		Address:           "127.0.0.1",
		ObjectManagerPort: 8076,
	}))
	pool := objectmanager.NewConnectionPool(
		objectdirectory.NewRemoteConnectionResolver(nodeTable),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	t.Cleanup(func() {
		require.NoError(t, pool.Close())
	})
	return pool, nodeTable
}

func TestGetConnectionIsCached(t *testing.T) {
	pool, _ := newTestPool(t)

	// Connections are established lazily, so creating a client for
	// a peer that is not actually listening succeeds.
	conn1, err := pool.GetConnection(nodeA)
	require.NoError(t, err)
	conn2, err := pool.GetConnection(nodeA)
	require.NoError(t, err)
	require.Same(t, conn1, conn2)
}

func TestGetConnectionUnresolvableNode(t *testing.T) {
	pool, _ := newTestPool(t)

	_, err := pool.GetConnection(nodeB)
	require.Equal(t, codes.NotFound, status.Code(err))
}

func TestGetConnectionRedialsChangedEndpoint(t *testing.T) {
	pool, nodeTable := newTestPool(t)

	conn1, err := pool.GetConnection(nodeA)
	require.NoError(t, err)

	// The node re-registered on a different port; the pooled
	// connection for the old endpoint must not be reused.
	require.NoError(t, nodeTable.HandleNodeAdded(nodeA, cluster.NodeInfo{
		Address:           "127.0.0.1",
		ObjectManagerPort: 8077,
	}))
	conn2, err := pool.GetConnection(nodeA)
	require.NoError(t, err)
	require.NotSame(t, conn1, conn2)
}

func TestForgetNode(t *testing.T) {
	pool, nodeTable := newTestPool(t)

	conn1, err := pool.GetConnection(nodeA)
	require.NoError(t, err)
	pool.ForgetNode(nodeA)

	conn2, err := pool.GetConnection(nodeA)
	require.NoError(t, err)
	require.NotSame(t, conn1, conn2)
	require.NoError(t, nodeTable.HandleNodeAdded(nodeB, cluster.NodeInfo{
		Address:           "127.0.0.1",
		ObjectManagerPort: 8078,
	}))
	_, err = pool.GetConnection(nodeB)
	require.NoError(t, err)
}
