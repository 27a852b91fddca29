package objectmanager

import (
	"net"
	"strconv"

	"lodestar.build/pkg/cluster"
	"lodestar.build/pkg/objectdirectory"

	"github.com/buildbarn/bb-storage/pkg/util"

	"golang.org/x/sync/errgroup"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type pooledConnection struct {
	target string
	conn   *grpc.ClientConn
}

// ConnectionPool maintains one gRPC client connection per remote peer,
// resolving endpoints through a RemoteConnectionResolver on demand.
// The data plane uses it to transfer object contents between nodes;
// the pool itself carries no object state.
//
// Like the directory, the pool expects to be driven from a single
// event-dispatch context and performs no internal locking.
type ConnectionPool struct {
	resolver    objectdirectory.RemoteConnectionResolver
	dialOptions []grpc.DialOption
	connections map[cluster.NodeID]pooledConnection
}

// NewConnectionPool creates a ConnectionPool that dials peers with the
// provided options (credentials, interceptors) as resolved endpoints
// are first requested.
func NewConnectionPool(resolver objectdirectory.RemoteConnectionResolver, dialOptions ...grpc.DialOption) *ConnectionPool {
	return &ConnectionPool{
		resolver:    resolver,
		dialOptions: dialOptions,
		connections: map[cluster.NodeID]pooledConnection{},
	}
}

// GetConnection returns a client connection to the node's object
// manager, dialing it if none is pooled. A node that does not resolve
// to a usable endpoint yields NotFound. If the node's endpoint changed
// since the connection was pooled, the stale connection is closed and
// the new endpoint is dialed.
func (cp *ConnectionPool) GetConnection(nodeID cluster.NodeID) (*grpc.ClientConn, error) {
	info := cp.resolver.Resolve(nodeID)
	if !info.Connected() {
		return nil, status.Errorf(codes.NotFound, "Node %s does not resolve to a connected endpoint", nodeID)
	}
	target := net.JoinHostPort(info.Address, strconv.Itoa(int(info.Port)))

	if pooled, ok := cp.connections[nodeID]; ok {
		if pooled.target == target {
			return pooled.conn, nil
		}
		// The node re-registered on a different endpoint.
		pooled.conn.Close()
		delete(cp.connections, nodeID)
	}

	conn, err := grpc.NewClient(target, cp.dialOptions...)
	if err != nil {
		return nil, util.StatusWrapf(err, "Failed to create client for node %s at %s", nodeID, target)
	}
	cp.connections[nodeID] = pooledConnection{
		target: target,
		conn:   conn,
	}
	return conn, nil
}

// ForgetNode closes and drops the pooled connection to a node. The
// host calls this when the control plane declares the node removed.
func (cp *ConnectionPool) ForgetNode(nodeID cluster.NodeID) {
	if pooled, ok := cp.connections[nodeID]; ok {
		pooled.conn.Close()
		delete(cp.connections, nodeID)
	}
}

// Close tears down every pooled connection.
func (cp *ConnectionPool) Close() error {
	group := errgroup.Group{}
	for nodeID, pooled := range cp.connections {
		group.Go(pooled.conn.Close)
		delete(cp.connections, nodeID)
	}
	return group.Wait()
}
