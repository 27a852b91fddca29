package objectdirectory

import (
	"lodestar.build/pkg/cluster"
)

// RemoteConnectionInfo describes how to reach a remote node's object
// manager. It is produced transiently per query and never persisted;
// membership changes invalidate it silently.
type RemoteConnectionInfo struct {
	NodeID  cluster.NodeID
	Address string
	Port    uint16
}

// Connected returns true if the node resolved to a usable endpoint.
func (ci RemoteConnectionInfo) Connected() bool {
	return ci.Address != "" && ci.Port != 0
}

// RemoteConnectionResolver derives reachable-peer connection info from
// the cluster membership view. It is the read path the data plane uses
// to locate peers; it never touches per-object directory state.
type RemoteConnectionResolver interface {
	// Resolve returns the connection info of a single node. If the
	// node is unknown or removed, the returned info is not
	// Connected(); absence is not an error.
	Resolve(nodeID cluster.NodeID) RemoteConnectionInfo

	// ResolveAll returns the connection info of every reachable
	// remote peer, excluding the local node and any node that does
	// not resolve to a usable endpoint. The order follows the
	// membership view's enumeration order and is not stable across
	// calls.
	ResolveAll() []RemoteConnectionInfo
}

type remoteConnectionResolver struct {
	nodes cluster.NodeStateReader
}

// NewRemoteConnectionResolver creates a RemoteConnectionResolver that
// derives endpoints from the provided membership view.
func NewRemoteConnectionResolver(nodes cluster.NodeStateReader) RemoteConnectionResolver {
	return &remoteConnectionResolver{
		nodes: nodes,
	}
}

func (rr *remoteConnectionResolver) Resolve(nodeID cluster.NodeID) RemoteConnectionInfo {
	connectionInfo := RemoteConnectionInfo{
		NodeID: nodeID,
	}
	if info, ok := rr.nodes.Get(nodeID); ok {
		connectionInfo.Address = info.Address
		connectionInfo.Port = info.ObjectManagerPort
	}
	return connectionInfo
}

func (rr *remoteConnectionResolver) ResolveAll() []RemoteConnectionInfo {
	selfID := rr.nodes.SelfID()
	var remoteConnections []RemoteConnectionInfo
	for nodeID := range rr.nodes.GetAll() {
		info := rr.Resolve(nodeID)
		if info.Connected() && info.NodeID != selfID {
			remoteConnections = append(remoteConnections, info)
		}
	}
	return remoteConnections
}
