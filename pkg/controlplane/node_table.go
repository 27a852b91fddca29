package controlplane

import (
	"sync"

	"lodestar.build/pkg/cluster"

	"github.com/prometheus/client_golang/prometheus"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	nodeTableMetrics sync.Once

	nodeTableNodesAdded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lodestar",
			Subsystem: "controlplane",
			Name:      "node_table_nodes_added_total",
			Help:      "Number of node additions and updates delivered by the control plane",
		})
	nodeTableNodesRemoved = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lodestar",
			Subsystem: "controlplane",
			Name:      "node_table_nodes_removed_total",
			Help:      "Number of node removals delivered by the control plane",
		})
)

// NodeTable is an in-memory view of cluster membership, fed by node
// added/updated/removed notifications from the control plane. It
// implements cluster.NodeStateReader for consumers that need to
// reconcile their own state against membership.
//
// NodeTable assumes all deliveries and reads happen on a single
// event-dispatch context, matching how the control-plane client posts
// notifications. It performs no internal locking.
type NodeTable struct {
	selfID  cluster.NodeID
	nodes   map[cluster.NodeID]cluster.NodeInfo
	removed map[cluster.NodeID]struct{}
}

// NewNodeTable creates a NodeTable that initially knows of no nodes.
// selfID is the identifier under which the local node registered.
func NewNodeTable(selfID cluster.NodeID) *NodeTable {
	nodeTableMetrics.Do(func() {
		prometheus.MustRegister(nodeTableNodesAdded)
		prometheus.MustRegister(nodeTableNodesRemoved)
	})

	return &NodeTable{
		selfID:  selfID,
		nodes:   map[cluster.NodeID]cluster.NodeInfo{},
		removed: map[cluster.NodeID]struct{}{},
	}
}

// HandleNodeAdded registers a node or updates its connection metadata.
// The control plane resends the full metadata on every change, so the
// last delivery wins. Re-adding a node that was previously removed
// resurrects it, as the control plane's ordering of deliveries is
// authoritative.
func (nt *NodeTable) HandleNodeAdded(nodeID cluster.NodeID, info cluster.NodeInfo) error {
	if nodeID.IsNil() {
		return status.Error(codes.InvalidArgument, "Node addition carries a nil node ID")
	}
	nt.nodes[nodeID] = info
	delete(nt.removed, nodeID)
	nodeTableNodesAdded.Inc()
	return nil
}

// HandleNodeRemoved marks a node as removed from the cluster. The
// identity is retained, so that IsRemoved() keeps answering true for
// it. Removals may arrive before the node was ever sighted; those are
// recorded all the same.
func (nt *NodeTable) HandleNodeRemoved(nodeID cluster.NodeID) {
	delete(nt.nodes, nodeID)
	nt.removed[nodeID] = struct{}{}
	nodeTableNodesRemoved.Inc()
}

// IsRemoved implements cluster.NodeStateReader.
func (nt *NodeTable) IsRemoved(nodeID cluster.NodeID) bool {
	_, ok := nt.removed[nodeID]
	return ok
}

// Get implements cluster.NodeStateReader.
func (nt *NodeTable) Get(nodeID cluster.NodeID) (cluster.NodeInfo, bool) {
	info, ok := nt.nodes[nodeID]
	return info, ok
}

// GetAll implements cluster.NodeStateReader.
func (nt *NodeTable) GetAll() map[cluster.NodeID]cluster.NodeInfo {
	return nt.nodes
}

// SelfID implements cluster.NodeStateReader.
func (nt *NodeTable) SelfID() cluster.NodeID {
	return nt.selfID
}
