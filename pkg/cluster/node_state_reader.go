package cluster

// NodeInfo holds the connection metadata that a node registered with
// the control plane. The object manager port is the endpoint on which
// the node serves data-plane object transfers.
type NodeInfo struct {
	Address           string
	ObjectManagerPort uint16
}

// NodeStateReader provides read access to the cluster membership view
// that the control plane maintains. Implementations are expected to be
// eventually consistent: a node may still be reported alive shortly
// after it was declared dead, and vice versa. Consumers that combine
// membership with other state (e.g., object locations) must therefore
// reconcile against IsRemoved() rather than assume their own view is
// current.
//
// All methods are non-blocking reads. Callers never mutate membership
// through this interface.
type NodeStateReader interface {
	// IsRemoved returns true if the node has been declared removed
	// from the cluster. Removal is permanent for a given NodeID; a
	// restarted node registers under a fresh identifier.
	IsRemoved(nodeID NodeID) bool

	// Get returns the connection metadata of a live node. The
	// boolean return value is false if the node is unknown or has
	// been removed.
	Get(nodeID NodeID) (NodeInfo, bool)

	// GetAll returns the connection metadata of all live nodes,
	// keyed by node identifier. The returned map must not be
	// mutated by the caller.
	GetAll() map[NodeID]NodeInfo

	// SelfID returns the identifier under which the local node
	// registered itself.
	SelfID() NodeID
}
