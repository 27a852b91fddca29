package objectdirectory

import (
	"lodestar.build/pkg/cluster"
)

// LocationUpdateKind distinguishes the variants of a location update.
type LocationUpdateKind int

const (
	// LocationUpdateAdd denotes that a node now holds a replica of
	// the object.
	LocationUpdateAdd LocationUpdateKind = iota
	// LocationUpdateRemove denotes that a node no longer holds a
	// replica of the object.
	LocationUpdateRemove
	// LocationUpdateSpilled denotes that the object was written to
	// external storage.
	LocationUpdateSpilled
)

// LocationUpdate is a single entry in the stream of object location
// changes that the control plane broadcasts. Updates for one object are
// delivered in batches that must be applied in slice order.
type LocationUpdate struct {
	Kind LocationUpdateKind

	// NodeID is the node gaining or losing a replica. Unused for
	// spill updates.
	NodeID cluster.NodeID

	// SizeBytes is the size of the object. Only additions carry a
	// size; it is zero for removals, which do not know the size.
	SizeBytes uint64

	// SpilledURL and SpilledNodeID describe the external storage
	// location for spill updates. A genuine spill always carries a
	// non-empty URL.
	SpilledURL    string
	SpilledNodeID cluster.NodeID
}

// NewLocationAdded creates a LocationUpdate recording that nodeID now
// holds a replica of sizeBytes in size.
func NewLocationAdded(nodeID cluster.NodeID, sizeBytes uint64) LocationUpdate {
	return LocationUpdate{
		Kind:      LocationUpdateAdd,
		NodeID:    nodeID,
		SizeBytes: sizeBytes,
	}
}

// NewLocationRemoved creates a LocationUpdate recording that nodeID no
// longer holds a replica.
func NewLocationRemoved(nodeID cluster.NodeID) LocationUpdate {
	return LocationUpdate{
		Kind:   LocationUpdateRemove,
		NodeID: nodeID,
	}
}

// NewLocationSpilled creates a LocationUpdate recording that the object
// was spilled to external storage at the provided URL, owned by
// spilledNodeID.
func NewLocationSpilled(spilledURL string, spilledNodeID cluster.NodeID) LocationUpdate {
	return LocationUpdate{
		Kind:          LocationUpdateSpilled,
		SpilledURL:    spilledURL,
		SpilledNodeID: spilledNodeID,
	}
}
