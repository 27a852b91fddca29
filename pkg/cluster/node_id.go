package cluster

import (
	"encoding/hex"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// NodeIDSizeBytes is the width of a node identifier. All cluster-unique
// identifiers share this width, so that they can be carried in the same
// fixed-size fields of control-plane notifications.
const NodeIDSizeBytes = 28

// NodeID uniquely identifies a node within the cluster. Node
// identifiers are assigned by the control plane when a node registers,
// and are never reused, even if a node restarts on the same address.
//
// NodeID is a plain value type. It is comparable and may be used as a
// map key.
type NodeID [NodeIDSizeBytes]byte

// NewNodeIDFromBinary creates a NodeID from the raw binary
// representation carried by control-plane notifications.
func NewNodeIDFromBinary(data []byte) (NodeID, error) {
	var id NodeID
	if len(data) != NodeIDSizeBytes {
		return id, status.Errorf(codes.InvalidArgument, "Node ID is %d bytes in size, while %d bytes were expected", len(data), NodeIDSizeBytes)
	}
	copy(id[:], data)
	return id, nil
}

// MustNewNodeID creates a NodeID from a hexadecimal string
// representation, panicking in case of failure. Useful in tests.
func MustNewNodeID(value string) NodeID {
	data, err := hex.DecodeString(value)
	if err != nil {
		panic(err)
	}
	id, err := NewNodeIDFromBinary(data)
	if err != nil {
		panic(err)
	}
	return id
}

// IsNil returns true if the NodeID has the all-zeroes value that is
// used to denote the absence of a node.
func (id NodeID) IsNil() bool {
	return id == NodeID{}
}

func (id NodeID) String() string {
	return hex.EncodeToString(id[:])
}
