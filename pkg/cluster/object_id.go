package cluster

import (
	"encoding/hex"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ObjectIDSizeBytes is the width of an object identifier.
const ObjectIDSizeBytes = 28

// ObjectID uniquely identifies an object stored in the cluster. Object
// identifiers are content independent; two objects with identical
// contents still have distinct identifiers.
//
// Like NodeID, ObjectID is a comparable value type.
type ObjectID [ObjectIDSizeBytes]byte

// NewObjectIDFromBinary creates an ObjectID from the raw binary
// representation carried by control-plane notifications.
func NewObjectIDFromBinary(data []byte) (ObjectID, error) {
	var id ObjectID
	if len(data) != ObjectIDSizeBytes {
		return id, status.Errorf(codes.InvalidArgument, "Object ID is %d bytes in size, while %d bytes were expected", len(data), ObjectIDSizeBytes)
	}
	copy(id[:], data)
	return id, nil
}

// MustNewObjectID creates an ObjectID from a hexadecimal string
// representation, panicking in case of failure. Useful in tests.
func MustNewObjectID(value string) ObjectID {
	data, err := hex.DecodeString(value)
	if err != nil {
		panic(err)
	}
	id, err := NewObjectIDFromBinary(data)
	if err != nil {
		panic(err)
	}
	return id
}

func (id ObjectID) String() string {
	return hex.EncodeToString(id[:])
}
