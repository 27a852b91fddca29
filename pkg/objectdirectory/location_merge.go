package objectdirectory

import (
	"fmt"

	"lodestar.build/pkg/cluster"

	"github.com/google/uuid"
)

// objectLocationState is the directory's view of a single object: the
// set of nodes believed to hold a replica, the spill location if the
// object was written to external storage, the last known object size,
// and the callbacks subscribed to changes of any of the former.
type objectLocationState struct {
	locations     map[cluster.NodeID]struct{}
	spilledURL    string
	spilledNodeID cluster.NodeID
	sizeBytes     uint64
	callbacks     map[uuid.UUID]LocationsChangedCallback
}

func newObjectLocationState() *objectLocationState {
	return &objectLocationState{
		locations: map[cluster.NodeID]struct{}{},
		callbacks: map[uuid.UUID]LocationsChangedCallback{},
	}
}

// applyLocationUpdates folds a batch of location updates into an
// object's state, returning whether any of it changed. Updates are
// applied in slice order.
//
// Node-removal notifications and object-location notifications arrive
// on independent streams, so an addition may name a node that has
// already been declared removed. After the batch is folded, locations
// are therefore swept against the membership view, which also makes an
// empty batch a usable way to force a resweep. The result is only pure
// with respect to a fixed snapshot of membership state.
func applyLocationUpdates(updates []LocationUpdate, state *objectLocationState, nodes cluster.NodeStateReader) bool {
	changed := false
	for _, update := range updates {
		// Removals do not know the object's size, so a zero size
		// never overwrites a previously learned one.
		if update.SizeBytes > 0 {
			state.sizeBytes = update.SizeBytes
		}

		switch update.Kind {
		case LocationUpdateAdd:
			if _, ok := state.locations[update.NodeID]; !ok {
				state.locations[update.NodeID] = struct{}{}
				changed = true
			}
		case LocationUpdateRemove:
			if _, ok := state.locations[update.NodeID]; ok {
				delete(state.locations, update.NodeID)
				changed = true
			}
		case LocationUpdateSpilled:
			if update.SpilledURL == "" {
				panic("Spill update carries an empty URL, meaning the control-plane location stream is corrupted")
			}
			if update.SpilledURL != state.spilledURL {
				state.spilledURL = update.SpilledURL
				state.spilledNodeID = update.SpilledNodeID
				changed = true
			}
		default:
			panic(fmt.Sprintf("Unknown location update kind %d", update.Kind))
		}
	}

	for nodeID := range state.locations {
		if nodes.IsRemoved(nodeID) {
			delete(state.locations, nodeID)
			objectDirectoryLocationsSwept.Inc()
			changed = true
		}
	}

	return changed
}
