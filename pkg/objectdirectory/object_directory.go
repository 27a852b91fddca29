package objectdirectory

import (
	"bytes"
	"sort"
	"sync"

	"lodestar.build/pkg/cluster"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
)

var (
	objectDirectoryMetrics sync.Once

	objectDirectoryUpdatesApplied = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lodestar",
			Subsystem: "objectdirectory",
			Name:      "updates_applied_total",
			Help:      "Number of location update batches that changed an object's state",
		})
	objectDirectoryUpdatesSuppressed = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lodestar",
			Subsystem: "objectdirectory",
			Name:      "updates_suppressed_total",
			Help:      "Number of location update batches that left an object's state unchanged",
		})
	objectDirectoryCallbacksFired = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lodestar",
			Subsystem: "objectdirectory",
			Name:      "callbacks_fired_total",
			Help:      "Number of subscriber callbacks invoked after a state change",
		})
	objectDirectoryLocationsSwept = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "lodestar",
			Subsystem: "objectdirectory",
			Name:      "locations_swept_total",
			Help:      "Number of object locations discarded because the node was removed from the cluster",
		})
)

// LocationsChangedCallback is invoked whenever the location state of a
// subscribed object changes. The locations map is a copy that the
// callback may retain. Callbacks run synchronously with the directory
// already in its post-update state, so they may call back into the
// directory.
type LocationsChangedCallback func(
	objectID cluster.ObjectID,
	locations map[cluster.NodeID]struct{},
	spilledURL string,
	spilledNodeID cluster.NodeID,
	sizeBytes uint64,
)

// ObjectDirectory tracks, for every subscribed object, the set of
// nodes believed to hold a replica and an optional spill location. It
// folds incremental location updates from the control plane into that
// view, reconciles it against cluster membership when nodes are
// declared removed, and notifies subscribers after every change.
//
// The directory is a source of hints, not of truth: listed locations
// may be stale, and the control plane remains authoritative for object
// existence. All methods must be called from a single event-dispatch
// context; the directory performs no internal locking.
type ObjectDirectory struct {
	nodes   cluster.NodeStateReader
	objects map[cluster.ObjectID]*objectLocationState
}

// NewObjectDirectory creates an ObjectDirectory that initially tracks
// no objects. The provided NodeStateReader is consulted on every merge
// to discard locations on removed nodes.
func NewObjectDirectory(nodes cluster.NodeStateReader) *ObjectDirectory {
	objectDirectoryMetrics.Do(func() {
		prometheus.MustRegister(objectDirectoryUpdatesApplied)
		prometheus.MustRegister(objectDirectoryUpdatesSuppressed)
		prometheus.MustRegister(objectDirectoryCallbacksFired)
		prometheus.MustRegister(objectDirectoryLocationsSwept)
	})

	return &ObjectDirectory{
		nodes:   nodes,
		objects: map[cluster.ObjectID]*objectLocationState{},
	}
}

// HandleLocationUpdates folds a batch of location updates for a single
// object into the directory and notifies the object's subscribers.
// Subscribers are only notified if the batch actually changed the
// object's state; downstream consumers treat a callback firing as a
// change signal, so suppressing no-op batches is a correctness
// requirement, not an optimization.
func (od *ObjectDirectory) HandleLocationUpdates(objectID cluster.ObjectID, updates []LocationUpdate) {
	state, ok := od.objects[objectID]
	if !ok {
		state = newObjectLocationState()
		od.objects[objectID] = state
	}
	if applyLocationUpdates(updates, state, od.nodes) {
		objectDirectoryUpdatesApplied.Inc()
		od.notifySubscribers(objectID, state)
	} else {
		objectDirectoryUpdatesSuppressed.Inc()
	}
}

// HandleNodeRemoved reconciles every tracked object against the
// removal of a node from the cluster. Objects that listed the node as
// a location are re-merged with an empty batch, so that the membership
// sweep removes it through the same code path that organic updates
// take, and their subscribers are notified. Objects that did not list
// the node are untouched; a node no tracked object listed is a silent
// no-op, as removals do not require a prior sighting.
func (od *ObjectDirectory) HandleNodeRemoved(nodeID cluster.NodeID) {
	// Collect the affected objects before mutating anything, as
	// callbacks may re-enter the directory and alter the tracked
	// set.
	var affected []cluster.ObjectID
	for objectID, state := range od.objects {
		if _, ok := state.locations[nodeID]; ok {
			affected = append(affected, objectID)
		}
	}

	for _, objectID := range affected {
		state, ok := od.objects[objectID]
		if !ok {
			continue
		}
		applyLocationUpdates(nil, state, od.nodes)
		objectDirectoryUpdatesApplied.Inc()
		od.notifySubscribers(objectID, state)
	}
}

// AddSubscriber registers a callback to be invoked whenever the
// object's location state changes, lazily creating the object's state
// if it was not yet tracked. Registering an existing subscriber ID
// replaces its callback.
func (od *ObjectDirectory) AddSubscriber(objectID cluster.ObjectID, subscriberID uuid.UUID, callback LocationsChangedCallback) {
	state, ok := od.objects[objectID]
	if !ok {
		state = newObjectLocationState()
		od.objects[objectID] = state
	}
	state.callbacks[subscriberID] = callback
}

// RemoveSubscriber deregisters a callback, reporting whether it was
// registered. When the last subscriber leaves an object that has no
// remaining location state, the object is dropped from the directory.
func (od *ObjectDirectory) RemoveSubscriber(objectID cluster.ObjectID, subscriberID uuid.UUID) bool {
	state, ok := od.objects[objectID]
	if !ok {
		return false
	}
	if _, ok := state.callbacks[subscriberID]; !ok {
		return false
	}
	delete(state.callbacks, subscriberID)
	if len(state.callbacks) == 0 && len(state.locations) == 0 && state.spilledURL == "" {
		delete(od.objects, objectID)
	}
	return true
}

// TrackedObjectCount returns the number of objects for which the
// directory currently holds state.
func (od *ObjectDirectory) TrackedObjectCount() int {
	return len(od.objects)
}

// notifySubscribers fans the object's post-update state out to all of
// its subscribers. The subscriber set is snapshotted and ordered by
// subscriber ID before invocation, so that the order is deterministic
// and a callback can unsubscribe itself or others without invalidating
// the iteration.
func (od *ObjectDirectory) notifySubscribers(objectID cluster.ObjectID, state *objectLocationState) {
	subscriberIDs := make([]uuid.UUID, 0, len(state.callbacks))
	for subscriberID := range state.callbacks {
		subscriberIDs = append(subscriberIDs, subscriberID)
	}
	sort.Slice(subscriberIDs, func(i, j int) bool {
		return bytes.Compare(subscriberIDs[i][:], subscriberIDs[j][:]) < 0
	})

	for _, subscriberID := range subscriberIDs {
		callback, ok := state.callbacks[subscriberID]
		if !ok {
			// Unsubscribed by an earlier callback in this
			// fan-out.
			continue
		}
		locations := make(map[cluster.NodeID]struct{}, len(state.locations))
		for nodeID := range state.locations {
			locations[nodeID] = struct{}{}
		}
		objectDirectoryCallbacksFired.Inc()
		callback(objectID, locations, state.spilledURL, state.spilledNodeID, state.sizeBytes)
	}
}
