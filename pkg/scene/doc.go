// Package scene holds the in-memory model of a scan-editing session: the
// identifier allocator, the plane/cloud/room entities, and the store that
// owns them. Entities are mutated by whole-value replacement: operations
// return transformed clones and the store swaps map entries, so concurrent
// readers always see a consistent snapshot of any single entity.
package scene
