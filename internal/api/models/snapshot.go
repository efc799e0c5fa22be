package models

import "github.com/agrimind/agrimind/internal/snapshot"

// SnapshotList is the body of GET /v1/market/snapshots.
type SnapshotList struct {
	Items []*snapshot.Snapshot `json:"items"`
	Meta  PagedResponseMeta    `json:"meta"`
}
