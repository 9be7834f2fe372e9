package models

import "time"

// BlobKind selects one of the per-user object namespaces.
type BlobKind string

const (
	BlobKindROM  BlobKind = "rom"
	BlobKindSave BlobKind = "save"
)

// BlobKinds lists every kind exposed over the API.
var BlobKinds = []BlobKind{BlobKindROM, BlobKindSave}

func (k BlobKind) Valid() bool {
	return k == BlobKindROM || k == BlobKindSave
}

// BlobInfo describes a stored object as seen by its owner.
type BlobInfo struct {
	Name         string    `json:"name"`
	Size         int64     `json:"size"`
	LastModified time.Time `json:"last_modified"`
}
