// Package models defines the client-side data model of a claim: form
// answers, file descriptors, durable snapshots and export documents.
package models

// FileDescriptor is the metadata record of one uploaded file. The bytes live
// in the blob store under ID.
//
// Descriptors read from old snapshots may instead carry the payload inline
// in LegacyData (a data URL or bare base64) and have no ID. Such descriptors
// are rewritten by the legacy migrator; LegacyData is never written back.
type FileDescriptor struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Size int64  `json:"size"`
	Type string `json:"type"`

	LegacyData string `json:"data,omitempty"`
}

// IsLegacy reports whether the descriptor still carries inline data.
func (d FileDescriptor) IsLegacy() bool {
	return d.LegacyData != ""
}

// Reference returns the descriptor in reference form, i.e. without inline data.
func (d FileDescriptor) Reference() FileDescriptor {
	d.LegacyData = ""
	return d
}

// RawFile is a file offered for upload before validation.
type RawFile struct {
	Name string
	Type string
	Data []byte
}

// Size returns the payload length in bytes.
func (f RawFile) Size() int64 {
	return int64(len(f.Data))
}

// CloneDescriptors returns a copy of ds; nil stays nil.
func CloneDescriptors(ds []FileDescriptor) []FileDescriptor {
	if ds == nil {
		return nil
	}
	out := make([]FileDescriptor, len(ds))
	copy(out, ds)
	return out
}

// ReferenceDescriptors returns the reference form of every descriptor in ds.
func ReferenceDescriptors(ds []FileDescriptor) []FileDescriptor {
	out := make([]FileDescriptor, len(ds))
	for i, d := range ds {
		out[i] = d.Reference()
	}
	return out
}

// PersistableDescriptors returns ds in the form a snapshot is written in.
// Descriptors are reduced to reference form, except that a legacy entry
// whose inline data is already present in stored keeps it until it has been
// migrated. Inline data not found in stored is dropped.
func PersistableDescriptors(ds, stored []FileDescriptor) []FileDescriptor {
	known := make(map[string]struct{})
	for _, d := range stored {
		if d.IsLegacy() {
			known[d.LegacyData] = struct{}{}
		}
	}

	out := make([]FileDescriptor, len(ds))
	for i, d := range ds {
		if _, ok := known[d.LegacyData]; ok && d.IsLegacy() {
			out[i] = d
			continue
		}
		out[i] = d.Reference()
	}
	return out
}
