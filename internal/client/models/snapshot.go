package models

import (
	"maps"
	"time"
)

// Snapshot is the durable, binary-free image of a claim session. It is what
// the metadata store writes and reads back.
type Snapshot struct {
	FormFields map[string]any   `json:"formFields"`
	Files      []FileDescriptor `json:"fileDescriptors"`
	Timestamp  time.Time        `json:"timestamp"`
}

// ClaimData is the payload handed to a background context by the bridge.
// It carries descriptors only, never file content.
type ClaimData struct {
	FormData      map[string]any   `json:"formData"`
	UploadedFiles []FileDescriptor `json:"uploadedFiles"`
	Timestamp     time.Time        `json:"timestamp"`
}

// ClaimData converts the snapshot into the bridge payload.
func (s Snapshot) ClaimData() ClaimData {
	fields := maps.Clone(s.FormFields)
	if fields == nil {
		fields = map[string]any{}
	}
	return ClaimData{
		FormData:      fields,
		UploadedFiles: ReferenceDescriptors(s.Files),
		Timestamp:     s.Timestamp,
	}
}
