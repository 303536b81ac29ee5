package models

import "time"

// Notes embedded into exported documents.
const (
	ExportNote     = "Uploaded files are exported as separate downloads next to this document."
	ExportFileNote = "File content is not embedded; see the separately exported file."
)

// ExportDocument is the user-facing JSON artifact produced by an export.
type ExportDocument struct {
	FormData      map[string]any `json:"formData"`
	UploadedFiles []ExportedFile `json:"uploadedFiles"`
	ExportTime    time.Time      `json:"exportTime"`
	Note          string         `json:"note"`
}

// ExportedFile describes one uploaded file inside an ExportDocument.
type ExportedFile struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	Type        string `json:"type"`
	DataRemoved bool   `json:"dataRemoved"`
	Note        string `json:"note"`
}
