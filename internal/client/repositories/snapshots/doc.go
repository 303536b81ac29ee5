// Package snapshots implements the claim metadata store: one JSON snapshot
// of the session (form fields, reference-form file descriptors, timestamp)
// kept under a single key of the metadata table.
//
// # Overview
//
// Every Save fully overwrites the previous snapshot inside one transaction,
// so a failed save leaves the prior snapshot intact. Binary content is never
// written: descriptors are stripped of inline legacy data before marshaling,
// and snapshots larger than the configured quota are refused with
// common.ErrQuotaExceeded.
//
// Load understands the current layout
//
//	{"formFields":{...},"fileDescriptors":[{"id","name","size","type"}],"timestamp":"..."}
//
// as well as the legacy one written by older wizard versions
//
//	{"formData":{...},"uploadedFiles":[{"name","size","type","data":"data:...;base64,..."}],"timestamp":1704103200000}
//
// Legacy descriptors are returned with LegacyData set; converting them is the
// job of the legacy migrator, not of this package.
package snapshots
