// Package entities provides the core domain model for the harness:
// capability catalog documents, versioned boundary records, and run-mode
// plans. These are plain data types with no behavior beyond construction
// and formatting; validation, indexing, and codecs live in the
// application layer.
package entities
