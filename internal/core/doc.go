// Package core provides the business logic for course catalog reconciliation
// and practitioner course-completion submissions.
//
// This package has no transport or database dependencies. Stores, the
// taxonomy lookups and the certificate blob store are consumed through the
// interfaces in ports.go so that web handlers, the feed watcher and tests can
// drive the same code.
//
// # Catalog Reconciliation
//
// [CatalogRefresher.Refresh] parses a CSV feed of sixteen positional columns
// (the first line is always skipped) and applies every row to the catalog in
// file order. Each row carries an edit flag:
//
//   - "New Row": insert, or update when the course code already exists
//   - "Edited Row": update an existing entry
//   - "Delete Row": soft delete (is_active = false)
//   - "No Change": counted, never touches the store
//
// Rows that fail validation are reported in the [RunReport] and never
// mutate the store. One bad row never stops the run; a malformed feed or a
// failing store does.
//
// # Submissions
//
// [SubmissionPipeline.Create] validates a completion against the taxonomy
// and the catalog, uploads the certificate to the [BlobStore] and upserts
// the record so that a practitioner holds at most one submission per course
// per program year. Writes for the same practitioner and course are
// serialized in-process.
//
// # Error Handling
//
// Callers distinguish three kinds of failure with errors.As / errors.Is:
//
//   - [*RequestValidationError]: the request was rejected with a fixed message
//   - [*DependencyFailure]: a store or the blob store failed
//   - [ErrNotFound], [ErrConflict]: taxonomy registration outcomes
//
// Anything else is mapped to a coded user message by [MapError].
package core
