// Package core provides the attendee import pipeline, independent of any
// transport or storage backend.
//
// # Pipeline
//
// An import happens in two explicit steps.
//
// Analysis is read-only:
//
//  1. [DecodeFile] turns a CSV, TSV or XLSX upload into rows of cells.
//  2. [NormalizeHeaders] makes the header row non-empty and unique.
//  3. [ClassifyColumns] asks a [Classifier] which headers hold the name,
//     email and phone, using a sample of at most [DefaultSampleRows] rows.
//  4. [Reconcile] extracts an [AttendeeRecord] from every row, falling back
//     to scanning cells when a role column is unknown, and partitions the
//     rows into attendees with an email, name-only attendees and skipped rows.
//
// The [Service] saves the result as an [Analysis] in a [PreviewStore].
//
// Commit starts only when the caller confirms a preview:
//
//  1. [FinalizeAttendees] optionally gives name-only attendees placeholder
//     emails under [PlaceholderDomain].
//  2. The [Committer] picks a ticket type, drops attendees already holding a
//     ticket for the event, creates missing custom form fields and inserts
//     tickets in batches of [DefaultBatchSize], reporting progress after
//     each batch. A failed batch is recorded and the next batch still runs.
//
// # Concurrency
//
// The [ImportLimiter] admits at most one commit per event and bounds the
// number of commits running at once. Progress is fanned out to subscribers
// through [Service.SubscribeProgress].
//
// # Error Handling
//
// Technical errors are mapped to user-facing messages with [MapError]:
//
//   - FILE001-FILE006: upload size, decoding and format
//   - EVT001-EVT002: event selection and ticket types
//   - CLS001: column classification
//   - IMP001-IMP006: previews, import sessions and limits
//   - VAL001-VAL002: request validation
//   - DB001-DB007: database errors
//   - RATE001: throttling
package core
