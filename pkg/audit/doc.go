// Package audit is the activity log: an append-only record of admin model
// changes and authentication events.
//
// # Writing
//
// Recorder.RecordModel is called by the admin services after every create,
// update and delete of a tracked model. The description is rendered as
//
//	Permission "user.view" was created
//
// and the causer is taken from the request context. Recorder.LogAuthEvent
// records login, logout and failed logins under the "auth" log name.
//
// # Reading
//
// Store searches with the list filters, computes today/week/month counts and
// deletes single rows, id sets, or everything when given TruncateConfirmation.
// WriteCSV renders exports; Retention archives old rows to object storage
// before pruning them.
package audit
