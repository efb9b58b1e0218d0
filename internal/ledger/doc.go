// Package ledger persists the record of archived items.
//
// The ledger is an ordered list of entries keyed by the remote video id. Two
// backends implement Store: a single CSV file rewritten atomically on every
// change (the default, readable by spreadsheet tools and by older tooling's
// column names), and a SQLite database. Writers serialize through Lock, an
// advisory file lock next to the ledger.
package ledger
