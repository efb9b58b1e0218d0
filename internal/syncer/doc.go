// Package syncer implements steady-state archiving: every playlist item whose
// id is not yet in the ledger is fetched, moved into the archive under its
// channel folder and recorded immediately.
//
// Items are processed one at a time in playlist order. Each recorded item is
// durable on its own, so an interrupted run resumes with the items that were
// not yet recorded.
package syncer
