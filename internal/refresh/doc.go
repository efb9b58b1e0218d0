// Package refresh re-checks archived items against the remote source. Items
// that disappeared are marked deleted and retitled items get their new title
// plus a dated note. Entries are never removed from the ledger.
package refresh
