// Package report writes the CSV reports produced by bootstrap and by the
// report command, and tallies the ledger for display.
package report
