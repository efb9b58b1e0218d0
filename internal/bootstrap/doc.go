// Package bootstrap creates the first ledger for an archive that was built
// before ids were tracked. Local files are paired with playlist records by
// title similarity; anything left unpaired is written to CSV reports for
// manual review.
package bootstrap
