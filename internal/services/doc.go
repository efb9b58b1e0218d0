// Package services defines shared utilities consumed by the archive engines
// and the yt-dlp integration.
//
// Key responsibilities:
//   - Context helpers that stamp run IDs, command modes, and video IDs for
//     logging.
//   - The closed set of error markers plus the Wrap helper, so batch-level
//     failures (bad source, missing ledger) and per-item failures (a single
//     fetch) are classified the same way everywhere.
//
// Use these helpers when wiring new archive logic so operational behaviour
// (error handling, observability) stays uniform across modes.
package services
