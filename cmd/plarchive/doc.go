// Package main hosts the plarchive CLI entrypoint and command graph.
//
// The Cobra-based command tree maps each archive mode (init, sync, refresh,
// report, rename) onto the engines under internal/, plus doctor and
// configuration scaffolding. It centralizes configuration resolution, the
// ledger lock, run ids and logger setup so subcommands only describe what
// they run and how they print it.
package main
