// Package config loads, normalizes, and validates plarchive configuration data.
//
// It supplies repository defaults rooted in the XDG base directories, expands
// user paths (including tilde shortcuts), reads TOML files, and honours
// environment fallbacks such as PLARCHIVE_PLAYLIST_URL. The Config type
// centralizes every knob the archive commands need: where media is staged and
// kept, where the ledger lives, how yt-dlp is driven, and how aggressively
// titles are matched during bootstrap.
//
// Always obtain settings through this package so downstream code receives
// sanitized paths, canonical policy names, and clear validation errors.
package config
