// Package ytdlp wraps the yt-dlp command line for playlist listing,
// single-video probes and media fetches.
//
// Every invocation goes through an Executor so tests can substitute canned
// output. Listing is retried a bounded number of times; probes and fetches
// run once and surface yt-dlp's stderr through CommandError.
package ytdlp
