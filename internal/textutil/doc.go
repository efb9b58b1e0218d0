// Package textutil provides text processing utilities for title
// normalization, similarity scoring, and filename sanitization.
//
// The primary use cases are:
//   - Reducing titles and file names to stable comparison keys
//   - Scoring how alike two keys are for bootstrap matching
//   - Sanitizing filenames and path segments for safe filesystem use
//
// Comparison keys are NFC-normalized, lowercased, and stripped of import-tool
// prefixes, resolution suffixes, line breaks, and punctuation.
package textutil
