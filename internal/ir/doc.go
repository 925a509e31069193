// Package ir provides the record types shared by every other shortlist package.
//
// This package contains type definitions and their serialization only. All other
// internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Each log row is a closed record type; malformed rows fail Validate
//   - Ordering uses the store-assigned Seq, never CreatedAt
//   - Fingerprints use canonical JSON with domain-separated SHA-256
package ir
