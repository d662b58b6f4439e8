// Package testutil provides shared helpers for mailextract tests.
//
//   - assert.go: assertion helpers (AssertValidUTF8, AssertContainsAll)
//   - fs_helpers.go: fixture trees and archive output inspection
//   - traversal.go: hostile names for path sanitizing tests
//   - email/: raw message builders
package testutil
