// Package github consumes the slice of the GitHub releases API the AS3
// lifecycle needs: listing releases, resolving the latest one, fetching a
// release by id, and streaming a binary asset.
package github
