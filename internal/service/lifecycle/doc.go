// Package lifecycle orchestrates AS3 extension package operations against a
// BIG-IP device: resolving release artifacts from the catalog, uploading
// them, submitting install/uninstall tasks, and verifying the resulting
// installed state with bounded polling. Failures carry an error-kind
// category (see Kind) instead of mutating manager state.
package lifecycle
