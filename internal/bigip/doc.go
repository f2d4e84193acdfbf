// Package bigip is a thin client for the BIG-IP iControl REST interface.
// It covers exactly the primitives the package lifecycle needs: reads,
// resource creation with the raw status code surfaced, chunked file upload,
// administrative shell commands, and token or basic authentication.
package bigip
