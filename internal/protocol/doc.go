// Package protocol owns the wire contract of schema-declared binary messages.
//
// Ownership boundary:
// - wire: type descriptors and the little-endian binary engine
// - message: declarations, frames and the id/name registry
// - schema: document loading and type-string grammar
// - stream: back-to-back frames on a byte stream
//
// This package only carries the error kinds shared by the subpackages.
package protocol
