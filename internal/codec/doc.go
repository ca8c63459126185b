// Package codec reads and writes robots as a skeleton file plus one mesh
// file per node.
//
// All values are little-endian. A skeleton file starts with "RSKL", a mesh
// file with "RSKM"; both carry a u16 version and end with the "END." marker.
// Strings are a u16 length followed by raw bytes. Decoders reject unknown
// tags and versions, truncation and trailing bytes with a *FormatError.
package codec
