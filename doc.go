// Package groupmesh provides building blocks for encrypted group
// communication channels.
//
// A Channel pushes application messages through a chain of interceptors
// (encryption, traffic accounting, ...) and onto a pluggable transport.
// The channel subpackage defines the pipeline and its interceptors, the
// crypt subpackage the message encryption engine, and the transport
// subpackages a QUIC transport plus an in-process one for tests.
package groupmesh
