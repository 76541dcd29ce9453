// Package rpc defines the mythic.metadata.v1.Registry gRPC service.
//
// Messages are plain Go structs carried by a JSON codec registered under the
// "json" content subtype, so no generated protobuf code is involved. Clients
// created with NewRegistryClient select the codec on every call.
//
// Registry failures cross the wire as a gRPC status whose code follows the
// error kind and whose details carry an ErrorInfo with the numeric registry
// code. FromStatus turns such a status back into the matching registry error.
package rpc
