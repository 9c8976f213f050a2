// Package security implements the gRPC transport for the security controller.
//
// The service is registered by hand and exchanges protobuf well-known types:
// requests and responses are google.protobuf.Struct values whose fields
// mirror the JSON state file, images travel as google.protobuf.BytesValue.
// The package also provides the matching client.
package security
