// Package utils provides the low-level helpers provider packages share: the
// HTTP collaborator used to reach provider APIs (JSON, raw, multipart and
// streaming POSTs, plus GET for image downloads), an SSE reader for streamed
// responses, and decoding of tool-call argument payloads.
//
// Key entry points: [DoPostSync] for synchronous JSON round-trips,
// [DoPostStream] together with [SSEScanner] for Server-Sent Events streaming,
// and [DecodeArguments] for argument strings that may be slightly malformed.
package utils
