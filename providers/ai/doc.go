// Package ai defines the provider-agnostic data model and the capability
// interfaces every provider variant implements. Provider packages translate
// between these types and their own wire formats; the dispatcher in
// core/client only ever sees the types declared here.
//
// Requests flow through [ChatRequest], [EmbeddingRequest],
// [TranscriptionRequest] and [ImageGenerationRequest]; results come back as
// [ChatResponse], [EmbeddingResponse], [TranscriptionResponse] and
// [ImageGenerationResponse]. Streaming chat yields partial [ChatResponse]
// values through [ChatStream].
//
// Failures are classified by the sentinel errors [ErrCapability],
// [ErrInvalidParameter], [ErrTranslation] and [ErrUnsupportedSchema];
// non-fatal parameter coercions are reported as [Warning] values on the
// response.
package ai
