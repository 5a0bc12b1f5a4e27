// Package client is the capability dispatcher in front of the provider
// adapters. A [Client] is bound once to a provider and a default model and
// exposes Chat, StreamChat, Embed, Transcribe and GenerateImage.
//
// Before delegating, every call is checked against the provider's
// [ai.Capabilities]: operations the provider does not implement, models that
// belong to another operation and image inputs sent to text-only models fail
// with an [ai.CapabilityError]; a missing mandatory parameter fails with an
// [ai.ValidationError]. Parameters the provider cannot fully honor (too many
// choices or images) are coerced, and the coercion is reported as an
// [ai.Warning] on the response.
//
// The primary entry point is [New], which resolves a provider by name from
// the registry and accepts functional options (e.g. [WithAPIKey],
// [WithMiddleware]). [NewWithProvider] accepts any [ai.Provider]. For typed
// structured output use [NewStructured].
//
// A Client holds only immutable configuration and is safe for concurrent use.
package client
