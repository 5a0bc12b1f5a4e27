// Package replicate implements image generation on Replicate.
//
// A prediction is created with POST /models/{owner}/{name}/predictions (or
// /predictions with a pinned version for "owner/name:version" models) and the
// Prefer: wait header, so that most predictions complete within the request.
// Predictions still running when the wait expires are polled through their
// get URL. The output URLs are then downloaded with an [ai.ImageFetcher].
//
// [New] reads REPLICATE_API_KEY and REPLICATE_API_BASE_URL.
package replicate
