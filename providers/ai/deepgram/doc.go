// Package deepgram implements pre-recorded speech-to-text with Deepgram.
//
// Audio is posted as the raw request body to /listen, with the model and the
// optional language passed as query parameters and the key sent with the
// Token authorization scheme. [New] reads DEEPGRAM_API_KEY and
// DEEPGRAM_API_BASE_URL.
package deepgram
