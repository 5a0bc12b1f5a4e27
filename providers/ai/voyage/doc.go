// Package voyage implements embeddings for Voyage AI.
//
// Text models are served by the /embeddings endpoint. voyage-multimodal-3
// goes through /multimodalembeddings, where every input becomes one content
// list holding either a text or an image (image_url for remote images,
// image_base64 as a data URL for inline bytes). Voyage reports only a total
// token counter.
//
// [New] reads VOYAGE_API_KEY and VOYAGE_API_BASE_URL.
package voyage
