package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/leofalp/switchai/internal/utils"
	"github.com/leofalp/switchai/providers/ai"
)

const chatUsage = `Usage:
  switchai chat [flags] <prompt>

Flags:
  --system string        System instruction
  --image value          Image URL or file path to attach (repeatable)
  --max-tokens int       Upper bound on generated tokens
  --temperature float    Sampling temperature
  --n int                Number of choices
  --stream               Print the answer as it is generated`

func runChat(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("chat", chatUsage, stderr)

	var system string
	var images stringList
	var maxTokens, n int
	var temperature *float64
	var stream bool
	fs.StringVar(&system, "system", "", "system instruction")
	fs.Var(&images, "image", "image URL or file path")
	fs.IntVar(&maxTokens, "max-tokens", 0, "upper bound on generated tokens")
	fs.Func("temperature", "sampling temperature", func(value string) error {
		parsed, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		temperature = &parsed
		return nil
	})
	fs.IntVar(&n, "n", 0, "number of choices")
	fs.BoolVar(&stream, "stream", false, "stream the answer")

	if stop, err := parseFlags(fs, args); stop {
		return err
	}

	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		return errors.New("chat requires a prompt")
	}

	c, err := common.newClient("chat", stderr)
	if err != nil {
		return err
	}

	user := ai.Message{Role: ai.RoleUser, Content: prompt}
	if len(images) > 0 {
		user.Parts = []ai.ContentPart{ai.TextPart(prompt)}
		for _, ref := range images {
			image, err := loadImage(ref)
			if err != nil {
				return err
			}
			user.Parts = append(user.Parts, ai.ContentPart{Type: ai.ContentTypeImage, Image: image})
		}
	}

	request := ai.ChatRequest{Temperature: temperature, N: n}
	if system != "" {
		request.Messages = append(request.Messages, ai.Message{Role: ai.RoleSystem, Content: system})
	}
	request.Messages = append(request.Messages, user)
	if maxTokens > 0 {
		request.MaxTokens = utils.Ptr(maxTokens)
	}

	ctx, overview := common.withOverview(ctx)

	if stream {
		if err := streamChat(ctx, c.StreamChat, request, stdout, stderr); err != nil {
			return err
		}
		return common.printOverview(stderr, overview)
	}

	response, err := c.Chat(ctx, request)
	if err != nil {
		return err
	}
	printWarnings(stderr, response.Warnings)
	printChoices(stdout, response.Choices)
	return common.printOverview(stderr, overview)
}

func streamChat(
	ctx context.Context,
	open func(context.Context, ai.ChatRequest) (*ai.ChatStream, error),
	request ai.ChatRequest,
	stdout, stderr io.Writer,
) error {
	stream, err := open(ctx, request)
	if err != nil {
		return err
	}

	for delta, err := range stream.Iter() {
		if err != nil {
			fmt.Fprintln(stdout)
			return err
		}
		if delta == nil {
			continue
		}
		printWarnings(stderr, delta.Warnings)
		for _, choice := range delta.Choices {
			// Only the first choice is printed live; the others would interleave.
			if choice.Index == 0 {
				fmt.Fprint(stdout, choice.Message.Content)
			}
		}
	}
	fmt.Fprintln(stdout)
	return nil
}

func printChoices(stdout io.Writer, choices []ai.ChatChoice) {
	for _, choice := range choices {
		if len(choices) > 1 {
			fmt.Fprintf(stdout, "[%d] ", choice.Index)
		}
		fmt.Fprintln(stdout, choice.Message.Content)
		for _, call := range choice.ToolCalls {
			arguments, _ := json.Marshal(call.Function.Arguments)
			fmt.Fprintf(stdout, "tool call %s: %s %s\n", call.ID, call.Function.Name, arguments)
		}
	}
}

const embedUsage = `Usage:
  switchai embed [flags] <text>...

Flags:
  --image value   Image URL or file path to embed (repeatable)

Prints one JSON object per line: {"index": ..., "data": [...]}.`

func runEmbed(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("embed", embedUsage, stderr)
	var images stringList
	fs.Var(&images, "image", "image URL or file path")

	if stop, err := parseFlags(fs, args); stop {
		return err
	}

	inputs := ai.TextInputs(fs.Args()...)
	for _, ref := range images {
		image, err := loadImage(ref)
		if err != nil {
			return err
		}
		inputs = append(inputs, ai.EmbeddingInput{Image: image})
	}
	if len(inputs) == 0 {
		return errors.New("embed requires at least one text or --image")
	}

	c, err := common.newClient("embed", stderr)
	if err != nil {
		return err
	}

	ctx, overview := common.withOverview(ctx)
	response, err := c.Embed(ctx, ai.EmbeddingRequest{Inputs: inputs})
	if err != nil {
		return err
	}

	encoder := json.NewEncoder(stdout)
	for _, embedding := range response.Embeddings {
		if err := encoder.Encode(embedding); err != nil {
			return fmt.Errorf("encode embedding: %w", err)
		}
	}
	return common.printOverview(stderr, overview)
}

const transcribeUsage = `Usage:
  switchai transcribe [flags] <audio file>

Flags:
  --language string   ISO-639-1 language hint`

func runTranscribe(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("transcribe", transcribeUsage, stderr)
	var language string
	fs.StringVar(&language, "language", "", "language hint")

	if stop, err := parseFlags(fs, args); stop {
		return err
	}
	if fs.NArg() != 1 {
		return errors.New("transcribe requires exactly one audio file")
	}

	path := fs.Arg(0)
	audio, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read audio: %w", err)
	}

	c, err := common.newClient("transcribe", stderr)
	if err != nil {
		return err
	}

	ctx, overview := common.withOverview(ctx)
	response, err := c.Transcribe(ctx, ai.TranscriptionRequest{
		Audio:    audio,
		Filename: filepath.Base(path),
		Language: language,
	})
	if err != nil {
		return err
	}

	fmt.Fprintln(stdout, response.Text)
	return common.printOverview(stderr, overview)
}

const imageUsage = `Usage:
  switchai image [flags] <prompt>

Flags:
  --n int        Number of images
  --out string   Directory the images are written to (default ".")

Files are named <id>-<index>.<ext>, where id is shared by one invocation.`

func runImage(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	fs, common := newFlagSet("image", imageUsage, stderr)
	var n int
	var out string
	fs.IntVar(&n, "n", 0, "number of images")
	fs.StringVar(&out, "out", ".", "output directory")

	if stop, err := parseFlags(fs, args); stop {
		return err
	}

	prompt := strings.TrimSpace(strings.Join(fs.Args(), " "))
	if prompt == "" {
		return errors.New("image requires a prompt")
	}

	c, err := common.newClient("image", stderr)
	if err != nil {
		return err
	}

	ctx, overview := common.withOverview(ctx)
	response, err := c.GenerateImage(ctx, ai.ImageGenerationRequest{Prompt: prompt, N: n})
	if err != nil {
		return err
	}
	printWarnings(stderr, response.Warnings)

	if err := os.MkdirAll(out, 0o755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	id := uuid.NewString()
	for i, image := range response.Images {
		path := filepath.Join(out, fmt.Sprintf("%s-%d%s", id, i, imageExtension(image)))
		if err := os.WriteFile(path, image, 0o644); err != nil {
			return fmt.Errorf("write image: %w", err)
		}
		fmt.Fprintln(stdout, path)
	}
	return common.printOverview(stderr, overview)
}

// loadImage turns an http(s) reference into a URL image and anything else
// into inline bytes read from disk.
func loadImage(ref string) (*ai.Image, error) {
	if strings.HasPrefix(ref, "http://") || strings.HasPrefix(ref, "https://") {
		return &ai.Image{URL: ref}, nil
	}

	data, err := os.ReadFile(ref)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	return &ai.Image{Data: data, MimeType: http.DetectContentType(data)}, nil
}

func imageExtension(image []byte) string {
	switch http.DetectContentType(image) {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	case "image/gif":
		return ".gif"
	default:
		return ".bin"
	}
}
