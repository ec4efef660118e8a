package llm

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"google.golang.org/genai"
)

// ErrorKind classifies completion failures. Classification is derived only
// from the failure signal the transport returns.
type ErrorKind int

const (
	Auth ErrorKind = iota + 1
	Network
	RateLimit
	EmptyResponse
	Unknown
)

func (k ErrorKind) String() string {
	switch k {
	case Auth:
		return "auth"
	case Network:
		return "network"
	case RateLimit:
		return "rate limit"
	case EmptyResponse:
		return "empty response"
	default:
		return "unknown"
	}
}

// Error is a classified completion failure.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string { return fmt.Sprintf("completion %s error: %v", e.Kind, e.Err) }
func (e *Error) Unwrap() error { return e.Err }

// ResultKind tags a completion outcome.
type ResultKind int

const (
	Success ResultKind = iota
	Partial
	Failure
)

// Request is a single completion request. Immutable once built.
type Request struct {
	Prompt string
	Model  string
	Params map[string]float64 // decoder settings: temperature, top_p, top_k, max_output_tokens
}

// Result is the outcome of Generate. Partial carries the text received
// before the stream was interrupted, along with the classified cause.
type Result struct {
	Kind ResultKind
	Text string
	Err  *Error
}

// Streamer produces completion chunks for a request, invoking emit for each
// chunk in arrival order. A nil return means the stream ended cleanly.
type Streamer interface {
	Stream(ctx context.Context, req Request, emit func(chunk string)) error
}

// Config holds the transport credential and default model.
type Config struct {
	APIKey string
	Model  string
}

// Client wraps the remote streaming text-generation service. The transport
// is constructed lazily on first use and rebuilt after an initialization
// failure; callers never open it explicitly.
type Client struct {
	mu  sync.Mutex
	cfg Config
	s   Streamer
}

// New creates a client backed by the Gemini API.
func New(cfg Config) *Client { return &Client{cfg: cfg} }

// NewWithStreamer creates a client over a caller-supplied transport.
func NewWithStreamer(cfg Config, s Streamer) *Client {
	return &Client{cfg: cfg, s: s}
}

func (c *Client) streamer(ctx context.Context) (Streamer, *Error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.s != nil {
		return c.s, nil
	}
	if c.cfg.APIKey == "" {
		return nil, &Error{Kind: Auth, Err: errors.New("api_key is not set")}
	}
	gc, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  c.cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		// Leave c.s nil so the next call retries construction.
		return nil, classify(err)
	}
	c.s = &geminiStreamer{client: gc}
	return c.s, nil
}

// Generate streams a completion and concatenates the chunks in arrival
// order, trimming surrounding whitespace. A stream that dies after at least
// one chunk yields Partial with the text received so far.
func (c *Client) Generate(ctx context.Context, req Request) Result {
	if req.Model == "" {
		req.Model = c.cfg.Model
	}

	s, cerr := c.streamer(ctx)
	if cerr != nil {
		return Result{Kind: Failure, Err: cerr}
	}

	var b strings.Builder
	chunks := 0
	serr := s.Stream(ctx, req, func(chunk string) {
		b.WriteString(chunk)
		chunks++
	})

	text := strings.TrimSpace(b.String())
	switch {
	case serr != nil && chunks > 0:
		log.Printf("llm: stream interrupted after %d chunks: %v", chunks, serr)
		return Result{Kind: Partial, Text: text, Err: classify(serr)}
	case serr != nil:
		return Result{Kind: Failure, Err: classify(serr)}
	case text == "":
		return Result{Kind: Failure, Err: &Error{Kind: EmptyResponse, Err: errors.New("stream ended without content")}}
	default:
		return Result{Kind: Success, Text: text}
	}
}

// TestConnection issues a minimal canned prompt and reports whether the
// service answered with non-empty text.
func (c *Client) TestConnection(ctx context.Context) bool {
	res := c.Generate(ctx, Request{Prompt: "Say 'Hello'"})
	if res.Kind != Success || res.Text == "" {
		log.Printf("llm: connection test failed: %v", res.Err)
		return false
	}
	return true
}

// classify maps a transport failure to an ErrorKind using only its status
// or category.
func classify(err error) *Error {
	var ce *Error
	if errors.As(err, &ce) {
		return ce
	}

	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return &Error{Kind: Auth, Err: err}
		case http.StatusTooManyRequests:
			return &Error{Kind: RateLimit, Err: err}
		}
		if apiErr.Code >= 500 {
			return &Error{Kind: Network, Err: err}
		}
		return &Error{Kind: Unknown, Err: err}
	}

	var nerr net.Error
	var uerr *url.Error
	switch {
	case errors.As(err, &nerr), errors.As(err, &uerr),
		errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &Error{Kind: Network, Err: err}
	}
	return &Error{Kind: Unknown, Err: err}
}

// geminiStreamer is the real transport over the Gemini streaming API.
type geminiStreamer struct {
	client *genai.Client
}

func (g *geminiStreamer) Stream(ctx context.Context, req Request, emit func(string)) error {
	cfg := &genai.GenerateContentConfig{ResponseMIMEType: "text/plain"}
	applyParams(cfg, req.Params)

	for resp, err := range g.client.Models.GenerateContentStream(ctx, req.Model, genai.Text(req.Prompt), cfg) {
		if err != nil {
			return err
		}
		if t := resp.Text(); t != "" {
			emit(t)
		}
	}
	return nil
}

func applyParams(cfg *genai.GenerateContentConfig, params map[string]float64) {
	for k, v := range params {
		switch k {
		case "temperature":
			cfg.Temperature = genai.Ptr(float32(v))
		case "top_p":
			cfg.TopP = genai.Ptr(float32(v))
		case "top_k":
			cfg.TopK = genai.Ptr(float32(v))
		case "max_output_tokens":
			cfg.MaxOutputTokens = int32(v)
		default:
			log.Printf("llm: ignoring unknown generation parameter %q", k)
		}
	}
}
