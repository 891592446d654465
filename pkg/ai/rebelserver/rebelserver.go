package rebelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"relex/internal/util"
	"relex/pkg/ai"

	"golang.org/x/sync/semaphore"
)

const (
	defaultTimeoutMin            = 10
	defaultMaxConcurrentRequests = 4
	defaultMaxTries              = 3
)

// RebelModelClient implements ai.RelationModelClient against the HTTP
// inference server hosting the seq2seq relation extraction model. The server
// owns the tokenizer, so ids round-trip through it for both directions.
type RebelModelClient struct {
	baseURL    *url.URL
	apiKey     string
	httpClient *http.Client

	reqLock  *semaphore.Weighted
	maxTries int
	timeout  time.Duration
}

// NewRebelModelClientParams contains configuration options for creating a new
// RebelModelClient.
type NewRebelModelClientParams struct {
	BaseURL string
	ApiKey  string

	MaxConcurrentRequests int64
	MaxTries              int
	TimeoutMin            int
}

type headerTransport struct {
	headers map[string]string
	rt      http.RoundTripper
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// clone so original request isn't modified
	r := req.Clone(req.Context())
	for k, v := range t.headers {
		if r.Header.Get(k) == "" {
			r.Header.Set(k, v)
		}
	}
	return t.rt.RoundTrip(r)
}

// NewRebelModelClient creates a client for the inference server at BaseURL.
func NewRebelModelClient(params NewRebelModelClientParams) (*RebelModelClient, error) {
	u, err := url.Parse(params.BaseURL)
	if err != nil {
		return nil, err
	}

	maxConcurrent := params.MaxConcurrentRequests
	if maxConcurrent <= 0 {
		maxConcurrent = defaultMaxConcurrentRequests
	}
	maxTries := params.MaxTries
	if maxTries <= 0 {
		maxTries = defaultMaxTries
	}
	timeoutMin := params.TimeoutMin
	if timeoutMin <= 0 {
		timeoutMin = defaultTimeoutMin
	}

	httpClient := &http.Client{
		Transport: &headerTransport{
			headers: map[string]string{
				"Authorization": "Bearer " + params.ApiKey,
			},
			rt: http.DefaultTransport,
		},
	}

	return &RebelModelClient{
		baseURL:    u,
		apiKey:     params.ApiKey,
		httpClient: httpClient,

		reqLock:  semaphore.NewWeighted(maxConcurrent),
		maxTries: maxTries,
		timeout:  time.Minute * time.Duration(timeoutMin),
	}, nil
}

type tokenizeRequest struct {
	Text string `json:"text"`
}

// Tokenize converts text into the model's token ids and attention mask.
func (c *RebelModelClient) Tokenize(ctx context.Context, text string) (ai.TokenSequence, error) {
	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return ai.TokenSequence{}, err
	}
	defer c.reqLock.Release(1)

	return util.RetryWithContext(rCtx, c.maxTries, func(ctx context.Context) (ai.TokenSequence, error) {
		var seq ai.TokenSequence
		err := c.post(ctx, "/tokenize", tokenizeRequest{Text: text}, &seq)
		return seq, err
	})
}

type generateRequest struct {
	Windows            []ai.TokenSequence `json:"windows"`
	NumReturnSequences int                `json:"num_return_sequences"`
	MaxLength          int                `json:"max_length,omitempty"`
	NumBeams           int                `json:"num_beams,omitempty"`
}

type generateResponse struct {
	Outputs []string `json:"outputs"`
}

// Generate runs the model over a batch of token windows and returns the
// decoded marker strings in window-major order.
func (c *RebelModelClient) Generate(ctx context.Context, windows []ai.TokenSequence, opts ...ai.GenerateOption) ([]string, error) {
	options := ai.GenerateOptions{
		NumReturnSequences: 1,
	}
	for _, opt := range opts {
		opt(&options)
	}

	rCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.reqLock.Acquire(rCtx, 1); err != nil {
		return nil, err
	}
	defer c.reqLock.Release(1)

	req := generateRequest{
		Windows:            windows,
		NumReturnSequences: options.NumReturnSequences,
		MaxLength:          options.MaxLength,
		NumBeams:           options.NumBeams,
	}

	res, err := util.RetryWithContext(rCtx, c.maxTries, func(ctx context.Context) (generateResponse, error) {
		var res generateResponse
		err := c.post(ctx, "/generate", req, &res)
		return res, err
	})
	if err != nil {
		return nil, err
	}

	want := len(windows) * options.NumReturnSequences
	if len(res.Outputs) != want {
		return nil, fmt.Errorf("model returned %d outputs for %d windows x %d sequences", len(res.Outputs), len(windows), options.NumReturnSequences)
	}

	return res.Outputs, nil
}

func (c *RebelModelClient) post(ctx context.Context, path string, in any, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL.JoinPath(path).String(), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("inference server returned %d: %s", resp.StatusCode, string(data))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
