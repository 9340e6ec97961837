// Package whitelist stores and retrieves the ordered recipient list behind a Merkle root.
package whitelist

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/speedrun-hq/airdropper/pkg/logger"
	"github.com/speedrun-hq/airdropper/pkg/merkle"
)

// DefaultGateways are tried in order when fetching a list.
var DefaultGateways = []string{
	"https://ipfs.io",
	"https://gateway.pinata.cloud",
	"https://cloudflare-ipfs.com",
	"https://dweb.link",
}

// ErrUploadDisabled is returned by Upload when no upload endpoint is configured.
var ErrUploadDisabled = errors.New("whitelist upload endpoint is not configured")

// uploadResponse is what the pinning endpoint answers
type uploadResponse struct {
	IpfsCID string `json:"ipfsCID,omitempty"`
	CID     string `json:"cid,omitempty"` // Some pinning services use "cid"
	Hash    string `json:"IpfsHash,omitempty"`
	Error   string `json:"error,omitempty"`
}

// listResponse covers lists stored wrapped in an object
type listResponse struct {
	Wallets   []string `json:"wallets,omitempty"`
	Addresses []string `json:"addresses,omitempty"`
}

// Client talks to the pinning endpoint and the IPFS gateways
type Client struct {
	uploadURL  string
	gateways   []string
	httpClient *http.Client
	logger     logger.Logger
}

// New creates a new whitelist client. An empty uploadURL disables Upload.
func New(uploadURL string, gateways []string, log logger.Logger) *Client {
	if log == nil {
		log = &logger.EmptyLogger{}
	}
	if len(gateways) == 0 {
		gateways = DefaultGateways
	}
	trimmed := make([]string, len(gateways))
	for i, g := range gateways {
		trimmed[i] = strings.TrimRight(g, "/")
	}
	return &Client{
		uploadURL:  uploadURL,
		gateways:   trimmed,
		httpClient: createHTTPClient(),
		logger:     log,
	}
}

// Upload stores wallets, in order, as a JSON array and returns its content id
func (c *Client) Upload(ctx context.Context, wallets []string) (string, error) {
	if c.uploadURL == "" {
		return "", ErrUploadDisabled
	}

	payload, err := json.MarshalIndent(wallets, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode wallets: %v", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "wallets.json")
	if err != nil {
		return "", err
	}
	if _, err := part.Write(payload); err != nil {
		return "", err
	}
	if err := form.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.uploadURL, &body)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", form.FormDataContentType())

	bodyBytes, status, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("failed to upload whitelist: %v", err)
	}

	var resp uploadResponse
	if err := json.Unmarshal(bodyBytes, &resp); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %v, body: %s", err, string(bodyBytes))
	}
	if status != http.StatusOK && status != http.StatusCreated {
		if resp.Error != "" {
			return "", fmt.Errorf("upload failed with status %d: %s", status, resp.Error)
		}
		return "", fmt.Errorf("unexpected status code: %d, body: %s", status, string(bodyBytes))
	}

	cid := resp.IpfsCID
	if cid == "" {
		cid = resp.CID
	}
	if cid == "" {
		cid = resp.Hash
	}
	if cid == "" {
		return "", fmt.Errorf("upload response has no content id: %s", string(bodyBytes))
	}

	c.logger.Info("Uploaded whitelist of %d wallets as %s", len(wallets), cid)
	return cid, nil
}

// Fetch downloads the list stored under cid, trying each gateway in order
func (c *Client) Fetch(ctx context.Context, cid string) ([]string, error) {
	var lastErr error
	for _, gateway := range c.gateways {
		wallets, err := c.fetchFrom(ctx, gateway, cid)
		if err == nil {
			return wallets, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		c.logger.Debug("Gateway %s failed for %s: %v", gateway, cid, err)
		lastErr = err
	}
	return nil, fmt.Errorf("all %d gateways failed for %s: %w", len(c.gateways), cid, lastErr)
}

func (c *Client) fetchFrom(ctx context.Context, gateway, cid string) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, gateway+"/ipfs/"+cid, nil)
	if err != nil {
		return nil, err
	}

	bodyBytes, status, err := c.do(req)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", status)
	}

	// Try a bare array first
	var wallets []string
	if err := json.Unmarshal(bodyBytes, &wallets); err == nil {
		return wallets, nil
	}

	var wrapped listResponse
	if err := json.Unmarshal(bodyBytes, &wrapped); err != nil {
		return nil, fmt.Errorf("failed to decode wallet list: %v", err)
	}
	if len(wrapped.Wallets) > 0 {
		return wrapped.Wallets, nil
	}
	if len(wrapped.Addresses) > 0 {
		return wrapped.Addresses, nil
	}
	return nil, errors.New("no wallet list found in response")
}

// VerifyRoot fetches the list behind cid and reports whether it rebuilds root
func (c *Client) VerifyRoot(ctx context.Context, cid string, root common.Hash) (bool, error) {
	wallets, err := c.Fetch(ctx, cid)
	if err != nil {
		return false, err
	}
	got, err := merkle.BuildRoot(wallets)
	if err != nil {
		return false, err
	}
	if got != root {
		c.logger.Warning("Whitelist %s rebuilds root %s, expected %s", cid, got.Hex(), root.Hex())
	}
	return got == root, nil
}

func (c *Client) do(req *http.Request) ([]byte, int, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer func(Body io.ReadCloser) {
		err := Body.Close()
		if err != nil {
			c.logger.Error("Failed to close response body: %v", err)
		}
	}(resp.Body)

	// Read the response body regardless of status code
	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %v", err)
	}
	return bodyBytes, resp.StatusCode, nil
}

// Helper function to create an HTTP client with timeouts
func createHTTPClient() *http.Client {
	return &http.Client{
		Timeout: 15 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        20,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}
}
