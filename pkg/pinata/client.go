// Package pinata provides a client for the Pinata pinning API.
//
// It covers the three calls needed to publish content to IPFS and reclaim
// it later: pinFileToIPFS, pinJSONToIPFS and unpin.
//
// Example usage:
//
//	client, err := pinata.NewClient(pinata.Config{JWT: os.Getenv("PINATA_JWT")})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	pin, err := client.PinFile(ctx, "card.jpg", bytes.NewReader(data), pinata.Metadata{Name: "card.jpg"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("ipfs://" + pin.IpfsHash)
package pinata

import (
	"fmt"
	"net/http"
)

// Config holds client configuration.
type Config struct {
	JWT        string       // Required: Pinata API JWT
	HTTPClient *http.Client // Optional: HTTP client (defaults to http.DefaultClient)
	BaseURL    string       // Optional: Base URL for API (defaults to Pinata API, used for testing)
	Logger     Logger       // Optional: Logger interface for debug logging
}

// Logger is an optional interface for logging.
type Logger interface {
	// Debugf logs a debug message with format and arguments.
	Debugf(format string, args ...interface{})
}

// Client is the main entry point for Pinata API operations.
type Client struct {
	jwt        string
	httpClient *http.Client
	baseURL    string
	logger     Logger
}

const (
	// DefaultBaseURL is the default Pinata API endpoint.
	DefaultBaseURL = "https://api.pinata.cloud"
)

// NewClient creates a new Pinata API client.
//
// Returns an error if the JWT is missing.
func NewClient(cfg Config) (*Client, error) {
	if cfg.JWT == "" {
		return nil, fmt.Errorf("pinata: JWT is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	return &Client{
		jwt:        cfg.JWT,
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     cfg.Logger,
	}, nil
}

// logDebugf logs a debug message if a logger is configured.
func (c *Client) logDebugf(format string, args ...interface{}) {
	if c.logger != nil {
		c.logger.Debugf(format, args...)
	}
}
