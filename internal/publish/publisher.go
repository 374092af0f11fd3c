// Package publish stores card images and their metadata on IPFS through a
// pinning service and reads back the metadata of previously minted tokens.
package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jfmyers9/wrapped/pkg/pinata"
	"github.com/rs/zerolog"
)

const (
	// DefaultGateway is the gateway prefix recorded in token URIs.
	DefaultGateway = "https://gateway.pinata.cloud/ipfs/"

	// TokenName is the name field of every published metadata document.
	TokenName = "Soulbound Spotify Wrapped"

	maxMetadataBytes = 1 << 20
)

// TokenMetadata is the JSON document a token URI points at.
type TokenMetadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Image       string `json:"image"`
}

// Assets are the content identifiers a token references.
type Assets struct {
	MetadataCID string
	ImageCID    string
}

// Pinner is the subset of the pinning client the Publisher needs.
type Pinner interface {
	PinFile(ctx context.Context, filename string, content io.Reader, meta pinata.Metadata) (*pinata.PinResponse, error)
	PinJSON(ctx context.Context, content interface{}, meta pinata.Metadata) (*pinata.PinResponse, error)
	Unpin(ctx context.Context, cid string) error
}

// Config configures a Publisher.
type Config struct {
	Pinner     Pinner       // Required
	Gateway    string       // Optional: gateway prefix, defaults to DefaultGateway
	HTTPClient *http.Client // Optional: client for gateway reads
	Logger     zerolog.Logger
}

// Publisher pins card images and metadata documents.
type Publisher struct {
	pins    Pinner
	gateway string
	client  *http.Client
	logger  zerolog.Logger
	newID   func() string
}

// New creates a Publisher.
func New(cfg Config) (*Publisher, error) {
	if cfg.Pinner == nil {
		return nil, fmt.Errorf("publish: pinner is required")
	}

	gateway := cfg.Gateway
	if gateway == "" {
		gateway = DefaultGateway
	}
	if !strings.HasSuffix(gateway, "/") {
		gateway += "/"
	}

	client := cfg.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	return &Publisher{
		pins:    cfg.Pinner,
		gateway: gateway,
		client:  client,
		logger:  cfg.Logger.With().Str("component", "publish").Logger(),
		newID:   uuid.NewString,
	}, nil
}

// PublishImage pins a JPEG card under a fresh "<uuid>.jpg" name.
//
// On any failure the returned cid is empty and err explains why.
func (p *Publisher) PublishImage(ctx context.Context, blob []byte) (string, error) {
	name := p.newID() + ".jpg"

	resp, err := p.pins.PinFile(ctx, name, bytes.NewReader(blob), pinata.Metadata{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to publish image: %w", err)
	}

	p.logger.Debug().
		Str("cid", resp.IpfsHash).
		Str("name", name).
		Int("bytes", len(blob)).
		Msg("Image pinned")
	return resp.IpfsHash, nil
}

// PublishMetadata pins the metadata document for imageCID under a fresh
// "<uuid>.json" name.
//
// On any failure the returned cid is empty and err explains why.
func (p *Publisher) PublishMetadata(ctx context.Context, imageCID string) (string, error) {
	if imageCID == "" {
		return "", fmt.Errorf("failed to publish metadata: image cid is required")
	}

	name := p.newID() + ".json"
	doc := TokenMetadata{
		Name:        TokenName,
		Description: "",
		Image:       "ipfs://" + imageCID,
	}

	resp, err := p.pins.PinJSON(ctx, doc, pinata.Metadata{Name: name})
	if err != nil {
		return "", fmt.Errorf("failed to publish metadata: %w", err)
	}

	p.logger.Debug().
		Str("cid", resp.IpfsHash).
		Str("image", imageCID).
		Msg("Metadata pinned")
	return resp.IpfsHash, nil
}

// Unpin releases a previously pinned cid.
func (p *Publisher) Unpin(ctx context.Context, cid string) error {
	if err := p.pins.Unpin(ctx, cid); err != nil {
		return fmt.Errorf("failed to unpin %s: %w", cid, err)
	}
	p.logger.Debug().Str("cid", cid).Msg("Unpinned")
	return nil
}

// TokenURI returns the gateway URL recorded on the ledger for metadataCID.
func (p *Publisher) TokenURI(metadataCID string) string {
	return p.gateway + metadataCID
}

// ResolveMetadata fetches the metadata document a token URI points at.
// ipfs:// URIs are read through the configured gateway.
func (p *Publisher) ResolveMetadata(ctx context.Context, tokenURI string) (*TokenMetadata, error) {
	target := tokenURI
	if strings.HasPrefix(target, "ipfs://") {
		target = p.gateway + strings.TrimPrefix(target, "ipfs://")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch metadata: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to fetch metadata: unexpected status code: %d", resp.StatusCode)
	}

	var md TokenMetadata
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxMetadataBytes)).Decode(&md); err != nil {
		return nil, fmt.Errorf("failed to parse metadata: %w", err)
	}
	return &md, nil
}

// AssetsOf returns the metadata cid (the last path segment of tokenURI) and
// the image cid (the last path segment of the image field). Either is empty
// when it cannot be determined.
func AssetsOf(tokenURI string, md *TokenMetadata) Assets {
	a := Assets{MetadataCID: lastSegment(tokenURI)}
	if md != nil {
		a.ImageCID = lastSegment(md.Image)
	}
	return a
}

func lastSegment(s string) string {
	s = strings.TrimPrefix(s, "ipfs://")
	if i := strings.IndexAny(s, "?#"); i >= 0 {
		s = s[:i]
	}
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		s = s[i+1:]
	}
	return s
}
