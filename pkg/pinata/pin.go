package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
)

// PinFile uploads content as a file and pins it.
func (c *Client) PinFile(ctx context.Context, filename string, content io.Reader, meta Metadata) (*PinResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("pinata: failed to create file part: %w", err)
	}
	if _, err := io.Copy(part, content); err != nil {
		return nil, fmt.Errorf("pinata: failed to write file part: %w", err)
	}

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		return nil, fmt.Errorf("pinata: failed to encode metadata: %w", err)
	}
	if err := mw.WriteField("pinataMetadata", string(metaJSON)); err != nil {
		return nil, fmt.Errorf("pinata: failed to write metadata field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("pinata: failed to finish multipart body: %w", err)
	}

	var resp PinResponse
	if err := c.do(ctx, http.MethodPost, "/pinning/pinFileToIPFS", mw.FormDataContentType(), &body, &resp); err != nil {
		return nil, err
	}
	if resp.IpfsHash == "" {
		return nil, ErrEmptyHash
	}
	return &resp, nil
}

// PinJSON pins content as a JSON document.
func (c *Client) PinJSON(ctx context.Context, content interface{}, meta Metadata) (*PinResponse, error) {
	req := pinJSONRequest{PinataContent: content}
	if meta.Name != "" || len(meta.KeyValues) > 0 {
		req.PinataMetadata = &meta
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("pinata: failed to encode JSON content: %w", err)
	}

	var resp PinResponse
	if err := c.do(ctx, http.MethodPost, "/pinning/pinJSONToIPFS", "application/json", bytes.NewReader(payload), &resp); err != nil {
		return nil, err
	}
	if resp.IpfsHash == "" {
		return nil, ErrEmptyHash
	}
	return &resp, nil
}

// Unpin releases the pin on cid.
func (c *Client) Unpin(ctx context.Context, cid string) error {
	if cid == "" {
		return fmt.Errorf("pinata: cid is required")
	}
	return c.do(ctx, http.MethodDelete, "/pinning/unpin/"+url.PathEscape(cid), "", nil, nil)
}

// do sends an authenticated request and decodes a JSON response into out
// when out is non-nil.
func (c *Client) do(ctx context.Context, method, path, contentType string, body io.Reader, out interface{}) error {
	c.logDebugf("pinata: %s %s", method, path)

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.jwt)
	req.Header.Set("User-Agent", "wrapped/1.0")
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return parseError(resp.StatusCode, respBody)
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to parse JSON response: %w", err)
		}
	}

	c.logDebugf("pinata: %s %s succeeded", method, path)
	return nil
}
