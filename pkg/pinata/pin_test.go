package pinata

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func newTestClient(t *testing.T, url string) *Client {
	t.Helper()
	client, err := NewClient(Config{JWT: "test-jwt", BaseURL: url})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	return client
}

func TestPinFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/pinning/pinFileToIPFS" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-jwt" {
			t.Errorf("expected bearer auth, got %q", auth)
		}
		if !strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data; boundary=") {
			t.Errorf("expected multipart content type, got %q", r.Header.Get("Content-Type"))
		}

		file, header, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("missing file part: %v", err)
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if string(data) != "jpeg-bytes" {
			t.Errorf("unexpected file content %q", data)
		}
		if header.Filename != "card.jpg" {
			t.Errorf("expected filename card.jpg, got %q", header.Filename)
		}

		var meta Metadata
		if err := json.Unmarshal([]byte(r.FormValue("pinataMetadata")), &meta); err != nil {
			t.Fatalf("bad pinataMetadata: %v", err)
		}
		if meta.Name != "card.jpg" {
			t.Errorf("expected metadata name card.jpg, got %q", meta.Name)
		}

		_, _ = w.Write([]byte(`{"IpfsHash": "QmImage", "PinSize": 10, "Timestamp": "2026-10-19T12:00:00.000Z"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.PinFile(context.Background(), "card.jpg", bytes.NewReader([]byte("jpeg-bytes")), Metadata{Name: "card.jpg"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.IpfsHash != "QmImage" {
		t.Errorf("expected QmImage, got %q", resp.IpfsHash)
	}
	if resp.PinSize != 10 {
		t.Errorf("expected PinSize 10, got %d", resp.PinSize)
	}
}

func TestPinJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/pinning/pinJSONToIPFS" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected application/json, got %q", ct)
		}

		var body struct {
			PinataContent  map[string]string `json:"pinataContent"`
			PinataMetadata Metadata          `json:"pinataMetadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("bad body: %v", err)
		}
		if body.PinataContent["image"] != "ipfs://QmImage" {
			t.Errorf("unexpected content %v", body.PinataContent)
		}
		if body.PinataMetadata.Name != "meta.json" {
			t.Errorf("expected metadata name meta.json, got %q", body.PinataMetadata.Name)
		}

		_, _ = w.Write([]byte(`{"IpfsHash": "QmMeta"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	resp, err := client.PinJSON(context.Background(), map[string]string{"image": "ipfs://QmImage"}, Metadata{Name: "meta.json"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.IpfsHash != "QmMeta" {
		t.Errorf("expected QmMeta, got %q", resp.IpfsHash)
	}
}

func TestUnpin(t *testing.T) {
	var gotPath, gotMethod string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotMethod = r.Method
		_, _ = w.Write([]byte("OK"))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	if err := client.Unpin(context.Background(), "QmOld"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotMethod != http.MethodDelete || gotPath != "/pinning/unpin/QmOld" {
		t.Errorf("unexpected request %s %s", gotMethod, gotPath)
	}

	if err := client.Unpin(context.Background(), ""); err == nil {
		t.Error("expected error for empty cid")
	}
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		errContains string
	}{
		{
			name:        "structured error",
			status:      http.StatusUnauthorized,
			body:        `{"error": {"reason": "INVALID_CREDENTIALS", "details": "Invalid/expired credentials provided"}}`,
			errContains: "INVALID_CREDENTIALS: Invalid/expired",
		},
		{
			name:        "plain error",
			status:      http.StatusBadRequest,
			body:        `{"error": "Invalid request format."}`,
			errContains: "Invalid request format.",
		},
		{
			name:        "no body",
			status:      http.StatusInternalServerError,
			body:        ``,
			errContains: "Internal Server Error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newTestClient(t, server.URL)
			_, err := client.PinJSON(context.Background(), map[string]string{}, Metadata{})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *Error, got %T", err)
			}
			if apiErr.StatusCode != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, apiErr.StatusCode)
			}
			if !strings.Contains(err.Error(), tt.errContains) {
				t.Errorf("expected error to contain %q, got %q", tt.errContains, err.Error())
			}
		})
	}
}

func TestPinJSON_EmptyHash(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	client := newTestClient(t, server.URL)
	_, err := client.PinJSON(context.Background(), map[string]string{}, Metadata{})
	if !errors.Is(err, ErrEmptyHash) {
		t.Errorf("expected ErrEmptyHash, got %v", err)
	}
}

func TestNewClient_RequiresJWT(t *testing.T) {
	if _, err := NewClient(Config{}); err == nil {
		t.Error("expected error for missing JWT")
	}
}
