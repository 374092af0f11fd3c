package publish

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"sync"
	"testing"

	"github.com/jfmyers9/wrapped/pkg/pinata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pinService is an in-memory pinning backend that also serves pinned JSON
// documents like a gateway.
type pinService struct {
	mu       sync.Mutex
	next     int
	files    map[string][]byte
	names    map[string]string
	docs     map[string][]byte
	unpinned []string
	failPins bool
}

func newPinService() *pinService {
	return &pinService{
		files: make(map[string][]byte),
		names: make(map[string]string),
		docs:  make(map[string][]byte),
	}
}

func (s *pinService) cid() string {
	s.next++
	return "Qm" + strings.Repeat("x", s.next)
}

func (s *pinService) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.Header.Get("Authorization") != "Bearer test-jwt" && !strings.HasPrefix(r.URL.Path, "/ipfs/") {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"reason":"INVALID_CREDENTIALS","details":"bad jwt"}}`))
		return
	}
	if s.failPins && r.Method == http.MethodPost {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("boom"))
		return
	}

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/pinning/pinFileToIPFS":
		file, header, err := r.FormFile("file")
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, _ := io.ReadAll(file)
		var meta pinata.Metadata
		_ = json.Unmarshal([]byte(r.FormValue("pinataMetadata")), &meta)

		cid := s.cid()
		s.files[cid] = data
		s.names[cid] = header.Filename + "|" + meta.Name
		_ = json.NewEncoder(w).Encode(pinata.PinResponse{IpfsHash: cid, PinSize: int64(len(data))})

	case r.Method == http.MethodPost && r.URL.Path == "/pinning/pinJSONToIPFS":
		var body struct {
			PinataContent  json.RawMessage `json:"pinataContent"`
			PinataMetadata pinata.Metadata `json:"pinataMetadata"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		cid := s.cid()
		s.docs[cid] = body.PinataContent
		s.names[cid] = body.PinataMetadata.Name
		_ = json.NewEncoder(w).Encode(pinata.PinResponse{IpfsHash: cid})

	case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/pinning/unpin/"):
		cid := strings.TrimPrefix(r.URL.Path, "/pinning/unpin/")
		s.unpinned = append(s.unpinned, cid)
		_, _ = w.Write([]byte("OK"))

	case r.Method == http.MethodGet && strings.HasPrefix(r.URL.Path, "/ipfs/"):
		doc, ok := s.docs[strings.TrimPrefix(r.URL.Path, "/ipfs/")]
		if !ok {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(doc)

	default:
		http.NotFound(w, r)
	}
}

func newTestPublisher(t *testing.T, svc *pinService) (*Publisher, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(svc)
	t.Cleanup(server.Close)

	client, err := pinata.NewClient(pinata.Config{JWT: "test-jwt", BaseURL: server.URL})
	require.NoError(t, err)

	p, err := New(Config{Pinner: client, Gateway: server.URL + "/ipfs"})
	require.NoError(t, err)
	return p, server
}

var uuidName = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}\.(jpg|json)$`)

func TestPublisher_RoundTrip(t *testing.T) {
	svc := newPinService()
	p, server := newTestPublisher(t, svc)
	ctx := context.Background()

	blob := []byte{0xff, 0xd8, 0xff, 0xe0, 1, 2, 3}
	imageCID, err := p.PublishImage(ctx, blob)
	require.NoError(t, err)
	require.NotEmpty(t, imageCID)
	assert.Equal(t, blob, svc.files[imageCID])

	names := strings.Split(svc.names[imageCID], "|")
	require.Len(t, names, 2)
	assert.Regexp(t, uuidName, names[0])
	assert.Equal(t, names[0], names[1], "multipart filename and pin name should match")

	metadataCID, err := p.PublishMetadata(ctx, imageCID)
	require.NoError(t, err)
	assert.Regexp(t, uuidName, svc.names[metadataCID])
	assert.True(t, strings.HasSuffix(svc.names[metadataCID], ".json"))

	tokenURI := p.TokenURI(metadataCID)
	assert.Equal(t, server.URL+"/ipfs/"+metadataCID, tokenURI)

	md, err := p.ResolveMetadata(ctx, tokenURI)
	require.NoError(t, err)
	assert.Equal(t, TokenMetadata{Name: TokenName, Description: "", Image: "ipfs://" + imageCID}, *md)

	assets := AssetsOf(tokenURI, md)
	assert.Equal(t, Assets{MetadataCID: metadataCID, ImageCID: imageCID}, assets)

	require.NoError(t, p.Unpin(ctx, assets.MetadataCID))
	require.NoError(t, p.Unpin(ctx, assets.ImageCID))
	assert.Equal(t, []string{metadataCID, imageCID}, svc.unpinned)
}

func TestPublisher_MetadataDocumentShape(t *testing.T) {
	svc := newPinService()
	p, _ := newTestPublisher(t, svc)

	cid, err := p.PublishMetadata(context.Background(), "QmImage")
	require.NoError(t, err)

	var doc map[string]interface{}
	require.NoError(t, json.Unmarshal(svc.docs[cid], &doc))
	assert.Equal(t, map[string]interface{}{
		"name":        "Soulbound Spotify Wrapped",
		"description": "",
		"image":       "ipfs://QmImage",
	}, doc)
}

func TestPublisher_FailuresYieldEmptyCID(t *testing.T) {
	svc := newPinService()
	svc.failPins = true
	p, _ := newTestPublisher(t, svc)
	ctx := context.Background()

	cid, err := p.PublishImage(ctx, []byte("jpeg"))
	assert.Empty(t, cid)
	var apiErr *pinata.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)

	cid, err = p.PublishMetadata(ctx, "QmImage")
	assert.Empty(t, cid)
	assert.Error(t, err)

	cid, err = p.PublishMetadata(ctx, "")
	assert.Empty(t, cid)
	assert.Error(t, err)
}

func TestPublisher_BadCredentials(t *testing.T) {
	server := httptest.NewServer(newPinService())
	defer server.Close()

	client, err := pinata.NewClient(pinata.Config{JWT: "wrong", BaseURL: server.URL})
	require.NoError(t, err)
	p, err := New(Config{Pinner: client})
	require.NoError(t, err)

	cid, err := p.PublishImage(context.Background(), []byte("jpeg"))
	assert.Empty(t, cid)
	var apiErr *pinata.Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
}

func TestResolveMetadata_Errors(t *testing.T) {
	svc := newPinService()
	p, server := newTestPublisher(t, svc)

	_, err := p.ResolveMetadata(context.Background(), server.URL+"/ipfs/QmMissing")
	assert.ErrorContains(t, err, "404")

	svc.docs["QmBroken"] = []byte("{not json")
	_, err = p.ResolveMetadata(context.Background(), "ipfs://QmBroken")
	assert.ErrorContains(t, err, "failed to parse metadata")
}

func TestAssetsOf(t *testing.T) {
	tests := []struct {
		name     string
		tokenURI string
		md       *TokenMetadata
		expected Assets
	}{
		{
			name:     "gateway uri",
			tokenURI: "https://gateway.pinata.cloud/ipfs/QmMeta",
			md:       &TokenMetadata{Image: "ipfs://QmImage"},
			expected: Assets{MetadataCID: "QmMeta", ImageCID: "QmImage"},
		},
		{
			name:     "trailing slash and query",
			tokenURI: "https://gw.example/ipfs/QmMeta/?download=1",
			md:       &TokenMetadata{Image: "https://gw.example/ipfs/QmImage"},
			expected: Assets{MetadataCID: "QmMeta", ImageCID: "QmImage"},
		},
		{
			name:     "no metadata",
			tokenURI: "ipfs://QmMeta",
			expected: Assets{MetadataCID: "QmMeta"},
		},
		{
			name:     "empty",
			expected: Assets{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, AssetsOf(tt.tokenURI, tt.md))
		})
	}
}
