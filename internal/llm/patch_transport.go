package llm

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"

	jsonpatch "github.com/evanphx/json-patch/v5"

	"github.com/spachava753/oracle/internal/config"
)

// PatchTransport rewrites outgoing provider requests: it sets extra headers and
// applies RFC 6902 patches to JSON bodies.
type PatchTransport struct {
	base    http.RoundTripper
	patches []jsonpatch.Patch
	headers map[string]string
}

func NewPatchTransport(base http.RoundTripper, patches []jsonpatch.Patch, headers map[string]string) *PatchTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &PatchTransport{base: base, patches: patches, headers: headers}
}

func isJSONBody(contentType string) bool {
	if contentType == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	return err == nil && mediaType == "application/json"
}

func (t *PatchTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrip must not modify the caller's request
	req = req.Clone(req.Context())
	for key, value := range t.headers {
		req.Header.Set(key, value)
	}

	if req.Body == nil || req.Body == http.NoBody || len(t.patches) == 0 || !isJSONBody(req.Header.Get("Content-Type")) {
		return t.base.RoundTrip(req)
	}

	body, err := io.ReadAll(req.Body)
	req.Body.Close()
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	for _, patch := range t.patches {
		body, err = patch.Apply(body)
		if err != nil {
			return nil, fmt.Errorf("applying JSON patch: %w", err)
		}
	}
	req.Body = io.NopCloser(bytes.NewReader(body))
	req.ContentLength = int64(len(body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(body)), nil
	}
	return t.base.RoundTrip(req)
}

// BuildPatchTransportFromConfig wraps base when cfg has anything to apply and
// returns base unchanged otherwise.
func BuildPatchTransportFromConfig(base http.RoundTripper, cfg *config.PatchRequestConfig) (http.RoundTripper, error) {
	if cfg == nil {
		return base, nil
	}

	var patches []jsonpatch.Patch
	if len(cfg.JSONPatch) > 0 {
		raw, err := json.Marshal(cfg.JSONPatch)
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON patch configuration: %w", err)
		}
		patch, err := jsonpatch.DecodePatch(raw)
		if err != nil {
			return nil, fmt.Errorf("decoding JSON patch: %w", err)
		}
		patches = append(patches, patch)
	}

	if len(patches) == 0 && len(cfg.IncludeHeaders) == 0 {
		return base, nil
	}
	return NewPatchTransport(base, patches, cfg.IncludeHeaders), nil
}
