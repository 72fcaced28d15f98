package llm

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	jsonpatch "github.com/evanphx/json-patch/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spachava753/oracle/internal/config"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func TestPatchTransport(t *testing.T) {
	tests := []struct {
		name        string
		patchJSON   string
		headers     map[string]string
		contentType string
		reqBody     string
		wantBody    string
		wantHeaders map[string]string
		wantErr     bool
	}{
		{
			name:        "headers only",
			headers:     map[string]string{"X-Custom-Header": "custom-value", "X-Another": "another-value"},
			wantHeaders: map[string]string{"X-Custom-Header": "custom-value", "X-Another": "another-value"},
		},
		{
			name:      "add",
			patchJSON: `[{"op": "add", "path": "/new_field", "value": "new_value"}]`,
			reqBody:   `{"existing":"value"}`,
			wantBody:  `{"existing":"value","new_field":"new_value"}`,
		},
		{
			name:        "replace with charset content type",
			patchJSON:   `[{"op": "replace", "path": "/model", "value": "custom-model"}]`,
			contentType: "application/json; charset=utf-8",
			reqBody:     `{"model":"original-model"}`,
			wantBody:    `{"model":"custom-model"}`,
		},
		{
			name:      "remove",
			patchJSON: `[{"op": "remove", "path": "/unwanted"}]`,
			reqBody:   `{"keep":"this","unwanted":"remove"}`,
			wantBody:  `{"keep":"this"}`,
		},
		{
			name:        "non json body untouched",
			patchJSON:   `[{"op": "add", "path": "/new_field", "value": "x"}]`,
			contentType: "text/plain",
			reqBody:     "plain text",
			wantBody:    "plain text",
		},
		{
			name:      "invalid patch target",
			patchJSON: `[{"op": "replace", "path": "/missing", "value": "x"}]`,
			reqBody:   `{"a":1}`,
			wantErr:   true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var patches []jsonpatch.Patch
			if tt.patchJSON != "" {
				p, err := jsonpatch.DecodePatch([]byte(tt.patchJSON))
				require.NoError(t, err)
				patches = append(patches, p)
			}

			var gotBody string
			var gotHeader http.Header
			var gotLength int64
			base := roundTripFunc(func(req *http.Request) (*http.Response, error) {
				gotHeader = req.Header
				gotLength = req.ContentLength
				if req.Body != nil {
					b, err := io.ReadAll(req.Body)
					require.NoError(t, err)
					gotBody = string(b)
				}
				return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody}, nil
			})

			var body io.Reader
			if tt.reqBody != "" {
				body = strings.NewReader(tt.reqBody)
			}
			req := httptest.NewRequest(http.MethodPost, "https://api.example.com/v1/responses", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}

			_, err := NewPatchTransport(base, patches, tt.headers).RoundTrip(req)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			for k, v := range tt.wantHeaders {
				assert.Equal(t, v, gotHeader.Get(k))
			}
			if tt.wantBody != "" {
				assert.JSONEq(t, tt.wantBody, gotBody, "body")
				assert.Equal(t, int64(len(gotBody)), gotLength)
			}
			assert.Empty(t, req.Header.Get("X-Custom-Header"), "caller request must not be mutated")
		})
	}
}

func TestBuildPatchTransportFromConfig(t *testing.T) {
	base := http.DefaultTransport

	rt, err := BuildPatchTransportFromConfig(base, nil)
	require.NoError(t, err)
	assert.Equal(t, base, rt)

	rt, err = BuildPatchTransportFromConfig(base, &config.PatchRequestConfig{})
	require.NoError(t, err)
	assert.Equal(t, base, rt)

	rt, err = BuildPatchTransportFromConfig(base, &config.PatchRequestConfig{IncludeHeaders: map[string]string{"X-A": "1"}})
	require.NoError(t, err)
	assert.IsType(t, &PatchTransport{}, rt)

	rt, err = BuildPatchTransportFromConfig(base, &config.PatchRequestConfig{
		JSONPatch: []map[string]interface{}{{"op": "add", "path": "/x", "value": 1}},
	})
	require.NoError(t, err)
	require.IsType(t, &PatchTransport{}, rt)
	assert.Len(t, rt.(*PatchTransport).patches, 1)
}
