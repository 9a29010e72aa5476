package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWebSearchDisabledWithoutKey(t *testing.T) {
	w := NewWebSearch("", "", nil)

	out, err := w.Execute(context.Background(), ToolCall{
		Name:      "web_search",
		Arguments: json.RawMessage(`{"query":"bikano bhujia"}`),
	})

	require.NoError(t, err)
	assert.Empty(t, out, "no key means the tool quietly yields nothing")
}

func TestWebSearchExecute(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "bikano bhujia", r.URL.Query().Get("q"))
		assert.Equal(t, "test-key", r.URL.Query().Get("api_key"))
		_, _ = rw.Write([]byte(`{"organic_results":[
			{"title":"Bikano","snippet":"Bikano is an Indian snacks brand."},
			{"title":"Bhujia","snippet":"A crispy gram flour snack."},
			{"title":"Third","snippet":"third snippet"},
			{"title":"Fourth","snippet":"never rendered"}
		]}`))
	}))
	defer srv.Close()

	w := NewWebSearch("test-key", srv.URL, nil)
	out, err := w.Execute(context.Background(), ToolCall{
		Name:      "web_search",
		Arguments: json.RawMessage(`{"query":"bikano bhujia","search_type":"brand"}`),
	})

	require.NoError(t, err)
	assert.Contains(t, out, "Bikano is an Indian snacks brand.")
	assert.Contains(t, out, "third snippet")
	assert.NotContains(t, out, "never rendered", "only the top three results are summarized")
}

func TestWebSearchRejectsUnknownTool(t *testing.T) {
	w := NewWebSearch("key", "http://unused", nil)

	_, err := w.Execute(context.Background(), ToolCall{Name: "delete_everything"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown tool")
}

func TestWebSearchUpstreamError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(rw http.ResponseWriter, _ *http.Request) {
		rw.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	w := NewWebSearch("key", srv.URL, nil)
	_, err := w.Execute(context.Background(), ToolCall{
		Name:      "web_search",
		Arguments: json.RawMessage(`{"query":"x"}`),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 429")
}
