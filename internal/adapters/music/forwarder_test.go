package music

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForwarder_Generate(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		wantBody  string
		wantError string
	}{
		{
			name:     "body returned verbatim",
			status:   http.StatusOK,
			body:     "note(\"c3 e3 g3\").s(\"sawtooth\")\n",
			wantBody: "note(\"c3 e3 g3\").s(\"sawtooth\")\n",
		},
		{
			name:     "json body is not reinterpreted",
			status:   http.StatusOK,
			body:     `{"strudel": "s(\"bd sd\")"}`,
			wantBody: `{"strudel": "s(\"bd sd\")"}`,
		},
		{
			name:      "client error",
			status:    http.StatusBadRequest,
			body:      `{"error":"missing game_state"}`,
			wantError: "400 Client Error: Bad Request for url: ",
		},
		{
			name:      "server error",
			status:    http.StatusInternalServerError,
			body:      "boom",
			wantError: "500 Server Error: Internal Server Error for url: ",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var (
				hits int32
				got  generateRequest
			)
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				atomic.AddInt32(&hits, 1)
				assert.Equal(t, http.MethodPost, r.Method)
				assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
				b, _ := io.ReadAll(r.Body)
				assert.NoError(t, json.Unmarshal(b, &got))
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			}))
			defer srv.Close()

			f := NewForwarder(nil, srv.URL+"/generate-music", "office simulator", 0, nil)
			res := f.Generate(context.Background(), "Player enters a dimly lit dungeon")

			assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
			assert.Equal(t, "office simulator", got.GameDescription)
			assert.Equal(t, "Player enters a dimly lit dungeon", got.GameState)

			if tt.wantError == "" {
				assert.False(t, res.Failed())
				assert.Equal(t, tt.wantBody, res.String())
				return
			}
			require.True(t, res.Failed())
			assert.Equal(t, tt.wantError+srv.URL+"/generate-music", res.Error)

			var record map[string]string
			require.NoError(t, json.Unmarshal([]byte(res.String()), &record))
			assert.Equal(t, res.Error, record["error"])
		})
	}
}

func TestForwarder_TransportErrors(t *testing.T) {
	t.Run("connection refused", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		endpoint := srv.URL
		srv.Close()

		res := NewForwarder(nil, endpoint, "fps", 0, nil).Generate(context.Background(), "boss fight")
		require.True(t, res.Failed())
		assert.Contains(t, res.Error, "connect")
		assert.True(t, strings.HasPrefix(res.String(), `{"error":`))
	})

	t.Run("timeout", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case <-r.Context().Done():
			case <-time.After(2 * time.Second):
			}
		}))
		defer srv.Close()

		res := NewForwarder(nil, srv.URL, "fps", 50*time.Millisecond, nil).Generate(context.Background(), "boss fight")
		require.True(t, res.Failed())
		assert.Contains(t, res.Error, "deadline exceeded")
	})

	t.Run("invalid endpoint", func(t *testing.T) {
		res := NewForwarder(nil, "://nowhere", "fps", 0, nil).Generate(context.Background(), "boss fight")
		assert.True(t, res.Failed())
	})
}

func TestNewForwarder_Defaults(t *testing.T) {
	f := NewForwarder(nil, "http://music.local", "fps", -time.Second, nil)
	assert.Equal(t, DefaultTimeout, f.timeout)
	assert.Equal(t, http.DefaultClient, f.httpClient)
}
