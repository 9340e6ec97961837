package whitelist

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/speedrun-hq/airdropper/pkg/logger"
)

var wallets = []string{
	"0x1111111111111111111111111111111111111111",
	"0x2222222222222222222222222222222222222222",
	"0x3333333333333333333333333333333333333333",
}

var walletsRoot = common.HexToHash("0xcbf843e9efe7be41ca4d3a03347d27e7bb96d83ae75b3b36983ad907d2109c65")

func TestUpload(t *testing.T) {
	t.Run("sends the ordered list as a form file", func(t *testing.T) {
		var got []string
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, http.MethodPost, r.Method)
			file, _, err := r.FormFile("file")
			require.NoError(t, err)
			body, err := io.ReadAll(file)
			require.NoError(t, err)
			require.NoError(t, json.Unmarshal(body, &got))

			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"ipfsCID":"bafkreigh2akiscaildc"}`))
		}))
		defer server.Close()

		client := New(server.URL, nil, &logger.EmptyLogger{})
		cid, err := client.Upload(context.Background(), wallets)

		require.NoError(t, err)
		assert.Equal(t, "bafkreigh2akiscaildc", cid)
		assert.Equal(t, wallets, got)
	})

	t.Run("accepts a cid field", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(`{"cid":"bafy"}`))
		}))
		defer server.Close()

		cid, err := New(server.URL, nil, nil).Upload(context.Background(), wallets)
		require.NoError(t, err)
		assert.Equal(t, "bafy", cid)
	})

	t.Run("reports the server error", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = w.Write([]byte(`{"error":"pinning service down"}`))
		}))
		defer server.Close()

		_, err := New(server.URL, nil, nil).Upload(context.Background(), wallets)
		assert.ErrorContains(t, err, "upload failed with status 502: pinning service down")
	})

	t.Run("disabled without endpoint", func(t *testing.T) {
		_, err := New("", nil, nil).Upload(context.Background(), wallets)
		assert.ErrorIs(t, err, ErrUploadDisabled)
	})
}

func TestFetch(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer down.Close()

	var path string
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_ = json.NewEncoder(w).Encode(wallets)
	}))
	defer up.Close()

	wrapped := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string][]string{"wallets": wallets})
	}))
	defer wrapped.Close()

	t.Run("falls through gateways in order", func(t *testing.T) {
		got, err := New("", []string{down.URL, up.URL + "/"}, nil).Fetch(context.Background(), "bafy")

		require.NoError(t, err)
		assert.Equal(t, wallets, got)
		assert.Equal(t, "/ipfs/bafy", path)
	})

	t.Run("wrapped list", func(t *testing.T) {
		got, err := New("", []string{wrapped.URL}, nil).Fetch(context.Background(), "bafy")

		require.NoError(t, err)
		assert.Equal(t, wallets, got)
	})

	t.Run("every gateway fails", func(t *testing.T) {
		_, err := New("", []string{down.URL, down.URL}, nil).Fetch(context.Background(), "bafy")

		assert.ErrorContains(t, err, "all 2 gateways failed for bafy")
	})

	t.Run("verify root", func(t *testing.T) {
		client := New("", []string{up.URL}, nil)

		ok, err := client.VerifyRoot(context.Background(), "bafy", walletsRoot)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = client.VerifyRoot(context.Background(), "bafy", common.Hash{})
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
