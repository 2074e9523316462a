package fetcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFingerprint(t *testing.T) {
	// sha256("abc")
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	assert.Equal(t, want, Fingerprint([]byte("abc")))
	assert.NotEqual(t, Fingerprint([]byte("abc")), Fingerprint([]byte("abd")))
}

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/doc.pdf":
			assert.Equal(t, defaultUserAgent, r.Header.Get("User-Agent"))
			w.Write([]byte("%PDF-1.4 body"))
		case "/big.pdf":
			w.Write(make([]byte, 2048))
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	f := New(WithMaxBytes(1024))
	ctx := context.Background()

	doc, err := f.Fetch(ctx, srv.URL+"/doc.pdf")
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4 body"), doc.Body)
	assert.Equal(t, Fingerprint(doc.Body), doc.Fingerprint)
	assert.Equal(t, srv.URL+"/doc.pdf", doc.URL)

	_, err = f.Fetch(ctx, srv.URL+"/missing.pdf")
	assert.ErrorIs(t, err, ErrUnexpectedStatus)

	_, err = f.Fetch(ctx, srv.URL+"/big.pdf")
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetchTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(WithTimeout(time.Second)).Fetch(context.Background(), url)
	require.Error(t, err)
}

func TestFetchRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	f := New(WithRetries(3, time.Millisecond))
	body, err := f.Get(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "ok", string(body))
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := New(WithRetries(3, time.Millisecond)).Get(context.Background(), srv.URL)
	assert.ErrorIs(t, err, ErrUnexpectedStatus)
	assert.Equal(t, int32(1), calls.Load())
}

func TestCheckURL(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodHead, r.Method)
		if r.URL.Path == "/exists" {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	f := New()
	ok, err := f.CheckURL(context.Background(), srv.URL+"/exists")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.CheckURL(context.Background(), srv.URL+"/nope")
	require.NoError(t, err)
	assert.False(t, ok)
}
