package bmc

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"
)

const loginBody = `//Dynamic Data Begin
 WEBVAR_JSONVAR_WEB_SESSION =
 {
 WEBVAR_STRUCTNAME_WEB_SESSION :
 [
 { 'SESSION_COOKIE' : 'Gc3bZ0n1ZJkCeL1HGxO3VnD3iNJxHb0a005' , 'CSRF_TOKEN' : 'Tn8c0hs2' },  {} ],
 HAPI_STATUS:0
 };
//Dynamic data end
`

// requestLog records the paths a test server was asked for.
type requestLog struct {
	mu    sync.Mutex
	paths []string
}

func (l *requestLog) add(r *http.Request) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.paths = append(l.paths, r.URL.Path)
}

func (l *requestLog) all() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.paths...)
}

type recordingStarter struct {
	name string
	args []string
	err  error
	runs int
}

func (r *recordingStarter) Start(name string, args []string) error {
	r.runs++
	r.name = name
	r.args = args
	return r.err
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func serverAddress(srv *httptest.Server) string {
	return strings.TrimPrefix(srv.URL, "http://")
}

// newTestSession returns a session for srv that caches into a temporary
// directory on 64-bit linux.
func newTestSession(t *testing.T, srv *httptest.Server, mutate func(*Config), opts ...Option) *Session {
	t.Helper()
	cfg := DefaultConfig()
	cfg.GOOS = "linux"
	cfg.PointerBits = 64
	cfg.DataRoot = t.TempDir()
	if mutate != nil {
		mutate(&cfg)
	}
	opts = append([]Option{WithLogger(discardLogger())}, opts...)
	session, err := NewSession(serverAddress(srv), cfg, opts...)
	require.NoError(t, err)
	return session
}

// zipArchive builds an in-memory zip from name/content pairs.
func zipArchive(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for name, content := range files {
		f, err := w.Create(name)
		require.NoError(t, err)
		_, err = f.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}
