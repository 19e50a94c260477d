package main

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gonkalabs/identity-mask/internal/config"
	"github.com/gonkalabs/identity-mask/internal/credential"
	"github.com/gonkalabs/identity-mask/internal/extract"
)

const (
	document = "John Smith emailed jsmith@example.com."
	testKey  = "4c0883a69102937d6231471b5dbb6204fe5129617082792ae468d01a3f362318"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ROSETTE_USER_KEY", "ROSETTE_USER_KEYS", "ROSETTE_API_URL", "MASK_LANGUAGE",
		"MASK_ENTITY_TYPES", "MASK_TEMPLATES_FILE", "MASK_CACHE_PATH", "MASK_SIGNING_KEY",
		"LOG_LEVEL", "LOG_FORMAT", "PORT",
	} {
		t.Setenv(k, "")
	}
	prev := slog.Default()
	t.Cleanup(func() { slog.SetDefault(prev) })
}

func runCLI(t *testing.T, stdin string, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

type fakeService struct {
	*httptest.Server
	hits atomic.Int32

	mu   sync.Mutex
	last map[string]string
}

func newFakeService(t *testing.T, status int) *fakeService {
	t.Helper()
	f := &fakeService{}
	f.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.hits.Add(1)
		var body map[string]string
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		f.mu.Lock()
		f.last = body
		f.mu.Unlock()

		if status != http.StatusOK {
			w.WriteHeader(status)
			_, _ = w.Write([]byte(`{"code":"unauthorized","message":"bad key"}`))
			return
		}
		_, _ = w.Write([]byte(`{
			"data": "John Smith emailed jsmith@example.com.",
			"attributes": {"entities": {"items": [
				{"type": "PERSON", "mentions": [{"startOffset": 0, "endOffset": 10}]},
				{"type": "IDENTIFIER:EMAIL", "mentions": [{"startOffset": 19, "endOffset": 37}]}
			]}}
		}`))
	}))
	t.Cleanup(f.Close)
	return f
}

func (f *fakeService) lastRequest() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.last
}

func writeFile(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestMaskCommand(t *testing.T) {
	clearEnv(t)
	svc := newFakeService(t, http.StatusOK)

	t.Run("File input", func(t *testing.T) {
		in := writeFile(t, "doc.txt", document)
		out, stderr, err := runCLI(t, "", "-k", "key", "-a", svc.URL, "-i", in)
		require.NoError(t, err)
		assert.Equal(t, "PERSON1 emailed IDENTIFIER:EMAIL.\n", out)
		assert.Contains(t, stderr, "Extracting entities")
		assert.Equal(t, map[string]string{"content": document}, svc.lastRequest())
	})

	t.Run("Stdin input with selected types", func(t *testing.T) {
		out, _, err := runCLI(t, document, "-k", "key", "-a", svc.URL, "-t", "PERSON", "-l", "en")
		require.NoError(t, err)
		assert.Equal(t, "PERSON1 emailed jsmith@example.com.\n", out)
		assert.Equal(t, map[string]string{"content": document, "language": "eng"}, svc.lastRequest())
	})

	t.Run("URI input", func(t *testing.T) {
		_, _, err := runCLI(t, "", "-k", "key", "-a", svc.URL, "-u", "-i", "https://example.com/a b")
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"contentUri": "https://example.com/a%20b"}, svc.lastRequest())
	})

	t.Run("Masks file", func(t *testing.T) {
		masks := writeFile(t, "masks.toml", "entity_types = [\"IDENTIFIER:EMAIL\"]\n[masks]\n\"IDENTIFIER:EMAIL\" = \"<email>\"\n")
		out, _, err := runCLI(t, document, "-k", "key", "-a", svc.URL, "--masks-file", masks)
		require.NoError(t, err)
		assert.Equal(t, "John Smith emailed <email>.\n", out)
	})
}

func TestMaskCommandCache(t *testing.T) {
	clearEnv(t)
	svc := newFakeService(t, http.StatusOK)
	db := filepath.Join(t.TempDir(), "adm.db")

	for range 2 {
		out, _, err := runCLI(t, document, "-k", "key", "-a", svc.URL, "--cache", db)
		require.NoError(t, err)
		assert.Equal(t, "PERSON1 emailed IDENTIFIER:EMAIL.\n", out)
	}
	assert.Equal(t, int32(1), svc.hits.Load())
}

func TestMaskCommandErrors(t *testing.T) {
	clearEnv(t)
	svc := newFakeService(t, http.StatusOK)

	t.Run("Unknown type", func(t *testing.T) {
		_, _, err := runCLI(t, document, "-k", "key", "-a", svc.URL, "-t", "SPACESHIP")
		assert.ErrorIs(t, err, config.ErrUnknownEntityType)
	})

	t.Run("Receipt without signing key", func(t *testing.T) {
		_, _, err := runCLI(t, document, "-k", "key", "-a", svc.URL, "--receipt", filepath.Join(t.TempDir(), "r.json"))
		assert.Error(t, err)
	})

	t.Run("No key", func(t *testing.T) {
		prev := promptKey
		promptKey = func(string) (string, error) { return "", credential.ErrNoCredentials }
		t.Cleanup(func() { promptKey = prev })

		_, _, err := runCLI(t, document, "-a", svc.URL)
		assert.ErrorIs(t, err, credential.ErrNoCredentials)
	})

	t.Run("Service rejects key", func(t *testing.T) {
		bad := newFakeService(t, http.StatusUnauthorized)
		_, _, err := runCLI(t, document, "-k", "key", "-a", bad.URL)
		require.Error(t, err)
		assert.True(t, extract.IsAPIError(err))
	})
}

func TestPromptedKey(t *testing.T) {
	clearEnv(t)
	svc := newFakeService(t, http.StatusOK)

	prev := promptKey
	promptKey = func(string) (string, error) { return "typed", nil }
	t.Cleanup(func() { promptKey = prev })

	out, _, err := runCLI(t, document, "-a", svc.URL)
	require.NoError(t, err)
	assert.Equal(t, "PERSON1 emailed IDENTIFIER:EMAIL.\n", out)
}

func TestReceiptAndVerify(t *testing.T) {
	clearEnv(t)
	t.Setenv("MASK_SIGNING_KEY", testKey)
	svc := newFakeService(t, http.StatusOK)
	dir := t.TempDir()

	in := writeFile(t, "doc.txt", document)
	receipt := filepath.Join(dir, "receipt.json")
	out, _, err := runCLI(t, "", "-k", "key", "-a", svc.URL, "-i", in, "--receipt", receipt)
	require.NoError(t, err)

	masked := filepath.Join(dir, "masked.txt")
	require.NoError(t, os.WriteFile(masked, []byte(out), 0o644))

	verified, _, err := runCLI(t, "", "verify", "-r", receipt, "-i", in, masked)
	require.NoError(t, err)
	assert.Contains(t, verified, "Receipt valid: signed by 0x")
	assert.Contains(t, verified, "IDENTIFIER:EMAIL")

	require.NoError(t, os.WriteFile(masked, []byte("John Smith emailed IDENTIFIER:EMAIL.\n"), 0o644))
	_, _, err = runCLI(t, "", "verify", "-r", receipt, masked)
	assert.Error(t, err)

	_, _, err = runCLI(t, "", "verify", masked)
	assert.Error(t, err, "--receipt is required")
}

func TestTypesCommand(t *testing.T) {
	clearEnv(t)
	out, _, err := runCLI(t, "", "types")
	require.NoError(t, err)
	for _, want := range []string{"Type", "PERSON{}", "IDENTIFIER:URL", "yes"} {
		assert.Contains(t, out, want)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	clearEnv(t)
	target := filepath.Join(t.TempDir(), "conf", "masks.toml")

	out, _, err := runCLI(t, "", "config", "init", "--path", target)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote sample masks file")

	_, _, err = runCLI(t, "", "config", "init", "--path", target)
	require.Error(t, err)

	_, _, err = runCLI(t, "", "config", "init", "--path", target, "--overwrite")
	require.NoError(t, err)

	out, _, err = runCLI(t, "", "--masks-file", target, "config", "validate")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "IDENTIFIER:PERSONAL_ID_NUM")
}

func TestServer(t *testing.T) {
	clearEnv(t)
	cfg, err := config.Load()
	require.NoError(t, err)

	srv, closeFn, err := newServer(cfg, "")
	require.NoError(t, err)
	defer closeFn()

	ts := httptest.NewServer(srv.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, err = http.Post(ts.URL+"/v1/mask", "application/json", strings.NewReader(`{"content":"x"}`))
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServeStopsOnCancel(t *testing.T) {
	clearEnv(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := serve(ctx, &http.Server{Addr: "127.0.0.1:0", Handler: http.NotFoundHandler()})
	assert.NoError(t, err)
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}
