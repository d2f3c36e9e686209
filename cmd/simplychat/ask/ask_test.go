package askcmder

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runAsk(t *testing.T, upstream http.HandlerFunc, args ...string) (string, string, error) {
	t.Helper()

	server := httptest.NewServer(upstream)
	t.Cleanup(server.Close)

	t.Setenv("AIGW_API_URL", server.URL)
	t.Setenv("AI_MODEL", "llama3")

	var stdout, stderr bytes.Buffer
	cmd := NewAskCmd()
	cmd.SetArgs(args)
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)

	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestAskPrintsReply(t *testing.T) {
	stdout, stderr, err := runAsk(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"m","choices":[{"message":{"content":"Hi there"}}]}`))
	}, "--plain", "Hello")

	require.NoError(t, err)
	assert.Equal(t, "Hi there\n", stdout)
	assert.Contains(t, stderr, "[info] LLM Model Used: m")
}

func TestAskRendersMarkdown(t *testing.T) {
	stdout, _, err := runAsk(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"m","choices":[{"message":{"content":"# Title\n\nbody text"}}]}`))
	}, "Hello")

	require.NoError(t, err)
	assert.Contains(t, stdout, "Title")
	assert.Contains(t, stdout, "body text")
}

func TestAskFailsOnErrorStatus(t *testing.T) {
	stdout, stderr, err := runAsk(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "denied", http.StatusForbidden)
	}, "--plain", "Hello")

	assert.ErrorIs(t, err, ErrSubmissionFailed)
	assert.Empty(t, stdout)
	assert.Contains(t, stderr, "My mood: 403")
}

func TestAskWarnsOnMissingChoices(t *testing.T) {
	_, stderr, err := runAsk(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"model":"m"}`))
	}, "--plain", "Hello")

	require.NoError(t, err)
	assert.Contains(t, stderr, "[warning] Invalid format in API response: 'choices' not found.")
}

func TestAskRequiresEndpoint(t *testing.T) {
	t.Setenv("AIGW_API_URL", "")

	cmd := NewAskCmd()
	cmd.SetArgs([]string{"Hello"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	assert.Error(t, cmd.Execute())
}
