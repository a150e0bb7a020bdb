package transport

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder is a Transport that records calls.
type recorder struct {
	mu       sync.Mutex
	issued   []Request
	canceled []string
}

func (r *recorder) IssueRequest(_ context.Context, req Request) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.issued = append(r.issued, req)
	return nil
}

func (r *recorder) Cancel(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.canceled = append(r.canceled, id)
}

func TestDocument_IssueAppendsScript(t *testing.T) {
	doc := NewDocument(nil)

	require.NoError(t, doc.IssueRequest(context.Background(), Request{
		ID:  "vixen_1",
		URL: "x.php?jsonp=Vixen.callbacks.vixen_1",
	}))

	scripts := doc.Scripts()
	require.Len(t, scripts, 1)
	assert.Equal(t, Script{ID: "vixen_1", Type: ScriptType, Src: "x.php?jsonp=Vixen.callbacks.vixen_1"}, scripts[0])
}

func TestDocument_CancelRemovesScript(t *testing.T) {
	doc := NewDocument(nil)
	ctx := context.Background()

	require.NoError(t, doc.IssueRequest(ctx, Request{ID: "a", URL: "a.php"}))
	require.NoError(t, doc.IssueRequest(ctx, Request{ID: "b", URL: "b.php"}))

	doc.Cancel("a")

	scripts := doc.Scripts()
	require.Len(t, scripts, 1)
	assert.Equal(t, "b", scripts[0].ID)
}

func TestDocument_CancelUnknownIsNoop(t *testing.T) {
	doc := NewDocument(nil)
	require.NoError(t, doc.IssueRequest(context.Background(), Request{ID: "a", URL: "a.php"}))

	doc.Cancel("missing")

	assert.Len(t, doc.Scripts(), 1)
}

func TestDocument_CancelThenIssueReplaces(t *testing.T) {
	doc := NewDocument(nil)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		doc.Cancel("vixen_1")
		require.NoError(t, doc.IssueRequest(ctx, Request{ID: "vixen_1", URL: "x.php"}))
	}

	assert.Len(t, doc.Scripts(), 1)
}

func TestDocument_ForwardsToNext(t *testing.T) {
	next := &recorder{}
	doc := NewDocument(next)
	req := Request{ID: "a", URL: "a.php", Callback: "Vixen.callbacks.a"}

	require.NoError(t, doc.IssueRequest(context.Background(), req))
	doc.Cancel("a")

	require.Len(t, next.issued, 1)
	assert.Equal(t, "a.php", next.issued[0].URL)
	assert.Equal(t, []string{"a"}, next.canceled)
}

func TestDocument_Render(t *testing.T) {
	doc := NewDocument(nil)
	require.NoError(t, doc.IssueRequest(context.Background(), Request{ID: "s1", URL: "x.php?jsonp={\"a\":1}"}))

	var sb strings.Builder
	require.NoError(t, doc.Render(&sb))

	out := sb.String()
	assert.Contains(t, out, `<head><script type="text/javascript" id="s1" src="x.php?jsonp={&#34;a&#34;:1}"></script></head>`)
}

func TestParseDocument_KeepsExistingHead(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(`<html><head><title>t</title></head><body></body></html>`), nil)
	require.NoError(t, err)

	require.NoError(t, doc.IssueRequest(context.Background(), Request{ID: "x", URL: "x.php"}))

	var sb strings.Builder
	require.NoError(t, doc.Render(&sb))
	assert.Contains(t, sb.String(), `<title>t</title><script`)
}

func TestParseDocument_FragmentGetsHead(t *testing.T) {
	doc, err := ParseDocument(strings.NewReader(`<p>no head here</p>`), nil)
	require.NoError(t, err)

	require.NoError(t, doc.IssueRequest(context.Background(), Request{ID: "x", URL: "x.php"}))
	scripts := doc.Scripts()
	require.Len(t, scripts, 1)
	assert.Equal(t, "x", scripts[0].ID)

	var sb strings.Builder
	require.NoError(t, doc.Render(&sb))
	assert.Contains(t, sb.String(), `<head><script type="text/javascript" id="x" src="x.php"></script></head>`)
}

func TestRequest_IsSignal(t *testing.T) {
	assert.True(t, Request{ID: "a", URL: "x"}.IsSignal())
	assert.False(t, Request{ID: "a", URL: "x", Callback: "Vixen.callbacks.a"}.IsSignal())
}
