package notify

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"tiktok-monitor-go/internal/model"
)

func testSummary() model.Summary {
	return model.Summary{
		AccountHandle: "alice",
		PostURL:       "https://www.tiktok.com/@alice/video/1",
		Caption:       "hello world",
		Transcript:    "spoken words",
		Hashtags:      []string{"fyp"},
		ArchiveRef:    "https://drive.example/abc",
		PublishedAt:   time.Date(2026, 2, 6, 10, 30, 0, 0, time.UTC),
	}
}

func TestSendPostsBlocks(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	require.NoError(t, n.Send(context.Background(), testSummary()))

	var msg slackMessage
	require.NoError(t, json.Unmarshal(body, &msg))
	require.Equal(t, "New TikTok video from @alice", msg.Text)
	require.NotEmpty(t, msg.Blocks)
	require.Equal(t, "header", msg.Blocks[0].Type)
	require.Contains(t, msg.Blocks[0].Text.Text, "@alice")
	require.Equal(t, "divider", msg.Blocks[len(msg.Blocks)-1].Type)

	raw := string(body)
	require.Contains(t, raw, "View on TikTok")
	require.Contains(t, raw, "View on Google Drive")
	require.Contains(t, raw, "spoken words")
}

func TestSendWithoutArchiveRef(t *testing.T) {
	var body []byte
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ = io.ReadAll(r.Body)
		w.Write([]byte("ok"))
	}))
	defer srv.Close()

	summary := testSummary()
	summary.ArchiveRef = ""

	n := NewSlackNotifier(srv.URL)
	require.NoError(t, n.Send(context.Background(), summary))
	require.Contains(t, string(body), "Video download not permitted")
}

func TestSendWebhookFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	n := NewSlackNotifier(srv.URL)
	err := n.Send(context.Background(), testSummary())
	require.ErrorIs(t, err, ErrNotify)
}

func TestTruncateTranscript(t *testing.T) {
	require.Equal(t, "Not available", truncate(""))
	require.Equal(t, "short", truncate("short"))

	long := strings.Repeat("a", maxTranscriptLen+10)
	got := truncate(long)
	require.Len(t, got, maxTranscriptLen+3)
	require.True(t, strings.HasSuffix(got, "..."))
}
