package synthesis

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T, endpoint string, budget time.Duration) *Client {
	t.Helper()
	l, _ := test.NewNullLogger()
	c, err := New(Config{Endpoint: endpoint, Timeout: time.Second, RetryBudget: budget}, logrus.NewEntry(l))
	require.NoError(t, err)
	return c
}

func TestSplit(t *testing.T) {
	words := strings.Repeat("lorem ipsum dolor sit amet ", 20)

	tests := []struct {
		name  string
		text  string
		max   int
		check func(t *testing.T, pieces []string)
	}{
		{
			name: "short text is one piece",
			text: "  hello world ",
			max:  100,
			check: func(t *testing.T, pieces []string) {
				assert.Equal(t, []string{"hello world"}, pieces)
			},
		},
		{
			name: "empty text",
			text: "   ",
			max:  100,
			check: func(t *testing.T, pieces []string) {
				assert.Empty(t, pieces)
			},
		},
		{
			name: "words are never split",
			text: words,
			max:  100,
			check: func(t *testing.T, pieces []string) {
				require.Greater(t, len(pieces), 1)
				for _, p := range pieces {
					assert.LessOrEqual(t, len([]rune(p)), 100)
				}
				assert.Equal(t, strings.Fields(words), strings.Fields(strings.Join(pieces, " ")))
			},
		},
		{
			name: "oversized word is hard cut",
			text: strings.Repeat("x", 250),
			max:  100,
			check: func(t *testing.T, pieces []string) {
				require.Len(t, pieces, 3)
				assert.Len(t, pieces[0], 100)
				assert.Len(t, pieces[2], 50)
			},
		},
		{
			name: "prefers sentence boundary",
			text: "First sentence is here. Second one follows and it is long enough",
			max:  40,
			check: func(t *testing.T, pieces []string) {
				assert.Equal(t, "First sentence is here.", pieces[0])
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, Split(tt.text, tt.max))
		})
	}
}

func TestSynthesize_ConcatenatesPieces(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		q := r.URL.Query()
		assert.Equal(t, "fr", q.Get("tl"))
		assert.Equal(t, "2", q.Get("total"))
		_, _ = w.Write([]byte("mp3-" + q.Get("idx") + ";"))
	}))
	defer srv.Close()

	text := strings.Repeat("bonjour ", 20)
	audio, err := newClient(t, srv.URL, 0).Synthesize(context.Background(), text, "fr")
	require.NoError(t, err)
	assert.Equal(t, "mp3-0;mp3-1;", string(audio))
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestSynthesize_DefaultLang(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "en", r.URL.Query().Get("tl"))
		_, _ = w.Write([]byte("mp3"))
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL, 0).Synthesize(context.Background(), "hello", "")
	require.NoError(t, err)
}

func TestSynthesize_Failures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"rejected", http.StatusBadRequest, "bad"},
		{"server error", http.StatusInternalServerError, "boom"},
		{"empty audio", http.StatusOK, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			audio, err := newClient(t, srv.URL, 0).Synthesize(context.Background(), "hello", "en")
			require.Error(t, err)
			assert.Nil(t, audio)
			assert.Contains(t, err.Error(), "tts piece 1/1")
		})
	}
}

func TestSynthesize_EmptyText(t *testing.T) {
	_, err := newClient(t, "http://127.0.0.1:1", 0).Synthesize(context.Background(), " ", "en")
	assert.ErrorIs(t, err, ErrEmptyText)
}
