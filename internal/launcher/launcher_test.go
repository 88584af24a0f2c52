package launcher

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanOpen(t *testing.T) {
	h := NewHTTP()

	tests := []struct {
		uri  string
		want bool
	}{
		{"https://fbise.edu.pk/books/grade9/physics.pdf", true},
		{"http://example.org", true},
		{"www.cambridgeinternational.org/9702", true},
		{"", false},
		{"   ", false},
		{"not a link", false},
		{"ftp://example.org/file", false},
		{"mailto:someone@example.org", false},
		{"https://", false},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			assert.Equal(t, tt.want, h.CanOpen(tt.uri))
		})
	}
}

func TestPreview_ExtractsTitleAndText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = w.Write([]byte(`<html><head><title> Physics 9702 </title><style>p{}</style></head>
<body><nav>menu</nav><p>Syllabus   overview</p><script>x()</script><p>Paper 1</p></body></html>`))
	}))
	defer srv.Close()

	page, err := NewHTTP().Preview(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "Physics 9702", page.Title)
	assert.Equal(t, "Syllabus overview Paper 1", page.Text)
}

func TestOpen_NonOKFails(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	err := NewHTTP().Open(context.Background(), srv.URL)
	assert.Error(t, err)
}

func TestOpen_InvalidLink(t *testing.T) {
	err := NewHTTP().Open(context.Background(), "not a link")
	assert.Error(t, err)
}

func TestPreview_NonHTMLHasNoText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/pdf")
		_, _ = w.Write([]byte("%PDF-1.4"))
	}))
	defer srv.Close()

	page, err := NewHTTP().Preview(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Empty(t, page.Title)
	assert.Empty(t, page.Text)
}

func TestClip_KeepsRunesWhole(t *testing.T) {
	// each Urdu letter is two bytes in UTF-8
	s := "اردو کتاب"
	for n := 1; n < len(s); n++ {
		got := clip(s, n)
		assert.True(t, utf8.ValidString(got), "n=%d: %q", n, got)
		assert.LessOrEqual(t, len(got), n+len("..."))
	}
	assert.Equal(t, s, clip(s, len(s)))
	assert.Equal(t, "ab...", clip("abcdef", 2))
}
