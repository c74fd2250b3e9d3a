package media

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseRangeHeader(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		size       int64
		wantStart  int64
		wantLength int64
		wantErr    error
	}{
		{"full range", "bytes=0-999", 1000, 0, 1000, nil},
		{"open tail", "bytes=500-", 1000, 500, 500, nil},
		{"suffix", "bytes=-500", 1000, 500, 500, nil},
		{"single byte", "bytes=0-0", 1000, 0, 1, nil},
		{"middle window", "bytes=100-199", 1000, 100, 100, nil},
		{"end clamped to size", "bytes=0-2000", 1000, 0, 1000, nil},
		{"suffix larger than file", "bytes=-2000", 500, 0, 500, nil},
		{"last byte open", "bytes=999-", 1000, 999, 1, nil},
		{"multi range takes first", "bytes=0-99, 200-299", 1000, 0, 100, nil},

		{"start at size", "bytes=1000-", 1000, 0, 0, ErrRangeNoOverlap},
		{"window past size", "bytes=1500-2000", 1000, 0, 0, ErrRangeNoOverlap},
		{"no unit", "0-100", 1000, 0, 0, ErrBadRange},
		{"wrong unit", "chars=0-100", 1000, 0, 0, ErrBadRange},
		{"garbage start", "bytes=abc-100", 1000, 0, 0, ErrBadRange},
		{"garbage end", "bytes=0-abc", 1000, 0, 0, ErrBadRange},
		{"inverted window", "bytes=200-100", 1000, 0, 0, ErrBadRange},
		{"zero suffix", "bytes=-0", 1000, 0, 0, ErrBadRange},
		{"no dash", "bytes=100", 1000, 0, 0, ErrBadRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseRangeHeader(tt.header, tt.size)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("err = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got.start != tt.wantStart || got.length != tt.wantLength {
				t.Errorf("span = {%d, %d}, want {%d, %d}", got.start, got.length, tt.wantStart, tt.wantLength)
			}
		})
	}
}

func TestSpanContentRange(t *testing.T) {
	sp := span{start: 100, length: 50}
	if got := sp.contentRange(1000); got != "bytes 100-149/1000" {
		t.Errorf("contentRange = %q, want bytes 100-149/1000", got)
	}
}

func storeWithItem(t *testing.T, content string) (*Store, *Item) {
	t.Helper()
	store, err := NewStore(t.TempDir(), testLogger())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	item, err := store.Put("clip.mp4", strings.NewReader(content))
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	return store, item
}

func serve(t *testing.T, store *Store, id, rangeHeader string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/media/"+id, nil)
	if rangeHeader != "" {
		req.Header.Set("Range", rangeHeader)
	}
	rec := httptest.NewRecorder()
	store.Serve(rec, req, id)
	return rec
}

func TestServeFullContent(t *testing.T) {
	store, item := storeWithItem(t, "0123456789")

	rec := serve(t, store, item.ID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if body := rec.Body.String(); body != "0123456789" {
		t.Errorf("body = %q, want full content", body)
	}
	if got := rec.Header().Get("Accept-Ranges"); got != "bytes" {
		t.Errorf("Accept-Ranges = %q, want bytes", got)
	}
	if got := rec.Header().Get("Content-Type"); got != "video/mp4" {
		t.Errorf("Content-Type = %q, want video/mp4", got)
	}
	if got := rec.Header().Get("Content-Length"); got != "10" {
		t.Errorf("Content-Length = %q, want 10", got)
	}
}

func TestServePartialContent(t *testing.T) {
	store, item := storeWithItem(t, "0123456789")

	tests := []struct {
		name      string
		header    string
		wantBody  string
		wantRange string
	}{
		{"window", "bytes=2-5", "2345", "bytes 2-5/10"},
		{"open tail", "bytes=7-", "789", "bytes 7-9/10"},
		{"suffix", "bytes=-3", "789", "bytes 7-9/10"},
		{"oversized suffix", "bytes=-99", "0123456789", "bytes 0-9/10"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(t, store, item.ID, tt.header)
			if rec.Code != http.StatusPartialContent {
				t.Fatalf("status = %d, want 206", rec.Code)
			}
			if body := rec.Body.String(); body != tt.wantBody {
				t.Errorf("body = %q, want %q", body, tt.wantBody)
			}
			if got := rec.Header().Get("Content-Range"); got != tt.wantRange {
				t.Errorf("Content-Range = %q, want %q", got, tt.wantRange)
			}
		})
	}
}

func TestServeUnsatisfiableRange(t *testing.T) {
	store, item := storeWithItem(t, "0123456789")

	rec := serve(t, store, item.ID, "bytes=50-")
	if rec.Code != http.StatusRequestedRangeNotSatisfiable {
		t.Fatalf("status = %d, want 416", rec.Code)
	}
	if got := rec.Header().Get("Content-Range"); got != "bytes */10" {
		t.Errorf("Content-Range = %q, want bytes */10", got)
	}
}

func TestServeIgnoresMalformedRange(t *testing.T) {
	store, item := storeWithItem(t, "0123456789")

	rec := serve(t, store, item.ID, "bytes=zz-5")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with header ignored", rec.Code)
	}
	if body, _ := io.ReadAll(rec.Body); string(body) != "0123456789" {
		t.Errorf("body = %q, want full content", body)
	}
}

func TestServeMissingItem(t *testing.T) {
	store, _ := storeWithItem(t, "x")

	rec := serve(t, store, "nope.mp4", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}

	rec = serve(t, store, "../../etc/passwd", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("escape attempt status = %d, want 404", rec.Code)
	}
}
