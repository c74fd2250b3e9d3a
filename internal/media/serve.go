package media

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	ErrBadRange       = errors.New("malformed range header")
	ErrRangeNoOverlap = errors.New("range outside content")
)

// span is one satisfiable byte window inside a file.
type span struct {
	start  int64
	length int64
}

func (sp span) contentRange(total int64) string {
	return fmt.Sprintf("bytes %d-%d/%d", sp.start, sp.start+sp.length-1, total)
}

// parseRangeHeader understands single byte ranges: "bytes=a-b", open
// tails "bytes=a-" and suffixes "bytes=-n". A multi-range request is
// served from its first spec only; media players never send them.
func parseRangeHeader(header string, size int64) (*span, error) {
	spec, ok := strings.CutPrefix(header, "bytes=")
	if !ok {
		return nil, ErrBadRange
	}
	if i := strings.IndexByte(spec, ','); i >= 0 {
		spec = strings.TrimSpace(spec[:i])
	}
	first, last, ok := strings.Cut(spec, "-")
	if !ok {
		return nil, ErrBadRange
	}

	if first == "" {
		n, err := strconv.ParseInt(last, 10, 64)
		if err != nil || n <= 0 {
			return nil, ErrBadRange
		}
		if n > size {
			n = size
		}
		return &span{start: size - n, length: n}, nil
	}

	start, err := strconv.ParseInt(first, 10, 64)
	if err != nil || start < 0 {
		return nil, ErrBadRange
	}
	if start >= size {
		return nil, ErrRangeNoOverlap
	}

	end := size - 1
	if last != "" {
		end, err = strconv.ParseInt(last, 10, 64)
		if err != nil || end < start {
			return nil, ErrBadRange
		}
		if end > size-1 {
			end = size - 1
		}
	}
	return &span{start: start, length: end - start + 1}, nil
}

// Serve writes the stored item to w, honoring single-range requests with
// 206 responses so video elements can scrub.
func (s *Store) Serve(w http.ResponseWriter, r *http.Request, id string) {
	f, info, err := s.Open(id)
	if err != nil {
		if errors.Is(err, ErrBadID) || os.IsNotExist(err) {
			http.Error(w, "media not found", http.StatusNotFound)
			return
		}
		s.logger.Error("failed to open media", "id", id, "error", err)
		http.Error(w, "failed to open media", http.StatusInternalServerError)
		return
	}
	defer f.Close()

	size := info.Size()
	contentType := mime.TypeByExtension(filepath.Ext(id))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Content-Type", contentType)

	header := r.Header.Get("Range")
	if header == "" {
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, f)
		return
	}

	sp, err := parseRangeHeader(header, size)
	switch {
	case errors.Is(err, ErrRangeNoOverlap):
		w.Header().Set("Content-Range", fmt.Sprintf("bytes */%d", size))
		http.Error(w, "range not satisfiable", http.StatusRequestedRangeNotSatisfiable)
		return
	case err != nil:
		// A malformed header is ignored, not rejected.
		w.Header().Set("Content-Length", strconv.FormatInt(size, 10))
		w.WriteHeader(http.StatusOK)
		io.Copy(w, f)
		return
	}

	if _, err := f.Seek(sp.start, io.SeekStart); err != nil {
		s.logger.Error("failed to seek media", "id", id, "error", err)
		http.Error(w, "failed to read media", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Length", strconv.FormatInt(sp.length, 10))
	w.Header().Set("Content-Range", sp.contentRange(size))
	w.WriteHeader(http.StatusPartialContent)
	io.CopyN(w, f, sp.length)
}
