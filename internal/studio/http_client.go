package studio

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
)

// HTTPClient is the real studio client. It talks JSON over HTTP to the
// VibeBoard studio backend with bearer auth and per-request correlation ids.
type HTTPClient struct {
	baseURL    string
	token      string
	engineID   string
	httpClient *http.Client
	logger     *slog.Logger
}

func NewHTTPClient(baseURL, token string, logger *slog.Logger) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		logger: logger,
	}
}

// SetEngineID attaches this engine instance's id to outgoing requests so
// the studio can correlate edits across restarts.
func (c *HTTPClient) SetEngineID(id string) {
	c.engineID = id
}

func (c *HTTPClient) ListScenes(ctx context.Context, projectID string) ([]Scene, error) {
	var out struct {
		Scenes []Scene `json:"scenes"`
	}
	path := fmt.Sprintf("/api/projects/%s/scenes", url.PathEscape(projectID))
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Scenes, nil
}

func (c *HTTPClient) InsertSegment(ctx context.Context, sceneID, mediaRef string, index int, version int64) (*Scene, error) {
	body := struct {
		MediaRef string `json:"media_ref"`
		Index    int    `json:"index"`
		Version  int64  `json:"version"`
	}{mediaRef, index, version}

	var scene Scene
	path := fmt.Sprintf("/api/scenes/%s/segments", url.PathEscape(sceneID))
	if err := c.do(ctx, http.MethodPost, path, body, &scene); err != nil {
		return nil, err
	}
	return &scene, nil
}

func (c *HTTPClient) PatchSegmentTrim(ctx context.Context, sceneID, segmentID string, trimStart, trimEnd float64, version int64) (*Scene, error) {
	body := struct {
		TrimStart float64 `json:"trim_start"`
		TrimEnd   float64 `json:"trim_end"`
		Version   int64   `json:"version"`
	}{trimStart, trimEnd, version}

	var scene Scene
	path := fmt.Sprintf("/api/scenes/%s/segments/%s", url.PathEscape(sceneID), url.PathEscape(segmentID))
	if err := c.do(ctx, http.MethodPatch, path, body, &scene); err != nil {
		return nil, err
	}
	return &scene, nil
}

func (c *HTTPClient) RemoveSegment(ctx context.Context, sceneID, segmentID string, version int64) (*Scene, error) {
	var scene Scene
	path := fmt.Sprintf("/api/scenes/%s/segments/%s?version=%d", url.PathEscape(sceneID), url.PathEscape(segmentID), version)
	if err := c.do(ctx, http.MethodDelete, path, nil, &scene); err != nil {
		return nil, err
	}
	return &scene, nil
}

// Upload streams the file to the studio as multipart form data. The body is
// piped rather than buffered; media files are too large to hold in memory.
func (c *HTTPClient) Upload(ctx context.Context, filename string, r io.Reader) (*MediaRef, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)

	go func() {
		part, err := mw.CreateFormFile("file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/media/uploads", pr)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	c.setHeaders(req)

	c.logger.Info("uploading media to studio", "filename", filename)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var ref MediaRef
	if err := json.Unmarshal(respBody, &ref); err != nil {
		return nil, fmt.Errorf("decode upload response: %w", err)
	}
	return &ref, nil
}

func (c *HTTPClient) ListCandidates(ctx context.Context, projectID, filter string) ([]Candidate, error) {
	var out struct {
		Candidates []Candidate `json:"candidates"`
	}
	path := fmt.Sprintf("/api/projects/%s/candidates", url.PathEscape(projectID))
	if filter != "" {
		path += "?filter=" + url.QueryEscape(filter)
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return out.Candidates, nil
}

func (c *HTTPClient) BakeScene(ctx context.Context, sceneID string, settings BakeSettings) (*BakeResult, error) {
	body := struct {
		SceneID  string       `json:"scene_id"`
		Settings BakeSettings `json:"settings"`
	}{sceneID, settings}

	var result BakeResult
	if err := c.do(ctx, http.MethodPost, "/api/bake/scene", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func (c *HTTPClient) BakeClips(ctx context.Context, clips []BakeClip, settings BakeSettings) (*BakeResult, error) {
	body := struct {
		Clips    []BakeClip   `json:"clips"`
		Settings BakeSettings `json:"settings"`
	}{clips, settings}

	var result BakeResult
	if err := c.do(ctx, http.MethodPost, "/api/bake/clips", body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do runs one JSON round trip. 409 responses map to ErrVersionConflict,
// other non-2xx to *APIError.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))

	if resp.StatusCode == http.StatusConflict {
		return fmt.Errorf("%w: %s", ErrVersionConflict, string(respBody))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("X-VibeBoard-Request-Id", uuid.NewString())
	if c.engineID != "" {
		req.Header.Set("X-VibeBoard-Engine-Id", c.engineID)
	}
}
