// Package apiclient is the typed HTTP client the staging pipeline and the
// carousel use to reach the storage and product-image endpoints.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shopfront/internal/models"
	"shopfront/internal/pipeline"

	"github.com/google/uuid"
)

// Client talks to the shopfront image API. It implements pipeline.Uploader,
// pipeline.Committer, pipeline.StagingCleaner, pipeline.Enhancer and
// carousel.Source.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client

	// pollInterval paces enhancement run polling; tests shorten it.
	pollInterval time.Duration
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpClient: &http.Client{
			Timeout: 60 * time.Second,
		},
		pollInterval: time.Second,
	}
}

func (c *Client) do(req *http.Request) (*http.Response, error) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	return c.httpClient.Do(req)
}

// apiError extracts the server-provided detail from a non-2xx response, or
// falls back to the raw body text.
func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(resp.Body)

	var envelope struct {
		Error struct {
			Message string            `json:"message"`
			Details map[string]string `json:"details"`
		} `json:"error"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		if envelope.Error.Message != "" {
			msg := envelope.Error.Message
			for _, detail := range envelope.Error.Details {
				msg = msg + ": " + detail
				break
			}
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
		}
		if envelope.Message != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, envelope.Message)
		}
	}
	return fmt.Errorf("server returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
}

func filePart(w *multipart.Writer, field, filename, contentType string) (io.Writer, error) {
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name=%q; filename=%q`, field, filename))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	header.Set("Content-Type", contentType)
	return w.CreatePart(header)
}

// Upload implements pipeline.Uploader against POST /storage/upload.
func (c *Client) Upload(ctx context.Context, folder string, res pipeline.Resource) (string, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	part, err := filePart(w, "file", res.Name, res.ContentType)
	if err != nil {
		return "", fmt.Errorf("failed to build multipart body: %w", err)
	}
	if _, err := io.Copy(part, res.Open()); err != nil {
		return "", fmt.Errorf("failed to write file part: %w", err)
	}
	if err := w.WriteField("folder", folder); err != nil {
		return "", fmt.Errorf("failed to write folder field: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/storage/upload", &buf)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return "", fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", apiError(resp)
	}

	var staged struct {
		URL string `json:"url"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&staged); err != nil {
		return "", fmt.Errorf("failed to decode upload response: %w", err)
	}
	return staged.URL, nil
}

// CreateProductImage implements pipeline.Committer against
// POST /product-images.
func (c *Client) CreateProductImage(ctx context.Context, image *models.ProductImage) (*models.ProductImage, error) {
	payload := map[string]interface{}{
		"product_id":    image.ProductID.String(),
		"image_url":     image.ImageURL,
		"alt_text":      image.AltText,
		"is_primary":    image.IsPrimary,
		"display_order": image.DisplayOrder,
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image record: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/product-images", bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("create request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp)
	}

	created := &models.ProductImage{}
	if err := json.NewDecoder(resp.Body).Decode(created); err != nil {
		return nil, fmt.Errorf("failed to decode created record: %w", err)
	}
	return created, nil
}

// FetchImages implements carousel.Source against GET /product-images.
func (c *Client) FetchImages(ctx context.Context, productID uuid.UUID, limit, offset int) ([]*models.ProductImage, error) {
	query := url.Values{}
	query.Set("product_id", productID.String())
	query.Set("skip", strconv.Itoa(offset))
	query.Set("limit", strconv.Itoa(limit))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/product-images?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp)
	}

	var images []*models.ProductImage
	if err := json.NewDecoder(resp.Body).Decode(&images); err != nil {
		return nil, fmt.Errorf("failed to decode image list: %w", err)
	}
	return images, nil
}

// DeleteImage implements carousel.Source against DELETE /product-images/{id}.
func (c *Client) DeleteImage(ctx context.Context, imageID uuid.UUID) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/product-images/"+imageID.String(), nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("delete request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	return nil
}

// DeleteStagedObject implements pipeline.StagingCleaner against
// DELETE /storage/objects.
func (c *Client) DeleteStagedObject(ctx context.Context, objectURL string) error {
	query := url.Values{}
	query.Set("url", objectURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.baseURL+"/storage/objects?"+query.Encode(), nil)
	if err != nil {
		return err
	}

	resp, err := c.do(req)
	if err != nil {
		return fmt.Errorf("cleanup request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	return nil
}

// Enhance implements pipeline.Enhancer: it starts a preview run and polls
// until the run completes or the context expires.
func (c *Client) Enhance(ctx context.Context, resources []pipeline.Resource) ([]pipeline.Preview, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	for _, res := range resources {
		part, err := filePart(w, "images", res.Name, res.ContentType)
		if err != nil {
			return nil, fmt.Errorf("failed to build multipart body: %w", err)
		}
		if _, err := io.Copy(part, res.Open()); err != nil {
			return nil, fmt.Errorf("failed to write file part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/enhance", &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return nil, fmt.Errorf("enhancement request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, apiError(resp)
	}

	var started struct {
		RunID string `json:"run_id"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&started); err != nil {
		return nil, fmt.Errorf("failed to decode run id: %w", err)
	}

	return c.pollEnhancement(ctx, started.RunID)
}

func (c *Client) pollEnhancement(ctx context.Context, runID string) ([]pipeline.Preview, error) {
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/enhance/"+runID, nil)
		if err != nil {
			return nil, err
		}
		resp, err := c.do(req)
		if err != nil {
			return nil, fmt.Errorf("enhancement poll failed: %w", err)
		}

		var run models.EnhancementRun
		decodeErr := json.NewDecoder(resp.Body).Decode(&run)
		resp.Body.Close()
		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			return nil, fmt.Errorf("enhancement poll returned %d", resp.StatusCode)
		}
		if decodeErr != nil {
			return nil, fmt.Errorf("failed to decode enhancement run: %w", decodeErr)
		}

		switch run.Status {
		case models.EnhancementStatusDone:
			previews := make([]pipeline.Preview, 0, len(run.Previews))
			for _, p := range run.Previews {
				previews = append(previews, pipeline.Preview{
					SourceName: p.SourceName,
					URL:        p.URL,
				})
			}
			return previews, nil
		case models.EnhancementStatusFailed:
			return nil, fmt.Errorf("enhancement run failed: %s", run.Error)
		}
	}
}
