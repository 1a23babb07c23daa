package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"lapsecam/internal/logger"
)

// Client exports single frames from a remote camera archive. Failures
// are classified *ExportError values so the backfill walker can decide
// whether to retry, stop, or abort.
type Client interface {
	ExportFrame(ctx context.Context, cameraID string, at time.Time) ([]byte, error)
}

// HTTPClient is a thin export client for an HTTP camera archive. It
// implements only the frame export call; the archive's wider protocol
// stays behind the Client interface.
type HTTPClient struct {
	baseURL string
	token   string
	http    *http.Client
	log     logger.Logger
}

// NewHTTPClient creates an export client for the archive at baseURL,
// authenticating with a bearer token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{},
		log:     logger.Default().WithComponent(logger.ComponentArchive),
	}
}

// ExportFrame fetches the frame recorded at the given instant
func (c *HTTPClient) ExportFrame(ctx context.Context, cameraID string, at time.Time) ([]byte, error) {
	u := fmt.Sprintf("%s/api/cameras/%s/export?ts=%s",
		c.baseURL, url.PathEscape(cameraID), strconv.FormatInt(at.Unix(), 10))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, &ExportError{Class: ClassUnclassified, CameraID: cameraID, At: at, Err: err}
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, c.transportError(cameraID, at, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(cameraID, at, resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ExportError{Class: ClassNoData, CameraID: cameraID, At: at, Message: "truncated response body", Err: err}
	}
	if len(body) == 0 {
		return nil, &ExportError{Class: ClassNoData, CameraID: cameraID, At: at, Message: "archive returned no data"}
	}

	c.log.Debug("Frame exported", "camera_id", cameraID, "at", at.Format(time.RFC3339), "bytes", len(body))
	return body, nil
}

// transportError classifies request-level failures: timeouts are
// transient no-data signals, everything else at the transport layer is
// unreachable-network class and therefore fatal.
func (c *HTTPClient) transportError(cameraID string, at time.Time, err error) *ExportError {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return &ExportError{Class: ClassNoData, CameraID: cameraID, At: at, Message: "archive timeout", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ExportError{Class: ClassNoData, CameraID: cameraID, At: at, Message: "archive timeout", Err: err}
	}
	return &ExportError{Class: ClassFatal, CameraID: cameraID, At: at, Message: "archive unreachable", Err: err}
}

// statusError classifies non-200 responses
func (c *HTTPClient) statusError(cameraID string, at time.Time, resp *http.Response) *ExportError {
	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))

	e := &ExportError{
		CameraID: cameraID,
		At:       at,
		Message:  fmt.Sprintf("archive returned %d: %s", resp.StatusCode, snippet),
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		e.Class = ClassFatal
	case http.StatusNotFound:
		e.Class = ClassNotFound
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		e.Class = ClassNoData
	default:
		e.Class = ClassUnclassified
	}

	return e
}
