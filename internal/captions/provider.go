package captions

import (
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"video-transcripts-go/internal/logger"
)

// ErrNoCaptions means the platform has no caption track for the video (or
// the track is empty). Terminal for the fallback path.
var ErrNoCaptions = errors.New("no captions available")

// Provider fetches platform-native captions as a lower-latency text source.
// It is used only when the primary extraction/transcription pipeline fails.
type Provider struct {
	baseURL    string
	httpClient *http.Client
	log        *logrus.Entry
}

func NewProvider(baseURL string) *Provider {
	return &Provider{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 20 * time.Second},
		log:        logger.New().WithField("component", "captions"),
	}
}

// timedText is the caption track payload.
type timedText struct {
	Texts []struct {
		Body string `xml:",chardata"`
	} `xml:"text"`
}

// Fetch retrieves the caption track for videoID, concatenates its segments,
// and normalizes whitespace. The English track is preferred; when absent,
// the track-less request lets the platform pick the default.
func (p *Provider) Fetch(ctx context.Context, videoID string) (string, error) {
	log := p.log.WithField("video_id", videoID)
	for _, lang := range []string{"en", ""} {
		body, err := p.fetchTrack(ctx, videoID, lang)
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			log.WithFields(logrus.Fields{"lang": lang, "error": err.Error()}).Debug("caption track fetch failed")
			continue
		}
		text := parseTimedText(body)
		if text != "" {
			log.WithField("chars", len(text)).Info("captions fetched")
			return text, nil
		}
	}
	return "", ErrNoCaptions
}

func (p *Provider) fetchTrack(ctx context.Context, videoID, lang string) ([]byte, error) {
	q := url.Values{}
	q.Set("v", videoID)
	if lang != "" {
		q.Set("lang", lang)
	}
	endpoint := p.baseURL + "/api/timedtext?" + q.Encode()

	var body []byte
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 15 * time.Second
	op := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return backoff.Permanent(err)
		}
		resp, err := p.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 500 {
			return fmt.Errorf("caption server error: %d", resp.StatusCode)
		}
		if resp.StatusCode >= 300 {
			return backoff.Permanent(fmt.Errorf("caption http %d", resp.StatusCode))
		}
		body, err = io.ReadAll(resp.Body)
		return err
	}
	if err := backoff.Retry(op, backoff.WithContext(bo, ctx)); err != nil {
		return nil, err
	}
	return body, nil
}

// parseTimedText flattens the XML caption segments into one normalized line.
func parseTimedText(body []byte) string {
	var tt timedText
	if err := xml.Unmarshal(body, &tt); err != nil {
		return ""
	}
	parts := make([]string, 0, len(tt.Texts))
	for _, t := range tt.Texts {
		s := html.UnescapeString(strings.TrimSpace(t.Body))
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
}
