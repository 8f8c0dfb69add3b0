package main

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/wolfman30/cloudgreet-receptionist/pkg/logging"
)

// forwardedPaths are the webhook routes the proxy relays to the API.
var forwardedPaths = map[string]bool{
	"/webhooks/retell/voice":    true,
	"/api/retell/voice-webhook": true,
}

// preservedHeaders must reach the API unchanged for signature checks and tracing.
var preservedHeaders = []string{"x-retell-signature", "x-request-id", "user-agent"}

const maxUpstreamResponse = 1 << 20

type config struct {
	upstreamBaseURL string
	upstreamTimeout time.Duration
}

func loadConfig() (config, error) {
	baseURL := strings.TrimSpace(os.Getenv("UPSTREAM_BASE_URL"))
	if baseURL == "" {
		return config{}, errors.New("UPSTREAM_BASE_URL is required")
	}

	// The voice agent waits on tool results mid-call, so keep this short.
	timeout := 8 * time.Second
	if raw := strings.TrimSpace(os.Getenv("UPSTREAM_TIMEOUT")); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return config{}, fmt.Errorf("invalid UPSTREAM_TIMEOUT: %w", err)
		}
		timeout = parsed
	}

	return config{
		upstreamBaseURL: strings.TrimRight(baseURL, "/"),
		upstreamTimeout: timeout,
	}, nil
}

type proxy struct {
	cfg    config
	client *http.Client
	logger *logging.Logger
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		panic(err)
	}

	p := &proxy{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.upstreamTimeout},
		logger: logging.New(os.Getenv("LOG_LEVEL")),
	}
	lambda.Start(p.handle)
}

func (p *proxy) handle(ctx context.Context, evt events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	method := strings.ToUpper(strings.TrimSpace(evt.RequestContext.HTTP.Method))
	path := strings.TrimSpace(evt.RawPath)
	if path == "" {
		path = strings.TrimSpace(evt.RequestContext.HTTP.Path)
	}

	if path == "/health" || path == "/_health" {
		return jsonResponse(http.StatusOK, `{"status":"ok"}`), nil
	}
	if !forwardedPaths[path] {
		return jsonResponse(http.StatusNotFound, `{"success":false,"error":"not found"}`), nil
	}
	if method != http.MethodPost {
		return jsonResponse(http.StatusMethodNotAllowed, `{"success":false,"error":"method not allowed"}`), nil
	}

	body, err := decodeBody(evt)
	if err != nil {
		return jsonResponse(http.StatusBadRequest, `{"success":false,"error":"invalid body"}`), nil
	}

	upstreamURL := p.cfg.upstreamBaseURL + path
	if qs := strings.TrimSpace(evt.RawQueryString); qs != "" {
		upstreamURL += "?" + qs
	}

	reqCtx, cancel := context.WithTimeout(ctx, p.cfg.upstreamTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, upstreamURL, bytes.NewReader(body))
	if err != nil {
		p.logger.Error("voice proxy: build upstream request", "error", err)
		return jsonResponse(http.StatusInternalServerError, `{"success":false,"error":"internal error"}`), nil
	}

	contentType := headerValue(evt.Headers, "content-type")
	if contentType == "" {
		contentType = "application/json"
	}
	req.Header.Set("Content-Type", contentType)
	for _, h := range preservedHeaders {
		copyHeader(req.Header, evt.Headers, h)
	}
	if host := strings.TrimSpace(evt.RequestContext.DomainName); host != "" {
		req.Header.Set("X-Forwarded-Host", host)
	}
	if ip := strings.TrimSpace(evt.RequestContext.HTTP.SourceIP); ip != "" {
		req.Header.Set("X-Real-Ip", ip)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Error("voice proxy: upstream call failed", "path", path, "error", err)
		return jsonResponse(http.StatusBadGateway, `{"success":false,"error":"upstream error"}`), nil
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamResponse))
	out := events.APIGatewayV2HTTPResponse{
		StatusCode: resp.StatusCode,
		Body:       string(respBody),
		Headers:    map[string]string{},
	}
	if ct := resp.Header.Get("Content-Type"); ct != "" {
		out.Headers["content-type"] = ct
	}
	p.logger.Info("voice proxy: forwarded", "path", path, "status", resp.StatusCode)
	return out, nil
}

func jsonResponse(status int, body string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Body:       body,
		Headers:    map[string]string{"content-type": "application/json"},
	}
}

func decodeBody(evt events.APIGatewayV2HTTPRequest) ([]byte, error) {
	if !evt.IsBase64Encoded {
		return []byte(evt.Body), nil
	}
	return base64.StdEncoding.DecodeString(evt.Body)
}

func headerValue(headers map[string]string, key string) string {
	for k, v := range headers {
		if strings.EqualFold(k, key) {
			return v
		}
	}
	return ""
}

func copyHeader(dst http.Header, src map[string]string, header string) {
	if value := strings.TrimSpace(headerValue(src, header)); value != "" {
		dst.Set(header, value)
	}
}
