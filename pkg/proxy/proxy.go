// Copyright © 2025 Prabhjot Singh Sethi, All Rights reserved
// Author: Prabhjot Singh Sethi <prabhjot.sethi@gmail.com>

package proxy

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/go-core-stack/mcp-sse-translator/pkg/config"
	"github.com/go-core-stack/mcp-sse-translator/pkg/jsonrpc"
)

// maxRequestBody caps inbound JSON bodies, mirroring the common 100kb limit of
// JSON body parsers.
const maxRequestBody = 100 * 1024

const (
	healthStatus  = "MCP Translator is running"
	healthMessage = "Use POST /mcp to interact with MCP server"
)

// Proxy accepts REST style JSON-RPC calls, replays them against the upstream
// MCP server as event-stream requests and answers with a single JSON document.
type Proxy struct {
	// cfg keeps runtime knobs such as the upstream URL and timeouts.
	cfg config.Config
	// client performs outbound HTTP requests with tuned transport settings.
	client *http.Client
	// logger emits structured logs for observability.
	logger zerolog.Logger
	// upstream is the parsed address every translated call is posted to.
	upstream *url.URL
	// handler is the routed handler chain served by ServeHTTP.
	handler http.Handler
}

// New constructs a Proxy backed by an http.Client configured with sensible
// connection pooling defaults and the provided runtime configuration.
func New(cfg config.Config) (http.Handler, error) {
	if cfg.Upstream == nil {
		return nil, errors.New("upstream URL is required")
	}

	// Build a transport that honours system proxies and keeps connections warm.
	transport := &http.Transport{
		Proxy:                 http.ProxyFromEnvironment,
		DialContext:           (&net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second}).DialContext,
		ForceAttemptHTTP2:     true,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify, // nolint:gosec -- opt-in for development scenarios
		},
	}

	// A zero timeout lets a slow event stream run until the upstream closes it.
	client := &http.Client{
		Timeout:   cfg.RequestTimeout,
		Transport: transport,
	}

	upstream := *cfg.Upstream
	p := &Proxy{
		cfg:      cfg,
		client:   client,
		logger:   log.With().Str("component", "proxy").Logger(),
		upstream: &upstream,
	}
	p.handler = p.routes()

	return p, nil
}

// ServeHTTP dispatches to the routed handler chain.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	p.handler.ServeHTTP(w, r)
}

// routes wires the endpoints and wraps them with the middleware every
// response needs, including 404 and 405 answers.
func (p *Proxy) routes() http.Handler {
	router := mux.NewRouter()
	router.HandleFunc("/", p.handleHealth).Methods(http.MethodGet, http.MethodHead)
	router.HandleFunc("/mcp", p.handleTranslate).Methods(http.MethodPost)
	router.HandleFunc("/mcp", p.handleToolDiscovery).Methods(http.MethodGet)
	router.NotFoundHandler = http.HandlerFunc(handleNotFound)
	router.MethodNotAllowedHandler = http.HandlerFunc(handleMethodNotAllowed)

	var h http.Handler = router
	h = accessLog(h)
	h = cors(h)
	h = requestContext(p.logger, h)
	return h
}

func (p *Proxy) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{
		"status":  healthStatus,
		"message": healthMessage,
	})
}

// handleTranslate forwards the posted JSON body to the upstream.
func (p *Proxy) handleTranslate(w http.ResponseWriter, r *http.Request) {
	body, err := readJSONBody(w, r)
	if err != nil {
		status := http.StatusBadRequest
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		zerolog.Ctx(r.Context()).Warn().Err(err).Msg("rejecting request body")
		writeJSON(w, r, status, errorPayload{
			Error:   "Invalid JSON body",
			Details: err.Error(),
		})
		return
	}

	p.translateAndRespond(w, r, body)
}

// handleToolDiscovery issues a tools/list call on behalf of GET clients.
func (p *Proxy) handleToolDiscovery(w http.ResponseWriter, r *http.Request) {
	body, err := json.Marshal(jsonrpc.ToolsListRequest())
	if err != nil {
		writeTranslationFailure(w, r, fmt.Errorf("encode tool discovery request: %w", err))
		return
	}

	p.translateAndRespond(w, r, body)
}

// translateAndRespond is shared by the POST and GET /mcp handlers.
func (p *Proxy) translateAndRespond(w http.ResponseWriter, r *http.Request, body []byte) {
	event := zerolog.Ctx(r.Context())
	summary := jsonrpc.Summarize(body)
	event.Debug().
		Str("rpc_method", summary.Method).
		Str("rpc_id", summary.ID).
		RawJSON("request", body).
		Msg("received request")

	result, err := p.Translate(r.Context(), body)
	if err != nil {
		event.Error().
			Err(err).
			Str("rpc_method", summary.Method).
			Msg("translation failed")
		writeTranslationFailure(w, r, err)
		return
	}

	writeRawJSON(w, r, http.StatusOK, result)
}

// readJSONBody returns the request body compacted, treating an empty body as
// an empty object.
func readJSONBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBody))
	if err != nil {
		return nil, fmt.Errorf("read request body: %w", err)
	}
	defer func() {
		if err := r.Body.Close(); err != nil {
			zerolog.Ctx(r.Context()).Error().
				Err(err).
				Msg("close request body failed")
		}
	}()

	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return []byte(`{}`), nil
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, raw); err != nil {
		return nil, fmt.Errorf("parse request body: %w", err)
	}
	return compact.Bytes(), nil
}
