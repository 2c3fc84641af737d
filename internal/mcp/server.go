// Package mcp exposes the insight engine as Model Context Protocol tools over stdio.
package mcp

import (
	"context"
	"encoding/json"

	sdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"smartbiz-ml/internal/config"
	"smartbiz-ml/internal/engine"
	"smartbiz-ml/internal/sources"
)

const (
	serverName    = "smartbiz-ml"
	serverVersion = "0.1.0"
)

// Server holds the state for the MCP server.
type Server struct {
	engine *engine.Engine
	store  *sources.Store
	cfg    *config.AppConfig
	sdk    *sdk.Server
}

// NewServer creates a new MCP server with every tool registered. store is the
// snapshot the engine's collaborators read from and train_models trains on.
func NewServer(e *engine.Engine, store *sources.Store, cfg *config.AppConfig) *Server {
	if cfg == nil {
		cfg = &config.AppConfig{}
	}
	s := &Server{
		engine: e,
		store:  store,
		cfg:    cfg,
		sdk:    sdk.NewServer(&sdk.Implementation{Name: serverName, Version: serverVersion}, nil),
	}
	s.registerTools()
	return s
}

// Serve runs the tool server over stdin/stdout until ctx ends or the client disconnects.
func (s *Server) Serve(ctx context.Context) error {
	log.Info().Str("version", serverVersion).Msg("MCP server listening on stdio")
	return s.sdk.Run(ctx, &sdk.StdioTransport{})
}

// Response is the envelope of every tool result.
type Response struct {
	Data     interface{} `json:"data"`
	Chart    string      `json:"chart,omitempty"`
	Warnings []string    `json:"warnings,omitempty"`
}

// wrapResponse drops the chart unless Mermaid charts are enabled.
func (s *Server) wrapResponse(data interface{}, chart string, warnings ...string) Response {
	if !s.cfg.EnableMermaidCharts {
		chart = ""
	}
	return Response{Data: data, Chart: chart, Warnings: warnings}
}

func formatResult(data interface{}) string {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		log.Error().Err(err).Msg("Failed to encode tool result")
		return "{}"
	}
	return string(out)
}
