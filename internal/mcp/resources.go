package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/phdlabs/admind/internal/service"
)

// Resource URIs.
const (
	functionsURI = "admind://functions"
	domainsURI   = "admind://assessment/domains"
	optionsURI   = "admind://policy/options"
)

// registerResources registers the static catalogues agents need to make sense
// of tool arguments.
func (s *MCPServer) registerResources(srv *server.MCPServer) {
	srv.AddResource(
		mcp.NewResource(
			functionsURI,
			"Functions",
			mcp.WithResourceDescription("Permission scopes privileges are granted on."),
			mcp.WithMIMEType("application/json"),
		),
		s.handleFunctionsResource,
	)

	srv.AddResource(
		mcp.NewResource(
			domainsURI,
			"Assessment domains",
			mcp.WithResourceDescription("The readiness assessment domains and their questions."),
			mcp.WithMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return jsonResource(domainsURI, service.Domains())
		},
	)

	srv.AddResource(
		mcp.NewResource(
			optionsURI,
			"Policy generator options",
			mcp.WithResourceDescription("Accepted sectors, organisation sizes, risk appetites and timelines."),
			mcp.WithMIMEType("application/json"),
		),
		func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
			return jsonResource(optionsURI, service.Options())
		},
	)
}

func (s *MCPServer) handleFunctionsResource(
	ctx context.Context,
	request mcp.ReadResourceRequest,
) ([]mcp.ResourceContents, error) {

	fns, err := s.store.ListFunctions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list functions: %w", err)
	}
	return jsonResource(functionsURI, fns)
}

func jsonResource(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal %s: %w", uri, err)
	}
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "application/json",
			Text:     string(b),
		},
	}, nil
}
