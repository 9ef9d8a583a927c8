// Package tool packages the introspection operations as agent-dispatchable
// tools: named, described, JSON-schema'd callables returning JSON payloads.
//
// This is the integration contract consumed by the external dispatch
// framework. Handlers never surface store failures as Go errors; every
// failure is rendered into the payload so the dispatcher handles all four
// tools uniformly. Only malformed argument JSON produces a Go error.
package tool

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"sheetsql/internal/inspect"
)

// Tool is one dispatchable operation: its LLM-facing schema plus the handler
// invoked with JSON-encoded arguments.
type Tool struct {
	// Name is the tool's dispatch name.
	Name string
	// Description tells the dispatching agent what the tool does.
	Description string
	// InputSchema is the JSON Schema for the tool's arguments.
	InputSchema map[string]any
	// Handler executes the tool. The result is a JSON payload except for
	// get_view_definition, which returns plain SQL text (see below).
	Handler func(ctx context.Context, args string) (string, error)
}

// errorPayload is the structured failure shape shared by three of the four
// tools.
type errorPayload struct {
	Error string `json:"error"`
}

// objectArgs are the arguments of the three object-scoped tools.
type objectArgs struct {
	ObjectName string `json:"object_name"`
}

// viewArgs are the arguments of get_view_definition.
type viewArgs struct {
	ViewName string `json:"view_name"`
}

func objectNameSchema(argName string) map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			argName: map[string]any{
				"type":        "string",
				"description": "Name of the database object.",
			},
		},
		"required": []string{argName},
	}
}

// notFoundMessage is the wire form of a failed catalog validation.
func notFoundMessage(kind, name string) string {
	return fmt.Sprintf("%s '%s' not found.", kind, name)
}

func marshal(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("tool: failed to marshal payload: %w", err)
	}
	return string(data), nil
}

// Tools returns the four introspection tools bound to the database at dbPath.
func Tools(dbPath string, log *slog.Logger) []Tool {
	svc := inspect.NewService(dbPath, log)
	return []Tool{
		listTablesAndViews(svc),
		getObjectColumns(svc),
		getObjectSummary(svc),
		getViewDefinition(svc),
	}
}

func listTablesAndViews(svc *inspect.Service) Tool {
	return Tool{
		Name:        "list_tables_and_views",
		Description: "Lists all tables and views in the database.",
		InputSchema: map[string]any{"type": "object", "properties": map[string]any{}},
		Handler: func(ctx context.Context, _ string) (string, error) {
			objects, err := svc.ListObjects(ctx)
			if err != nil {
				return marshal(errorPayload{Error: err.Error()})
			}
			return marshal(objects)
		},
	}
}

func getObjectColumns(svc *inspect.Service) Tool {
	return Tool{
		Name:        "get_object_columns",
		Description: "Gets column names and declared types for a table or view.",
		InputSchema: objectNameSchema("object_name"),
		Handler: func(ctx context.Context, args string) (string, error) {
			var in objectArgs
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("tool: invalid arguments for get_object_columns: %w", err)
			}

			columns, err := svc.DescribeColumns(ctx, in.ObjectName)
			if errors.Is(err, inspect.ErrObjectNotFound) {
				return marshal([]errorPayload{{Error: notFoundMessage("Object", in.ObjectName)}})
			}
			if err != nil {
				return marshal([]errorPayload{{Error: err.Error()}})
			}
			if columns == nil {
				columns = []inspect.ColumnDetail{}
			}
			return marshal(columns)
		},
	}
}

func getObjectSummary(svc *inspect.Service) Tool {
	return Tool{
		Name:        "get_object_summary",
		Description: "Gets the row count and up to 3 sample rows for a table or view.",
		InputSchema: objectNameSchema("object_name"),
		Handler: func(ctx context.Context, args string) (string, error) {
			var in objectArgs
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("tool: invalid arguments for get_object_summary: %w", err)
			}

			summary, err := svc.Summarize(ctx, in.ObjectName)
			if errors.Is(err, inspect.ErrObjectNotFound) {
				return marshal(errorPayload{Error: notFoundMessage("Object", in.ObjectName)})
			}
			if err != nil {
				return marshal(errorPayload{Error: err.Error()})
			}
			return marshal(summary)
		},
	}
}

// getViewDefinition keeps the historical contract of the view tool: the
// result is plain text, and a missing view yields the literal
// "View 'X' not found." string rather than a structured error payload.
func getViewDefinition(svc *inspect.Service) Tool {
	return Tool{
		Name:        "get_view_definition",
		Description: "Gets the CREATE VIEW statement for a view.",
		InputSchema: objectNameSchema("view_name"),
		Handler: func(ctx context.Context, args string) (string, error) {
			var in viewArgs
			if err := json.Unmarshal([]byte(args), &in); err != nil {
				return "", fmt.Errorf("tool: invalid arguments for get_view_definition: %w", err)
			}

			definition, err := svc.ViewDefinition(ctx, in.ViewName)
			if errors.Is(err, inspect.ErrViewNotFound) {
				return notFoundMessage("View", in.ViewName), nil
			}
			if err != nil {
				return err.Error(), nil
			}
			return definition, nil
		},
	}
}
