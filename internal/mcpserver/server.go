// Package mcpserver exposes the task list to MCP clients over stdio.
// Tools call the same state store the CLI and TUI use, so every change is
// persisted and synced exactly like a keyboard edit.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Makepad-fr/tarefas/internal/model"
	"github.com/Makepad-fr/tarefas/internal/state"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// TaskStore is the subset of state.Store the tools need.
type TaskStore interface {
	Tasks() []model.Task
	Add(title string) (model.Task, *state.Effects)
	Edit(id int64, title string) (bool, *state.Effects)
	Delete(id int64) (bool, *state.Effects)
}

// Server wraps the store as an MCP server.
type Server struct {
	store     TaskStore
	mcpServer *server.MCPServer
}

// New registers the task tools; version is reported to clients.
func New(store TaskStore, version string) *Server {
	s := &Server{
		store: store,
		mcpServer: server.NewMCPServer("tarefas", version,
			server.WithToolCapabilities(true),
			server.WithRecovery(),
		),
	}
	s.registerTools()
	return s
}

// ServeStdio blocks serving on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool("list_tasks",
		mcp.WithDescription("List all tasks in order. Returns a JSON array of {id, titulo}."),
	), s.handleList)

	s.mcpServer.AddTool(mcp.NewTool("add_task",
		mcp.WithDescription("Add a task to the end of the list."),
		mcp.WithString("title", mcp.Required(), mcp.Description("Task title")),
	), s.handleAdd)

	s.mcpServer.AddTool(mcp.NewTool("edit_task",
		mcp.WithDescription("Replace the title of an existing task."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
		mcp.WithString("title", mcp.Required(), mcp.Description("New title")),
	), s.handleEdit)

	s.mcpServer.AddTool(mcp.NewTool("delete_task",
		mcp.WithDescription("Delete a task by id."),
		mcp.WithNumber("id", mcp.Required(), mcp.Description("Task id")),
	), s.handleDelete)
}

func (s *Server) handleList(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	b, err := json.Marshal(s.store.Tasks())
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("encode tasks: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

func (s *Server) handleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	title, ok := req.GetArguments()["title"].(string)
	if !ok {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	task, _ := s.store.Add(title)
	return mcp.NewToolResultText(fmt.Sprintf("Added task %d", task.ID)), nil
}

func (s *Server) handleEdit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := idArg(req)
	if !ok {
		return mcp.NewToolResultError("'id' must be an integer task id"), nil
	}
	title, ok := req.GetArguments()["title"].(string)
	if !ok {
		return mcp.NewToolResultError("'title' is required"), nil
	}
	if found, _ := s.store.Edit(id, title); !found {
		return mcp.NewToolResultError(fmt.Sprintf("task %d not found", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %d updated", id)), nil
}

func (s *Server) handleDelete(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, ok := idArg(req)
	if !ok {
		return mcp.NewToolResultError("'id' must be an integer task id"), nil
	}
	if found, _ := s.store.Delete(id); !found {
		return mcp.NewToolResultError(fmt.Sprintf("task %d not found", id)), nil
	}
	return mcp.NewToolResultText(fmt.Sprintf("Task %d deleted", id)), nil
}

// idArg reads a numeric id; JSON numbers arrive as float64. Fractional
// values are rejected rather than truncated onto another task.
func idArg(req mcp.CallToolRequest) (int64, bool) {
	v, ok := req.GetArguments()["id"].(float64)
	if !ok || v != math.Trunc(v) || math.Abs(v) > maxSafeInt {
		return 0, false
	}
	return int64(v), true
}

// maxSafeInt is the largest integer a float64 holds exactly.
const maxSafeInt = 1<<53 - 1
