// Package mcp exposes Trapped to AI agents over the Model Context Protocol.
//
// The Client is a thin proxy: every tool call becomes a request against the
// REST API of a running server, and the JSON answer is formatted as text.
//
// Tools:
//   - create_session, list_sessions, get_session
//   - game_state: status lines plus the rendered level
//   - move, bulk_move: one or several moves, with an optional reset first
//   - undo: whole turn by default, scope=change for a single change
//   - reset_game, move_history
//   - list_levels, game_instructions
//   - describe_cell: entities and walls of one cell
//
// Usage:
//
//	client := mcp.NewClient("http://localhost:8080")
//	server.ServeStdio(client.GetMCPServer())
package mcp
