// Package service provides the business logic layer for Trapped.
//
// The service package implements:
//   - Multi-session game management
//   - Move processing, bulk moves and undo
//   - Journal history with pagination
//   - Level listing, loading and saving
//
// Core Interfaces:
//
// GameService is the main service interface providing high-level game operations.
// SessionManager handles session creation, retrieval and persistence.
// ConfigManager loads and stores levels.
// Broadcaster receives a GameEvent and a fresh GameState after every mutation.
//
// Architecture:
//
// The service layer sits between the transports (HTTP, WebSocket, MCP) and the
// engine. An engine is single-threaded, so every operation holds the session
// lock while driving it. Mutations are persisted through SessionManager.Save;
// a failed save is logged and does not fail the request.
//
// Usage:
//
//	sessionMgr := session.NewManager()
//	levelMgr, _ := config.NewManager("levels")
//	gameService := service.NewGameService(sessionMgr, levelMgr, service.WithBroadcaster(hub))
//
//	info, err := gameService.CreateSession(ctx, "default")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	result, err := gameService.Move(ctx, info.ID, "up", false)
package service
