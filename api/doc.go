// Package api provides the HTTP REST API for Trapped.
//
// Endpoints:
//
// Sessions:
//   - POST /api/sessions - Create a session, body {"level_id": "..."} (optional)
//   - GET /api/sessions - List sessions (?sort=accessed|created&order=desc|asc&limit=N)
//   - GET /api/sessions/{id} - Session details
//   - DELETE /api/sessions/{id} - Delete a session
//
// Gameplay:
//   - GET /api/sessions/{id}/state - Current game state
//   - GET /api/sessions/{id}/render - Text rendering (?format=json wraps it)
//   - POST /api/sessions/{id}/move - {"direction": "up", "reset": false}
//   - POST /api/sessions/{id}/bulk-move - {"moves": ["up","right"], "reset": false}
//   - POST /api/sessions/{id}/undo - {"scope": "turn"|"change"}, turn is the default
//   - POST /api/sessions/{id}/reset - Restore the initial level
//   - GET /api/sessions/{id}/history - Journal page (?page=1&limit=20&order=desc)
//
// Levels:
//   - GET /api/levels - List level files
//   - GET /api/levels/{name} - Level definition
//   - PUT /api/levels/{name} - Validate and save a level
//
// Updates:
//   - GET /api/ws?session={id} or /api/sessions/{id}/ws - WebSocket subscription,
//     add format=msgpack for binary frames
//
// Errors are returned as {"error": "..."}. Unknown sessions and levels map to
// 404, malformed input to 400, and conflicts such as an empty undo stack to 409.
package api
