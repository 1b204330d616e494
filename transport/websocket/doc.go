// Package websocket pushes live session updates to browsers and tools.
//
// A central Hub owns every connection. Clients subscribe to one session with
// /api/sessions/{id}/ws and receive a Message for every gameplay event and a
// state_update Message carrying the full GameState after each mutation.
//
// Frames are JSON text by default. Connecting with ?format=msgpack switches
// the client to binary msgpack frames with the same field names.
//
// Usage:
//
//	hub := websocket.NewHub()
//	go hub.Run(ctx)
//
//	gameService := service.NewGameService(sessions, levels, service.WithBroadcaster(hub))
//	router.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
//		hub.ServeWS(w, r, r.URL.Query().Get("session"))
//	})
//
// Only the Run goroutine touches the client sets; Broadcast calls enqueue and
// never block, dropping messages when the queue is full.
package websocket
