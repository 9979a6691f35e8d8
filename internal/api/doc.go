// Package api provides the HTTP REST API and WebSocket server for userdir.
//
// It exposes user record CRUD, pagination and search endpoints, and a
// WebSocket endpoint where clients subscribe to the "users" channel for
// change notifications.
//
// The server follows the same lifecycle pattern as the infrastructure
// components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
//
// Thread Safety: All methods are safe for concurrent use from multiple goroutines.
package api
