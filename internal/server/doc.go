// Package server implements the rack's HTTP and WebSocket surface.
//
// Owns:
//   - HTTP routing, handlers, and request/response contracts
//   - Login and the signed auth_data cookie (RequireAuth)
//   - WebSocket subscribers and their write pumps
//
// Does not own:
//   - Port assignment rules (rack.Engine)
//   - Delivery order and the subscriber registry (broadcast.Broadcaster)
//   - Journal storage (journal.Journal)
//
// Invariants:
//   - JSON responses go through writeJSON
//   - When auth_data is configured, /api/* and /ws require RequireAuth
//   - Handlers never block on hardware; a subscriber's Send never blocks the broadcaster
package server
