// Package rack implements the port table and the assignment engine.
//
// Owns:
//   - The fixed set of ports and their occupancy / door state
//   - The assign / release / door / unlock transitions
//   - The derived door status (DeriveStatus is the only place it is computed)
//
// Does not own:
//   - Debouncing of raw hardware samples (package tracker)
//   - Delivery of notifications to subscribers (package broadcast)
//
// Invariants:
//   - A card id is held by at most one port at any instant
//   - Every mutation and every snapshot happens under Engine.mu
//   - Notifications reach the Sink in mutation order, while Engine.mu is held
package rack
