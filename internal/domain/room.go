package domain

// RoomID is the consultation id the two matched participants share.
// Rooms are created lazily on first join and released when the last
// member leaves.
type RoomID string
