// Package config holds the fixed relay and vault constants. These are build-time
// constants rather than flags: the client talks to exactly one relay and one room.
package config

import "os"

const (
	// RelayURL is the websocket endpoint of the message relay.
	RelayURL = "wss://socket.chasqui.se"

	// RelayPath is the request path on the relay (empty = root).
	RelayPath = ""

	// RoomEvent is the single room/topic name shared by all participants.
	RoomEvent = "test"

	// BlipAsset and BlipVolume describe the notification sound handed to the
	// external playback collaborator.
	BlipAsset  = "blip.wav"
	BlipVolume = 0.8
)

// defaultVaultKey is the fallback obfuscation passphrase. It ships in the
// binary and is NOT secret; it only defends stored credentials against casual
// inspection. Override with CHASQUI_VAULT_KEY.
const defaultVaultKey = "dev-local-only-secret"

// VaultKey returns the vault passphrase, preferring the environment override.
func VaultKey() string {
	if v := os.Getenv("CHASQUI_VAULT_KEY"); v != "" {
		return v
	}
	return defaultVaultKey
}
