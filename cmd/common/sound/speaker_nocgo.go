//go:build !((linux && cgo) || windows || darwin)

package sound

// AudioAvailable indicates whether audio playback is supported in this build.
// Audio requires CGO for native sound libraries.
const AudioAvailable = false

// Default swallows audio in builds without cgo. Playback state still
// advances as far as callers can tell, nothing is heard.
var Default Speaker = &Discard{}
