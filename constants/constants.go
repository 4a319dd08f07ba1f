package constants

import "time"

// TicksPerBeat is the resolution of every exported stream. One beat is one
// quarter note.
const TicksPerBeat = 480

const DefaultBPM = 120
const MaxBPM = 300

const DefaultVelocity = 100
const MaxVelocity = 127
const MaxChannel = 15

// MinSavedDuration is the floor applied to non-positive durations when a
// track collection is flushed to the store.
const MinSavedDuration = 0.1

const DefaultVolume = 0.7
const DefaultInstrument = "piano"

// DefaultSaveDebounce is the quiet interval before a client flushes.
const DefaultSaveDebounce = time.Second

const DefaultSaveRetries = 3

// DefaultPeerQueueSize bounds the frames buffered for one websocket peer.
const DefaultPeerQueueSize = 256
