// Package event defines the frames exchanged over a collaboration websocket
// and the closed set of edits the relay forwards between peers.
package event

import (
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

type Kind string

// Relayed edit kinds.
const (
	NoteAdded       Kind = "note-added"
	NoteUpdated     Kind = "note-updated"
	NoteDeleted     Kind = "note-deleted"
	TrackAdded      Kind = "track-added"
	TrackUpdated    Kind = "track-updated"
	TrackDeleted    Kind = "track-deleted"
	PlaybackState   Kind = "playback-state"
	SettingsChanged Kind = "project-settings-changed"
)

// Membership requests and server notifications.
const (
	JoinProject  Kind = "join-project"
	LeaveProject Kind = "leave-project"
	RoomUpdate   Kind = "room-update"
	UserJoined   Kind = "user-joined"
	UserLeft     Kind = "user-left"
	Hello        Kind = "hello"
)

// EditKinds lists every kind that decodes to an Edit.
var EditKinds = []Kind{
	NoteAdded, NoteUpdated, NoteDeleted,
	TrackAdded, TrackUpdated, TrackDeleted,
	PlaybackState, SettingsChanged,
}

// Origin is stamped by the relay on every forwarded edit.
type Origin struct {
	UserID    string `json:"userId,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
}

func (o Origin) Source() Origin { return o }

// Edit is one of the eight relayed kinds. The set is closed: only the types
// in this package implement it.
type Edit interface {
	Kind() Kind
	Source() Origin
	withOrigin(Origin) Edit
}

// Stamp returns e tagged with the originating session and server time.
func Stamp(e Edit, o Origin) Edit {
	return e.withOrigin(o)
}

type AddNote struct {
	TrackID string     `json:"trackId"`
	Note    model.Note `json:"note"`
	Origin
}

type UpdateNote struct {
	TrackID string           `json:"trackId"`
	NoteID  string           `json:"noteId"`
	Fields  model.NoteUpdate `json:"note"`
	Origin
}

type DeleteNote struct {
	TrackID string `json:"trackId"`
	NoteID  string `json:"noteId"`
	Origin
}

type AddTrack struct {
	Track model.Track `json:"track"`
	Origin
}

type UpdateTrack struct {
	TrackID string            `json:"trackId"`
	Updates model.TrackUpdate `json:"updates"`
	Origin
}

type DeleteTrack struct {
	TrackID string `json:"trackId"`
	Origin
}

type Playback struct {
	IsPlaying   bool    `json:"isPlaying"`
	CurrentTime float64 `json:"currentTime"`
	Origin
}

type ChangeSettings struct {
	Settings model.Settings `json:"settings"`
	Origin
}

func (AddNote) Kind() Kind        { return NoteAdded }
func (UpdateNote) Kind() Kind     { return NoteUpdated }
func (DeleteNote) Kind() Kind     { return NoteDeleted }
func (AddTrack) Kind() Kind       { return TrackAdded }
func (UpdateTrack) Kind() Kind    { return TrackUpdated }
func (DeleteTrack) Kind() Kind    { return TrackDeleted }
func (Playback) Kind() Kind       { return PlaybackState }
func (ChangeSettings) Kind() Kind { return SettingsChanged }

func (e AddNote) withOrigin(o Origin) Edit        { e.Origin = o; return e }
func (e UpdateNote) withOrigin(o Origin) Edit     { e.Origin = o; return e }
func (e DeleteNote) withOrigin(o Origin) Edit     { e.Origin = o; return e }
func (e AddTrack) withOrigin(o Origin) Edit       { e.Origin = o; return e }
func (e UpdateTrack) withOrigin(o Origin) Edit    { e.Origin = o; return e }
func (e DeleteTrack) withOrigin(o Origin) Edit    { e.Origin = o; return e }
func (e Playback) withOrigin(o Origin) Edit       { e.Origin = o; return e }
func (e ChangeSettings) withOrigin(o Origin) Edit { e.Origin = o; return e }

type RoomCount struct {
	UserCount int `json:"userCount"`
}

// Presence announces a session entering or leaving a room.
type Presence struct {
	UserID    string `json:"userId"`
	Timestamp string `json:"timestamp"`
}

type Greeting struct {
	UserID string `json:"userId"`
}

type Membership struct {
	ProjectID string `json:"projectId"`
}
