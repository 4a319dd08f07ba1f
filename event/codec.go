package event

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

// ErrMalformed marks a frame that is missing keys its kind requires. Such
// frames are dropped, never answered.
var ErrMalformed = errors.New("malformed frame")

type Frame struct {
	Type    Kind            `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// Encode builds the text frame for payload.
func Encode(kind Kind, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode %s payload", kind)
	}
	return json.Marshal(Frame{Type: kind, Payload: raw})
}

// EncodeEdit builds the frame a client publishes e with. Forwarded edits go
// out through Encode and carry no projectId.
func EncodeEdit(projectID string, e Edit) ([]byte, error) {
	raw, err := json.Marshal(e)
	if err != nil {
		return nil, errors.Wrapf(err, "could not encode %s payload", e.Kind())
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, errors.Wrap(err, "could not re-read payload")
	}
	fields["projectId"], _ = json.Marshal(projectID)
	return Encode(e.Kind(), fields)
}

func malformed(kind Kind, reason string) error {
	return errors.Wrapf(ErrMalformed, "%s: %s", kind, reason)
}

func present(s *string) bool {
	return s != nil && strings.TrimSpace(*s) != ""
}

type noteAddedWire struct {
	TrackID *string     `json:"trackId"`
	Note    *model.Note `json:"note"`
}

type noteUpdatedWire struct {
	TrackID *string           `json:"trackId"`
	NoteID  *string           `json:"noteId"`
	Note    *model.NoteUpdate `json:"note"`
}

type noteDeletedWire struct {
	TrackID *string `json:"trackId"`
	NoteID  *string `json:"noteId"`
}

type trackAddedWire struct {
	Track *model.Track `json:"track"`
}

type trackUpdatedWire struct {
	TrackID *string            `json:"trackId"`
	Updates *model.TrackUpdate `json:"updates"`
}

type trackDeletedWire struct {
	TrackID *string `json:"trackId"`
}

type playbackWire struct {
	IsPlaying   *bool    `json:"isPlaying"`
	CurrentTime *float64 `json:"currentTime"`
}

type settingsWire struct {
	Settings *model.Settings `json:"settings"`
}

// DecodeEdit checks payload against the keys kind requires and returns the
// edit. Any Origin keys in payload are carried over.
func DecodeEdit(kind Kind, payload json.RawMessage) (Edit, error) {
	if len(payload) == 0 {
		return nil, malformed(kind, "empty payload")
	}
	var origin Origin
	if err := json.Unmarshal(payload, &origin); err != nil {
		return nil, malformed(kind, err.Error())
	}

	var edit Edit
	switch kind {
	case NoteAdded:
		var w noteAddedWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, malformed(kind, err.Error())
		}
		if !present(w.TrackID) || w.Note == nil || strings.TrimSpace(w.Note.ID) == "" {
			return nil, malformed(kind, "trackId and note.id are required")
		}
		edit = AddNote{TrackID: *w.TrackID, Note: *w.Note}
	case NoteUpdated:
		var w noteUpdatedWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, malformed(kind, err.Error())
		}
		if !present(w.TrackID) || !present(w.NoteID) || w.Note == nil {
			return nil, malformed(kind, "trackId, noteId and note are required")
		}
		edit = UpdateNote{TrackID: *w.TrackID, NoteID: *w.NoteID, Fields: *w.Note}
	case NoteDeleted:
		var w noteDeletedWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, malformed(kind, err.Error())
		}
		if !present(w.TrackID) || !present(w.NoteID) {
			return nil, malformed(kind, "trackId and noteId are required")
		}
		edit = DeleteNote{TrackID: *w.TrackID, NoteID: *w.NoteID}
	case TrackAdded:
		var w trackAddedWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, malformed(kind, err.Error())
		}
		if w.Track == nil || strings.TrimSpace(w.Track.ID) == "" {
			return nil, malformed(kind, "track.id is required")
		}
		edit = AddTrack{Track: *w.Track}
	case TrackUpdated:
		var w trackUpdatedWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, malformed(kind, err.Error())
		}
		if !present(w.TrackID) || w.Updates == nil {
			return nil, malformed(kind, "trackId and updates are required")
		}
		edit = UpdateTrack{TrackID: *w.TrackID, Updates: *w.Updates}
	case TrackDeleted:
		var w trackDeletedWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, malformed(kind, err.Error())
		}
		if !present(w.TrackID) {
			return nil, malformed(kind, "trackId is required")
		}
		edit = DeleteTrack{TrackID: *w.TrackID}
	case PlaybackState:
		var w playbackWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, malformed(kind, err.Error())
		}
		if w.IsPlaying == nil {
			return nil, malformed(kind, "isPlaying is required")
		}
		p := Playback{IsPlaying: *w.IsPlaying}
		if w.CurrentTime != nil {
			p.CurrentTime = *w.CurrentTime
		}
		edit = p
	case SettingsChanged:
		var w settingsWire
		if err := json.Unmarshal(payload, &w); err != nil {
			return nil, malformed(kind, err.Error())
		}
		if w.Settings == nil {
			return nil, malformed(kind, "settings are required")
		}
		edit = ChangeSettings{Settings: *w.Settings}
	default:
		return nil, malformed(kind, "unknown kind")
	}
	return Stamp(edit, origin), nil
}

// Request is a decoded client frame. Edit is nil for join and leave.
type Request struct {
	Kind      Kind
	ProjectID string
	Edit      Edit
}

// ParseRequest validates a frame sent by a client. Origin keys supplied by
// the client are discarded; only the relay stamps edits.
func ParseRequest(data []byte) (Request, error) {
	var frame Frame
	if err := json.Unmarshal(data, &frame); err != nil {
		return Request{}, errors.Wrap(ErrMalformed, err.Error())
	}
	var m Membership
	if len(frame.Payload) > 0 {
		if err := json.Unmarshal(frame.Payload, &m); err != nil {
			// a bare string payload names the project, as in join-project "p1"
			if err := json.Unmarshal(frame.Payload, &m.ProjectID); err != nil {
				return Request{}, malformed(frame.Type, "unreadable payload")
			}
		}
	}
	projectID := strings.TrimSpace(m.ProjectID)
	if projectID == "" {
		return Request{}, malformed(frame.Type, "projectId is required")
	}

	switch frame.Type {
	case JoinProject, LeaveProject:
		return Request{Kind: frame.Type, ProjectID: projectID}, nil
	}
	edit, err := DecodeEdit(frame.Type, frame.Payload)
	if err != nil {
		return Request{}, err
	}
	return Request{Kind: frame.Type, ProjectID: projectID, Edit: Stamp(edit, Origin{})}, nil
}
