package model

type CreateProjectRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	Owner         string `json:"owner"`
	BPM           int    `json:"bpm"`
	TimeSignature string `json:"timeSignature"`
}

// UpdateProjectRequest overwrites whichever fields are present.
type UpdateProjectRequest struct {
	Tracks        *[]Track `json:"tracks,omitempty"`
	BPM           *int     `json:"bpm,omitempty"`
	Name          *string  `json:"name,omitempty"`
	Description   *string  `json:"description,omitempty"`
	TimeSignature *string  `json:"timeSignature,omitempty"`
}

type CreateRevisionRequest struct {
	CreatedBy string `json:"createdBy"`
}

type HarmonyRequest struct {
	Notes   []Note         `json:"notes"`
	Context map[string]any `json:"context"`
	Style   string         `json:"style"`
}

type ChordsRequest struct {
	CurrentChords []string `json:"currentChords"`
	Key           string   `json:"key"`
	Style         string   `json:"style"`
}

type MelodyRequest struct {
	Melody     []Note         `json:"melody"`
	Context    map[string]any `json:"context"`
	Variations int            `json:"variations"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Rooms     int    `json:"rooms"`
}

type ErrorResponse struct {
	Error string `json:"error"`
}
