// Package db persists projects as whole documents. Every write replaces the
// stored document; there is no locking across writers and the last one wins.
package db

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"golang.org/x/exp/slices"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/constants"
	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

var (
	ErrNotFound = errors.New("project not found")
	// ErrUnavailable marks a transient failure. Callers may retry.
	ErrUnavailable = errors.New("store unavailable")
	ErrInvalid     = errors.New("invalid project")
)

// Backend stores project documents by id.
type Backend interface {
	Get(ctx context.Context, id string) (model.Project, error)
	Put(ctx context.Context, p model.Project) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context) ([]model.Project, error)
	Close() error
}

// Projects implements the project operations on top of a Backend.
type Projects struct {
	backend Backend
	now     func() time.Time
}

func New(b Backend) *Projects {
	return &Projects{backend: b, now: time.Now}
}

// List returns every project, most recently updated first.
func (s *Projects) List(ctx context.Context) ([]model.Project, error) {
	res, err := s.backend.List(ctx)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(res, func(a, b model.Project) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})
	return res, nil
}

func (s *Projects) Load(ctx context.Context, id string) (model.Project, error) {
	return s.backend.Get(ctx, id)
}

func (s *Projects) Create(ctx context.Context, req model.CreateProjectRequest) (model.Project, error) {
	if strings.TrimSpace(req.Name) == "" {
		return model.Project{}, errors.Wrap(ErrInvalid, "name is required")
	}
	now := s.now().UTC()
	p := model.Project{
		ID:            uuid.NewString(),
		Name:          req.Name,
		Description:   req.Description,
		Owner:         req.Owner,
		BPM:           req.BPM,
		TimeSignature: req.TimeSignature,
		Tracks:        []model.Track{},
		Revisions:     []model.Revision{},
		Version:       1,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if p.Owner == "" {
		p.Owner = "anonymous"
	}
	if p.BPM == 0 {
		p.BPM = constants.DefaultBPM
	}
	if p.TimeSignature == "" {
		p.TimeSignature = "4/4"
	}
	if err := s.backend.Put(ctx, p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// Update overwrites the fields present in req and bumps the version.
func (s *Projects) Update(ctx context.Context, id string, req model.UpdateProjectRequest) (model.Project, error) {
	p, err := s.backend.Get(ctx, id)
	if err != nil {
		return model.Project{}, err
	}
	if req.Tracks != nil {
		p.Tracks = assignIDs(*req.Tracks)
	}
	if req.BPM != nil {
		p.BPM = *req.BPM
	}
	if req.Name != nil {
		p.Name = *req.Name
	}
	if req.Description != nil {
		p.Description = *req.Description
	}
	if req.TimeSignature != nil {
		p.TimeSignature = *req.TimeSignature
	}
	p.Version++
	p.UpdatedAt = s.now().UTC()
	if err := s.backend.Put(ctx, p); err != nil {
		return model.Project{}, err
	}
	return p, nil
}

// Save replaces the tracks and tempo of a project.
func (s *Projects) Save(ctx context.Context, id string, tracks []model.Track, bpm int) error {
	_, err := s.Update(ctx, id, model.UpdateProjectRequest{Tracks: &tracks, BPM: &bpm})
	return err
}

func (s *Projects) Delete(ctx context.Context, id string) error {
	return s.backend.Delete(ctx, id)
}

// AddRevision keeps a copy of the current tracks under the next revision
// number.
func (s *Projects) AddRevision(ctx context.Context, id, createdBy string) (model.Revision, error) {
	p, err := s.backend.Get(ctx, id)
	if err != nil {
		return model.Revision{}, err
	}
	if createdBy == "" {
		createdBy = "anonymous"
	}
	rev := model.Revision{
		Number:    len(p.Revisions) + 1,
		Tracks:    model.CloneTracks(p.Tracks),
		CreatedAt: s.now().UTC(),
		CreatedBy: createdBy,
	}
	p.Revisions = append(p.Revisions, rev)
	p.UpdatedAt = rev.CreatedAt
	if err := s.backend.Put(ctx, p); err != nil {
		return model.Revision{}, err
	}
	return rev, nil
}

func (s *Projects) Revisions(ctx context.Context, id string) ([]model.Revision, error) {
	p, err := s.backend.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Revisions == nil {
		return []model.Revision{}, nil
	}
	return p.Revisions, nil
}

func (s *Projects) Close() error {
	return s.backend.Close()
}

// assignIDs gives tracks and notes that arrive without an id a fresh one.
func assignIDs(tracks []model.Track) []model.Track {
	res := model.CloneTracks(tracks)
	if res == nil {
		return []model.Track{}
	}
	for i := range res {
		if res[i].ID == "" {
			res[i].ID = uuid.NewString()
		}
		for j := range res[i].Notes {
			if res[i].Notes[j].ID == "" {
				res[i].Notes[j].ID = uuid.NewString()
			}
		}
	}
	return res
}
