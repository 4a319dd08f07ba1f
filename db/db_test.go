package db

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/dynamodb"
	"github.com/aws/aws-sdk-go/service/dynamodb/dynamodbiface"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AbhiRohit459/Real-Time-Music-Collaboration-Platform/model"
)

type fakeDynamo struct {
	dynamodbiface.DynamoDBAPI

	mu    sync.Mutex
	items map[string]map[string]*dynamodb.AttributeValue
	fail  error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]*dynamodb.AttributeValue)}
}

func (f *fakeDynamo) GetItemWithContext(_ aws.Context, in *dynamodb.GetItemInput, _ ...request.Option) (*dynamodb.GetItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	return &dynamodb.GetItemOutput{Item: f.items[*in.Key[partitionKey].S]}, nil
}

func (f *fakeDynamo) PutItemWithContext(_ aws.Context, in *dynamodb.PutItemInput, _ ...request.Option) (*dynamodb.PutItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail != nil {
		return nil, f.fail
	}
	f.items[*in.Item[partitionKey].S] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItemWithContext(_ aws.Context, in *dynamodb.DeleteItemInput, _ ...request.Option) (*dynamodb.DeleteItemOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	id := *in.Key[partitionKey].S
	old := f.items[id]
	delete(f.items, id)
	return &dynamodb.DeleteItemOutput{Attributes: old}, nil
}

func (f *fakeDynamo) ScanPagesWithContext(_ aws.Context, _ *dynamodb.ScanInput, fn func(*dynamodb.ScanOutput, bool) bool, _ ...request.Option) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	var items []map[string]*dynamodb.AttributeValue
	for _, item := range f.items {
		items = append(items, item)
	}
	fn(&dynamodb.ScanOutput{Items: items}, true)
	return nil
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()
	lite, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = lite.Close()
	})
	return map[string]Backend{
		"memory": NewMemory(),
		"sqlite": lite,
		"dynamo": NewDynamo(newFakeDynamo(), "projects"),
	}
}

func TestProjectLifecycle(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			ctx := context.Background()
			store := New(b)

			_, err := store.Create(ctx, model.CreateProjectRequest{})
			assert.ErrorIs(err, ErrInvalid)

			p, err := store.Create(ctx, model.CreateProjectRequest{Name: "song"})
			require.NoError(t, err)
			assert.NotEmpty(p.ID)
			assert.Equal(120, p.BPM)
			assert.Equal("4/4", p.TimeSignature)
			assert.Equal("anonymous", p.Owner)
			assert.Equal(int64(1), p.Version)

			tracks := []model.Track{{Name: "lead", Notes: []model.Note{{Pitch: "C4", Velocity: 90, StartTime: 1, Duration: 0.5}}}}
			require.NoError(t, store.Save(ctx, p.ID, tracks, 140))

			got, err := store.Load(ctx, p.ID)
			require.NoError(t, err)
			assert.Equal(140, got.BPM)
			assert.Equal(int64(2), got.Version)
			require.Len(t, got.Tracks, 1)
			assert.NotEmpty(got.Tracks[0].ID)
			require.Len(t, got.Tracks[0].Notes, 1)
			assert.NotEmpty(got.Tracks[0].Notes[0].ID)
			assert.Equal("C4", got.Tracks[0].Notes[0].Pitch)
			assert.Equal(0.5, got.Tracks[0].Notes[0].Duration)

			rev, err := store.AddRevision(ctx, p.ID, "")
			require.NoError(t, err)
			assert.Equal(1, rev.Number)
			assert.Equal("anonymous", rev.CreatedBy)
			revs, err := store.Revisions(ctx, p.ID)
			require.NoError(t, err)
			require.Len(t, revs, 1)
			assert.Equal("lead", revs[0].Tracks[0].Name)

			all, err := store.List(ctx)
			require.NoError(t, err)
			assert.Len(all, 1)

			require.NoError(t, store.Delete(ctx, p.ID))
			_, err = store.Load(ctx, p.ID)
			assert.ErrorIs(err, ErrNotFound)
			assert.ErrorIs(store.Delete(ctx, p.ID), ErrNotFound)
			assert.ErrorIs(store.Save(ctx, p.ID, nil, 120), ErrNotFound)
		})
	}
}

func TestListNewestFirst(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			store := New(b)
			clock := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
			store.now = func() time.Time { return clock }

			older, err := store.Create(ctx, model.CreateProjectRequest{Name: "older"})
			require.NoError(t, err)
			clock = clock.Add(time.Minute)
			_, err = store.Create(ctx, model.CreateProjectRequest{Name: "newer"})
			require.NoError(t, err)

			all, err := store.List(ctx)
			require.NoError(t, err)
			require.Len(t, all, 2)
			assert.Equal(t, "newer", all[0].Name)

			clock = clock.Add(time.Minute)
			name := "touched"
			_, err = store.Update(ctx, older.ID, model.UpdateProjectRequest{Name: &name})
			require.NoError(t, err)
			all, err = store.List(ctx)
			require.NoError(t, err)
			assert.Equal(t, "touched", all[0].Name)
		})
	}
}

func TestLastWriteWins(t *testing.T) {
	ctx := context.Background()
	store := New(NewMemory())
	p, err := store.Create(ctx, model.CreateProjectRequest{Name: "song"})
	require.NoError(t, err)

	require.NoError(t, store.Save(ctx, p.ID, []model.Track{{ID: "a"}}, 100))
	require.NoError(t, store.Save(ctx, p.ID, []model.Track{{ID: "b"}}, 90))

	got, err := store.Load(ctx, p.ID)
	require.NoError(t, err)
	require.Len(t, got.Tracks, 1)
	assert.Equal(t, "b", got.Tracks[0].ID)
	assert.Equal(t, 90, got.BPM)
	assert.Equal(t, int64(3), got.Version)
}

func TestDynamoThrottleIsUnavailable(t *testing.T) {
	fake := newFakeDynamo()
	fake.fail = awserr.New("ThrottlingException", "slow down", nil)
	store := New(NewDynamo(fake, "projects"))

	_, err := store.Load(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrUnavailable)

	fake.fail = awserr.New("ValidationException", "bad key", nil)
	_, err = store.Load(context.Background(), "p1")
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrUnavailable)
}
