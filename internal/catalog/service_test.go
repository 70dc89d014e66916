package catalog

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	loggingpkg "github.com/drblury/catalogsync/internal/runtime/logging"
)

type recordingNotifier struct {
	created []Product
	updated []Product
	deleted []int64
	err     error
}

func (n *recordingNotifier) OnCreated(_ context.Context, p Product) error {
	n.created = append(n.created, p)
	return n.err
}

func (n *recordingNotifier) OnUpdated(_ context.Context, p Product) error {
	n.updated = append(n.updated, p)
	return n.err
}

func (n *recordingNotifier) OnDeleted(_ context.Context, id int64) error {
	n.deleted = append(n.deleted, id)
	return n.err
}

func TestServiceNotifiesAfterCommit(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	svc := NewService(NewMemoryStore(), notifier, loggingpkg.NewCaptureLogger())

	p, err := svc.Create(ctx, validProduct())
	require.NoError(t, err)
	require.Len(t, notifier.created, 1)
	assert.Equal(t, p.ID, notifier.created[0].ID)

	p.Stock = 7
	_, err = svc.Update(ctx, p)
	require.NoError(t, err)
	require.Len(t, notifier.updated, 1)
	assert.Equal(t, 7, notifier.updated[0].Stock)

	require.NoError(t, svc.Delete(ctx, p.ID))
	assert.Equal(t, []int64{p.ID}, notifier.deleted)
}

func TestServiceIgnoresNotificationFailures(t *testing.T) {
	ctx := context.Background()
	capture := loggingpkg.NewCaptureLogger()
	notifier := &recordingNotifier{err: errors.New("encode envelope")}
	svc := NewService(NewMemoryStore(), notifier, capture)

	p, err := svc.Create(ctx, validProduct())
	require.NoError(t, err)
	_, err = svc.Update(ctx, p)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, p.ID))

	assert.Len(t, capture.Filter(loggingpkg.LevelNameError), 3)
}

func TestServiceDoesNotNotifyFailedWrites(t *testing.T) {
	ctx := context.Background()
	notifier := &recordingNotifier{}
	svc := NewService(NewMemoryStore(), notifier, loggingpkg.NewCaptureLogger())

	bad := validProduct()
	bad.Price = -1
	_, err := svc.Create(ctx, bad)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, err = svc.Update(ctx, Product{ID: 99, Name: "x", Category: "clothes", ImageURL: "http://x"})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, svc.Delete(ctx, 99), ErrNotFound)

	assert.Empty(t, notifier.created)
	assert.Empty(t, notifier.updated)
	assert.Empty(t, notifier.deleted)
}

func TestServiceWithoutNotifier(t *testing.T) {
	svc := NewService(NewMemoryStore(), nil, loggingpkg.NewCaptureLogger())
	p, err := svc.Create(context.Background(), validProduct())
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, p, got)

	list, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
