package form

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nknandakumar/tablet-scheduler/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploaderFunc func(ctx context.Context, file *entity.SelectedFile) (string, error)

func (fn uploaderFunc) Upload(ctx context.Context, file *entity.SelectedFile) (string, error) {
	return fn(ctx, file)
}

type countingUploader struct {
	calls  atomic.Int32
	result string
	err    error
}

func (u *countingUploader) Upload(ctx context.Context, file *entity.SelectedFile) (string, error) {
	u.calls.Add(1)
	rc, err := file.Open()
	if err != nil {
		return "", err
	}
	defer rc.Close()
	if _, err := io.ReadAll(rc); err != nil {
		return "", err
	}
	return u.result, u.err
}

func pill() *entity.SelectedFile {
	return entity.NewSelectedFile("pill.jpg", "image/jpeg", []byte("jpeg bytes"))
}

func TestSubmitWithoutFile(t *testing.T) {
	up := &countingUploader{}
	f := New(up)

	err := f.Submit(context.Background())

	require.ErrorIs(t, err, entity.ErrNoFileSelected)
	assert.Equal(t, int32(0), up.calls.Load(), "no network call without a file")

	view := f.View()
	assert.Equal(t, entity.MsgNoFileSelected, view.Error)
	assert.Equal(t, entity.StatusError, view.Status)
	assert.False(t, view.Loading)
}

func TestSelectFileClearsError(t *testing.T) {
	f := New(&countingUploader{})

	require.Error(t, f.Submit(context.Background()))
	require.NotEmpty(t, f.View().Error)

	f.SelectFile(pill())

	view := f.View()
	assert.Empty(t, view.Error)
	assert.Equal(t, "pill.jpg", view.FileName)
	assert.Equal(t, entity.StatusIdle, view.Status)
}

func TestSelectNilFileIgnored(t *testing.T) {
	f := New(&countingUploader{})
	f.SelectFile(pill())
	f.SelectFile(nil)

	assert.Equal(t, "pill.jpg", f.View().FileName)
}

func TestSubmitSuccess(t *testing.T) {
	up := &countingUploader{result: "Take 1 tablet after meals"}
	f := New(up)
	f.SelectFile(pill())

	require.NoError(t, f.Submit(context.Background()))

	view := f.View()
	assert.Equal(t, int32(1), up.calls.Load())
	assert.Equal(t, "Take 1 tablet after meals", view.Result)
	assert.Empty(t, view.Error)
	assert.False(t, view.Loading)
	assert.Equal(t, entity.StatusResult, view.Status)
	assert.False(t, view.HasFile(), "selection is cleared after a successful submit")
}

func TestSubmitFailure(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{name: "non-2xx response", err: errors.New("unexpected status 500")},
		{name: "network error", err: errors.New("connection refused")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			up := &countingUploader{err: tt.err}
			f := New(up)
			f.SelectFile(pill())

			err := f.Submit(context.Background())
			require.ErrorIs(t, err, tt.err)

			view := f.View()
			assert.Equal(t, entity.MsgUploadFailed, view.Error)
			assert.Empty(t, view.Result)
			assert.False(t, view.Loading)
			assert.Equal(t, entity.StatusError, view.Status)
			assert.Equal(t, "pill.jpg", view.FileName, "selection is kept for a retry")
		})
	}
}

func TestSubmitClearsPreviousResult(t *testing.T) {
	var fail atomic.Bool
	up := uploaderFunc(func(ctx context.Context, file *entity.SelectedFile) (string, error) {
		if fail.Load() {
			return "", errors.New("boom")
		}
		return "first", nil
	})
	f := New(up)

	f.SelectFile(pill())
	require.NoError(t, f.Submit(context.Background()))
	require.Equal(t, "first", f.View().Result)

	fail.Store(true)
	f.SelectFile(pill())
	require.Error(t, f.Submit(context.Background()))

	view := f.View()
	assert.Empty(t, view.Result)
	assert.Equal(t, entity.MsgUploadFailed, view.Error)
}

func TestLoadingWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	up := uploaderFunc(func(ctx context.Context, file *entity.SelectedFile) (string, error) {
		close(started)
		<-release
		return "ok", nil
	})
	f := New(up)
	f.SelectFile(pill())

	done := make(chan error, 1)
	require.NoError(t, f.SubmitAsync(context.Background(), func(err error) { done <- err }))
	<-started

	view := f.View()
	assert.True(t, view.Loading)
	assert.Equal(t, entity.StatusLoading, view.Status)
	assert.Empty(t, view.Error)
	assert.Empty(t, view.Result)

	// a second submit is refused without touching the state
	assert.ErrorIs(t, f.Submit(context.Background()), entity.ErrSubmitInFlight)
	assert.True(t, f.Loading())

	close(release)
	require.NoError(t, <-done)
	assert.False(t, f.Loading())
	assert.Equal(t, "ok", f.View().Result)
}

func TestSubmitAfterResetWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	up := uploaderFunc(func(ctx context.Context, file *entity.SelectedFile) (string, error) {
		close(started)
		<-release
		return "ok", nil
	})
	f := New(up)
	f.SelectFile(pill())

	done := make(chan error, 1)
	require.NoError(t, f.SubmitAsync(context.Background(), func(err error) { done <- err }))
	<-started

	f.Reset()
	assert.ErrorIs(t, f.Submit(context.Background()), entity.ErrSubmitInFlight)

	view := f.View()
	assert.True(t, view.Loading)
	assert.Empty(t, view.Error, "error must not show next to the loading indicator")
	assert.Equal(t, entity.StatusLoading, view.Status)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, f.Loading())
}

func TestUploaderPanicResetsLoading(t *testing.T) {
	up := uploaderFunc(func(ctx context.Context, file *entity.SelectedFile) (string, error) {
		panic("uploader exploded")
	})
	f := New(up)
	f.SelectFile(pill())

	assert.Panics(t, func() { _ = f.Submit(context.Background()) })

	view := f.View()
	assert.False(t, view.Loading)
	assert.Equal(t, entity.MsgUploadFailed, view.Error)
}

func TestContextCancelledIsRequestError(t *testing.T) {
	up := uploaderFunc(func(ctx context.Context, file *entity.SelectedFile) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	f := New(up)
	f.SelectFile(pill())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	err := f.Submit(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, entity.MsgUploadFailed, f.View().Error)
	assert.False(t, f.Loading())
}

func TestReleaseSemantics(t *testing.T) {
	released := map[string]int{}
	var mu sync.Mutex
	staged := func(name string) *entity.SelectedFile {
		return entity.NewStagedFile(name, "image/png", 3,
			func() (io.ReadCloser, error) { return io.NopCloser(nil), nil },
			func() {
				mu.Lock()
				released[name]++
				mu.Unlock()
			})
	}

	t.Run("replacing a selection releases the old one", func(t *testing.T) {
		f := New(&countingUploader{})
		f.SelectFile(staged("a"))
		f.SelectFile(staged("b"))

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, released["a"])
		assert.Equal(t, 0, released["b"])
	})

	t.Run("file replaced during upload is released after it", func(t *testing.T) {
		release := make(chan struct{})
		started := make(chan struct{})
		up := uploaderFunc(func(ctx context.Context, file *entity.SelectedFile) (string, error) {
			close(started)
			<-release
			return "ok", nil
		})
		f := New(up)
		f.SelectFile(staged("c"))

		done := make(chan error, 1)
		require.NoError(t, f.SubmitAsync(context.Background(), func(err error) { done <- err }))
		<-started

		f.SelectFile(staged("d"))
		mu.Lock()
		assert.Equal(t, 0, released["c"], "in-flight file stays readable")
		mu.Unlock()

		close(release)
		require.NoError(t, <-done)

		view := f.View()
		assert.Equal(t, "d", view.FileName, "newer selection survives the success")
		assert.Equal(t, "ok", view.Result)

		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, released["c"])
		assert.Equal(t, 0, released["d"])
	})

	t.Run("reset releases the selection", func(t *testing.T) {
		f := New(&countingUploader{})
		f.SelectFile(staged("e"))
		f.Reset()

		assert.False(t, f.View().HasFile())
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, 1, released["e"])
	})
}

func TestOnCompleteHook(t *testing.T) {
	events := make(chan entity.SubmitEvent, 2)
	up := &countingUploader{result: "Take 1 tablet after meals"}
	f := New(up, WithOnComplete(func(ev entity.SubmitEvent) { events <- ev }))

	f.SelectFile(pill())
	require.NoError(t, f.Submit(context.Background()))

	ev := <-events
	assert.Equal(t, "pill.jpg", ev.FileName)
	assert.Equal(t, entity.StatusResult, ev.Status)
	assert.Equal(t, "Take 1 tablet after meals", ev.Result)
	assert.False(t, ev.At.IsZero())

	up.err = errors.New("refused")
	f.SelectFile(pill())
	require.Error(t, f.Submit(context.Background()))

	ev = <-events
	assert.Equal(t, entity.StatusError, ev.Status)
	assert.Equal(t, "refused", ev.Error)
}

func TestViewAtMostOneActive(t *testing.T) {
	f := New(&countingUploader{result: "done"})

	check := func() {
		view := f.View()
		active := 0
		if view.Error != "" {
			active++
		}
		if view.Result != "" {
			active++
		}
		if view.Loading {
			active++
		}
		assert.LessOrEqual(t, active, 1)
	}

	check()
	_ = f.Submit(context.Background())
	check()
	f.SelectFile(pill())
	check()
	require.NoError(t, f.Submit(context.Background()))
	check()
	_ = f.Submit(context.Background())
	check()
}
