package fileid

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingManager struct {
	calls []string
	err   error
}

func (m *recordingManager) Index(_ context.Context, p string) (ID, error) {
	m.calls = append(m.calls, "index:"+p)
	return "id", m.err
}

func (m *recordingManager) GetID(_ context.Context, p string) (ID, bool, error) {
	m.calls = append(m.calls, "get_id:"+p)
	return "id", true, m.err
}

func (m *recordingManager) GetPath(_ context.Context, id ID) (string, bool, error) {
	m.calls = append(m.calls, "get_path:"+string(id))
	return "p", true, m.err
}

func (m *recordingManager) Move(_ context.Context, oldPath, newPath string) (ID, error) {
	m.calls = append(m.calls, "move:"+oldPath+"->"+newPath)
	return "id", m.err
}

func (m *recordingManager) Copy(_ context.Context, from, to string) (ID, error) {
	m.calls = append(m.calls, "copy:"+from+"->"+to)
	return "id", m.err
}

func (m *recordingManager) Delete(_ context.Context, p string) error {
	m.calls = append(m.calls, "delete:"+p)
	return m.err
}

func (m *recordingManager) Save(_ context.Context, p string) error {
	m.calls = append(m.calls, "save:"+p)
	return m.err
}

func TestDispatcher_Get_IsIgnored(t *testing.T) {
	m := &recordingManager{}
	d := NewDispatcher(m)

	require.NoError(t, d.Handle(context.Background(), Event{Action: "get", Path: "a.txt"}))
	assert.Empty(t, m.calls)
}

func TestDispatcher_Save(t *testing.T) {
	m := &recordingManager{}
	d := NewDispatcher(m)

	require.NoError(t, d.Handle(context.Background(), Event{Action: "save", Path: "a.txt"}))
	assert.Equal(t, []string{"save:a.txt"}, m.calls)
}

func TestDispatcher_Rename(t *testing.T) {
	m := &recordingManager{}
	d := NewDispatcher(m)

	ev := Event{Action: "rename", SourcePath: "a.txt", Path: "b.txt"}
	require.NoError(t, d.Handle(context.Background(), ev))
	assert.Equal(t, []string{"move:a.txt->b.txt"}, m.calls)
}

func TestDispatcher_Copy(t *testing.T) {
	m := &recordingManager{}
	d := NewDispatcher(m)

	ev := Event{Action: "copy", SourcePath: "a.txt", Path: "b.txt"}
	require.NoError(t, d.Handle(context.Background(), ev))
	assert.Equal(t, []string{"copy:a.txt->b.txt"}, m.calls)
}

func TestDispatcher_Delete(t *testing.T) {
	m := &recordingManager{}
	d := NewDispatcher(m)

	require.NoError(t, d.Handle(context.Background(), Event{Action: "delete", Path: "a.txt"}))
	assert.Equal(t, []string{"delete:a.txt"}, m.calls)
}

func TestDispatcher_UnknownAction_IsIgnored(t *testing.T) {
	m := &recordingManager{}
	d := NewDispatcher(m)

	require.NoError(t, d.Handle(context.Background(), Event{Action: "frobnicate", Path: "a.txt"}))
	assert.Empty(t, m.calls)
}

func TestDispatcher_PropagatesManagerError(t *testing.T) {
	wantErr := errors.New("boom")
	m := &recordingManager{err: wantErr}
	d := NewDispatcher(m)

	err := d.Handle(context.Background(), Event{Action: "delete", Path: "a.txt"})
	require.Error(t, err)
	assert.ErrorIs(t, err, wantErr)
}
