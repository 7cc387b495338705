package editor

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/profile-editor/adapters/event"
	"github.com/khoahotran/profile-editor/internal/domain/editor"
	"github.com/khoahotran/profile-editor/internal/domain/notification"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
)

func newTestController(gw *fakeGateway, pub event.Publisher) *Controller {
	return NewController("sess-1", gw, pub, notification.NewNotifier(time.Minute), time.Second, logger.NewNopLogger())
}

func messages(c *Controller) []string {
	var out []string
	for _, n := range c.Notifications() {
		out = append(out, n.Message)
	}
	return out
}

func TestController_LoadAddsEmptyBlock(t *testing.T) {
	gw := &fakeGateway{profile: sampleProfile()}
	c := newTestController(gw, nil)
	assert.Equal(t, StateLoading, c.State())
	assert.True(t, c.NeedsLoad())

	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, StateReady, c.State())
	assert.False(t, c.NeedsLoad())

	v := c.View()
	assert.Equal(t, "A B", v.Field(editor.FieldFullName).Value)
	assert.Equal(t, "x, y", v.Field(editor.FieldSkills).Value)
	require.Len(t, v.Blocks, 1)
	assert.Equal(t, "project-0", v.Blocks[0].ID)
	assert.Empty(t, v.Blocks[0].Title.Value)
}

func TestController_LoadFailureEntersError(t *testing.T) {
	gw := &fakeGateway{getErr: apperror.NewUpstream("down", errors.New("dial"))}
	c := newTestController(gw, nil)

	err := c.Load(context.Background())
	assert.ErrorIs(t, err, apperror.ErrUpstream)
	assert.Equal(t, StateError, c.State())
	assert.True(t, c.NeedsLoad())
	assert.NotEmpty(t, c.View().LoadError)

	assert.ErrorIs(t, c.Input(editor.FieldFullName, "x"), apperror.ErrConflict)
	assert.ErrorIs(t, c.Submit(context.Background()), apperror.ErrConflict)

	gw.getErr = nil
	gw.profile = sampleProfile()
	require.NoError(t, c.Load(context.Background()))
	assert.Equal(t, StateReady, c.State())
}

func TestController_InvalidEmailBlocksSubmitUntilCorrected(t *testing.T) {
	gw := &fakeGateway{profile: sampleProfile()}
	c := newTestController(gw, nil)
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.Input(editor.FieldEmail, "not-an-email"))
	err := c.Submit(context.Background())
	require.ErrorIs(t, err, apperror.ErrInvalidInput)
	var appErr *apperror.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, map[string]string{editor.FieldEmail: "enter a valid email"}, appErr.Fields)
	assert.Equal(t, 0, gw.updateCount())

	email := c.View().Field(editor.FieldEmail)
	assert.True(t, email.Invalid)
	assert.Equal(t, "enter a valid email", email.Annotation)

	require.NoError(t, c.Input(editor.FieldEmail, "a@b.co"))
	assert.False(t, c.View().Field(editor.FieldEmail).Invalid)

	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, 1, gw.updateCount())
	assert.Equal(t, "a@b.co", gw.updates[0].Email)
	assert.Equal(t, StateSuccess, c.Outcome())
	assert.Equal(t, StateReady, c.State())
	assert.Contains(t, messages(c), MsgSaved)
}

func TestController_SubmitPayload(t *testing.T) {
	gw := &fakeGateway{profile: sampleProfile()}
	c := newTestController(gw, nil)
	require.NoError(t, c.Load(context.Background()))

	require.NoError(t, c.ApplyValues(map[string]string{
		editor.FieldSkills: " go ,  sql,",
		"project-title-0":  " Site ",
		"project-url-0":    "https://example.com",
	}))
	entry, err := c.AddProject()
	require.NoError(t, err)
	require.NoError(t, c.Input("project-title-1", "half done"))
	_ = entry

	require.NoError(t, c.Submit(context.Background()))
	got := gw.updates[0]
	assert.Equal(t, []string{"go", "sql"}, got.Skills)
	// Neither block is complete: the first lacks a description, the second a url.
	assert.Empty(t, got.Projects)

	require.NoError(t, c.Input("project-description-0", "portfolio"))
	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, []profile.Project{{Title: "Site", Description: "portfolio", URL: "https://example.com"}}, gw.updates[1].Projects)
}

func TestController_ApplicationErrorKeepsFormAndAllowsResubmit(t *testing.T) {
	gw := &fakeGateway{profile: sampleProfile(), updateErr: apperror.NewApplication("conflict")}
	pub := newRecordingPublisher()
	c := newTestController(gw, pub)
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.Input(editor.FieldFullName, "A B C"))

	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, apperror.ErrApplication)
	assert.Equal(t, StateFailed, c.Outcome())
	assert.Equal(t, StateReady, c.State())
	assert.Contains(t, messages(c), MsgSaveFailed)
	assert.Equal(t, "A B C", c.View().Field(editor.FieldFullName).Value)
	assert.Equal(t, "A B", c.View().Loaded.FullName)

	evt := <-pub.events
	assert.Equal(t, event.EditorEventSaveFailed, evt.EventType)
	assert.Equal(t, "sess-1", evt.SessionID)

	gw.setUpdateErr(nil)
	require.NoError(t, c.Submit(context.Background()))
	assert.Equal(t, 2, gw.updateCount())
	assert.Equal(t, "A B C", c.View().Loaded.FullName)
	assert.Equal(t, event.EditorEventSaved, (<-pub.events).EventType)
}

func TestController_DuplicateSubmitRejectedWhileInFlight(t *testing.T) {
	gw := &fakeGateway{
		profile: sampleProfile(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := newTestController(gw, nil)
	require.NoError(t, c.Load(context.Background()))

	done := make(chan error, 1)
	go func() { done <- c.Submit(context.Background()) }()
	<-gw.entered

	assert.Equal(t, StateSubmitting, c.State())
	assert.True(t, c.View().Submitting)
	assert.ErrorIs(t, c.Submit(context.Background()), ErrSubmitInFlight)
	reset, err := c.Reset(true)
	assert.False(t, reset)
	assert.ErrorIs(t, err, ErrSubmitInFlight)

	close(gw.release)
	require.NoError(t, <-done)
	assert.Equal(t, 1, gw.updateCount())
	assert.Equal(t, StateReady, c.State())
}

func TestController_SubmitTimeoutFails(t *testing.T) {
	gw := &fakeGateway{
		profile: sampleProfile(),
		entered: make(chan struct{}, 1),
		release: make(chan struct{}),
	}
	c := NewController("sess-1", gw, nil, notification.NewNotifier(time.Minute), 30*time.Millisecond, logger.NewNopLogger())
	require.NoError(t, c.Load(context.Background()))

	err := c.Submit(context.Background())
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateFailed, c.Outcome())
	assert.Equal(t, StateReady, c.State())
	assert.Contains(t, messages(c), MsgSaveFailed)
}

func TestController_Reset(t *testing.T) {
	gw := &fakeGateway{profile: sampleProfile()}
	c := newTestController(gw, nil)
	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.Input(editor.FieldFullName, "changed"))
	_, err := c.AddProject()
	require.NoError(t, err)

	done, err := c.Reset(false)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "changed", c.View().Field(editor.FieldFullName).Value)

	done, err = c.Reset(true)
	require.NoError(t, err)
	assert.True(t, done)
	v := c.View()
	assert.Equal(t, "A B", v.Field(editor.FieldFullName).Value)
	assert.Len(t, v.Blocks, 1)
	assert.Contains(t, messages(c), MsgReset)
}

func TestController_RemoveProject(t *testing.T) {
	p := sampleProfile()
	p.Projects = []profile.Project{{Title: "one"}, {Title: "two"}}
	gw := &fakeGateway{profile: p}
	c := newTestController(gw, nil)
	require.NoError(t, c.Load(context.Background()))

	first := c.View().Blocks[0].EntryID
	require.NoError(t, c.RemoveProject(first))

	v := c.View()
	require.Len(t, v.Blocks, 1)
	assert.Equal(t, 0, v.Blocks[0].Key)
	assert.Equal(t, "project-title-0", v.Blocks[0].Title.ID)
	assert.Equal(t, "two", v.Blocks[0].Title.Value)

	assert.ErrorIs(t, c.RemoveProject(first), apperror.ErrNotFound)
	assert.ErrorIs(t, c.RemoveProjectAt(5), apperror.ErrInvalidInput)
}

func TestController_BlurUnknownField(t *testing.T) {
	c := newTestController(&fakeGateway{profile: sampleProfile()}, nil)
	require.NoError(t, c.Load(context.Background()))

	_, err := c.Blur("nope")
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	v, err := c.Blur(editor.FieldGithubURL)
	require.NoError(t, err)
	assert.True(t, v.Valid)
}

func TestController_Export(t *testing.T) {
	p := sampleProfile()
	p.FullName = "Ada   Lovelace King"
	gw := &fakeGateway{profile: p, export: profile.ExportPayload{
		"full_name":   json.RawMessage(`"Ada Lovelace King"`),
		"export_info": json.RawMessage(`{"version":"1.0"}`),
	}}
	pub := newRecordingPublisher()
	c := newTestController(gw, pub)
	require.NoError(t, c.Load(context.Background()))

	file, err := c.Export(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "profile_Ada_Lovelace_King.json", file.Name)
	assert.JSONEq(t, `{"full_name":"Ada Lovelace King","export_info":{"version":"1.0"}}`, string(file.Content))
	assert.Contains(t, messages(c), MsgExported)
	assert.Equal(t, event.EditorEventExported, (<-pub.events).EventType)
}

func TestController_ExportFailures(t *testing.T) {
	tests := []struct {
		name    string
		payload profile.ExportPayload
		err     error
		want    error
	}{
		{"missing export_info", profile.ExportPayload{"full_name": json.RawMessage(`"A"`)}, nil, apperror.ErrApplication},
		{"upstream down", nil, apperror.NewUpstream("down", nil), apperror.ErrUpstream},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw := &fakeGateway{profile: sampleProfile(), export: tt.payload, exportErr: tt.err}
			c := newTestController(gw, nil)
			require.NoError(t, c.Load(context.Background()))

			_, err := c.Export(context.Background())
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, []string{MsgExportFailed}, messages(c))
			assert.Equal(t, StateReady, c.State())
		})
	}
}

func TestController_DraftRestore(t *testing.T) {
	c := newTestController(&fakeGateway{profile: sampleProfile()}, nil)
	assert.Nil(t, c.Draft())

	require.NoError(t, c.Load(context.Background()))
	require.NoError(t, c.Input(editor.FieldPhone, "+44"))
	d := c.Draft()
	require.NotNil(t, d)

	other := newTestController(&fakeGateway{}, nil)
	other.Restore(d)
	assert.Equal(t, StateReady, other.State())
	assert.False(t, other.NeedsLoad())
	assert.Equal(t, "+44", other.View().Field(editor.FieldPhone).Value)
	assert.Equal(t, c.View().Blocks[0].EntryID, other.View().Blocks[0].EntryID)
}
