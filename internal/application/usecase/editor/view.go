package editor

import (
	"time"

	"github.com/khoahotran/profile-editor/internal/domain/editor"
	"github.com/khoahotran/profile-editor/internal/domain/notification"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
)

// PageView is a consistent copy of the controller state for rendering.
type PageView struct {
	SessionID     string
	State         State
	Outcome       State
	LoadError     string
	Submitting    bool
	Fields        []editor.FieldView
	Labels        map[string]string
	Blocks        []editor.Block
	Notifications []notification.Notification
	Loaded        *profile.Profile
}

// Field returns the view of a scalar field by id.
func (v PageView) Field(id string) editor.FieldView {
	for _, f := range v.Fields {
		if f.ID == id {
			return f
		}
	}
	return editor.FieldView{ID: id}
}

func (c *Controller) View() PageView {
	c.mu.Lock()
	v := PageView{
		SessionID:  c.sessionID,
		State:      c.state,
		Outcome:    c.outcome,
		Submitting: c.inFlight,
		Labels:     make(map[string]string),
		Blocks:     c.form.Blocks(),
		Loaded:     c.loaded.Clone(),
	}
	if c.loadErr != nil {
		v.LoadError = c.loadErr.Error()
	}
	for _, f := range c.form.Fields() {
		v.Fields = append(v.Fields, editor.FieldView{
			ID:         f.ID,
			Value:      f.Value,
			Invalid:    f.Invalid,
			Annotation: f.Annotation,
		})
		v.Labels[f.ID] = f.Label
	}
	c.mu.Unlock()

	v.Notifications = c.notifier.Pending()
	return v
}

// Draft captures what is needed to resume this session elsewhere. It returns
// nil before the profile was loaded.
func (c *Controller) Draft() *editor.Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.loaded == nil {
		return nil
	}
	return &editor.Draft{
		SessionID: c.sessionID,
		Loaded:    c.loaded.Clone(),
		Form:      c.form.Snapshot(),
		SavedAt:   time.Now().UTC(),
	}
}

// Restore resumes from a stored draft and puts the editor in Ready.
func (c *Controller) Restore(d *editor.Draft) {
	if d == nil || d.Loaded == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.loaded = d.Loaded.Clone()
	c.form = editor.NewForm()
	c.form.Restore(d.Form)
	c.loadErr = nil
	c.transition(StateReady)
	c.touch()
}

func (c *Controller) LastSeen() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastSeen
}
