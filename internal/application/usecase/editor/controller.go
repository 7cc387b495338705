package editor

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/khoahotran/profile-editor/adapters/event"
	"github.com/khoahotran/profile-editor/internal/domain/editor"
	"github.com/khoahotran/profile-editor/internal/domain/notification"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
	"github.com/khoahotran/profile-editor/internal/domain/validation"
	"github.com/khoahotran/profile-editor/pkg/apperror"
	"github.com/khoahotran/profile-editor/pkg/logger"
	"github.com/khoahotran/profile-editor/pkg/metrics"
)

type State string

const (
	StateLoading    State = "loading"
	StateReady      State = "ready"
	StateSubmitting State = "submitting"
	StateSuccess    State = "success"
	StateFailed     State = "failed"
	StateError      State = "error"
)

const (
	MsgSaved        = "profile saved"
	MsgSaveFailed   = "failed to save profile"
	MsgExported     = "profile exported"
	MsgExportFailed = "failed to export profile"
	MsgReset        = "form reset"
	MsgLoadFailed   = "failed to load profile"
)

var (
	ErrSubmitInFlight = apperror.NewConflict("submit", "a submit for this session is already in progress")
	ErrNotReady       = apperror.NewConflict("editor", "the profile has not been loaded")
)

type ExportFile struct {
	Name    string
	Content []byte
}

// Controller drives one edit page: load, edit, reset, export and submit.
// It is safe for concurrent use; upstream calls run without holding the lock.
type Controller struct {
	mu sync.Mutex

	sessionID string
	gateway   profile.Gateway
	publisher event.Publisher
	notifier  *notification.Notifier
	timeout   time.Duration
	logger    logger.Logger

	state    State
	outcome  State
	loadErr  error
	loaded   *profile.Profile
	form     *editor.Form
	inFlight bool
	lastSeen time.Time
}

func NewController(sessionID string, gw profile.Gateway, pub event.Publisher, notifier *notification.Notifier, timeout time.Duration, log logger.Logger) *Controller {
	if pub == nil {
		pub = event.NopPublisher{}
	}
	return &Controller{
		sessionID: sessionID,
		gateway:   gw,
		publisher: pub,
		notifier:  notifier,
		timeout:   timeout,
		logger:    log.With(zap.String("session_id", sessionID)),
		state:     StateLoading,
		form:      editor.NewForm(),
		lastSeen:  time.Now(),
	}
}

func (c *Controller) SessionID() string { return c.sessionID }

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Outcome is the result of the most recent submit: StateSuccess, StateFailed
// or "" when nothing was submitted yet.
func (c *Controller) Outcome() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.outcome
}

// NeedsLoad is true before the first successful load and after a failed one.
func (c *Controller) NeedsLoad() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loaded == nil || c.state == StateError
}

func (c *Controller) transition(to State) {
	if c.state != to {
		c.logger.Debug("Editor state change", zap.String("from", string(c.state)), zap.String("to", string(to)))
	}
	c.state = to
}

func (c *Controller) touch() { c.lastSeen = time.Now() }

func (c *Controller) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

var tracer = otel.Tracer("editor_usecase")

// Load fetches the profile and populates the form. A profile without projects
// gets one empty block. On failure the editor enters StateError.
func (c *Controller) Load(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Load")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", c.sessionID))

	c.mu.Lock()
	if c.inFlight {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	c.transition(StateLoading)
	c.loadErr = nil
	c.touch()
	c.mu.Unlock()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	p, err := c.gateway.Get(ctx)
	metrics.UpstreamRequestDuration.WithLabelValues("get", metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	metrics.ProfileLoadsTotal.WithLabelValues(metrics.Outcome(err)).Inc()

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		span.RecordError(err)
		c.loadErr = err
		c.transition(StateError)
		c.logger.Error("Failed to load profile", err)
		return err
	}

	c.loaded = p.Clone()
	c.form = editor.NewForm()
	c.populate()
	c.transition(StateReady)
	c.logger.Info("Profile loaded", zap.Int("projects", len(p.Projects)))
	return nil
}

func (c *Controller) populate() {
	editor.Populate(c.form, c.loaded)
	if c.form.Projects.Len() == 0 {
		c.form.AddProject()
	}
}

// editable reports whether the form accepts edits. Caller holds the lock.
func (c *Controller) editable() error {
	if c.loaded == nil || c.state == StateError || c.state == StateLoading {
		return ErrNotReady
	}
	c.touch()
	return nil
}

func (c *Controller) Input(fieldID, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	return mapFormError(c.form.Input(fieldID, value), fieldID)
}

func (c *Controller) Blur(fieldID string) (validation.Verdict, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return validation.Verdict{}, err
	}
	v, err := c.form.Blur(fieldID)
	return v, mapFormError(err, fieldID)
}

// ApplyValues records a batch of input events from a posted form.
func (c *Controller) ApplyValues(values map[string]string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	editor.ApplyValues(c.form, values)
	return nil
}

func (c *Controller) AddProject() (editor.Entry, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return editor.Entry{}, err
	}
	return c.form.AddProject(), nil
}

// FieldForEntry maps a project field rendered for entry to its current
// positional id. A removed entry yields NotFound.
func (c *Controller) FieldForEntry(fieldID string, entry uuid.UUID) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return "", err
	}
	id, err := c.form.FieldForEntry(fieldID, entry)
	return id, mapFormError(err, entry.String())
}

// HasProject reports whether the entry is still on the form.
func (c *Controller) HasProject(id uuid.UUID) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.form != nil && c.form.Projects.IndexOf(id) >= 0
}

func (c *Controller) RemoveProject(id uuid.UUID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	return mapFormError(c.form.RemoveProject(id), id.String())
}

func (c *Controller) RemoveProjectAt(index int) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return err
	}
	return mapFormError(c.form.RemoveProjectAt(index), "")
}

func (c *Controller) SetPhotoURL(url string) error {
	return c.Input(editor.FieldPhotoURL, url)
}

// Reset discards edits and re-populates from the last loaded profile. It does
// nothing unless the user confirmed, and is refused while a submit is
// outstanding because the baseline is about to change.
func (c *Controller) Reset(confirmed bool) (bool, error) {
	if !confirmed {
		return false, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.editable(); err != nil {
		return false, err
	}
	if c.inFlight {
		return false, ErrSubmitInFlight
	}
	c.populate()
	c.notifier.Push(notification.LevelSuccess, MsgReset)
	c.logger.Info("Form reset")
	return true, nil
}

// Submit validates every field and PUTs the payload. Only one submit may be
// outstanding; the state returns to Ready whatever the result.
func (c *Controller) Submit(ctx context.Context) error {
	ctx, span := tracer.Start(ctx, "Submit")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", c.sessionID))

	c.mu.Lock()
	if err := c.editable(); err != nil {
		c.mu.Unlock()
		return err
	}
	if c.inFlight {
		c.mu.Unlock()
		return ErrSubmitInFlight
	}
	if invalid := c.form.ValidateAll(); len(invalid) > 0 {
		c.mu.Unlock()
		metrics.ValidationFailuresTotal.Inc()
		c.logger.Info("Submit blocked by validation", zap.Int("invalid_fields", len(invalid)))
		return apperror.NewValidation(invalid)
	}
	payload := editor.Payload(c.form)
	span.SetAttributes(attribute.Int("projects", len(payload.Projects)))
	c.inFlight = true
	c.transition(StateSubmitting)
	c.mu.Unlock()

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	err := c.gateway.Update(ctx, payload)
	metrics.UpstreamRequestDuration.WithLabelValues("update", metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	metrics.SubmitsTotal.WithLabelValues(metrics.Outcome(err)).Inc()

	c.mu.Lock()
	c.inFlight = false
	evt := event.EditorEventPayload{SessionID: c.sessionID, FullName: payload.FullName, OccurredAt: time.Now().UTC()}
	if err != nil {
		span.RecordError(err)
		c.outcome = StateFailed
		c.transition(StateFailed)
		c.notifier.Push(notification.LevelError, MsgSaveFailed)
		c.logger.Error("Failed to save profile", err)
		evt.EventType = event.EditorEventSaveFailed
		evt.Error = err.Error()
	} else {
		c.outcome = StateSuccess
		c.transition(StateSuccess)
		c.loaded = payload.Clone()
		c.notifier.Push(notification.LevelSuccess, MsgSaved)
		c.logger.Info("Profile saved", zap.Int("projects", len(payload.Projects)))
		evt.EventType = event.EditorEventSaved
	}
	c.transition(StateReady)
	c.mu.Unlock()

	c.publish(evt)
	return err
}

// Export fetches the export document and packages it as a download.
func (c *Controller) Export(ctx context.Context) (*ExportFile, error) {
	ctx, span := tracer.Start(ctx, "Export")
	defer span.End()
	span.SetAttributes(attribute.String("session_id", c.sessionID))

	c.mu.Lock()
	if err := c.editable(); err != nil {
		c.mu.Unlock()
		return nil, err
	}
	fullName := c.loaded.FullName
	c.mu.Unlock()

	file, err := c.export(ctx, fullName)
	metrics.ExportsTotal.WithLabelValues(metrics.Outcome(err)).Inc()

	evt := event.EditorEventPayload{SessionID: c.sessionID, FullName: fullName, OccurredAt: time.Now().UTC()}
	if err != nil {
		span.RecordError(err)
		c.notifier.Push(notification.LevelError, MsgExportFailed)
		c.logger.Error("Failed to export profile", err)
		evt.EventType = event.EditorEventExportFailed
		evt.Error = err.Error()
	} else {
		c.notifier.Push(notification.LevelSuccess, MsgExported)
		c.logger.Info("Profile exported", zap.String("file", file.Name))
		evt.EventType = event.EditorEventExported
	}
	c.publish(evt)
	return file, err
}

func (c *Controller) export(ctx context.Context, fullName string) (*ExportFile, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	start := time.Now()
	payload, err := c.gateway.Export(ctx)
	metrics.UpstreamRequestDuration.WithLabelValues("export", metrics.Outcome(err)).Observe(time.Since(start).Seconds())
	if err != nil {
		return nil, err
	}
	if !payload.HasExportInfo() {
		return nil, apperror.NewApplication("export payload has no export_info")
	}
	content, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, apperror.NewInternal("failed to encode export payload", err)
	}
	return &ExportFile{Name: profile.ExportFilename(fullName), Content: content}, nil
}

func (c *Controller) publish(evt event.EditorEventPayload) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := c.publisher.PublishEditorEvent(ctx, evt); err != nil {
			c.logger.Error("Failed to publish editor event", err, zap.String("event_type", string(evt.EventType)))
		}
	}()
}

// Notifications returns the live notifications for this page.
func (c *Controller) Notifications() []notification.Notification {
	return c.notifier.Pending()
}

func mapFormError(err error, ref string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, editor.ErrEntryNotFound):
		return apperror.NewNotFound("project", ref)
	case errors.Is(err, editor.ErrUnknownField):
		return apperror.NewNotFound("field", ref)
	case errors.Is(err, editor.ErrOutOfRange):
		return apperror.NewInvalidInput("project index out of range", err)
	}
	return apperror.NewInternal("editor operation failed", err)
}
