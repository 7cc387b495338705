package editor

import (
	"context"
	"sync"

	"github.com/khoahotran/profile-editor/adapters/event"
	"github.com/khoahotran/profile-editor/internal/domain/profile"
)

type fakeGateway struct {
	mu        sync.Mutex
	profile   *profile.Profile
	getErr    error
	updateErr error
	export    profile.ExportPayload
	exportErr error

	updates []*profile.Profile
	// when set, Update signals entered and waits for release.
	entered chan struct{}
	release chan struct{}
}

func (g *fakeGateway) Get(context.Context) (*profile.Profile, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.getErr != nil {
		return nil, g.getErr
	}
	return g.profile.Clone(), nil
}

func (g *fakeGateway) Update(ctx context.Context, p *profile.Profile) error {
	if g.entered != nil {
		g.entered <- struct{}{}
		select {
		case <-g.release:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.updates = append(g.updates, p.Clone())
	return g.updateErr
}

func (g *fakeGateway) Export(context.Context) (profile.ExportPayload, error) {
	return g.export, g.exportErr
}

func (g *fakeGateway) setUpdateErr(err error) {
	g.mu.Lock()
	g.updateErr = err
	g.mu.Unlock()
}

func (g *fakeGateway) updateCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.updates)
}

type recordingPublisher struct {
	events chan event.EditorEventPayload
}

func newRecordingPublisher() *recordingPublisher {
	return &recordingPublisher{events: make(chan event.EditorEventPayload, 16)}
}

func (p *recordingPublisher) PublishEditorEvent(_ context.Context, e event.EditorEventPayload) error {
	p.events <- e
	return nil
}

func sampleProfile() *profile.Profile {
	return &profile.Profile{
		FullName:    "A B",
		Description: "Engineer",
		Phone:       "+1 555",
		Education:   "MSc",
		Skills:      []string{"x", "y"},
		Projects:    []profile.Project{},
	}
}
