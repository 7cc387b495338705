package editor

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/khoahotran/profile-editor/internal/domain/validation"
)

var ErrUnknownField = errors.New("unknown form field")

// Scalar field identifiers.
const (
	FieldFullName    = "full_name"
	FieldDescription = "description"
	FieldPhone       = "phone"
	FieldEmail       = "email"
	FieldEducation   = "education"
	FieldSkills      = "skills"
	FieldGithubURL   = "github_url"
	FieldPhotoURL    = "photo_url"
)

// Field is one input with its error marker. At most one annotation exists.
type Field struct {
	ID         string
	Label      string
	Rule       validation.Rule
	Value      string
	Invalid    bool
	Annotation string
}

// Input records an edit and clears any error without re-validating.
func (f *Field) Input(value string) {
	f.Value = value
	f.clear()
}

// Blur validates the current value and marks or clears the field.
func (f *Field) Blur() validation.Verdict {
	v := validation.Check(f.Rule, f.Value)
	if v.Valid {
		f.clear()
	} else {
		f.Invalid = true
		f.Annotation = v.Message
	}
	return v
}

func (f *Field) clear() {
	f.Invalid = false
	f.Annotation = ""
}

var projectRules = map[string]validation.Rule{
	ProjectFieldTitle:       {Kind: validation.KindText},
	ProjectFieldDescription: {Kind: validation.KindText},
	ProjectFieldURL:         {Kind: validation.KindURL},
}

// Form is the editable state of one edit page.
type Form struct {
	fields   []*Field
	byID     map[string]*Field
	Projects *ProjectList
	// project field errors keyed by stable entry id, so they follow an entry
	// across removals.
	projectErrors map[uuid.UUID]map[string]string
}

func NewForm() *Form {
	f := &Form{
		byID:          make(map[string]*Field),
		Projects:      NewProjectList(),
		projectErrors: make(map[uuid.UUID]map[string]string),
	}
	f.add(FieldFullName, "Full name", validation.KindText, true)
	f.add(FieldDescription, "Description", validation.KindText, true)
	f.add(FieldPhone, "Phone", validation.KindText, true)
	f.add(FieldEmail, "Email", validation.KindEmail, false)
	f.add(FieldEducation, "Education", validation.KindText, true)
	f.add(FieldSkills, "Skills", validation.KindText, true)
	f.add(FieldGithubURL, "GitHub", validation.KindURL, false)
	f.add(FieldPhotoURL, "Photo URL", validation.KindURL, false)
	return f
}

func (f *Form) add(id, label string, kind validation.Kind, required bool) {
	fld := &Field{ID: id, Label: label, Rule: validation.Rule{Kind: kind, Required: required}}
	f.fields = append(f.fields, fld)
	f.byID[id] = fld
}

func (f *Form) Field(id string) (*Field, bool) {
	fld, ok := f.byID[id]
	return fld, ok
}

// Fields returns the scalar fields in display order.
func (f *Form) Fields() []*Field { return f.fields }

func (f *Form) Value(id string) string {
	if fld, ok := f.byID[id]; ok {
		return fld.Value
	}
	if name, idx, ok := ParseProjectFieldID(id); ok {
		if e, err := f.Projects.Get(idx); err == nil {
			return projectValue(e, name)
		}
	}
	return ""
}

// Input applies an edit to a scalar or positional project field.
func (f *Form) Input(id, value string) error {
	if fld, ok := f.byID[id]; ok {
		fld.Input(value)
		return nil
	}
	name, idx, ok := ParseProjectFieldID(id)
	if !ok {
		return fmt.Errorf("input %q: %w", id, ErrUnknownField)
	}
	e, err := f.Projects.Get(idx)
	if err != nil {
		return err
	}
	p := e.Project
	switch name {
	case ProjectFieldTitle:
		p.Title = value
	case ProjectFieldDescription:
		p.Description = value
	case ProjectFieldURL:
		p.URL = value
	}
	if err := f.Projects.Set(idx, p); err != nil {
		return err
	}
	f.clearProjectError(e.ID, name)
	return nil
}

// FieldForEntry returns the current positional id of a project field that was
// rendered for entry. Scalar ids are returned unchanged.
func (f *Form) FieldForEntry(id string, entry uuid.UUID) (string, error) {
	name, _, ok := ParseProjectFieldID(id)
	if !ok {
		return id, nil
	}
	idx := f.Projects.IndexOf(entry)
	if idx < 0 {
		return "", fmt.Errorf("field %q of %s: %w", id, entry, ErrEntryNotFound)
	}
	return ProjectFieldID(name, idx), nil
}

// Blur validates one field by id and updates its error marker.
func (f *Form) Blur(id string) (validation.Verdict, error) {
	if fld, ok := f.byID[id]; ok {
		return fld.Blur(), nil
	}
	name, idx, ok := ParseProjectFieldID(id)
	if !ok {
		return validation.Verdict{}, fmt.Errorf("blur %q: %w", id, ErrUnknownField)
	}
	e, err := f.Projects.Get(idx)
	if err != nil {
		return validation.Verdict{}, err
	}
	return f.blurProject(e, name), nil
}

func (f *Form) blurProject(e Entry, name string) validation.Verdict {
	v := validation.Check(projectRules[name], projectValue(e, name))
	if v.Valid {
		f.clearProjectError(e.ID, name)
		return v
	}
	errs, ok := f.projectErrors[e.ID]
	if !ok {
		errs = make(map[string]string)
		f.projectErrors[e.ID] = errs
	}
	errs[name] = v.Message
	return v
}

func (f *Form) clearProjectError(id uuid.UUID, name string) {
	if errs, ok := f.projectErrors[id]; ok {
		delete(errs, name)
		if len(errs) == 0 {
			delete(f.projectErrors, id)
		}
	}
}

// ValidateAll blurs every field and returns the messages of the invalid ones
// keyed by field id. An empty map means the form may be submitted.
func (f *Form) ValidateAll() map[string]string {
	invalid := make(map[string]string)
	for _, fld := range f.fields {
		if v := fld.Blur(); !v.Valid {
			invalid[fld.ID] = v.Message
		}
	}
	for i, e := range f.Projects.Entries() {
		for _, name := range projectFields {
			if v := f.blurProject(e, name); !v.Valid {
				invalid[ProjectFieldID(name, i)] = v.Message
			}
		}
	}
	return invalid
}

// AddProject appends an empty block.
func (f *Form) AddProject() Entry {
	return f.Projects.Append(emptyProject())
}

// RemoveProject removes a block by stable id and drops its error markers.
func (f *Form) RemoveProject(id uuid.UUID) error {
	if _, err := f.Projects.Remove(id); err != nil {
		return err
	}
	delete(f.projectErrors, id)
	return nil
}

func (f *Form) RemoveProjectAt(index int) error {
	e, err := f.Projects.RemoveAt(index)
	if err != nil {
		return err
	}
	delete(f.projectErrors, e.ID)
	return nil
}

// FieldView is the render model of one input.
type FieldView struct {
	ID         string
	Value      string
	Invalid    bool
	Annotation string
}

// Block is the render model of one project block. Key is positional; EntryID
// binds the remove action.
type Block struct {
	Key         int
	ID          string
	EntryID     uuid.UUID
	Title       FieldView
	Description FieldView
	URL         FieldView
}

// Blocks renders the project list with keys equal to current indices.
func (f *Form) Blocks() []Block {
	entries := f.Projects.Entries()
	blocks := make([]Block, len(entries))
	for i, e := range entries {
		errs := f.projectErrors[e.ID]
		view := func(name string) FieldView {
			msg := errs[name]
			return FieldView{
				ID:         ProjectFieldID(name, i),
				Value:      projectValue(e, name),
				Invalid:    msg != "",
				Annotation: msg,
			}
		}
		blocks[i] = Block{
			Key:         i,
			ID:          BlockID(i),
			EntryID:     e.ID,
			Title:       view(ProjectFieldTitle),
			Description: view(ProjectFieldDescription),
			URL:         view(ProjectFieldURL),
		}
	}
	return blocks
}

func projectValue(e Entry, name string) string {
	switch name {
	case ProjectFieldTitle:
		return e.Project.Title
	case ProjectFieldDescription:
		return e.Project.Description
	case ProjectFieldURL:
		return e.Project.URL
	}
	return ""
}
