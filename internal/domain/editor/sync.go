package editor

import (
	"strings"

	"github.com/google/uuid"

	"github.com/khoahotran/profile-editor/internal/domain/profile"
)

func emptyProject() profile.Project { return profile.Project{} }

// JoinSkills renders the skills list into the single text input.
func JoinSkills(skills []string) string {
	return strings.Join(skills, ", ")
}

// SplitSkills parses the skills input: comma separated, trimmed, empty pieces
// dropped. Order and duplicates are kept.
func SplitSkills(text string) []string {
	skills := make([]string, 0)
	for _, piece := range strings.Split(text, ",") {
		if s := strings.TrimSpace(piece); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// Populate overwrites every field from p and rebuilds the project blocks.
// Error markers are cleared.
func Populate(f *Form, p *profile.Profile) {
	values := map[string]string{
		FieldFullName:    p.FullName,
		FieldDescription: p.Description,
		FieldPhone:       p.Phone,
		FieldEmail:       p.Email,
		FieldEducation:   p.Education,
		FieldSkills:      JoinSkills(p.Skills),
		FieldGithubURL:   p.GithubURL,
		FieldPhotoURL:    p.PhotoURL,
	}
	for _, fld := range f.fields {
		fld.Input(values[fld.ID])
	}
	f.Projects = NewProjectList(p.Projects...)
	f.projectErrors = make(map[uuid.UUID]map[string]string)
}

// Payload builds the profile to submit. Only project blocks with all three
// values non-empty after trimming are included.
func Payload(f *Form) *profile.Profile {
	val := func(id string) string { return strings.TrimSpace(f.Value(id)) }

	projects := make([]profile.Project, 0, f.Projects.Len())
	for i := 0; i < f.Projects.Len(); i++ {
		p := profile.Project{
			Title:       val(ProjectFieldID(ProjectFieldTitle, i)),
			Description: val(ProjectFieldID(ProjectFieldDescription, i)),
			URL:         val(ProjectFieldID(ProjectFieldURL, i)),
		}
		if p.Complete() {
			projects = append(projects, p)
		}
	}

	return &profile.Profile{
		FullName:    val(FieldFullName),
		Description: val(FieldDescription),
		Phone:       val(FieldPhone),
		Email:       val(FieldEmail),
		Education:   val(FieldEducation),
		GithubURL:   val(FieldGithubURL),
		PhotoURL:    val(FieldPhotoURL),
		Skills:      SplitSkills(f.Value(FieldSkills)),
		Projects:    projects,
	}
}

// ApplyValues feeds a submitted form into the editor as input events. Ids
// that match no field are ignored; the number applied is returned.
//
// When a block posts its entry id under ProjectEntryKey, its values go to that
// entry wherever it now sits, and are dropped if the entry is gone. Blocks
// posted without an entry id are applied by position.
func ApplyValues(f *Form, values map[string]string) int {
	targets := make(map[int]int)
	target := func(posted int) int {
		if cur, ok := targets[posted]; ok {
			return cur
		}
		cur := posted
		if raw, ok := values[ProjectEntryKey(posted)]; ok {
			cur = -1
			if id, err := uuid.Parse(raw); err == nil {
				cur = f.Projects.IndexOf(id)
			}
		}
		targets[posted] = cur
		return cur
	}

	applied := 0
	for id, v := range values {
		name, idx, ok := ParseProjectFieldID(id)
		if !ok {
			if f.Input(id, v) == nil {
				applied++
			}
			continue
		}
		cur := target(idx)
		if cur < 0 {
			continue
		}
		if f.Input(ProjectFieldID(name, cur), v) == nil {
			applied++
		}
	}
	return applied
}

// Snapshot is the persistable state of a form. Error markers are not kept.
type Snapshot struct {
	Fields   map[string]string `json:"fields"`
	Projects []EntrySnapshot   `json:"projects"`
}

type EntrySnapshot struct {
	ID      uuid.UUID       `json:"id"`
	Project profile.Project `json:"project"`
}

func (f *Form) Snapshot() Snapshot {
	s := Snapshot{Fields: make(map[string]string, len(f.fields))}
	for _, fld := range f.fields {
		s.Fields[fld.ID] = fld.Value
	}
	for _, e := range f.Projects.Entries() {
		s.Projects = append(s.Projects, EntrySnapshot{ID: e.ID, Project: e.Project})
	}
	return s
}

// Restore replaces the form contents with s, keeping entry ids.
func (f *Form) Restore(s Snapshot) {
	for _, fld := range f.fields {
		fld.Input(s.Fields[fld.ID])
	}
	l := &ProjectList{}
	for _, e := range s.Projects {
		id := e.ID
		if id == uuid.Nil {
			id = uuid.New()
		}
		l.entries = append(l.entries, Entry{ID: id, Project: e.Project})
	}
	f.Projects = l
	f.projectErrors = make(map[uuid.UUID]map[string]string)
}
