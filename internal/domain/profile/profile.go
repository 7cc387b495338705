package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
)

type Project struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
}

// Complete reports whether all three fields are non-empty after trimming.
func (p Project) Complete() bool {
	return strings.TrimSpace(p.Title) != "" &&
		strings.TrimSpace(p.Description) != "" &&
		strings.TrimSpace(p.URL) != ""
}

type Profile struct {
	FullName    string    `json:"full_name"`
	Description string    `json:"description"`
	Phone       string    `json:"phone"`
	Email       string    `json:"email,omitempty"`
	Education   string    `json:"education"`
	GithubURL   string    `json:"github_url,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	Skills      []string  `json:"skills"`
	Projects    []Project `json:"projects"`
}

// Clone returns a deep copy so callers can keep a pristine loaded copy.
func (p *Profile) Clone() *Profile {
	if p == nil {
		return nil
	}
	c := *p
	c.Skills = append([]string(nil), p.Skills...)
	c.Projects = append([]Project(nil), p.Projects...)
	return &c
}

// ExportPayload is the raw export document. Only the presence of export_info
// is interpreted; everything else is passed through untouched.
type ExportPayload map[string]json.RawMessage

const ExportInfoField = "export_info"

// HasExportInfo reports whether export_info holds a truthy value. null,
// false, zero and the empty string count as missing.
func (e ExportPayload) HasExportInfo() bool {
	raw := bytes.TrimSpace(e[ExportInfoField])
	switch string(raw) {
	case "", "null", "false", `""`:
		return false
	}
	if c := raw[0]; c == '-' || (c >= '0' && c <= '9') {
		n, err := strconv.ParseFloat(string(raw), 64)
		return err != nil || n != 0
	}
	return true
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// ExportFilename builds profile_<full name>.json with whitespace runs
// replaced by underscores.
func ExportFilename(fullName string) string {
	return "profile_" + whitespaceRun.ReplaceAllString(fullName, "_") + ".json"
}

// Gateway is the upstream profile API.
type Gateway interface {
	Get(ctx context.Context) (*Profile, error)
	Update(ctx context.Context, p *Profile) error
	Export(ctx context.Context) (ExportPayload, error)
}
