package profile

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/udot/udot/internal/model"
	"github.com/udot/udot/internal/uerrors"
)

// yamlProfile is the on-disk shape a profile fixture file is written
// in: plain YAML describing one profile's links and subprofiles,
// standing in for what a real authoring DSL would evaluate down to.
type yamlProfile struct {
	Name   string     `yaml:"name"`
	Parent *string    `yaml:"parent,omitempty"`
	Links  []yamlLink `yaml:"links"`

	BeforeInstall   string `yaml:"beforeInstall,omitempty"`
	AfterInstall    string `yaml:"afterInstall,omitempty"`
	BeforeUpdate    string `yaml:"beforeUpdate,omitempty"`
	AfterUpdate     string `yaml:"afterUpdate,omitempty"`
	BeforeUninstall string `yaml:"beforeUninstall,omitempty"`
	AfterUninstall  string `yaml:"afterUninstall,omitempty"`

	Subprofiles []yamlProfile `yaml:"subprofiles,omitempty"`
}

type yamlLink struct {
	Path       string `yaml:"path"`
	Target     string `yaml:"target,omitempty"`
	Hard       bool   `yaml:"hard,omitempty"`
	Owner      string `yaml:"owner,omitempty"`
	Permission *int   `yaml:"permission,omitempty"`
	Secure     bool   `yaml:"secure,omitempty"`
}

// LoadFile reads one profile fixture from path and evaluates it into a
// *model.ProfileResult, the shape a Builder normally produces.
func LoadFile(path string) (*model.ProfileResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, uerrors.NewPrecondition("reading profile file %s: %v", path, err)
	}
	var y yamlProfile
	if err := yaml.Unmarshal(data, &y); err != nil {
		return nil, uerrors.NewPrecondition("parsing profile file %s: %v", path, err)
	}
	if y.Name == "" {
		return nil, uerrors.NewUser("profile file %s has no name", path)
	}
	return toResult(y), nil
}

func toResult(y yamlProfile) *model.ProfileResult {
	links := make([]model.LinkDescriptor, 0, len(y.Links))
	for _, l := range y.Links {
		links = append(links, toLink(l))
	}
	subs := make([]*model.ProfileResult, 0, len(y.Subprofiles))
	for _, s := range y.Subprofiles {
		sub := s
		sub.Parent = &y.Name
		subs = append(subs, toResult(sub))
	}
	return &model.ProfileResult{
		Name:            y.Name,
		Parent:          y.Parent,
		Links:           links,
		Subprofiles:     subs,
		BeforeInstall:   y.BeforeInstall,
		AfterInstall:    y.AfterInstall,
		BeforeUpdate:    y.BeforeUpdate,
		AfterUpdate:     y.AfterUpdate,
		BeforeUninstall: y.BeforeUninstall,
		AfterUninstall:  y.AfterUninstall,
	}
}

func toLink(l yamlLink) model.LinkDescriptor {
	d := model.LinkDescriptor{
		Path:       l.Path,
		Hard:       l.Hard,
		Owner:      l.Owner,
		Permission: l.Permission,
		Secure:     l.Secure,
	}
	if !l.Hard {
		target := l.Target
		d.Target = &target
	}
	return d
}
