package store

import (
	"encoding/json"

	"github.com/xhad/studio/internal/models"
)

// DefaultKey is the name the state blob is stored under.
const DefaultKey = "chaoticx_suite_v3"

// State is everything the studio persists between sessions.
type State struct {
	Gen    []string                `json:"gen"`
	Ang    []string                `json:"ang"`
	Up     []string                `json:"up"`
	Edit   []string                `json:"edit"`
	Style  []string                `json:"style"`
	GenImg []models.GeneratedImage `json:"genImg"`
}

func Empty() State {
	return State{
		Gen:    []string{},
		Ang:    []string{},
		Up:     []string{},
		Edit:   []string{},
		Style:  []string{},
		GenImg: []models.GeneratedImage{},
	}
}

// Decode parses a stored blob. Missing or corrupt data yields an empty state,
// and missing fields are filled with empty lists.
func Decode(data []byte) State {
	var s State
	if len(data) == 0 || json.Unmarshal(data, &s) != nil {
		return Empty()
	}
	return s.normalized()
}

func (s State) Encode() ([]byte, error) {
	return json.Marshal(s.normalized())
}

// Inputs returns the input list for tab.
func (s State) Inputs(tab models.Tab) []string {
	if p := s.inputs(tab); p != nil {
		return *p
	}
	return nil
}

func (s *State) inputs(tab models.Tab) *[]string {
	switch tab {
	case models.TabGenerator:
		return &s.Gen
	case models.TabAngleStudio:
		return &s.Ang
	case models.TabUpscale:
		return &s.Up
	case models.TabEditor:
		return &s.Edit
	case models.TabStyleTransfer:
		return &s.Style
	}
	return nil
}

func (s State) normalized() State {
	orEmpty := func(v []string) []string {
		if v == nil {
			return []string{}
		}
		return v
	}
	s.Gen = orEmpty(s.Gen)
	s.Ang = orEmpty(s.Ang)
	s.Up = orEmpty(s.Up)
	s.Edit = orEmpty(s.Edit)
	s.Style = orEmpty(s.Style)
	if s.GenImg == nil {
		s.GenImg = []models.GeneratedImage{}
	}
	return s
}

// clone deep-copies the lists so callers cannot alias store internals.
func (s State) clone() State {
	c := State{
		Gen:    append([]string{}, s.Gen...),
		Ang:    append([]string{}, s.Ang...),
		Up:     append([]string{}, s.Up...),
		Edit:   append([]string{}, s.Edit...),
		Style:  append([]string{}, s.Style...),
		GenImg: append([]models.GeneratedImage{}, s.GenImg...),
	}
	return c
}
