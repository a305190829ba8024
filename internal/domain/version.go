package domain

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
)

var ErrNilVersion = errors.New("cannot compare with a nil version")

// PromptVersion is an immutable snapshot of a prompt's content.
type PromptVersion struct {
	Model
	PromptID        uint64         `gorm:"not null;uniqueIndex:idx_prompt_version_number" json:"prompt_id"`
	VersionNumber   int            `gorm:"not null;uniqueIndex:idx_prompt_version_number" json:"version_number"`
	Title           string         `gorm:"size:200;not null" json:"title"`
	Content         string         `gorm:"type:text;not null" json:"content"`
	ContentHash     string         `gorm:"size:64;not null" json:"content_hash"`
	ChangeSummary   string         `gorm:"size:500" json:"change_summary"`
	AuthorID        uint64         `gorm:"not null;index" json:"author_id"`
	ParentVersionID *uint64        `gorm:"index" json:"parent_version_id"`
	Parent          *PromptVersion `gorm:"foreignKey:ParentVersionID;constraint:OnDelete:SET NULL" json:"-"`
	IsCurrent       bool           `gorm:"not null;index" json:"is_current"`
}

func (v *PromptVersion) SetAsCurrent()   { v.IsCurrent = true }
func (v *PromptVersion) UnsetAsCurrent() { v.IsCurrent = false }

func (v *PromptVersion) ValidateVersionNumber() bool { return v.VersionNumber > 0 }

func (v *PromptVersion) ValidateContentHash() bool {
	return v.ContentHash == Fingerprint(v.Content)
}

type VersionComparison struct {
	IsSame         bool `json:"is_same"`
	VersionDiff    int  `json:"version_diff"`
	TitleChanged   bool `json:"title_changed"`
	ContentChanged bool `json:"content_changed"`
	AuthorChanged  bool `json:"author_changed"`
}

// CompareWith summarises how v differs from other. VersionDiff is
// v.VersionNumber - other.VersionNumber.
func (v *PromptVersion) CompareWith(other *PromptVersion) (VersionComparison, error) {
	if other == nil {
		return VersionComparison{}, ErrNilVersion
	}
	return VersionComparison{
		IsSame:         v.ContentHash == other.ContentHash,
		VersionDiff:    v.VersionNumber - other.VersionNumber,
		TitleChanged:   v.Title != other.Title,
		ContentChanged: v.ContentHash != other.ContentHash,
		AuthorChanged:  v.AuthorID != other.AuthorID,
	}, nil
}

type ContentDiff struct {
	Lines        []string `json:"diff_lines"`
	AddedLines   int      `json:"added_lines"`
	RemovedLines int      `json:"removed_lines"`
	HasChanges   bool     `json:"has_changes"`
}

// ContentDiff renders a unified diff going from other to v.
func (v *PromptVersion) ContentDiff(other *PromptVersion) (ContentDiff, error) {
	if other == nil {
		return ContentDiff{}, ErrNilVersion
	}

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(other.Content),
		B:        difflib.SplitLines(v.Content),
		FromFile: fmt.Sprintf("version %d", other.VersionNumber),
		ToFile:   fmt.Sprintf("version %d", v.VersionNumber),
		Context:  3,
	})
	if err != nil {
		return ContentDiff{}, err
	}

	d := ContentDiff{Lines: []string{}}
	if text == "" {
		return d, nil
	}
	for i, line := range strings.Split(strings.TrimSuffix(text, "\n"), "\n") {
		d.Lines = append(d.Lines, line)
		switch {
		case i < 2:
			// file headers
		case strings.HasPrefix(line, "+"):
			d.AddedLines++
		case strings.HasPrefix(line, "-"):
			d.RemovedLines++
		}
	}
	d.HasChanges = len(d.Lines) > 0
	return d, nil
}

// VersionTree indexes the versions of one prompt by id so that parent and
// child walks are map lookups. Walks stop at ids already visited.
type VersionTree struct {
	nodes    map[uint64]*PromptVersion
	children map[uint64][]uint64
}

func NewVersionTree(versions []PromptVersion) *VersionTree {
	t := &VersionTree{
		nodes:    make(map[uint64]*PromptVersion, len(versions)),
		children: make(map[uint64][]uint64),
	}
	for i := range versions {
		v := &versions[i]
		t.nodes[v.ID] = v
	}
	for _, v := range t.nodes {
		if v.ParentVersionID != nil {
			t.children[*v.ParentVersionID] = append(t.children[*v.ParentVersionID], v.ID)
		}
	}
	for parent, kids := range t.children {
		sort.Slice(kids, func(i, j int) bool {
			return t.nodes[kids[i]].VersionNumber < t.nodes[kids[j]].VersionNumber
		})
		t.children[parent] = kids
	}
	return t
}

func (t *VersionTree) Get(id uint64) (*PromptVersion, bool) {
	v, ok := t.nodes[id]
	return v, ok
}

// Ancestors walks parent pointers from id, nearest parent first and the
// root last.
func (t *VersionTree) Ancestors(id uint64) []PromptVersion {
	out := []PromptVersion{}
	v, ok := t.nodes[id]
	if !ok {
		return out
	}
	seen := map[uint64]bool{id: true}
	for v.ParentVersionID != nil {
		pid := *v.ParentVersionID
		parent, ok := t.nodes[pid]
		if !ok || seen[pid] {
			break
		}
		seen[pid] = true
		out = append(out, *parent)
		v = parent
	}
	return out
}

// Descendants returns every version below id in depth-first pre-order.
func (t *VersionTree) Descendants(id uint64) []PromptVersion {
	out := []PromptVersion{}
	seen := map[uint64]bool{id: true}
	var walk func(uint64)
	walk = func(cur uint64) {
		for _, kid := range t.children[cur] {
			if seen[kid] {
				continue
			}
			seen[kid] = true
			out = append(out, *t.nodes[kid])
			walk(kid)
		}
	}
	walk(id)
	return out
}

// IsAncestor reports whether ancestor lies on the parent chain of id.
func (t *VersionTree) IsAncestor(ancestor, id uint64) bool {
	for _, v := range t.Ancestors(id) {
		if v.ID == ancestor {
			return true
		}
	}
	return false
}

func (t *VersionTree) IsDescendant(descendant, id uint64) bool {
	return t.IsAncestor(id, descendant)
}
