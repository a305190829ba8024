package domain

import (
	"fmt"
	"time"
)

type Visibility int

const (
	VisibilityPrivate       Visibility = 1
	VisibilityCollaborators Visibility = 2
	VisibilityPublic        Visibility = 3
)

func (v Visibility) Valid() bool {
	return v >= VisibilityPrivate && v <= VisibilityPublic
}

type PromptStatus int

const (
	PromptDeleted PromptStatus = -1
	PromptDraft   PromptStatus = 0
	PromptActive  PromptStatus = 1
)

const DefaultLanguage = "zh-CN"

type Prompt struct {
	Model
	Title        string       `gorm:"size:200;not null" json:"title"`
	Description  string       `gorm:"type:text" json:"description"`
	Content      string       `gorm:"type:text;not null" json:"content"`
	ContentHash  string       `gorm:"size:64;not null;index" json:"content_hash"`
	OwnerID      uint64       `gorm:"not null;index" json:"owner_id"`
	Owner        *User        `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"owner,omitempty"`
	Visibility   Visibility   `gorm:"not null;index" json:"visibility"`
	Category     string       `gorm:"size:50;index" json:"category"`
	Language     string       `gorm:"size:10" json:"language"`
	ModelType    string       `gorm:"size:50" json:"model_type"`
	Status       PromptStatus `gorm:"not null;index" json:"status"`
	VersionCount int          `gorm:"not null" json:"version_count"`
	TestCount    int          `gorm:"not null" json:"test_count"`
	LastTestedAt *time.Time   `json:"last_tested_at"`

	Versions      []PromptVersion      `gorm:"foreignKey:PromptID;constraint:OnDelete:CASCADE" json:"versions,omitempty"`
	Tags          []Tag                `gorm:"many2many:prompt_tags;constraint:OnDelete:CASCADE" json:"tags,omitempty"`
	Collaborators []PromptCollaborator `gorm:"foreignKey:PromptID;constraint:OnDelete:CASCADE" json:"collaborators,omitempty"`
	TestRecords   []TestRecord         `gorm:"foreignKey:PromptID;constraint:OnDelete:CASCADE" json:"-"`
}

// NewPrompt builds an active prompt together with its first version.
func NewPrompt(ownerID uint64, title, content string) *Prompt {
	p := &Prompt{
		Title:        title,
		Content:      content,
		ContentHash:  Fingerprint(content),
		OwnerID:      ownerID,
		Visibility:   VisibilityPrivate,
		Language:     DefaultLanguage,
		Status:       PromptActive,
		VersionCount: 1,
	}
	p.Versions = []PromptVersion{{
		VersionNumber: 1,
		Title:         title,
		Content:       content,
		ContentHash:   p.ContentHash,
		ChangeSummary: "initial version",
		AuthorID:      ownerID,
		IsCurrent:     true,
	}}
	return p
}

// UpdateContent applies newContent and returns the snapshot the caller must
// persist. It returns nil when the content is unchanged.
//
// Only the loaded Versions slice is updated here; the repository clears
// is_current on stored rows in the same transaction as the insert.
func (p *Prompt) UpdateContent(newContent string, authorID uint64, summary string) *PromptVersion {
	hash := Fingerprint(newContent)
	if hash == p.ContentHash {
		return nil
	}

	var parentID *uint64
	if cur := p.CurrentVersion(); cur != nil && cur.ID != 0 {
		id := cur.ID
		parentID = &id
	}
	for i := range p.Versions {
		p.Versions[i].UnsetAsCurrent()
	}

	p.VersionCount++
	p.Content = newContent
	p.ContentHash = hash

	p.Versions = append(p.Versions, PromptVersion{
		PromptID:        p.ID,
		VersionNumber:   p.VersionCount,
		Title:           p.Title,
		Content:         newContent,
		ContentHash:     hash,
		ChangeSummary:   summary,
		AuthorID:        authorID,
		ParentVersionID: parentID,
	})
	v := &p.Versions[len(p.Versions)-1]
	v.SetAsCurrent()
	return v
}

// RollbackToVersion re-applies the content of version number as a new
// version. found is false when no such version is loaded; the returned
// version is nil when the content already matches.
func (p *Prompt) RollbackToVersion(number int, authorID uint64) (v *PromptVersion, found bool) {
	target := p.VersionByNumber(number)
	if target == nil {
		return nil, false
	}

	targetID := target.ID
	v = p.UpdateContent(target.Content, authorID, fmt.Sprintf("rolled back to version %d", number))
	if v != nil && targetID != 0 {
		v.ParentVersionID = &targetID
	}
	return v, true
}

// CurrentVersion returns the loaded version flagged current, falling back to
// the highest numbered one.
func (p *Prompt) CurrentVersion() *PromptVersion {
	var latest *PromptVersion
	for i := range p.Versions {
		v := &p.Versions[i]
		if v.IsCurrent {
			return v
		}
		if latest == nil || v.VersionNumber > latest.VersionNumber {
			latest = v
		}
	}
	return latest
}

func (p *Prompt) VersionByNumber(number int) *PromptVersion {
	for i := range p.Versions {
		if p.Versions[i].VersionNumber == number {
			return &p.Versions[i]
		}
	}
	return nil
}

// IntegrityOK reports whether the stored hash matches the stored content.
func (p *Prompt) IntegrityOK() bool {
	return p.ContentHash == Fingerprint(p.Content)
}

func (p *Prompt) IsOwner(userID uint64) bool {
	return p.OwnerID == userID
}

// grant returns the active collaborator grant held by userID, if any.
func (p *Prompt) grant(userID uint64) *PromptCollaborator {
	for i := range p.Collaborators {
		c := &p.Collaborators[i]
		if c.UserID == userID && c.IsActive() {
			return c
		}
	}
	return nil
}

func (p *Prompt) IsCollaborator(userID uint64) bool {
	return p.IsOwner(userID) || p.grant(userID) != nil
}

// CanEdit never grants more than CanView: a private prompt is owner-only
// even for users holding an editor grant.
func (p *Prompt) CanEdit(userID uint64) bool {
	if p.IsOwner(userID) {
		return true
	}
	if p.Visibility == VisibilityPrivate {
		return false
	}
	g := p.grant(userID)
	return g != nil && g.Role.CanEdit()
}

func (p *Prompt) CanView(userID uint64) bool {
	switch p.Visibility {
	case VisibilityPublic:
		return true
	case VisibilityCollaborators:
		return p.IsCollaborator(userID)
	default:
		return p.IsOwner(userID)
	}
}

func (p *Prompt) Publish()    { p.Status = PromptActive }
func (p *Prompt) SetDraft()   { p.Status = PromptDraft }
func (p *Prompt) SoftDelete() { p.Status = PromptDeleted }

func (p *Prompt) IsDeleted() bool { return p.Status == PromptDeleted }

func (p *Prompt) IncrementTestCount(at time.Time) {
	p.TestCount++
	p.LastTestedAt = &at
}

// AddTag attaches tag once; it reports whether the set changed.
func (p *Prompt) AddTag(tag Tag) bool {
	if p.HasTag(tag.ID) {
		return false
	}
	p.Tags = append(p.Tags, tag)
	return true
}

func (p *Prompt) RemoveTag(tagID uint64) bool {
	for i, t := range p.Tags {
		if t.ID == tagID {
			p.Tags = append(p.Tags[:i], p.Tags[i+1:]...)
			return true
		}
	}
	return false
}

func (p *Prompt) HasTag(tagID uint64) bool {
	for _, t := range p.Tags {
		if t.ID == tagID {
			return true
		}
	}
	return false
}

// PromptTag is the join row between prompts and tags.
type PromptTag struct {
	PromptID  uint64    `gorm:"primaryKey" json:"prompt_id"`
	TagID     uint64    `gorm:"primaryKey" json:"tag_id"`
	CreatedAt time.Time `json:"created_at"`
}
