package folio

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// tempIDPrefix marks selection ids that refer to pending (not yet
// persisted) tags. Real tag ids are decimal numbers and can never collide
// with it.
const tempIDPrefix = "tmp_"

// PendingTag is a tag name staged in the editor that does not yet
// correspond to a persisted row. Its TempID is meaningful only for the
// lifetime of the TagPicker holding it and is never stored.
type PendingTag struct {
	TempID string
	Name   string
}

// TagPicker is the editor-side tag reconciliation state: the persisted
// tags known at edit start, pending tags added during the session, and an
// ordered selection mixing both. It is explicit per-edit state handed to
// the submit path, not ambient session state.
type TagPicker struct {
	persisted []Tag
	pending   []PendingTag
	selected  []string
}

// NewTagPicker creates a picker over the persisted tags, with initial
// (already associated) tag ids pre-selected.
func NewTagPicker(persisted []Tag, selectedIDs []int64) *TagPicker {
	p := &TagPicker{persisted: persisted}
	for _, id := range selectedIDs {
		p.selectID(strconv.FormatInt(id, 10))
	}
	return p
}

// Add stages a tag by typed name and returns the selection id it resolved
// to. A persisted tag with the same name (case-insensitive) is selected
// instead of creating a duplicate; likewise a pending tag staged earlier in
// the session. Only a genuinely new name creates a PendingTag. Empty names
// resolve to "".
func (p *TagPicker) Add(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	for _, t := range p.persisted {
		if strings.EqualFold(t.Name, name) {
			id := strconv.FormatInt(t.ID, 10)
			p.selectID(id)
			return id
		}
	}
	for _, pt := range p.pending {
		if strings.EqualFold(pt.Name, name) {
			p.selectID(pt.TempID)
			return pt.TempID
		}
	}
	pt := PendingTag{TempID: tempIDPrefix + uuid.NewString(), Name: name}
	p.pending = append(p.pending, pt)
	p.selectID(pt.TempID)
	return pt.TempID
}

// Remove deselects a tag by selection id. A pending tag stays staged so
// re-adding the same name reuses its temp id.
func (p *TagPicker) Remove(id string) {
	for i, sel := range p.selected {
		if sel == id {
			p.selected = append(p.selected[:i], p.selected[i+1:]...)
			return
		}
	}
}

// Selected returns the current selection ids in order.
func (p *TagPicker) Selected() []string {
	out := make([]string, len(p.selected))
	copy(out, p.selected)
	return out
}

// Pending returns the staged pending tags.
func (p *TagPicker) Pending() []PendingTag {
	out := make([]PendingTag, len(p.pending))
	copy(out, p.pending)
	return out
}

// Partition splits the selection into persisted tag ids and pending tag
// names for submission. The server find-or-creates the names, so a name
// persisted by a concurrent editor in the meantime resolves to reuse.
func (p *TagPicker) Partition() (existingIDs []int64, newNames []string) {
	for _, sel := range p.selected {
		if strings.HasPrefix(sel, tempIDPrefix) {
			for _, pt := range p.pending {
				if pt.TempID == sel {
					newNames = append(newNames, pt.Name)
					break
				}
			}
			continue
		}
		id, err := strconv.ParseInt(sel, 10, 64)
		if err != nil {
			continue
		}
		existingIDs = append(existingIDs, id)
	}
	return existingIDs, newNames
}

func (p *TagPicker) selectID(id string) {
	for _, sel := range p.selected {
		if sel == id {
			return
		}
	}
	p.selected = append(p.selected, id)
}
