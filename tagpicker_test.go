package folio

import (
	"strings"
	"testing"
)

func TestTagPickerAddPersisted(t *testing.T) {
	persisted := []Tag{{ID: 1, Name: "Go", Slug: "go"}, {ID: 2, Name: "Web", Slug: "web"}}
	p := NewTagPicker(persisted, nil)

	id := p.Add("go")
	if id != "1" {
		t.Errorf("Add(go) = %q, want the persisted id %q", id, "1")
	}
	if len(p.Pending()) != 0 {
		t.Errorf("matching a persisted tag staged %d pending tags, want 0", len(p.Pending()))
	}
	if got := p.Selected(); len(got) != 1 || got[0] != "1" {
		t.Errorf("Selected = %v, want [1]", got)
	}
}

func TestTagPickerPendingDeduplicated(t *testing.T) {
	p := NewTagPicker(nil, nil)

	first := p.Add("golang")
	second := p.Add("GoLang")

	if first == "" || !strings.HasPrefix(first, tempIDPrefix) {
		t.Fatalf("Add of a new name returned %q, want a temp id", first)
	}
	if second != first {
		t.Errorf("re-adding the same name returned %q, want the original temp id %q", second, first)
	}
	if got := p.Pending(); len(got) != 1 || got[0].Name != "golang" {
		t.Errorf("Pending = %v, want the single original entry", got)
	}
	if got := p.Selected(); len(got) != 1 {
		t.Errorf("Selected has %d entries, want 1", len(got))
	}
}

func TestTagPickerRemoveKeepsPendingStaged(t *testing.T) {
	p := NewTagPicker(nil, nil)
	id := p.Add("draft-tag")
	p.Remove(id)

	if got := p.Selected(); len(got) != 0 {
		t.Errorf("Selected after remove = %v, want empty", got)
	}
	if got := p.Pending(); len(got) != 1 {
		t.Fatalf("Pending after remove has %d entries, want the staged tag kept", len(got))
	}
	if again := p.Add("draft-tag"); again != id {
		t.Errorf("re-add returned %q, want the staged temp id %q", again, id)
	}
}

func TestTagPickerPartition(t *testing.T) {
	persisted := []Tag{{ID: 7, Name: "Go", Slug: "go"}}
	p := NewTagPicker(persisted, []int64{7})
	p.Add("Concurrency")
	p.Add("Testing")

	ids, names := p.Partition()
	if len(ids) != 1 || ids[0] != 7 {
		t.Errorf("existing ids = %v, want [7]", ids)
	}
	if len(names) != 2 || names[0] != "Concurrency" || names[1] != "Testing" {
		t.Errorf("new names = %v, want [Concurrency Testing]", names)
	}
}

func TestTagPickerEmptyName(t *testing.T) {
	p := NewTagPicker(nil, nil)
	if id := p.Add("   "); id != "" {
		t.Errorf("Add of blank name = %q, want empty", id)
	}
	if len(p.Pending()) != 0 || len(p.Selected()) != 0 {
		t.Error("blank name changed picker state")
	}
}
