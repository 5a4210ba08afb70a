package override

import (
	"reflect"
	"testing"
)

func TestMergeBySelector(t *testing.T) {
	s := NewStore()
	s.Add(Override{Selector: "#x", Text: Text("C"), Timestamp: 100})
	s.Add(Override{Selector: "#x", Styles: map[string]string{"color": "red"}, Timestamp: 200})

	merged := s.MergeBySelector("#x")
	if merged == nil {
		t.Fatal("merge: got nil")
	}
	if merged.Text == nil || *merged.Text != "C" {
		t.Errorf("text: got %v, want C", merged.Text)
	}
	if merged.Styles["color"] != "red" {
		t.Errorf("styles: got %v, want color=red", merged.Styles)
	}
	if merged.Timestamp != 200 {
		t.Errorf("timestamp: got %d, want 200", merged.Timestamp)
	}
}

func TestMergeFoldsInTimestampOrder(t *testing.T) {
	s := NewStore()
	// Inserted newest-first; merge must still fold oldest-first.
	s.Add(Override{Selector: "#x", Text: Text("new"), Timestamp: 300})
	s.Add(Override{Selector: "#x", Text: Text("old"), Timestamp: 100})
	s.Add(Override{Selector: "#x", Styles: map[string]string{"color": "red", "margin": "0"}, Timestamp: 150})
	s.Add(Override{Selector: "#x", Styles: map[string]string{"color": "blue"}, Timestamp: 250, Automated: true})

	merged := s.MergeBySelector("#x")
	if *merged.Text != "new" {
		t.Errorf("text: got %q, want new", *merged.Text)
	}
	want := map[string]string{"color": "blue", "margin": "0"}
	if !reflect.DeepEqual(merged.Styles, want) {
		t.Errorf("styles: got %v, want %v", merged.Styles, want)
	}
	if !merged.Automated {
		t.Error("origin: want automated=true when any contributor is automated")
	}
	if merged.Timestamp != 300 {
		t.Errorf("timestamp: got %d, want 300", merged.Timestamp)
	}
}

func TestMergeIdempotent(t *testing.T) {
	s := NewStore()
	s.Add(Override{Selector: "#x", Text: Text("a"), Timestamp: 100})
	s.Add(Override{Selector: "#x", Styles: map[string]string{"color": "red"}, Timestamp: 200})

	first := s.MergeBySelector("#x")

	s2 := NewStore()
	s2.Add(*first)
	second := s2.MergeBySelector("#x")

	if !reflect.DeepEqual(first, second) {
		t.Errorf("merge not idempotent:\nfirst  %+v\nsecond %+v", first, second)
	}
}

func TestMergeUnknownSelector(t *testing.T) {
	s := NewStore()
	if got := s.MergeBySelector("#missing"); got != nil {
		t.Errorf("merge unknown: got %+v, want nil", got)
	}
}

func TestAllChronological(t *testing.T) {
	s := NewStore()
	s.Add(Override{Selector: "#b", Text: Text("3"), Timestamp: 300})
	s.Add(Override{Selector: "#a", Text: Text("1"), Timestamp: 100})
	s.Add(Override{Selector: "#b", Text: Text("2"), Timestamp: 200})

	all := s.AllChronological()
	if len(all) != 3 {
		t.Fatalf("count: got %d, want 3", len(all))
	}
	for i := 1; i < len(all); i++ {
		if all[i].Timestamp < all[i-1].Timestamp {
			t.Errorf("not sorted at %d: %d after %d", i, all[i].Timestamp, all[i-1].Timestamp)
		}
	}
	if *all[0].Text != "1" || *all[1].Text != "2" || *all[2].Text != "3" {
		t.Errorf("order: got %v %v %v", *all[0].Text, *all[1].Text, *all[2].Text)
	}
}

func TestRemoveOne(t *testing.T) {
	s := NewStore()
	s.Add(Override{Selector: "#x", Text: Text("a"), Timestamp: 100})
	s.Add(Override{Selector: "#x", Text: Text("b"), Timestamp: 200})

	if !s.RemoveOne("#x", 100) {
		t.Fatal("remove existing: got false")
	}
	if s.Count() != 1 {
		t.Errorf("count: got %d, want 1", s.Count())
	}

	// Non-existent timestamp leaves the log unchanged.
	if s.RemoveOne("#x", 999) {
		t.Error("remove missing timestamp: got true")
	}
	if s.Count() != 1 {
		t.Errorf("count after no-op: got %d, want 1", s.Count())
	}

	// Removing the last record drops the selector entirely.
	if !s.RemoveOne("#x", 200) {
		t.Fatal("remove last: got false")
	}
	if s.Has("#x") {
		t.Error("selector should disappear when its list empties")
	}
	if len(s.Selectors()) != 0 {
		t.Errorf("selectors: got %v, want empty", s.Selectors())
	}
}

func TestTruncateAfter(t *testing.T) {
	s := NewStore()
	s.Add(Override{Selector: "#x", Text: Text("a"), Timestamp: 100})
	s.Add(Override{Selector: "#x", Styles: map[string]string{"color": "red"}, Timestamp: 200})
	s.Add(Override{Selector: "#y", Text: Text("b"), Timestamp: 300})

	if dropped := s.TruncateAfter(100); dropped != 2 {
		t.Errorf("dropped: got %d, want 2", dropped)
	}
	if s.Count() != 1 {
		t.Errorf("count: got %d, want 1", s.Count())
	}
	if s.Has("#y") {
		t.Error("#y should be gone after truncation")
	}

	// Second truncation at the same target is a no-op.
	if dropped := s.TruncateAfter(100); dropped != 0 {
		t.Errorf("second truncate: dropped %d, want 0", dropped)
	}
}

func TestClearAndCounts(t *testing.T) {
	s := NewStore()
	s.Add(Override{Selector: "#x", Text: Text("a"), Timestamp: 100})
	s.Add(Override{Selector: "#y", Text: Text("b"), Timestamp: 200})

	if s.Count() != 2 {
		t.Errorf("count: got %d, want 2", s.Count())
	}
	if !s.Has("#x") || !s.Has("#y") {
		t.Error("Has: want true for both selectors")
	}

	s.Clear()
	if s.Count() != 0 || len(s.Selectors()) != 0 {
		t.Error("clear left records behind")
	}
}

func TestValidate(t *testing.T) {
	empty := Override{Selector: "#x", Timestamp: 100}
	if err := empty.Validate(); err == nil {
		t.Error("expected error for payload-free override")
	}

	ok := Override{Selector: "#x", Text: Text("a"), Timestamp: 100}
	if err := ok.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}

	noSel := Override{Text: Text("a"), Timestamp: 100}
	if err := noSel.Validate(); err == nil {
		t.Error("expected error for empty selector")
	}
}

func TestHistoryEntries(t *testing.T) {
	s := NewStore()
	s.Add(Override{Selector: "#x", Text: Text("a"), Timestamp: 200})
	s.Add(Override{Selector: "#y", Text: Text("b"), Timestamp: 100})

	entries := s.History()
	if len(entries) != 2 {
		t.Fatalf("entries: got %d, want 2", len(entries))
	}
	if entries[0].Timestamp != 100 || entries[1].Timestamp != 200 {
		t.Errorf("order: got %d, %d", entries[0].Timestamp, entries[1].Timestamp)
	}
	if entries[0].Override.Selector != "#y" {
		t.Errorf("entry selector: got %q, want #y", entries[0].Override.Selector)
	}
}
