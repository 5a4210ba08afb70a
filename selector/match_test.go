package selector

import "testing"

func TestQueryAllDescendant(t *testing.T) {
	body := parseBody(t, `
		<article>
			<p>a</p>
			<aside><p>b</p></aside>
		</article>
		<p>c</p>`)

	got, err := QueryAll(body, "article p")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("article p: got %d matches, want 2", len(got))
	}
}

func TestQueryAllChildCombinator(t *testing.T) {
	body := parseBody(t, `
		<article>
			<p>a</p>
			<aside><p>b</p></aside>
		</article>`)

	got, err := QueryAll(body, "article > p")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("article > p: got %d matches, want 1", len(got))
	}
}

func TestQueryAllNthChild(t *testing.T) {
	body := parseBody(t, `<ul><li>a</li><li>b</li><li>c</li></ul>`)

	got, err := QueryAll(body, "li:nth-child(2)")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("matches: got %d, want 1", len(got))
	}
	if got[0].FirstChild == nil || got[0].FirstChild.Data != "b" {
		t.Errorf("nth-child(2): wrong element")
	}
}

func TestQueryAllAttribute(t *testing.T) {
	body := parseBody(t, `<input name="q"><input name="page">`)

	got, err := QueryAll(body, `input[name="page"]`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("matches: got %d, want 1", len(got))
	}

	got, err = QueryAll(body, `input[name]`)
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("bare attribute: got %d matches, want 2", len(got))
	}
}

func TestQueryAllCompound(t *testing.T) {
	body := parseBody(t, `
		<div class="card main" id="hero">x</div>
		<div class="card">y</div>`)

	got, err := QueryAll(body, "div.card.main")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("matches: got %d, want 1", len(got))
	}

	got, err = QueryAll(body, "div#hero.card")
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 1 {
		t.Errorf("tag#id.class: got %d matches, want 1", len(got))
	}
}

func TestParseSelectorErrors(t *testing.T) {
	bad := []string{"", "  ", ">", "div >", "> div", "div::after", "div[", "li:nth-child(x)", "li:nth-child(0)"}
	for _, sel := range bad {
		if _, err := parseSelector(sel); err == nil {
			t.Errorf("parseSelector(%q): expected error", sel)
		}
	}
}
