package prim

import (
	"testing"
)

func TestPathOps(t *testing.T) {
	p := Path("/World/Geo/Body")
	if p.Name() != "Body" {
		t.Errorf("Name: got %q", p.Name())
	}
	if p.Parent() != "/World/Geo" {
		t.Errorf("Parent: got %q", p.Parent())
	}
	if Path("/World").Parent() != Root {
		t.Errorf("top-level Parent: got %q", Path("/World").Parent())
	}
	if Root.Child("World") != "/World" {
		t.Errorf("root Child: got %q", Root.Child("World"))
	}
	if p.Child("Arm") != "/World/Geo/Body/Arm" {
		t.Errorf("Child: got %q", p.Child("Arm"))
	}

	if !p.HasPrefix("/World") || !p.HasPrefix(p) || !p.HasPrefix(Root) {
		t.Error("HasPrefix false negatives")
	}
	if p.HasPrefix("/World/Geo/Bo") {
		t.Error("HasPrefix matched a partial segment")
	}
}

func TestFind(t *testing.T) {
	root := New(Root, "")
	geo := root.NewChild("World", "Xform").NewChild("Geo", "Scope")
	body := geo.NewChild("Body", "Mesh")

	if got := root.Find("/World/Geo/Body"); got != body {
		t.Fatalf("Find from root: got %v", got)
	}
	// Find resolves absolute paths from any node in the tree.
	if got := body.Find("/World/Geo"); got != geo {
		t.Fatalf("Find from leaf: got %v", got)
	}
	if got := root.Find("/World/Nope"); got != nil {
		t.Fatalf("missing path: got %v", got)
	}
}

func TestVisitOrder(t *testing.T) {
	root := New(Root, "")
	for _, n := range []string{"C", "A", "B"} {
		root.NewChild(n, "Xform")
	}
	var got []string
	root.VisitChildren(func(c *Prim) {
		got = append(got, c.Path.Name())
	})
	want := []string{"C", "A", "B"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("visit order: got %v, want %v", got, want)
		}
	}
}

func TestWalkPrune(t *testing.T) {
	root := New(Root, "")
	a := root.NewChild("A", "Xform")
	a.NewChild("Inner", "Mesh")
	root.NewChild("B", "Xform")

	var visited []string
	root.Walk(func(p *Prim) bool {
		visited = append(visited, string(p.Path))
		return p.Path.Name() != "A" // prune under A
	})
	for _, v := range visited {
		if v == "/A/Inner" {
			t.Fatal("walk descended into a pruned subtree")
		}
	}
}

func TestPropNilSafety(t *testing.T) {
	p := New("/X", "Xform")
	if p.Prop("missing") != nil {
		t.Fatal("Prop on missing name should be nil")
	}
	if p.Prop("missing").Val() != nil {
		t.Fatal("Val on nil property should be nil")
	}
	if p.Prop("missing").Timed() {
		t.Fatal("Timed on nil property should be false")
	}
	if p.Prop("missing").ConnectTargets() != nil {
		t.Fatal("ConnectTargets on nil property should be nil")
	}
}

func TestValueConversions(t *testing.T) {
	if v, ok := AsFloat(float64(2.5)); !ok || v != 2.5 {
		t.Errorf("AsFloat(float64): %v %v", v, ok)
	}
	if v, ok := AsFloat(3); !ok || v != 3 {
		t.Errorf("AsFloat(int): %v %v", v, ok)
	}
	if _, ok := AsFloat("nope"); ok {
		t.Error("AsFloat(string) succeeded")
	}
}
