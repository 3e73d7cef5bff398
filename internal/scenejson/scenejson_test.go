package scenejson

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"

	"usd-stage-realizer/internal/prim"
)

const fixture = `{
  "meta": {"startTimeCode": 1, "endTimeCode": 24, "timeCodesPerSecond": 24},
  "root": {
    "children": {
      "World": {
        "type": "Xform",
        "order": ["Body", "Mat"],
        "children": {
          "Body": {
            "type": "Mesh",
            "props": {
              "points": {
                "type": "point3f[]",
                "value": [[0,0,0],[1,0,0],[0,1,0]],
                "samples": {"1": [[0,0,0],[1,0,0],[0,1,0]], "24": [[0,1,0],[1,1,0],[0,2,0]]}
              },
              "faceVertexCounts": {"type": "int[]", "value": [3]},
              "faceVertexIndices": {"type": "int[]", "value": [0,1,2]},
              "primvars:st": {
                "type": "texCoord2f[]",
                "value": [[0,0],[1,0],[0,1]],
                "interp": "faceVarying",
                "indices": [0,1,2]
              },
              "xformOp:orient": {"type": "quatf", "value": [1,0,0,0]},
              "xformOp:transform": {
                "type": "matrix4d",
                "value": [1,0,0,0, 0,1,0,0, 0,0,1,0, 3,4,5,1]
              },
              "doubleSided": {"type": "bool", "value": true},
              "subdivisionScheme": {"type": "token", "value": "none"}
            },
            "rels": {"material:binding": ["/World/Mat"]}
          },
          "Mat": {
            "type": "Material",
            "props": {
              "outputs:surface": {"type": "token", "connect": ["/World/Mat/S.outputs:surface"]}
            }
          }
        }
      }
    }
  }
}`

func TestParse(t *testing.T) {
	root, err := Parse([]byte(fixture))
	if err != nil {
		t.Fatal(err)
	}

	if v, ok := root.Meta["startTimeCode"].(float64); !ok || v != 1 {
		t.Errorf("startTimeCode: got %v", root.Meta["startTimeCode"])
	}

	body := root.Find("/World/Body")
	if body == nil || body.TypeName != "Mesh" {
		t.Fatalf("body prim: got %v", body)
	}

	pts, ok := body.Prop("points").Val().([]mgl32.Vec3)
	if !ok || len(pts) != 3 || pts[1] != (mgl32.Vec3{1, 0, 0}) {
		t.Fatalf("points: got %v", body.Prop("points").Val())
	}
	if !body.Prop("points").Timed() {
		t.Fatal("points samples lost")
	}
	if s, ok := body.Prop("points").Samples[24].([]mgl32.Vec3); !ok || s[0] != (mgl32.Vec3{0, 1, 0}) {
		t.Fatalf("points sample at 24: got %v", body.Prop("points").Samples[24])
	}

	st := body.Prop("primvars:st")
	if st.Interp != "faceVarying" {
		t.Errorf("st interp: got %q", st.Interp)
	}
	if len(st.Indices) != 3 {
		t.Errorf("st indices: got %v", st.Indices)
	}

	q, ok := body.Prop("xformOp:orient").Val().(mgl32.Quat)
	if !ok || q.W != 1 {
		t.Fatalf("orient: got %v", body.Prop("xformOp:orient").Val())
	}

	m, ok := body.Prop("xformOp:transform").Val().(mgl32.Mat4)
	if !ok {
		t.Fatal("transform not a matrix")
	}
	// Translation lands in the last column after the layout conversion.
	if m.Col(3) != (mgl32.Vec4{3, 4, 5, 1}) {
		t.Fatalf("transform translation: got %v", m.Col(3))
	}

	if !prim.AsBool(body.Prop("doubleSided").Val()) {
		t.Error("doubleSided lost")
	}

	rel := body.Rel("material:binding")
	if len(rel) != 1 || rel[0] != "/World/Mat" {
		t.Fatalf("binding rel: got %v", rel)
	}

	mat := root.Find("/World/Mat")
	conn := mat.Prop("outputs:surface").ConnectTargets()
	if len(conn) != 1 || conn[0] != "/World/Mat/S.outputs:surface" {
		t.Fatalf("connect: got %v", conn)
	}

	// Authored order survives.
	var names []string
	root.Find("/World").VisitChildren(func(c *prim.Prim) {
		names = append(names, c.Path.Name())
	})
	if len(names) != 2 || names[0] != "Body" || names[1] != "Mat" {
		t.Fatalf("child order: got %v", names)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		in   string
	}{
		{"bad json", `{`},
		{"no root", `{"meta": {}}`},
		{"unknown type", `{"root": {"children": {"X": {"props": {"p": {"type": "color7z", "value": 1}}}}}}`},
		{"bad tuple width", `{"root": {"children": {"X": {"props": {"p": {"type": "float3", "value": [1,2]}}}}}}`},
		{"bad sample key", `{"root": {"children": {"X": {"props": {"p": {"type": "float", "samples": {"abc": 1}}}}}}}`},
	}
	for _, c := range cases {
		if _, err := Parse([]byte(c.in)); err == nil {
			t.Errorf("%s: Parse succeeded, want error", c.name)
		}
	}
}
