package index

import (
	"testing"

	"github.com/kailas-cloud/facedex/internal/domain"
)

func face(gender domain.Gender, embedding ...float32) domain.FaceRecord {
	return domain.FaceRecord{Embedding: embedding, Gender: gender}
}

func TestMerge_Disjoint(t *testing.T) {
	a := Index{"x.jpg": {face(domain.GenderMale, 1, 2)}}
	b := Index{"y.jpg": {face(domain.GenderFemale, 3, 4)}}

	merged := Merge(a, b)
	if len(merged) != 2 {
		t.Fatalf("merged size = %d, want 2", len(merged))
	}
	if _, ok := merged["x.jpg"]; !ok {
		t.Error("x.jpg missing from merge")
	}
	if _, ok := merged["y.jpg"]; !ok {
		t.Error("y.jpg missing from merge")
	}
}

func TestMerge_UpdateWinsOnCollision(t *testing.T) {
	existing := Index{"x.jpg": {face(domain.GenderMale, 1, 1)}}
	update := Index{"x.jpg": {face(domain.GenderFemale, 9, 9)}}

	merged := Merge(existing, update)
	if len(merged) != 1 {
		t.Fatalf("merged size = %d, want 1", len(merged))
	}
	got := merged["x.jpg"][0]
	if got.Gender != domain.GenderFemale || got.Embedding[0] != 9 {
		t.Errorf("collision entry = %+v, want the update entry", got)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	idx := Index{
		"a.jpg": {face(domain.GenderMale, 0.5, -0.5)},
		"b.jpg": {face(domain.GenderFemale, 1, 0), face(domain.GenderFemale, 0, 1)},
	}

	merged := Merge(idx, idx)
	if len(merged) != len(idx) {
		t.Fatalf("merge(I, I) size = %d, want %d", len(merged), len(idx))
	}
	for k, faces := range idx {
		got := merged[k]
		if len(got) != len(faces) {
			t.Fatalf("entry %s has %d faces, want %d", k, len(got), len(faces))
		}
	}
}

func TestMerge_DoesNotModifyInputs(t *testing.T) {
	existing := Index{"x.jpg": {face(domain.GenderMale, 1)}}
	update := Index{"x.jpg": {face(domain.GenderFemale, 2)}}

	_ = Merge(existing, update)
	if existing["x.jpg"][0].Gender != domain.GenderMale {
		t.Error("existing index was modified by merge")
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	age := 31
	bbox := [4]float64{10.5, 20.25, 110.5, 220.75}
	idx := Index{
		"portrait.jpg": {
			{
				Embedding: []float32{0.123456, -0.654321, 1e-7, 42},
				Gender:    domain.GenderMale,
				Age:       &age,
				BBox:      &bbox,
			},
		},
		"group.png": {
			{Embedding: []float32{1, 2, 3}, Gender: domain.GenderFemale},
			{Embedding: []float32{4, 5, 6}, Gender: domain.GenderMale},
		},
	}

	data, err := idx.Encode()
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	back, err := Decode(data)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(back) != 2 {
		t.Fatalf("decoded size = %d, want 2", len(back))
	}
	got := back["portrait.jpg"][0]
	for i, v := range idx["portrait.jpg"][0].Embedding {
		if got.Embedding[i] != v {
			t.Errorf("embedding[%d] = %v, want %v", i, got.Embedding[i], v)
		}
	}
	if got.Age == nil || *got.Age != age {
		t.Errorf("age = %v, want %d", got.Age, age)
	}
	if got.BBox == nil || *got.BBox != bbox {
		t.Errorf("bbox = %v, want %v", got.BBox, bbox)
	}
	if len(back["group.png"]) != 2 {
		t.Errorf("group.png has %d faces, want 2", len(back["group.png"]))
	}
}

func TestDecode_Empty(t *testing.T) {
	idx, err := Decode(nil)
	if err != nil {
		t.Fatalf("decode nil: %v", err)
	}
	if len(idx) != 0 {
		t.Errorf("decoded %d entries from nil, want 0", len(idx))
	}
}

func TestDecode_Invalid(t *testing.T) {
	if _, err := Decode([]byte("{broken")); err == nil {
		t.Fatal("expected error for invalid payload")
	}
}
