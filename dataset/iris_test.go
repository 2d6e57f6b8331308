package dataset

import (
	"strings"
	"testing"
)

func TestLoadIris(t *testing.T) {
	ds, err := LoadIris()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ds.Len() != 150 {
		t.Fatalf("expected 150 samples, got %d", ds.Len())
	}

	counts := make(map[int]int)
	for _, label := range ds.Labels {
		counts[label]++
	}
	for code := range TargetNames {
		if counts[code] != 50 {
			t.Fatalf("expected 50 samples for class %d, got %d", code, counts[code])
		}
	}

	first := ds.Features[0]
	want := []float64{5.1, 3.5, 1.4, 0.2}
	for i := range want {
		if first[i] != want[i] {
			t.Fatalf("unexpected first row: %v", first)
		}
	}
	if ds.Labels[0] != 0 {
		t.Fatalf("expected first label 0, got %d", ds.Labels[0])
	}
	for i, name := range FeatureNames {
		if ds.FeatureNames[i] != name {
			t.Fatalf("unexpected feature name %q at %d", ds.FeatureNames[i], i)
		}
	}
}

func TestParseRejectsBadRows(t *testing.T) {
	cases := map[string]string{
		"non numeric": "a,b,c,d,label\n1,x,3,4,0\n",
		"bad label":   "a,b,c,d,label\n1,2,3,4,9\n",
		"empty":       "a,b,c,d,label\n",
		"short row":   "a,b,c,d,label\n1,2,3\n",
	}
	for name, input := range cases {
		if _, err := parse(strings.NewReader(input), 4, 3); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}
