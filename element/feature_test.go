package element

import "testing"

func TestBindsIntoHashOnlyForProvableCounted(t *testing.T) {
	cases := []struct {
		tag  FeatureTag
		want bool
	}{
		{FeatureBasic, false},
		{FeatureSummed, false},
		{FeatureBigSummed, false},
		{FeatureCounted, false},
		{FeatureCountedSummed, false},
		{FeatureProvableCounted, true},
		{FeatureProvableCountedSummed, true},
	}
	for _, c := range cases {
		got := FeatureType{Tag: c.tag}.BindsIntoHash()
		if got != c.want {
			t.Errorf("tag %v: BindsIntoHash() = %v, want %v", c.tag, got, c.want)
		}
	}
}

func TestHashBytesDistinguishesTags(t *testing.T) {
	seen := map[string]FeatureTag{}
	inputs := []FeatureType{
		{Tag: FeatureBasic},
		{Tag: FeatureSummed, Sum: 5},
		{Tag: FeatureBigSummed, BigSum: BigInt128FromInt64(5)},
		{Tag: FeatureCounted, Count: 5},
		{Tag: FeatureCountedSummed, Count: 5},
		{Tag: FeatureProvableCounted, Count: 5},
		{Tag: FeatureProvableCountedSummed, Count: 5, Sum: 5},
	}
	for _, f := range inputs {
		key := string(f.HashBytes())
		if prior, ok := seen[key]; ok {
			t.Fatalf("tag %v and %v produced colliding HashBytes", prior, f.Tag)
		}
		seen[key] = f.Tag
	}
}

func TestHashBytesCountedOmitsPayload(t *testing.T) {
	a := FeatureType{Tag: FeatureCounted, Count: 1}
	b := FeatureType{Tag: FeatureCounted, Count: 9999}
	if string(a.HashBytes()) != string(b.HashBytes()) {
		t.Fatal("Counted's count must not affect HashBytes")
	}
}

func TestHashBytesProvableCountedDependsOnCount(t *testing.T) {
	a := FeatureType{Tag: FeatureProvableCounted, Count: 1}
	b := FeatureType{Tag: FeatureProvableCounted, Count: 2}
	if string(a.HashBytes()) == string(b.HashBytes()) {
		t.Fatal("ProvableCounted's count must affect HashBytes")
	}
}

func TestHashBytesProvableCountedSummedDependsOnSum(t *testing.T) {
	a := FeatureType{Tag: FeatureProvableCountedSummed, Count: 1, Sum: 1}
	b := FeatureType{Tag: FeatureProvableCountedSummed, Count: 1, Sum: -1}
	if string(a.HashBytes()) == string(b.HashBytes()) {
		t.Fatal("ProvableCountedSummed's sum must affect HashBytes")
	}
}
