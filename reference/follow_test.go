package reference

import (
	"testing"

	"github.com/dashpay/grovedb-sub005/cost"
	"github.com/dashpay/grovedb-sub005/element"
	"github.com/dashpay/grovedb-sub005/grovedberr"
)

type fakeStore map[string]element.Element

func key(path [][]byte, k []byte) string { return qualifiedKey(path, k) }

func (s fakeStore) loader() Loader {
	return func(path [][]byte, k []byte) (element.Element, cost.OperationCost, error) {
		el, ok := s[key(path, k)]
		if !ok {
			return nil, cost.OperationCost{}, grovedberr.PathKeyNotFound("fake: %v/%x not found", path, k)
		}
		return el, cost.ForSeek(), nil
	}
}

func TestFollowResolvesNonReferenceImmediately(t *testing.T) {
	item := &element.Item{Value: []byte("v")}
	res, _, err := Follow(nil, seg("a"), []byte("k"), item)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if res.Element != element.Element(item) {
		t.Fatal("expected the same element back for a non-reference")
	}
	if res.Hops != 0 {
		t.Fatalf("hops = %d, want 0", res.Hops)
	}
}

func TestFollowChasesChainToFinalElement(t *testing.T) {
	store := fakeStore{}
	final := &element.Item{Value: []byte("final")}
	store[key(seg("a"), []byte("mid"))] = final

	ref1 := &element.Reference{Path: element.ReferencePathSpec{
		Kind: element.RefAbsolute, AbsolutePath: seg("a", "mid"),
	}}

	res, _, err := Follow(store.loader(), seg("root"), []byte("start"), ref1)
	if err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if res.Element != element.Element(final) {
		t.Fatalf("got %v, want final item", res.Element)
	}
	if res.Hops != 1 {
		t.Fatalf("hops = %d, want 1", res.Hops)
	}
	if string(res.Key) != "mid" {
		t.Fatalf("key = %q, want mid", res.Key)
	}
}

func TestFollowDetectsCycle(t *testing.T) {
	store := fakeStore{}
	refA := &element.Reference{Path: element.ReferencePathSpec{Kind: element.RefAbsolute, AbsolutePath: seg("b")}}
	refB := &element.Reference{Path: element.ReferencePathSpec{Kind: element.RefAbsolute, AbsolutePath: seg("a")}}
	store[key(nil, []byte("a"))] = refA
	store[key(nil, []byte("b"))] = refB

	_, _, err := Follow(store.loader(), nil, []byte("a"), refA)
	if err == nil {
		t.Fatal("expected cycle error")
	}
	if grovedberr.KindOf(err) != grovedberr.KindCyclicReference {
		t.Fatalf("got kind %v, want KindCyclicReference", grovedberr.KindOf(err))
	}
}

func TestFollowEnforcesMaxHops(t *testing.T) {
	store := fakeStore{}
	// Build a strictly increasing chain of references a0 -> a1 -> a2 -> ...
	// long enough to exceed version.MaxReferenceHops.
	const n = 20
	for i := 0; i < n; i++ {
		k := []byte{byte(i)}
		next := []byte{byte(i + 1)}
		store[key(nil, k)] = &element.Reference{Path: element.ReferencePathSpec{Kind: element.RefAbsolute, AbsolutePath: [][]byte{next}}}
	}
	store[key(nil, []byte{byte(n)})] = &element.Item{Value: []byte("end")}

	start := &element.Reference{Path: element.ReferencePathSpec{Kind: element.RefAbsolute, AbsolutePath: [][]byte{{0}}}}
	_, _, err := Follow(store.loader(), nil, []byte("start"), start)
	if err == nil {
		t.Fatal("expected reference-limit error")
	}
	if grovedberr.KindOf(err) != grovedberr.KindReferenceLimitExceeded {
		t.Fatalf("got kind %v, want KindReferenceLimitExceeded", grovedberr.KindOf(err))
	}
}

func TestFollowMissingTargetIsCorruptedReference(t *testing.T) {
	store := fakeStore{}
	ref := &element.Reference{Path: element.ReferencePathSpec{Kind: element.RefAbsolute, AbsolutePath: seg("nowhere")}}
	_, _, err := Follow(store.loader(), nil, []byte("start"), ref)
	if err == nil {
		t.Fatal("expected error for missing reference target")
	}
	if grovedberr.KindOf(err) != grovedberr.KindCorruptedReferencePathNotFound {
		t.Fatalf("got kind %v, want KindCorruptedReferencePathNotFound", grovedberr.KindOf(err))
	}
}
