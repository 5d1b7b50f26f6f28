package proof

import (
	"testing"

	"github.com/dashpay/grovedb-sub005/cache"
	"github.com/dashpay/grovedb-sub005/element"
)

func TestWireV0RoundTripsRootLayerFullRange(t *testing.T) {
	store, rootHash := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{Items: []Item{{Kind: ItemRangeFull}}}
	lp, _, err := Generate(c, nil, query, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	encoded := EncodeV0(lp, Options{})

	decoded, opts, err := DecodeV0(encoded)
	if err != nil {
		t.Fatalf("DecodeV0: %v", err)
	}
	if opts.DecreaseLimitOnEmptySubqueryResult {
		t.Fatalf("expected DecreaseLimitOnEmptySubqueryResult false by default")
	}

	results, err := Verify(decoded, query, rootHash, Options{})
	if err != nil {
		t.Fatalf("Verify after round trip: %v", err)
	}
	if len(results) != 1 || string(results[0].Key) != "top" {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestWireV0RoundTripsNestedLayers(t *testing.T) {
	store, rootHash := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{
		Items:   []Item{Key([]byte("top"))},
		Default: &Query{Items: []Item{{Kind: ItemRangeFull}}},
	}
	lp, _, err := Generate(c, nil, query, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	encoded := EncodeV0(lp, Options{DecreaseLimitOnEmptySubqueryResult: true})

	decoded, opts, err := DecodeV0(encoded)
	if err != nil {
		t.Fatalf("DecodeV0: %v", err)
	}
	if !opts.DecreaseLimitOnEmptySubqueryResult {
		t.Fatalf("expected DecreaseLimitOnEmptySubqueryResult to round trip true")
	}
	if len(decoded.LowerLayers) != 1 {
		t.Fatalf("expected 1 lower layer, got %d", len(decoded.LowerLayers))
	}

	results, err := Verify(decoded, query, rootHash, Options{})
	if err != nil {
		t.Fatalf("Verify after round trip: %v", err)
	}
	if len(results) != 1 || len(results[0].Children) != 3 {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestWireV0RoundTripsAbsenceProof(t *testing.T) {
	store, rootHash := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{Items: []Item{Key([]byte("zzz"))}}
	opts := Options{AbsenceProofsForNonExistingSearchedKeys: true}
	lp, _, err := Generate(c, nil, query, opts)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	encoded := EncodeV0(lp, opts)

	decoded, decodedOpts, err := DecodeV0(encoded)
	if err != nil {
		t.Fatalf("DecodeV0: %v", err)
	}
	if !decodedOpts.AbsenceProofsForNonExistingSearchedKeys {
		t.Fatal("expected AbsenceProofsForNonExistingSearchedKeys to round trip true")
	}
	if len(decoded.AbsentKeys) != 1 || string(decoded.AbsentKeys[0]) != "zzz" {
		t.Fatalf("expected AbsentKeys to round trip, got %v", decoded.AbsentKeys)
	}

	results, err := Verify(decoded, query, rootHash, decodedOpts)
	if err != nil {
		t.Fatalf("Verify after round trip: %v", err)
	}
	if len(results) != 1 || !results[0].Absent {
		t.Fatalf("unexpected results: %v", results)
	}
}

func TestWireV0RejectsUnknownFormatTag(t *testing.T) {
	store, _ := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{Items: []Item{{Kind: ItemRangeFull}}}
	lp, _, err := Generate(c, nil, query, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	encoded := EncodeV0(lp, Options{})
	encoded[1] = 0xff

	if _, _, err := DecodeV0(encoded); err == nil {
		t.Fatal("expected an error for an unknown proof format tag")
	}
}

func TestWireV0RejectsTruncatedInput(t *testing.T) {
	store, _ := buildFixture(t)
	c := cache.New(store, nil, element.KindTree)

	query := &Query{Items: []Item{{Kind: ItemRangeFull}}}
	lp, _, err := Generate(c, nil, query, Options{})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}

	encoded := EncodeV0(lp, Options{})
	if _, _, err := DecodeV0(encoded[:len(encoded)-1]); err == nil {
		t.Fatal("expected an error for truncated wire bytes")
	}
	if _, _, err := DecodeV0(encoded[:2]); err == nil {
		t.Fatal("expected an error for a header-only buffer")
	}
}
