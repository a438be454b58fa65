package embedding

import (
	"context"
	"math"
	"testing"
)

func TestMockEmbedderDeterministic(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()
	cc := DefaultContext()

	a, err := e.Embed(ctx, cc, "hello world")
	if err != nil {
		t.Fatal(err)
	}
	b, err := e.Embed(ctx, cc, "hello world")
	if err != nil {
		t.Fatal(err)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("same text produced different embeddings at %d", i)
		}
	}

	c, err := e.Embed(ctx, cc, "different text")
	if err != nil {
		t.Fatal(err)
	}
	same := true
	for i := range a {
		if a[i] != c[i] {
			same = false
			break
		}
	}
	if same {
		t.Error("different texts produced identical embeddings")
	}
}

func TestMockEmbedderUnitLength(t *testing.T) {
	e := NewMockEmbedder(16)
	v, err := e.Embed(context.Background(), DefaultContext(), "some text")
	if err != nil {
		t.Fatal(err)
	}
	if len(v) != 16 {
		t.Fatalf("dimensions = %d", len(v))
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if math.Abs(sum-1) > 1e-5 {
		t.Errorf("norm^2 = %f, want 1", sum)
	}
}

func TestMockEmbedderBatch(t *testing.T) {
	e := NewMockEmbedder(8)
	ctx := context.Background()
	cc := DefaultContext()
	batch, err := e.EmbedBatch(ctx, cc, []string{"one", "two"})
	if err != nil {
		t.Fatal(err)
	}
	if len(batch) != 2 {
		t.Fatalf("batch size = %d", len(batch))
	}
	single, _ := e.Embed(ctx, cc, "one")
	for i := range single {
		if batch[0][i] != single[i] {
			t.Fatal("batch embedding differs from single embedding")
		}
	}
}

func TestParseDevice(t *testing.T) {
	if d, err := ParseDevice("cpu"); err != nil || d != DeviceCPU {
		t.Errorf("cpu = %v, %v", d, err)
	}
	if d, err := ParseDevice("cuda"); err != nil || d != DeviceCUDA {
		t.Errorf("cuda = %v, %v", d, err)
	}
	if _, err := ParseDevice("tpu"); err == nil {
		t.Error("expected error for unknown device")
	}
}

func TestSimpleTokenizer(t *testing.T) {
	tok := &SimpleTokenizer{}
	ids, mask, types := tok.Tokenize("hello world", 8)
	if len(ids) != 8 || len(mask) != 8 || len(types) != 8 {
		t.Fatalf("lengths = %d, %d, %d", len(ids), len(mask), len(types))
	}
	if ids[0] != 101 {
		t.Errorf("first token = %d, want [CLS]", ids[0])
	}
	if ids[3] != 102 {
		t.Errorf("token after words = %d, want [SEP]", ids[3])
	}
	if mask[0] != 1 || mask[1] != 1 || mask[4] != 0 {
		t.Errorf("mask = %v", mask)
	}
}

func TestHashStringStable(t *testing.T) {
	if HashString("abc") != HashString("abc") {
		t.Error("hash is not deterministic")
	}
	if HashString("abc") < 0 {
		t.Error("hash must be non-negative")
	}
}
