package audio

import (
	"context"
	"testing"
)

type fakeGenerator struct{ called int }

func (f *fakeGenerator) Synthesize(ctx context.Context, seg Segment, outPath string) error {
	f.called++
	return nil
}

func TestGeneratorSetRegisterAndGet(t *testing.T) {
	set := NewGeneratorSet()
	fake := &fakeGenerator{}
	set.Register("voicevox", fake)

	got, ok := set.Get("voicevox")
	if !ok {
		t.Fatal("expected voicevox generator to be registered")
	}
	if err := got.Synthesize(context.Background(), Segment{}, "/tmp/out.wav"); err != nil {
		t.Fatalf("synthesize: %v", err)
	}
	if fake.called != 1 {
		t.Fatalf("expected underlying generator to be invoked once, got %d", fake.called)
	}
}

func TestGeneratorSetGetMissing(t *testing.T) {
	set := NewGeneratorSet()
	if _, ok := set.Get("unknown"); ok {
		t.Fatal("expected missing generator lookup to fail")
	}
}
