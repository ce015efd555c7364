package command

import (
	"context"
	"errors"
	"slices"
	"testing"
)

func TestDefaults(t *testing.T) {
	d := Defaults()
	want := map[string]string{
		GrammarFix:         "ctrl+shift+g",
		Transcribe:         "ctrl+shift+space",
		Assistant:          "ctrl+shift+a",
		AssistantClipboard: "ctrl+shift+j",
		ToggleAutoCorrect:  "",
		ToggleCondensed:    "",
		ClearHistory:       "",
	}
	for id, s := range want {
		b, ok := d[id]
		if !ok {
			t.Errorf("no default for %s", id)
			continue
		}
		if b.String() != s {
			t.Errorf("default %s = %q, want %q", id, b.String(), s)
		}
	}
	for _, id := range IDs {
		if !Known(id) || Title(id) == "" {
			t.Errorf("%s missing title", id)
		}
	}
}

func TestRegistryDispatch(t *testing.T) {
	r := NewRegistry()
	var ran string
	r.Handle(GrammarFix, func(ctx context.Context) error {
		ran = GrammarFix
		return nil
	})

	if err := r.Dispatch(context.Background(), GrammarFix); err != nil {
		t.Fatal(err)
	}
	if ran != GrammarFix {
		t.Errorf("handler not run")
	}

	err := r.Dispatch(context.Background(), "nope")
	if !errors.Is(err, ErrUnknown) {
		t.Errorf("Dispatch(unknown) = %v, want ErrUnknown", err)
	}
}

func TestRegistryIDsSorted(t *testing.T) {
	r := NewRegistry()
	noop := func(context.Context) error { return nil }
	r.Handle(Transcribe, noop)
	r.Handle(ClearHistory, noop)
	r.Handle(Assistant, noop)

	want := []string{Assistant, ClearHistory, Transcribe}
	if got := r.IDs(); !slices.Equal(got, want) {
		t.Errorf("IDs() = %v, want %v", got, want)
	}
}

func TestRegistryFireReportsErrors(t *testing.T) {
	r := NewRegistry()
	boom := errors.New("boom")
	r.Handle(Transcribe, func(ctx context.Context) error { return boom })

	var gotID string
	var gotErr error
	r.OnError(func(id string, err error) {
		gotID, gotErr = id, err
	})

	r.Fire(context.Background(), Transcribe)
	if gotID != Transcribe || !errors.Is(gotErr, boom) {
		t.Errorf("OnError got (%q, %v)", gotID, gotErr)
	}
	if !r.Has(Transcribe) || r.Has(Assistant) {
		t.Error("Has reports wrong membership")
	}
}
