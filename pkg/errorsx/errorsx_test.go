package errorsx

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndReason(t *testing.T) {
	err := Wrap(assertErr{}, ReasonDeviceStatus)
	if Reason(err) != ReasonDeviceStatus {
		t.Fatalf("expected reason %s, got %s", ReasonDeviceStatus, Reason(err))
	}
	if !HasReason(err, ReasonDeviceStatus) {
		t.Fatalf("expected HasReason true")
	}
}

func TestWrapPreservesExistingReason(t *testing.T) {
	first := Wrap(assertErr{}, ReasonStoreRead)
	second := Wrap(first, ReasonDeviceStatus)
	if Reason(second) != ReasonStoreRead {
		t.Fatalf("expected reason preserved, got %s", Reason(second))
	}
}

func TestReasonSurvivesFmtWrapping(t *testing.T) {
	err := fmt.Errorf("scene evening: %w", Wrap(assertErr{}, ReasonSceneMissing))
	if Reason(err) != ReasonSceneMissing {
		t.Fatalf("expected scene_missing through fmt wrap, got %s", Reason(err))
	}
	if Reason(nil) != ReasonUnknown {
		t.Fatalf("expected unknown for nil")
	}
}

func TestJoinSkipsNil(t *testing.T) {
	if err := Join(ReasonScenePartial, nil, nil); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
	a := errors.New("a")
	err := Join(ReasonScenePartial, nil, a)
	if !errors.Is(err, a) {
		t.Fatalf("expected joined error to contain a")
	}
	if Reason(err) != ReasonScenePartial {
		t.Fatalf("expected scene_partial, got %s", Reason(err))
	}
}

type assertErr struct{}

func (assertErr) Error() string { return "boom" }
