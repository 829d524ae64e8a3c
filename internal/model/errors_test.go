package model

import (
	"errors"
	"strings"
	"testing"
)

func TestFetchError_IsErrFetch(t *testing.T) {
	causes := []FetchCause{FetchCauseResolve, FetchCauseTranscode, FetchCauseMissing, FetchCausePanic}

	for _, cause := range causes {
		err := error(&FetchError{Index: 3, URL: "https://youtube.com/watch?v=x", Cause: cause})
		if !errors.Is(err, ErrFetch) {
			t.Errorf("FetchError with cause %s should match ErrFetch", cause)
		}
		if !strings.Contains(err.Error(), string(cause)) {
			t.Errorf("Expected error text to contain cause %s, got %s", cause, err.Error())
		}
	}
}

func TestFetchError_Unwrap(t *testing.T) {
	inner := errors.New("exit status 1")
	err := &FetchError{Index: 1, Cause: FetchCauseResolve, Err: inner}

	if !errors.Is(err, inner) {
		t.Error("Expected FetchError to unwrap to inner error")
	}

	var nilErr *FetchError
	if nilErr.Unwrap() != nil {
		t.Error("Expected nil FetchError to unwrap to nil")
	}
}

func TestStageError(t *testing.T) {
	err := &StageError{Stage: RunStateAssembling, Message: "ffmpeg failed", Err: ErrAssembly}

	if !errors.Is(err, ErrAssembly) {
		t.Error("Expected StageError to wrap ErrAssembly")
	}

	var stageErr *StageError
	if !errors.As(error(err), &stageErr) || stageErr.Stage != RunStateAssembling {
		t.Errorf("Expected errors.As to recover stage, got %+v", stageErr)
	}

	if got := (&StageError{Stage: RunStateSearching, Message: "no results"}).Error(); got != "Searching: no results" {
		t.Errorf("Unexpected message: %s", got)
	}
}
