package db

import (
	"context"
	"errors"
	"testing"
)

func TestPoolsAcquire_UnknownConnection(t *testing.T) {
	pools := Pools{}

	_, release, err := pools.Acquire(context.Background(), "cuenca")
	if !errors.Is(err, ErrUnknownConnection) {
		t.Fatalf("expected ErrUnknownConnection, got %v", err)
	}
	if release != nil {
		t.Error("expected nil release func on failure")
	}
}

func TestPoolsHas(t *testing.T) {
	pools := Pools{"primary": nil}
	if pools.Has("primary") {
		t.Error("expected nil pool to be treated as unconfigured")
	}
	if pools.Has("guayaquil") {
		t.Error("expected missing pool to be unconfigured")
	}
}
