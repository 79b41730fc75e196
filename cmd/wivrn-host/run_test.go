package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/wivrn/wivrn-host/pkg/broadcast"
	"github.com/wivrn/wivrn-host/pkg/host"
	"github.com/wivrn/wivrn-host/pkg/looper"
	"github.com/wivrn/wivrn-host/pkg/native/nativetest"
)

func TestHostLoop(t *testing.T) {
	errCreate := errors.New("create failed")

	tests := []struct {
		name        string
		create      error
		wantStarted bool
	}{
		{"created", nil, true},
		{"creation fails", errCreate, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			started := false
			done := make(chan error, 1)
			go func() {
				done <- hostLoop(ctx, cancel, looper.New(), func() error { return tt.create }, func() {
					started = true
					// Stand in for a shutdown signal.
					cancel()
				})
			}()

			var err error
			select {
			case err = <-done:
			case <-time.After(5 * time.Second):
				t.Fatal("hostLoop() did not return")
			}
			if !errors.Is(err, tt.create) {
				t.Errorf("hostLoop() error = %v, want %v", err, tt.create)
			}
			if started != tt.wantStarted {
				t.Errorf("started = %v, want %v", started, tt.wantStarted)
			}
		})
	}
}

func TestHostLoop_CreateActivityTwice(t *testing.T) {
	l := looper.New()
	activity, err := host.New(&nativetest.Recorder{}, broadcast.NewDispatcher(l), host.Capabilities{})
	if err != nil {
		t.Fatal(err)
	}
	if err := createActivity(activity, nil, ""); err != nil {
		t.Fatalf("createActivity() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	err = hostLoop(ctx, cancel, l, func() error {
		return createActivity(activity, nil, "")
	}, func() {
		t.Errorf("started after a failed creation")
	})
	if !errors.Is(err, host.ErrAlreadyCreated) {
		t.Errorf("hostLoop() error = %v, want %v", err, host.ErrAlreadyCreated)
	}
}
