package faultline

import "testing"

func TestResolveView_BestGuessWalk(t *testing.T) {
	frames := []Frame{
		{Module: "libA", Function: "f1"},
		{Module: "app.mod1", Function: "f2"},
		{Module: "app.mod1", Function: "f3"},
		{Module: "libB", Function: "f4"},
	}

	got := ResolveView(frames, []string{"app"}, []string{"app.mod1.f3"})
	if got != "app.mod1.f2" {
		t.Errorf("ResolveView = %q, want %q", got, "app.mod1.f2")
	}
}

func TestResolveView_NoApplicationFrames(t *testing.T) {
	frames := []Frame{
		{Module: "libA", Function: "f1"},
		{Module: "libB", Function: "f2"},
	}

	if got := ResolveView(frames, []string{"app"}, nil); got != "" {
		t.Errorf("ResolveView = %q, want empty", got)
	}
}

func TestResolveView_ExcludedFrameCanSeedGuess(t *testing.T) {
	// An excluded frame only refuses to OVERWRITE a guess; with no guess
	// yet it still becomes the candidate.
	frames := []Frame{
		{Module: "app.mod1", Function: "f3"},
		{Module: "libB", Function: "f4"},
	}

	got := ResolveView(frames, []string{"app"}, []string{"app.mod1.f3"})
	if got != "app.mod1.f3" {
		t.Errorf("ResolveView = %q, want %q", got, "app.mod1.f3")
	}
}

func TestResolveView_StopsAfterLeavingAppRun(t *testing.T) {
	// Once the walk exits the application run it must not pick up a later
	// application frame (typically library code calling back).
	frames := []Frame{
		{Module: "app.web", Function: "handler"},
		{Module: "libB", Function: "f4"},
		{Module: "app.web", Function: "errorPage"},
	}

	got := ResolveView(frames, []string{"app"}, nil)
	if got != "app.web.handler" {
		t.Errorf("ResolveView = %q, want %q", got, "app.web.handler")
	}
}

func TestResolveView_MalformedFramesSkipped(t *testing.T) {
	frames := []Frame{
		{Module: "", Function: "f1"},
		{Module: "app.mod1", Function: ""},
		{Module: "app.mod1", Function: "f2"},
	}

	got := ResolveView(frames, []string{"app"}, nil)
	if got != "app.mod1.f2" {
		t.Errorf("ResolveView = %q, want %q", got, "app.mod1.f2")
	}
}

func TestResolveView_InnermostAppFrameWins(t *testing.T) {
	frames := []Frame{
		{Module: "app.web", Function: "dispatch"},
		{Module: "app.views", Function: "show"},
	}

	got := ResolveView(frames, []string{"app"}, nil)
	if got != "app.views.show" {
		t.Errorf("ResolveView = %q, want %q", got, "app.views.show")
	}
}
