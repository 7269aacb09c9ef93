package natsbus

import "testing"

func TestSubjectNaming(t *testing.T) {
	if got := sessionSubject("abc", "code-update"); got != "events.abc.code-update" {
		t.Errorf("sessionSubject = %q", got)
	}
	if got := sessionWildcard("abc"); got != "events.abc.*" {
		t.Errorf("sessionWildcard = %q", got)
	}
	if resyncSubject != "sync.request" {
		t.Errorf("resyncSubject = %q", resyncSubject)
	}
}
