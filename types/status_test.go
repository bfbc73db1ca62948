package types

import "testing"

func TestJobStatus_Terminal(t *testing.T) {
	t.Parallel()

	terminal := map[JobStatus]bool{
		StatusPending:    false,
		StatusProcessing: false,
		StatusGenerated:  false,
		StatusAuditing:   false,
		StatusSuccess:    true,
		StatusFailed:     true,
		StatusTimeout:    true,
	}
	for status, want := range terminal {
		if got := status.Terminal(); got != want {
			t.Fatalf("%s: Terminal() = %v, want %v", status, got, want)
		}
	}
}

func TestJobStatus_UnknownCode(t *testing.T) {
	t.Parallel()

	s := JobStatus(42)
	if s.Known() {
		t.Fatalf("expected 42 to be unknown")
	}
	if s.Terminal() {
		t.Fatalf("unknown codes must stay non-terminal")
	}
	if got := s.String(); got != "status(42)" {
		t.Fatalf("unexpected string: %q", got)
	}
}

func TestJobStatus_WireValues(t *testing.T) {
	t.Parallel()

	// 数值是平台协议的一部分，不能随重构改变。
	want := map[JobStatus]int{
		StatusPending:    1,
		StatusProcessing: 2,
		StatusGenerated:  3,
		StatusAuditing:   4,
		StatusSuccess:    5,
		StatusFailed:     6,
		StatusTimeout:    7,
	}
	for status, code := range want {
		if int(status) != code {
			t.Fatalf("%s: wire value %d, want %d", status, int(status), code)
		}
	}
}
