package cliflags

import (
	"reflect"
	"testing"
)

func TestPreprocessLegacySpellings(t *testing.T) {
	in := []string{"-e10k", "-d2", "-i", "-m", "-f0", "-l", "-M", "machine.txt",
		"-dcache-size", "16", "-dcache-writeback=0", "prog.elf"}
	want := []string{"--cycles=10k", "--debug=2", "--mix", "--multicycle",
		"--forward=0", "--pipelog", "--settings", "machine.txt",
		"--dcache-size", "16", "--dcache-writeback=0", "prog.elf"}
	got := Preprocess(in)
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("Preprocess = %v, want %v", got, want)
	}
}

func TestPreprocessLeavesUnknownArgsAlone(t *testing.T) {
	in := []string{"--debug=3", "-x", "file.elf", "-e"}
	got := Preprocess(in)
	if !reflect.DeepEqual(got, in) {
		t.Fatalf("unrecognized arguments must pass through, got %v", got)
	}
}
