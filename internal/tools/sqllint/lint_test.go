package main

import (
	"strings"
	"testing"
)

func TestLintSource(t *testing.T) {
	src := "package q\n\n" +
		"const QGood = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;`\n" +
		"const QMissing = `select id from image_jobs;`\n" +
		"const QBadMarker = `--sql not-a-uuid\nupdate image_jobs set attempts = 0;`\n" +
		"const Label = \"not sql at all\"\n"

	l := newLinter()
	if err := l.lintSource("q.go", []byte(src)); err != nil {
		t.Fatalf("lintSource error: %v", err)
	}
	got := l.result()
	if len(got) != 2 {
		t.Fatalf("expected 2 violations, got %d: %+v", len(got), got)
	}
	if got[0].name != "QMissing" || got[1].name != "QBadMarker" {
		t.Fatalf("unexpected violations: %+v", got)
	}
}

func TestLintDuplicateMarkers(t *testing.T) {
	a := "package q\nconst QA = `--sql 11111111-2222-4333-8444-555555555555\nselect 1;`\n"
	b := "package q\nconst QB = `--sql 11111111-2222-4333-8444-555555555555\nselect 2;`\n"

	l := newLinter()
	if err := l.lintSource("a.go", []byte(a)); err != nil {
		t.Fatal(err)
	}
	if err := l.lintSource("b.go", []byte(b)); err != nil {
		t.Fatal(err)
	}
	got := l.result()
	if len(got) != 1 || got[0].name != "QB" || !strings.Contains(got[0].message, "first used by QA") {
		t.Fatalf("unexpected duplicate report: %+v", got)
	}
}

func TestLintRepositoryQueries(t *testing.T) {
	l := newLinter()
	if err := l.lintTarget("../../sqlinline"); err != nil {
		t.Fatalf("lint sqlinline: %v", err)
	}
	if got := l.result(); len(got) != 0 {
		t.Fatalf("sqlinline has marker violations: %+v", got)
	}
	if len(l.markers) == 0 {
		t.Fatal("expected sqlinline queries to be checked")
	}
}
