package infra

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5"
)

func TestExtractMarker(t *testing.T) {
	tests := []struct {
		name       string
		query      string
		wantMarker string
		wantBody   string
		wantErr    bool
	}{
		{
			name:       "valid marker",
			query:      "\n--sql 4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db\nselect 1;\n",
			wantMarker: "4f55a9b7-4e9f-4e45-a3b3-5a532d21d9db",
			wantBody:   "select 1;",
		},
		{name: "missing marker", query: "select 1;", wantErr: true},
		{name: "uppercase uuid rejected", query: "--sql 4F55A9B7-4E9F-4E45-A3B3-5A532D21D9DB\nselect 1;", wantErr: true},
		{name: "empty", query: "   ", wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			marker, body, err := extractMarker(tc.query)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got marker %q", marker)
				}
				return
			}
			if err != nil {
				t.Fatalf("extractMarker error: %v", err)
			}
			if marker != tc.wantMarker {
				t.Fatalf("marker = %q, want %q", marker, tc.wantMarker)
			}
			if body != tc.wantBody {
				t.Fatalf("body = %q, want %q", body, tc.wantBody)
			}
		})
	}
}

func TestIsNoRows(t *testing.T) {
	if !IsNoRows(pgx.ErrNoRows) {
		t.Fatal("expected pgx.ErrNoRows to match")
	}
	if !IsNoRows(fmt.Errorf("load job: %w", pgx.ErrNoRows)) {
		t.Fatal("expected wrapped pgx.ErrNoRows to match")
	}
	if IsNoRows(errors.New("boom")) {
		t.Fatal("unexpected match for unrelated error")
	}
}
