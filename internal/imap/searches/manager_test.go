package searches

import (
	"context"
	"testing"
	"time"

	"github.com/emersion/go-imap/v2"
)

func TestBuildSinceCriteria(t *testing.T) {
	since := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)

	criteria := buildSinceCriteria(since)
	if criteria == nil {
		t.Fatal("expected criteria")
	}
	if !criteria.Since.Equal(since) {
		t.Fatalf("expected since %v, got %v", since, criteria.Since)
	}
	if len(criteria.NotFlag) != 1 || criteria.NotFlag[0] != imap.FlagDeleted {
		t.Fatalf("expected NOT \\Deleted, got %v", criteria.NotFlag)
	}
	if len(criteria.Header) != 0 {
		t.Fatalf("expected no header criteria, got %d", len(criteria.Header))
	}
}

func TestSortUnique(t *testing.T) {
	cases := []struct {
		name string
		in   []uint32
		want []uint32
	}{
		{name: "empty", in: nil, want: nil},
		{name: "already sorted", in: []uint32{1, 2, 3}, want: []uint32{1, 2, 3}},
		{name: "unsorted with duplicates", in: []uint32{9, 3, 9, 1, 3}, want: []uint32{1, 3, 9}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := sortUnique(tc.in)
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestSearchSinceRequiresConnection(t *testing.T) {
	m := &IMAPSearchManager{}
	if _, err := m.SearchSince(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error without a connection")
	}
	if _, err := m.FolderStatus(context.Background(), "INBOX"); err == nil {
		t.Fatal("expected error without a connection")
	}
}
