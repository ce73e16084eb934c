package utils

import (
	"strings"
	"testing"

	"relaybridge/database"
)

func TestFuzzyFindContacts(t *testing.T) {
	contacts := map[int64]database.Contact{
		7:  {UserId: 7, FirstName: "Ivan", LastName: "Sidorov", Username: "ivan_s"},
		8:  {UserId: 8, FirstName: "Maria", LastName: "Petrova"},
		9:  {UserId: 9, Username: "ivanov"},
		10: {UserId: 10},
	}

	tests := []struct {
		query string
		want  []int64
	}{
		{"ivan", []int64{7, 9}},
		{"IVAN", []int64{7, 9}},
		{"petr", []int64{8}},
		{"sdrv", []int64{7}},
		{"zzz", nil},
	}

	for _, tt := range tests {
		got := FuzzyFindContacts(contacts, tt.query)
		if len(got) != len(tt.want) {
			t.Errorf("FuzzyFindContacts(%q) = %+v, want ids %v", tt.query, got, tt.want)
			continue
		}
		for i, id := range tt.want {
			if got[i].UserId != id {
				t.Errorf("FuzzyFindContacts(%q)[%d] = %d, want %d", tt.query, i, got[i].UserId, id)
			}
		}
	}
}

func TestContactLabel(t *testing.T) {
	got := ContactLabel(database.Contact{UserId: 7, FirstName: "<Ivan>", Username: "ivan"})
	if !strings.Contains(got, "&lt;Ivan&gt; @ivan") || !strings.Contains(got, "<code>7</code>") {
		t.Errorf("ContactLabel = %q", got)
	}
	if got := ContactLabel(database.Contact{UserId: 8}); !strings.Contains(got, "User") {
		t.Errorf("ContactLabel of empty contact = %q", got)
	}
}
