package export

import (
	"bytes"
	"strings"
	"testing"

	"github.com/eglise-connect/platform/internal/member"
	"github.com/eglise-connect/platform/internal/shared/types"
)

func TestWriteMembers(t *testing.T) {
	month := "2026-03"
	members := []member.Member{
		{
			ID:           types.NewID(),
			Kind:         member.KindMember,
			FirstName:    "Marc",
			LastName:     "Dupont",
			City:         "Lyon",
			Contact:      types.ContactInfo{Email: "marc@example.org"},
			ArrivalMonth: &month,
		},
		{
			ID:        types.NewID(),
			Kind:      member.KindVisitor,
			FirstName: "Anne",
			LastName:  "Martin",
			City:      "Lyon",
		},
	}

	var buf bytes.Buffer
	if err := WriteMembers(&buf, members); err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("Expected header plus 2 rows, got %d lines", len(lines))
	}
	if lines[0] != "first_name,last_name,city,email,phone,arrival_month,kind" {
		t.Errorf("Unexpected header: %s", lines[0])
	}
	if !strings.Contains(lines[1], "Marc,Dupont,Lyon,marc@example.org,,2026-03,member") {
		t.Errorf("Unexpected row: %s", lines[1])
	}
}

func TestReadMembers(t *testing.T) {
	input := strings.Join([]string{
		"first_name,last_name,city,email,phone,arrival_month,kind",
		"Marc,Dupont,Lyon,marc@example.org,,2026-03,member",
		"Anne,Martin,Paris,,0601020304,,visitor",
		",Sans-Prenom,Lyon,,,,member",
	}, "\n")

	rows, skipped, err := ReadMembers(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}

	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if skipped != 1 {
		t.Errorf("Expected 1 skipped row, got %d", skipped)
	}
	if rows[0].FirstName != "Marc" || rows[0].ArrivalMonth != "2026-03" {
		t.Errorf("Unexpected first row: %+v", rows[0])
	}
	if rows[1].Kind != member.KindVisitor {
		t.Errorf("Expected visitor, got %s", rows[1].Kind)
	}
}

func TestReadMembersRejectsWrongHeader(t *testing.T) {
	input := "nom,prenom,ville,email,tel,mois,type\nDupont,Marc,Lyon,,,,member"

	if _, _, err := ReadMembers(strings.NewReader(input)); err == nil {
		t.Error("Wrong header should be rejected")
	}
}

func TestReadMembersDefaultsUnknownKind(t *testing.T) {
	input := strings.Join([]string{
		"first_name,last_name,city,email,phone,arrival_month,kind",
		"Marc,Dupont,Lyon,,,,whatever",
	}, "\n")

	rows, _, err := ReadMembers(strings.NewReader(input))
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if rows[0].Kind != member.KindMember {
		t.Errorf("Unknown kind should default to member, got %s", rows[0].Kind)
	}
}
