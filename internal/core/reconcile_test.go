package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReconcile_MixedRows(t *testing.T) {
	headers := HeaderSet{"Full Name", "Email Address", "Notes"}
	roles := ColumnRoles{NameIndex: 0, EmailIndex: 1, PhoneIndex: Unknown}
	rows := [][]string{
		{"Jane Doe", "jane@x.com", "VIP"},
		{"", "", ""},
		{"Bob", "not-an-email", "x"},
	}

	got, _ := Reconcile(headers, roles, rows)

	assert.Equal(t, 3, got.TotalRows)
	assert.Equal(t, 1, got.WithEmailCount)
	assert.Equal(t, 1, got.NameOnlyCount)
	assert.Equal(t, 0, got.SkippedCount)

	require.Len(t, got.AttendeesWithEmail, 1)
	jane := got.AttendeesWithEmail[0]
	assert.Equal(t, "Jane Doe", jane.Name)
	assert.Equal(t, "jane@x.com", jane.Email)
	assert.False(t, jane.HasPlaceholderEmail)
	assert.Equal(t, map[string]string{"Notes": "VIP"}, jane.Extra)

	require.Len(t, got.AttendeesNameOnly, 1)
	bob := got.AttendeesNameOnly[0]
	assert.Equal(t, "Bob", bob.Name)
	assert.Empty(t, bob.Email)
	assert.True(t, bob.HasPlaceholderEmail)
	assert.Equal(t, map[string]string{"Notes": "x"}, bob.Extra)
}

func TestReconcile_SkipsRowsWithoutIdentity(t *testing.T) {
	headers := HeaderSet{"Name", "Email", "Amount"}
	roles := ColumnRoles{NameIndex: 0, EmailIndex: 1, PhoneIndex: Unknown}
	rows := [][]string{
		{"Ann", "ann@x.com", "10"},
		{"", "", "42"},
	}

	got, _ := Reconcile(headers, roles, rows)

	assert.Equal(t, 1, got.SkippedCount)
	assert.Equal(t, []SkippedRow{{Row: 2, Reason: "No name or email found"}}, got.SkippedRows)
}

func TestReconcile_SkippedRowNumberCountsBlankRows(t *testing.T) {
	headers := HeaderSet{"Name", "Email"}
	roles := ColumnRoles{NameIndex: 0, EmailIndex: 1, PhoneIndex: Unknown}
	rows := [][]string{
		{"", ""},
		nil,
		{"", "123"},
	}

	got, _ := Reconcile(headers, roles, rows)

	assert.Equal(t, 3, got.TotalRows)
	assert.Equal(t, []SkippedRow{{Row: 3, Reason: SkipReasonNoIdentity}}, got.SkippedRows)
}

func TestReconcile_EmailSelfRegisters(t *testing.T) {
	headers := HeaderSet{"Who", "Contact", "Notes"}
	rows := [][]string{
		{"Ann", "ann@x.com", ""},
		{"Ben", "", "ben@x.com"},
		{"Cy", "cy@x.com", "note"},
	}

	got, roles := Reconcile(headers, UnknownRoles(), rows)

	assert.Equal(t, 1, roles.EmailIndex)
	require.Len(t, got.AttendeesWithEmail, 3)
	assert.Equal(t, "ann@x.com", got.AttendeesWithEmail[0].Email)
	assert.Equal(t, "Ann", got.AttendeesWithEmail[0].Name)
	assert.Nil(t, got.AttendeesWithEmail[0].Extra)

	// Column 1 is blank on this row so the scan finds column 2, which is
	// not adopted because email is already registered.
	assert.Equal(t, "ben@x.com", got.AttendeesWithEmail[1].Email)
	assert.Empty(t, got.AttendeesWithEmail[1].Extra["Notes"])

	cy := got.AttendeesWithEmail[2]
	assert.Equal(t, "cy@x.com", cy.Email)
	assert.Equal(t, "note", cy.Extra["Notes"])
	assert.NotContains(t, cy.Extra, "Contact")
}

func TestReconcile_PhoneSelfRegisters(t *testing.T) {
	headers := HeaderSet{"Name", "Email", "Mobile", "Company"}
	roles := ColumnRoles{NameIndex: 0, EmailIndex: 1, PhoneIndex: Unknown}
	rows := [][]string{
		{"Ann", "ann@x.com", "+1 (555) 123-4567", "Acme"},
		{"Ben", "ben@x.com", "", "Globex"},
	}

	got, final := Reconcile(headers, roles, rows)

	assert.Equal(t, 2, final.PhoneIndex)
	require.Len(t, got.AttendeesWithEmail, 2)
	assert.Equal(t, "+1 (555) 123-4567", got.AttendeesWithEmail[0].Phone)
	assert.Equal(t, map[string]string{"Company": "Acme"}, got.AttendeesWithEmail[0].Extra)
	assert.Empty(t, got.AttendeesWithEmail[1].Phone)
}

func TestReconcile_PhoneScanIgnoresNameAndEmailColumns(t *testing.T) {
	headers := HeaderSet{"Name", "Email"}
	roles := ColumnRoles{NameIndex: 0, EmailIndex: 1, PhoneIndex: Unknown}
	rows := [][]string{{"Room 1234567", "ann@x.com"}}

	got, final := Reconcile(headers, roles, rows)

	assert.Equal(t, Unknown, final.PhoneIndex)
	require.Len(t, got.AttendeesWithEmail, 1)
	assert.Empty(t, got.AttendeesWithEmail[0].Phone)
}

func TestReconcile_NameFromFirstAndLast(t *testing.T) {
	headers := HeaderSet{"First Name", "Surname", "E-mail"}
	roles := ColumnRoles{NameIndex: Unknown, EmailIndex: 2, PhoneIndex: Unknown}
	rows := [][]string{
		{" Jane ", "Doe", "jane@x.com"},
		{"", "Solo", "solo@x.com"},
	}

	got, _ := Reconcile(headers, roles, rows)

	require.Len(t, got.AttendeesWithEmail, 2)
	assert.Equal(t, "Jane Doe", got.AttendeesWithEmail[0].Name)
	assert.Nil(t, got.AttendeesWithEmail[0].Extra)
	assert.Equal(t, "Solo", got.AttendeesWithEmail[1].Name)
}

func TestReconcile_NameFromFirstLetterCell(t *testing.T) {
	headers := HeaderSet{"ID", "Email", "Label"}
	roles := ColumnRoles{NameIndex: Unknown, EmailIndex: 1, PhoneIndex: Unknown}
	rows := [][]string{{"0042", "ann@x.com", "Ann Lee"}}

	got, _ := Reconcile(headers, roles, rows)

	require.Len(t, got.AttendeesWithEmail, 1)
	assert.Equal(t, "Ann Lee", got.AttendeesWithEmail[0].Name)
}

func TestReconcile_NameFromEmail(t *testing.T) {
	headers := HeaderSet{"Contact", "Seats"}
	rows := [][]string{{"mary-jane.o_neil@x.com", "2"}}

	got, _ := Reconcile(headers, UnknownRoles(), rows)

	require.Len(t, got.AttendeesWithEmail, 1)
	assert.Equal(t, "Mary Jane O Neil", got.AttendeesWithEmail[0].Name)
	assert.Equal(t, map[string]string{"Seats": "2"}, got.AttendeesWithEmail[0].Extra)
}

func TestReconcile_RaggedRows(t *testing.T) {
	headers := HeaderSet{"Name", "Email", "Notes"}
	roles := ColumnRoles{NameIndex: 0, EmailIndex: 1, PhoneIndex: Unknown}
	rows := [][]string{{"Ann"}}

	got, _ := Reconcile(headers, roles, rows)

	require.Len(t, got.AttendeesNameOnly, 1)
	assert.Nil(t, got.AttendeesNameOnly[0].Extra)
}

func TestReconcile_BucketsNeverExceedTotal(t *testing.T) {
	headers := HeaderSet{"Name", "Email"}
	roles := ColumnRoles{NameIndex: 0, EmailIndex: 1, PhoneIndex: Unknown}
	rows := [][]string{
		{"a", "a@x.com"}, {"", ""}, {"b", ""}, {"", "1"}, {}, {"c", "c@x.com"},
	}

	got, _ := Reconcile(headers, roles, rows)

	assert.Equal(t, len(rows), got.TotalRows)
	assert.LessOrEqual(t, got.WithEmailCount+got.NameOnlyCount+got.SkippedCount, got.TotalRows)
	assert.Equal(t, len(got.AttendeesWithEmail), got.WithEmailCount)
	assert.Equal(t, len(got.AttendeesNameOnly), got.NameOnlyCount)
	assert.Equal(t, len(got.SkippedRows), got.SkippedCount)
	for _, a := range append(got.AttendeesWithEmail, got.AttendeesNameOnly...) {
		assert.NotEmpty(t, a.Name)
	}
}

func TestNameFromEmail(t *testing.T) {
	tests := map[string]string{
		"jane.doe@x.com":   "Jane Doe",
		"j__smith@x.com":   "J Smith",
		"ALREADY@x.com":    "ALREADY",
		"a-b.c_d@x.com":    "A B C D",
		".leading@x.com":   "Leading",
		"élodie.roux@x.fr": "Élodie Roux",
	}
	for in, want := range tests {
		assert.Equal(t, want, nameFromEmail(in), in)
	}
}
