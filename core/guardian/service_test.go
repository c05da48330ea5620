package guardian_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/attendance/core"
	"github.com/trezcool/attendance/core/guardian"
	testutil "github.com/trezcool/attendance/tests"
)

func TestNewGuardian_Validate(t *testing.T) {
	ctx := context.Background()
	svcs := testutil.NewServices(t)
	hero := testutil.CreateStudent(t, svcs.Guardians, "Hero")

	ng := guardian.NewGuardian{
		Name: "  Mum ", Email: " Mum@Test.CD", Phone: " +243812345678 ",
		StudentIDs: []string{" " + hero.ID + " ", ""},
	}
	require.NoError(t, ng.Validate(ctx, svcs.Validate, svcs.Guardians))
	assert.Equal(t, "Mum", ng.Name)
	assert.Equal(t, "mum@test.cd", ng.Email)
	assert.Equal(t, "+243812345678", ng.Phone)
	assert.Equal(t, []string{hero.ID}, ng.StudentIDs)

	tests := []struct {
		name     string
		ng       guardian.NewGuardian
		wantFlds []string
	}{
		{name: "required", wantFlds: []string{"name", "email"}},
		{name: "bad contacts", ng: guardian.NewGuardian{Name: "Dad", Email: "dad", Phone: "0812345678", WhatsApp: "lol"}, wantFlds: []string{"email", "phone", "whatsapp"}},
		{name: "bad student id", ng: guardian.NewGuardian{Name: "Dad", Email: "dad@test.cd", StudentIDs: []string{"lol"}}, wantFlds: []string{"student_ids[0]"}},
		{name: "unknown student", ng: guardian.NewGuardian{Name: "Dad", Email: "dad@test.cd", StudentIDs: []string{uuid.New().String()}}, wantFlds: []string{"student_ids"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			flds, ok := core.TranslateValidationErrors(tt.ng.Validate(ctx, svcs.Validate, svcs.Guardians), svcs.Translator)
			require.True(t, ok)
			got := make([]string, 0, len(flds))
			for f := range flds {
				got = append(got, f)
			}
			assert.ElementsMatch(t, tt.wantFlds, got)
		})
	}
}

func Test_service(t *testing.T) {
	ctx := context.Background()
	svcs := testutil.NewServices(t)
	hero := testutil.CreateStudent(t, svcs.Guardians, "Hero")
	sidekick := testutil.CreateStudent(t, svcs.Guardians, "Sidekick")

	mum := testutil.CreateGuardian(t, svcs.Guardians, "Mum", "mum@test.cd", "", "", hero.ID, sidekick.ID)
	dad := testutil.CreateGuardian(t, svcs.Guardians, "Dad", "dad@test.cd", "+243812345678", "+243812345678", hero.ID)
	assert.False(t, mum.Phone.Valid)
	assert.True(t, dad.HasPhone())
	assert.True(t, dad.HasWhatsApp())

	students, err := svcs.Guardians.QueryStudents(ctx)
	require.NoError(t, err)
	assert.Len(t, students, 2)

	gs, err := svcs.Guardians.QueryByStudent(ctx, hero.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{mum.ID, dad.ID}, []string{gs[0].ID, gs[1].ID})

	gs, err = svcs.Guardians.QueryByStudent(ctx, sidekick.ID)
	require.NoError(t, err)
	require.Len(t, gs, 1)
	assert.Equal(t, mum.ID, gs[0].ID)

	_, err = svcs.Guardians.QueryByStudent(ctx, uuid.New().String())
	assert.Equal(t, guardian.ErrStudentNotFound, errors.Cause(err))

	got, err := svcs.Guardians.GetGuardian(ctx, dad.ID)
	require.NoError(t, err)
	assert.Equal(t, dad, got)

	_, err = svcs.Guardians.GetGuardian(ctx, uuid.New().String())
	assert.Equal(t, guardian.ErrNotFound, errors.Cause(err))
}
