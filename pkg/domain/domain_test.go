package domain_test

import (
	"errors"
	"testing"

	"github.com/aretw0/lantern/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// twoGroups has three steps in its first group and one in its second.
func twoGroups() *domain.Experience {
	return &domain.Experience{
		ID: "tour",
		Groups: []domain.StepGroup{
			{ID: "g1", Steps: []domain.Step{{ID: "a"}, {ID: "b"}, {ID: "c"}}},
			{ID: "g2", Steps: []domain.Step{{ID: "d"}}},
		},
	}
}

func TestStepReference_Resolve(t *testing.T) {
	exp := twoGroups()

	tests := []struct {
		name    string
		ref     domain.StepReference
		current domain.StepIndex
		want    domain.StepIndex
		reason  domain.ResolutionFailure
	}{
		{"Index into second group", domain.IndexRef(3), domain.StepIndex{}, domain.StepIndex{Group: 1, Item: 0}, ""},
		{"Index past end", domain.IndexRef(4), domain.StepIndex{}, domain.StepIndex{}, domain.ResolutionPastEnd},
		{"Negative index", domain.IndexRef(-1), domain.StepIndex{}, domain.StepIndex{}, domain.ResolutionBeforeStart},
		{"Offset across groups", domain.OffsetRef(1), domain.StepIndex{Group: 0, Item: 2}, domain.StepIndex{Group: 1, Item: 0}, ""},
		{"Offset backwards across groups", domain.OffsetRef(-1), domain.StepIndex{Group: 1, Item: 0}, domain.StepIndex{Group: 0, Item: 2}, ""},
		{"Offset past end", domain.OffsetRef(1), domain.StepIndex{Group: 1, Item: 0}, domain.StepIndex{}, domain.ResolutionPastEnd},
		{"Offset before start", domain.OffsetRef(-1), domain.StepIndex{}, domain.StepIndex{}, domain.ResolutionBeforeStart},
		{"Offset from invalid index", domain.OffsetRef(1), domain.StepIndex{Group: 5, Item: 5}, domain.StepIndex{}, domain.ResolutionOutOfRange},
		{"Step ID", domain.StepIDRef("d"), domain.StepIndex{}, domain.StepIndex{Group: 1, Item: 0}, ""},
		{"Unknown step ID", domain.StepIDRef("zz"), domain.StepIndex{}, domain.StepIndex{}, domain.ResolutionUnknownID},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.ref.Resolve(exp, tt.current)
			if tt.reason == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
				return
			}
			assert.ErrorIs(t, err, domain.ErrStepNotFound)
			var resErr *domain.StepResolutionError
			require.ErrorAs(t, err, &resErr)
			assert.Equal(t, tt.reason, resErr.Reason)
		})
	}
}

func TestStepReference_ResolveIsTotal(t *testing.T) {
	exp := twoGroups()
	for _, current := range exp.StepIndices() {
		for n := -6; n <= 6; n++ {
			for _, ref := range []domain.StepReference{domain.IndexRef(n), domain.OffsetRef(n)} {
				got, err := ref.Resolve(exp, current)
				if err != nil {
					continue
				}
				_, ok := exp.Step(got)
				assert.True(t, ok, "%s from %s resolved out of bounds to %s", ref, current, got)
			}
		}
	}
}

func TestFlatIndexRoundTrip(t *testing.T) {
	exp := twoGroups()
	assert.Equal(t, 4, exp.StepCount())
	for flat, idx := range exp.StepIndices() {
		assert.Equal(t, flat, exp.FlatIndex(idx))
		back, ok := exp.IndexAt(flat)
		require.True(t, ok)
		assert.Equal(t, idx, back)
	}
	assert.Equal(t, -1, exp.FlatIndex(domain.StepIndex{Group: 0, Item: 3}))
	_, ok := exp.IndexAt(4)
	assert.False(t, ok)
}

func TestParseStepIndex(t *testing.T) {
	idx, err := domain.ParseStepIndex("1, 2")
	require.NoError(t, err)
	assert.Equal(t, domain.StepIndex{Group: 1, Item: 2}, idx)
	assert.Equal(t, "1,2", idx.String())

	for _, bad := range []string{"", "1", "a,1", "1,b"} {
		_, err := domain.ParseStepIndex(bad)
		assert.Error(t, err, bad)
	}
}

func TestNavigateActions(t *testing.T) {
	exp := twoGroups()
	exp.Groups[1].Actions = []domain.Action{
		{Trigger: domain.TriggerNavigate, Type: "@lantern/track"},
		{Trigger: "tap", Type: "@lantern/close"},
	}
	assert.Len(t, exp.NavigateActions(1), 1)
	assert.Empty(t, exp.NavigateActions(0))
	assert.Nil(t, exp.NavigateActions(7))
}

func TestValidate(t *testing.T) {
	require.NoError(t, twoGroups().Validate())

	t.Run("Empty experience", func(t *testing.T) {
		err := (&domain.Experience{ID: "empty"}).Validate()
		var verr *domain.ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "empty", verr.ExperienceID)
		assert.Contains(t, verr.Problems, domain.ErrEmptyExperience.Error())
	})

	t.Run("Duplicate step IDs", func(t *testing.T) {
		exp := twoGroups()
		exp.Groups[1].Steps[0].ID = "a"
		err := exp.Validate()
		require.Error(t, err)
		assert.Contains(t, err.Error(), `duplicate step id "a"`)
	})

	t.Run("Missing required fields", func(t *testing.T) {
		exp := twoGroups()
		exp.ID = ""
		exp.Groups[0].Steps[0].Actions = []domain.Action{{Type: "@lantern/close"}}
		var verr *domain.ValidationError
		require.ErrorAs(t, exp.Validate(), &verr)
		assert.Len(t, verr.Problems, 2)
	})
}

func TestFormState(t *testing.T) {
	form := domain.NewFormState()
	form.Register(
		domain.FormField{BlockID: "email", Label: "Email", Required: true},
		domain.FormField{BlockID: "note"},
		domain.FormField{BlockID: "email", Label: "Ignored"},
	)
	assert.False(t, form.IsValid())

	form.Set("email", "   ")
	assert.False(t, form.IsValid(), "blank answers do not satisfy required fields")

	form.Set("email", "ada@example.com")
	assert.True(t, form.IsValid())
	assert.Equal(t, map[string]string{"email": "ada@example.com"}, form.Answers())
	assert.Equal(t, []domain.FormResponse{{BlockID: "email", Label: "Email", Value: "ada@example.com"}}, form.Responses())
}

func TestNewExperienceData(t *testing.T) {
	exp := twoGroups()
	exp.Groups[1].Steps[0].Form = []domain.FormField{{BlockID: "email", Required: true}}

	a := domain.NewExperienceData(exp, domain.Trigger{Kind: domain.TriggerShowCall})
	b := domain.NewExperienceData(exp, domain.Trigger{Kind: domain.TriggerQualification, Reason: "screen_view"})

	assert.NotEqual(t, a.InstanceID, b.InstanceID)
	assert.False(t, a.Form.IsValid(), "form fields of every step are registered")
	assert.False(t, a.Trigger.IsQualification())
	assert.True(t, b.Trigger.IsQualification())
	assert.Equal(t, "qualification:screen_view", b.Trigger.String())
}

func TestExperienceError(t *testing.T) {
	exp := domain.NewExperienceData(twoGroups(), domain.Trigger{Kind: domain.TriggerShowCall})
	cause := errors.New("keyboard visible")

	expErr := domain.NewStepError(domain.CategoryPresentation, exp, domain.StepIndex{Group: 0, Item: 1}, domain.Recoverable(cause))
	assert.True(t, expErr.Recoverable)
	assert.True(t, expErr.IsStepError())
	assert.ErrorIs(t, expErr, cause)
	assert.Equal(t, "presentation error in experience tour step 0,1: keyboard visible", expErr.Error())

	fatal := domain.NewExperienceError(domain.CategoryStructural, exp, domain.ErrEmptyExperience)
	assert.False(t, fatal.Recoverable)
	assert.False(t, fatal.IsStepError())
	assert.ErrorIs(t, fatal, domain.ErrEmptyExperience)

	assert.Nil(t, domain.Recoverable(nil))
	assert.False(t, domain.IsRecoverable(cause))
}
