package file_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/lantern/pkg/adapters/file"
	"github.com/aretw0/lantern/pkg/domain"
	"github.com/aretw0/lantern/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.ExperienceLoader = (*file.Loader)(nil)

const tourYAML = `id: tour
name: Product Tour
published: true
nextContentId: checklist
groups:
  - id: intro
    actions:
      - on: navigate
        type: "@lantern/track"
        config:
          eventName: intro_opened
    steps:
      - id: welcome
        content: "# Welcome"
        actions:
          - on: tap
            type: "@lantern/conditional"
            config:
              checks:
                - condition:
                    survey:
                      block: email
                      operator: "*"
                      value: "@"
                  actions:
                    - on: tap
                      type: "@lantern/continue"
      - id: form
        form:
          - blockId: email
            label: Email
            required: true
`

const checklistJSON = `{
  "id": "checklist",
  "name": "Checklist",
  "publishedAt": "2024-05-01T10:00:00Z",
  "groups": [{"id": "g", "steps": [{"id": "one"}]}]
}`

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestLoader_LoadYAML(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tour.yaml", tourYAML)
	loader := file.NewLoader(dir)

	exp, err := loader.Load(context.Background(), "tour")
	require.NoError(t, err)
	assert.Equal(t, "Product Tour", exp.Name)
	assert.True(t, exp.Published)
	assert.Equal(t, "checklist", exp.NextContentID)
	require.Len(t, exp.Groups, 1)
	assert.Equal(t, 2, exp.StepCount())

	nav := exp.NavigateActions(0)
	require.Len(t, nav, 1)
	assert.Equal(t, "intro_opened", nav[0].Config["eventName"])

	step, ok := exp.Step(domain.StepIndex{Group: 0, Item: 1})
	require.True(t, ok)
	require.Len(t, step.Form, 1)
	assert.True(t, step.Form[0].Required)

	checks, ok := exp.Groups[0].Steps[0].Actions[0].Config["checks"].([]any)
	require.True(t, ok)
	check := checks[0].(map[string]any)
	_, ok = check["condition"].(map[string]any)
	assert.True(t, ok, "nested configuration decodes to string-keyed maps")
	require.NoError(t, exp.Validate())
}

func TestLoader_LoadJSON(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "checklist.json", checklistJSON)

	exp, err := file.NewLoader(dir).Load(context.Background(), "checklist")
	require.NoError(t, err)
	require.NotNil(t, exp.PublishedAt)
	assert.Equal(t, 2024, exp.PublishedAt.Year())
}

func TestLoader_DefaultsIDFromFileName(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "anonymous.yml", "name: No ID\ngroups:\n  - id: g\n    steps:\n      - id: s\n")

	exp, err := file.NewLoader(dir).Load(context.Background(), "anonymous")
	require.NoError(t, err)
	assert.Equal(t, "anonymous", exp.ID)
}

func TestLoader_Errors(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "broken.yaml", "groups: [unterminated")
	loader := file.NewLoader(dir)
	ctx := context.Background()

	_, err := loader.Load(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrExperienceNotFound)

	_, err = loader.Load(ctx, "broken")
	require.Error(t, err)
	assert.NotErrorIs(t, err, domain.ErrExperienceNotFound)

	_, err = loader.Load(ctx, "../escape")
	assert.Error(t, err)
}

func TestLoader_List(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "tour.yaml", tourYAML)
	writeFile(t, dir, "checklist.json", checklistJSON)
	writeFile(t, dir, "notes.txt", "ignored")
	require.NoError(t, os.Mkdir(filepath.Join(dir, "nested"), 0o755))

	ids, err := file.NewLoader(dir).List(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"checklist", "tour"}, ids)

	ids, err = file.NewLoader(filepath.Join(dir, "absent")).List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestLoader_SaveRoundTrip(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "store")
	loader := file.NewLoader(dir)
	ctx := context.Background()

	original := &domain.Experience{
		ID:   "saved",
		Name: "Saved",
		Groups: []domain.StepGroup{{
			ID: "g",
			Steps: []domain.Step{{
				ID:      "s",
				Actions: []domain.Action{{Trigger: "tap", Type: "@lantern/close", Config: map[string]any{"markComplete": true}}},
			}},
		}},
	}
	require.NoError(t, loader.Save(ctx, original))

	loaded, err := loader.Load(ctx, "saved")
	require.NoError(t, err)
	assert.Equal(t, original.Name, loaded.Name)
	assert.Equal(t, true, loaded.Groups[0].Steps[0].Actions[0].Config["markComplete"])

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1, "no temp files left behind")
}
