package composite

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tooling-api/tooling-go/pkg/wire"
)

func testModel(t *testing.T, category string, v any) *Model {
	t.Helper()
	raw, err := wire.EncodeModel(v)
	require.NoError(t, err)
	return NewModel(category, raw)
}

func TestModelResultTaggedUnion(t *testing.T) {
	id := MustBuildIdentity("/work/app")

	ok := Succeeded(id, testModel(t, "GradleBuild", map[string]any{"name": "app"}))
	m, isModel := ok.Model()
	require.True(t, isModel)
	_, isFailure := ok.Failure()
	assert.False(t, isFailure)
	assert.True(t, ok.IsSuccess())
	assert.Equal(t, id, ok.BuildIdentity())
	assert.Equal(t, "GradleBuild", m.Category())

	var decoded map[string]any
	require.NoError(t, m.Decode(&decoded))
	assert.Equal(t, "app", decoded["name"])

	failed := Failed(id, &NoModelAvailableError{Category: "CustomModel"})
	_, isModel = failed.Model()
	assert.False(t, isModel)
	err, isFailure := failed.Failure()
	require.True(t, isFailure)
	assert.EqualError(t, err, "No model of type 'CustomModel' is available in this build.")
	assert.Contains(t, failed.String(), "/work/app")

	assert.Panics(t, func() { Succeeded(id, nil) })
	assert.Panics(t, func() { Failed(id, nil) })
}

func TestMerge(t *testing.T) {
	app := MustBuildIdentity("/work/app")
	lib := MustBuildIdentity("/work/lib")
	ids := []BuildIdentity{app, lib}
	boom := errors.New("boom")

	t.Run("valid", func(t *testing.T) {
		rs, err := Merge(ids, []ModelResult{Failed(lib, boom), Succeeded(app, testModel(t, "X", 1))})
		require.NoError(t, err)
		assert.Equal(t, 2, rs.Len())
		assert.Len(t, rs.Successes(), 1)
		assert.Len(t, rs.Failures(), 1)
		assert.Len(t, rs.All(), 2)
	})

	invalid := []struct {
		name    string
		ids     []BuildIdentity
		results []ModelResult
	}{
		{"missing", ids, []ModelResult{Failed(app, boom)}},
		{"duplicate", ids, []ModelResult{Failed(app, boom), Failed(app, boom)}},
		{"unknown", ids, []ModelResult{Failed(app, boom), Failed(MustBuildIdentity("/work/other"), boom)}},
		{"empty result", ids, []ModelResult{Failed(app, boom), {identity: lib}}},
		{"duplicate identity", []BuildIdentity{app, app}, []ModelResult{Failed(app, boom), Failed(app, boom)}},
	}
	for _, tt := range invalid {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge(tt.ids, tt.results)
			assert.Error(t, err)
		})
	}
}

func TestResultSetLookups(t *testing.T) {
	app := MustBuildIdentity("/work/app")
	lib := MustBuildIdentity("/work/lib")
	rs, err := Merge([]BuildIdentity{app, lib}, []ModelResult{
		Succeeded(app, testModel(t, "GradleBuild", "app")),
		Failed(lib, &NoModelAvailableError{Category: "GradleBuild"}),
	})
	require.NoError(t, err)

	got, err := rs.FindByIdentity(MustBuildIdentity("/work/lib/"))
	require.NoError(t, err)
	assert.Equal(t, lib, got.BuildIdentity())

	_, err = rs.FindByIdentity(MustBuildIdentity("/work/none"))
	var me *MatchError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 0, me.Count)

	failure, err := rs.Find(func(r ModelResult) bool { return !r.IsSuccess() })
	require.NoError(t, err)
	assert.Equal(t, lib, failure.BuildIdentity())

	_, err = rs.Find(func(ModelResult) bool { return true })
	require.ErrorAs(t, err, &me)
	assert.Equal(t, 2, me.Count)
	assert.EqualError(t, err, "expected exactly one result matching predicate, found 2")
}

func TestModelResultOutcome(t *testing.T) {
	id := MustBuildIdentity("/work/app")
	tests := []struct {
		result ModelResult
		want   string
	}{
		{Succeeded(id, testModel(t, "GradleBuild", "x")), OutcomeSuccess},
		{Failed(id, &UnsupportedModelVersionError{Category: "GradleBuild"}), OutcomeUnsupportedVersion},
		{Failed(id, &NoModelAvailableError{Category: "CustomModel"}), OutcomeNoModel},
		{Failed(id, &ModelBuildError{Category: "GradleBuild"}), OutcomeBuildFailed},
		{Failed(id, &ConnectionError{Identity: id, Cause: errors.New("refused")}), OutcomeConnectionError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.result.Outcome(), tt.result.String())
	}
}
