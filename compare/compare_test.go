package compare_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sui-replay/replaycore/compare"
	"github.com/sui-replay/replaycore/model"
	"github.com/sui-replay/replaycore/replaykernel"
)

func objRef(b byte, version uint64) model.ObjectRef {
	var id model.ObjectID
	id[31] = b
	return model.ObjectRef{ID: id, Version: version}
}

func TestClassifyPassOnIdenticalEffects(t *testing.T) {
	effects := &model.Effects{
		Status:  model.Status{Kind: model.StatusSuccess},
		Created: []model.ObjectRef{objRef(1, 1)},
	}
	local := *effects

	c := compare.Classify(&local, effects, nil, false)
	require.Equal(t, compare.Pass, c.Outcome)
	require.Empty(t, c.Diff)
}

func TestClassifyLocalFailOnlyIsRegressionSignal(t *testing.T) {
	recorded := &model.Effects{Status: model.Status{Kind: model.StatusSuccess}}
	local := &model.Effects{Status: model.Status{Kind: model.StatusAborted, Code: 7, Location: "m::f"}}

	c := compare.Classify(local, recorded, nil, false)
	require.Equal(t, compare.LocalFailOnly, c.Outcome)
}

func TestClassifyBothFailMatchingCode(t *testing.T) {
	status := model.Status{Kind: model.StatusAborted, Code: 3, Location: "coin::split"}
	local := &model.Effects{Status: status}
	recorded := &model.Effects{Status: status}

	c := compare.Classify(local, recorded, nil, false)
	require.Equal(t, compare.BothFail, c.Outcome)
	require.True(t, c.MatchingCode)
}

func TestClassifyBothFailMismatchingCode(t *testing.T) {
	local := &model.Effects{Status: model.Status{Kind: model.StatusAborted, Code: 3, Location: "coin::split"}}
	recorded := &model.Effects{Status: model.Status{Kind: model.StatusAborted, Code: 4, Location: "coin::split"}}

	c := compare.Classify(local, recorded, nil, false)
	require.Equal(t, compare.BothFail, c.Outcome)
	require.False(t, c.MatchingCode)
}

func TestClassifyDataGapWinsOverEffectsMatch(t *testing.T) {
	effects := &model.Effects{Status: model.Status{Kind: model.StatusSuccess}}
	local := *effects
	gaps := []replaykernel.DataGapRecord{{Kind: replaykernel.DataGapSyntheticSubstitution, Detail: "obj missing"}}

	c := compare.Classify(&local, effects, gaps, false)
	require.Equal(t, compare.DataGap, c.Outcome)
	require.Equal(t, []replaykernel.DataGapKind{replaykernel.DataGapSyntheticSubstitution}, c.DataGapKinds)
}

func TestClassifySetsWarningOnEpochFallback(t *testing.T) {
	effects := &model.Effects{Status: model.Status{Kind: model.StatusSuccess}}
	local := *effects

	c := compare.Classify(&local, effects, nil, true)
	require.Equal(t, compare.Pass, c.Outcome)
	require.NotEmpty(t, c.Warning)
}

func TestClassifyIDSetDiffIsOrderInsensitive(t *testing.T) {
	recorded := &model.Effects{
		Status:  model.Status{Kind: model.StatusSuccess},
		Created: []model.ObjectRef{objRef(1, 1), objRef(2, 1)},
	}
	local := &model.Effects{
		Status:  model.Status{Kind: model.StatusSuccess},
		Created: []model.ObjectRef{objRef(2, 1), objRef(1, 1)},
	}

	c := compare.Classify(local, recorded, nil, false)
	require.Equal(t, compare.Pass, c.Outcome)
	require.Empty(t, c.Diff, "reordered id sets must not produce a diff")
}

func TestExitCodeContract(t *testing.T) {
	require.Equal(t, compare.ExitReplayCompleted, compare.Classification{Outcome: compare.Pass}.ExitCode())
	require.Equal(t, compare.ExitReplayCompleted, compare.Classification{Outcome: compare.BothFail}.ExitCode(),
		"a classified fail is still a completed replay")
	require.Equal(t, compare.ExitNotRunnable, compare.Classification{Outcome: compare.DataGap}.ExitCode())
	require.Equal(t, compare.ExitInfraError, compare.Classification{Outcome: compare.InfraError}.ExitCode())
}

func TestClassifyFlagsSoftUnreachableCreatedID(t *testing.T) {
	recorded := &model.Effects{
		Status:  model.Status{Kind: model.StatusSuccess},
		Created: []model.ObjectRef{objRef(1, 1), objRef(9, 1)},
	}
	local := &model.Effects{
		Status:  model.Status{Kind: model.StatusSuccess},
		Created: []model.ObjectRef{objRef(1, 1)},
	}

	c := compare.Classify(local, recorded, nil, false)
	require.NotEmpty(t, c.Diff)
	found := false
	for _, d := range c.Diff {
		if d.Field == "soft_unreachable_created" {
			found = true
		}
	}
	require.True(t, found)
}
