package cmd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	protocol "github.com/tliron/glsp/protocol_3_16"

	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/adapters/socket"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/feature"
	"github.com/SpecFlowOSS/SpecFlow.IDEExtension/internal/domain/workspace"
)

func plain(t *testing.T) {
	t.Helper()
	noColorFlag = true
	t.Cleanup(func() { noColorFlag = false })
}

func TestOneBased(t *testing.T) {
	n, err := oneBased("line", "3")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = oneBased("line", "0")
	assert.Error(t, err)
	_, err = oneBased("column", "x")
	assert.ErrorContains(t, err, "column")
}

func TestRelPath(t *testing.T) {
	assert.Equal(t, "Features/a.feature", relPath("/ws", "/ws/Features/a.feature"))
	assert.Equal(t, "/other/a.feature", relPath("/ws", "/other/a.feature"))
}

func TestFormatSteps(t *testing.T) {
	plain(t)
	out := formatSteps(&socket.StepsResult{
		Count: 2,
		Steps: []socket.StepInfo{
			{Text: "I am", Keyword: "Given", Path: "/ws/a.feature", Line: 3, Bindings: 1},
			{Text: "I fly", Keyword: "And", Path: "/ws/a.feature", Line: 4},
		},
	}, "/ws")
	assert.Contains(t, out, "2 steps")
	assert.Contains(t, out, "a.feature:3  Given I am  (1 binding)")
	assert.Contains(t, out, "a.feature:4  And I fly  (unbound)")
}

func TestFormatLocations(t *testing.T) {
	plain(t)
	out := formatLocations(&socket.LocationsResult{Locations: []protocol.Location{{
		URI:   protocol.DocumentUri(workspace.URI("/ws/Steps/LoginSteps.cs")),
		Range: protocol.Range{Start: protocol.Position{Line: 5, Character: 4}},
	}}}, "/ws")
	assert.Contains(t, out, "1 location")
	assert.Contains(t, out, "Steps/LoginSteps.cs:6:5")
}

func TestFormatCheck(t *testing.T) {
	plain(t)
	assert.Contains(t, formatCheck("a.feature", nil), "✓ a.feature")

	out := formatCheck("b.feature", []feature.ParseError{{
		Message: "unexpected end of file",
		Range:   feature.Range{Start: feature.Position{Line: 6, Character: 2}},
	}})
	assert.Contains(t, out, "✗ b.feature")
	assert.Contains(t, out, "7:3 unexpected end of file")

	assert.Equal(t, "2 feature files ok", formatCheckSummary(2, 0))
	assert.Equal(t, "1 of 1 feature file failed", formatCheckSummary(1, 1))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(nil))
	assert.Equal(t, 1, ExitCode(errCheckFailed))
	assert.Equal(t, 3, ExitCode(errDaemonDown))
}
