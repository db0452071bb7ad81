package preprocess

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestExpandVariablesOnly(t *testing.T) {
	pctx := Context{
		Args:         []string{"alpha", "beta"},
		RawArguments: "alpha beta",
		Env:          map[string]string{"TOPIC": "testing"},
	}

	out := Expand(context.Background(), "run $1 then $2 on $ARGUMENTS about ${TOPIC}", pctx, Options{})
	require.Equal(t, "run alpha then beta on alpha beta about testing", out)
}

func TestExpandMissingReferences(t *testing.T) {
	out := Expand(context.Background(), "a=$1 b=$2 env=${MISSING}", Context{Args: []string{"one"}}, Options{})
	require.Equal(t, "a=one b= env=${MISSING}", out)
}

func TestExpandNoMarkersIsPassthrough(t *testing.T) {
	content := "plain text with a ` backtick and a bang! but no marker"
	require.Equal(t, content, Expand(context.Background(), content, Context{}, Options{}))
}

func TestExpandSingleCommand(t *testing.T) {
	out := Expand(context.Background(), "Hello !`echo World`", Context{}, Options{})
	require.Equal(t, "Hello World", out)
}

func TestExpandPreservesInteriorWhitespace(t *testing.T) {
	out := Expand(context.Background(), "!`printf 'a\\n  b\\n'`", Context{}, Options{})
	require.Equal(t, "a\n  b", out)
}

func TestExpandEmptyOutput(t *testing.T) {
	out := Expand(context.Background(), "before !`true` after", Context{}, Options{})
	require.Equal(t, "before  after", out)
}

func TestExpandMultipleCommandsInOrder(t *testing.T) {
	out := Expand(context.Background(), "A: !`echo 1`, B: !`echo 2`", Context{}, Options{})
	require.Equal(t, "A: 1, B: 2", out)
}

func TestExpandCommandFailure(t *testing.T) {
	out := Expand(context.Background(), "Result: !`exit 3` tail", Context{}, Options{})
	require.Contains(t, out, "[Command failed:")
	require.True(t, strings.HasSuffix(out, " tail"))
}

func TestExpandFailureDoesNotAbortSiblings(t *testing.T) {
	out := Expand(context.Background(), "!`false` and !`echo ok`", Context{}, Options{})
	require.Contains(t, out, "[Command failed:")
	require.Contains(t, out, "ok")
}

func TestExpandTimeout(t *testing.T) {
	start := time.Now()
	out := Expand(context.Background(), "Result: !`sleep 10`", Context{}, Options{CommandTimeout: 100 * time.Millisecond})
	require.Less(t, time.Since(start), time.Second)
	require.Contains(t, out, "[Command failed:")
	require.Contains(t, out, "timed out")
}

func TestExpandUnterminatedMarkerIsLiteral(t *testing.T) {
	content := "broken !`echo never"
	require.Equal(t, content, Expand(context.Background(), content, Context{}, Options{}))
}

func TestExpandCommandSeesEnv(t *testing.T) {
	out := Expand(context.Background(), "!`echo $GREETING`", Context{Env: map[string]string{"GREETING": "hi"}}, Options{})
	require.Equal(t, "hi", out)
}

func TestExpandWorkDir(t *testing.T) {
	dir := t.TempDir()
	out := Expand(context.Background(), "!`pwd`", Context{}, Options{WorkDir: dir})
	require.Contains(t, out, dir)
}
