package prompt

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuild(t *testing.T) {
	b := NewBuilder("")
	prompt, context := b.Build("What is the book about?", []string{"\n* first", "\n* second"})

	require.Equal(t, "\n* first\n* second", context)
	require.True(t, strings.HasPrefix(prompt, DefaultPreamble+context+Exemplars))
	require.True(t, strings.HasSuffix(prompt, "Q: What is the book about?\nA: "))
	require.Equal(t, DefaultPreamble+context+Exemplars+"Q: What is the book about?\nA: ", prompt)
}

func TestBuildCustomPreamble(t *testing.T) {
	b := NewBuilder("You answer questions about a cookbook.\n")
	prompt, context := b.Build("Why salt?", nil)
	require.Equal(t, "", context)
	require.Equal(t, "You answer questions about a cookbook.\n"+Exemplars+"Q: Why salt?\nA: ", prompt)
}

func TestExemplarsShape(t *testing.T) {
	require.Equal(t, 10, strings.Count(Exemplars, "\nQ: "))
	require.Equal(t, 10, strings.Count(Exemplars, "\nA: "))
	require.True(t, strings.HasSuffix(Exemplars, "\n\n"))
}
