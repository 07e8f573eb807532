package gateway

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const wantPreamble = "You are a music recommendation expert. Based on the following user input,\n" +
	"provide a personalized music recommendation. Only respond with music-related\n" +
	"recommendations and keep the response friendly and concise. If the question\n" +
	"is not about music, politely remind them that you can only help with music-related queries."

func TestDefaultPromptSpec(t *testing.T) {
	spec, err := DefaultPromptSpec()
	require.NoError(t, err)
	require.Equal(t, wantPreamble, spec.Preamble)
	require.Equal(t, "User Input", spec.InputLabel)
}

func TestPromptSpec_Build(t *testing.T) {
	spec := PromptSpec{Preamble: "Only music.", InputLabel: "User Input"}
	require.Equal(t, "Only music.\n\nUser Input: hello", spec.Build("hello"))
	require.Equal(t, "Only music.\n\nUser Input: ", spec.Build(""))
}

func TestParsePromptSpec(t *testing.T) {
	spec, err := ParsePromptSpec([]byte("preamble: |-\n  Be brief.\n"))
	require.NoError(t, err)
	require.Equal(t, "Be brief.", spec.Preamble)
	require.Equal(t, "User Input", spec.InputLabel)

	_, err = ParsePromptSpec([]byte("input_label: Q\n"))
	require.Error(t, err)

	_, err = ParsePromptSpec([]byte("preamble: [unterminated"))
	require.Error(t, err)
}
