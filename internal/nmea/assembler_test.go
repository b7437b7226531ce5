package nmea

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func collectGroups(t *testing.T, input string) []FixGroup {
	t.Helper()
	var groups []FixGroup
	for g, err := range Assemble(ReadSentences(strings.NewReader(input))) {
		require.NoError(t, err)
		groups = append(groups, g)
	}
	return groups
}

func TestAssemble_OneGroupPerRMC(t *testing.T) {
	start := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	var epochs []epoch
	for i := range 5 {
		epochs = append(epochs, goodEpoch(start.Add(time.Duration(i)*time.Second), 50))
	}

	groups := collectGroups(t, stream(epochs...))
	require.Len(t, groups, 5)
	for _, g := range groups {
		assert.Len(t, g, 4)
		assert.Contains(t, g, TypeRMC)
	}
}

func TestAssemble_Empty(t *testing.T) {
	assert.Empty(t, collectGroups(t, ""))
}

func TestAssemble_LeadingSentencesFormGroupZero(t *testing.T) {
	at := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	input := checksummed("GPVTG,1.0,T,,M,1.0,N,1.9,K") + "\n" + stream(goodEpoch(at, 50))

	groups := collectGroups(t, input)
	require.Len(t, groups, 2)
	assert.NotContains(t, groups[0], TypeRMC)
	assert.Len(t, groups[1], 4)
}

func TestAssembler_LastWriteWins(t *testing.T) {
	rmc, err := Parse(goodEpoch(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), 50).sentences()[0])
	require.NoError(t, err)
	first, err := Parse(checksummed("GPVTG,10.0,T,,M,1.0,N,1.9,K"))
	require.NoError(t, err)
	second, err := Parse(checksummed("GPVTG,20.0,T,,M,1.0,N,1.9,K"))
	require.NoError(t, err)

	var a Assembler
	for _, s := range []Sentence{rmc, first, second} {
		_, done := a.Push(s)
		assert.False(t, done)
	}
	assert.Equal(t, 1, a.Counter())

	g, ok := a.Flush()
	require.True(t, ok)
	assert.Equal(t, second, g[TypeVTG])

	_, ok = a.Flush()
	assert.False(t, ok)
}

func TestAssembler_RMCClosesGroup(t *testing.T) {
	e := goodEpoch(time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC), 50)
	var sentences []Sentence
	for _, line := range e.sentences() {
		s, err := Parse(line)
		require.NoError(t, err)
		sentences = append(sentences, s)
	}

	var a Assembler
	for _, s := range sentences {
		_, done := a.Push(s)
		require.False(t, done)
	}
	g, done := a.Push(sentences[0])
	require.True(t, done)
	assert.Len(t, g, 4)
	assert.Equal(t, 2, a.Counter())
}
