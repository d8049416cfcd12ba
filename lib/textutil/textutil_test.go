package textutil

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalize(t *testing.T) {
	require.Equal(t, "descargar pdf", Normalize("  Descargar \n\t PDF "))
	require.Equal(t, "", Normalize(" \n "))
}

func TestMatchLabel(t *testing.T) {
	testCases := []struct {
		text     string
		labels   []string
		expected bool
	}{
		{text: "Siguiente »", labels: []string{"siguiente"}, expected: true},
		{text: "»", labels: []string{"siguiente", "»"}, expected: true},
		{text: "Anterior", labels: []string{"siguiente", "next", "»"}, expected: false},
		{text: "Descargar", labels: []string{"pdf", "descargar"}, expected: true},
		{text: "Descarga", labels: []string{"descargar"}, expected: true},
		{text: "Ver PDF adjunto", labels: []string{"pdf"}, expected: true},
		{text: "Detalle", labels: []string{"pdf", "descargar"}, expected: false},
		{text: "", labels: []string{"pdf"}, expected: false},
		{text: "1", labels: []string{"»", "›"}, expected: false},
	}

	for _, test := range testCases {
		require.Equal(t, test.expected, MatchLabel(test.text, test.labels), test.text)
	}
}

func TestContainsLabel(t *testing.T) {
	markers := []string{"pdf", "descargar"}
	require.True(t, ContainsLabel("Descargar PDF", markers))
	require.True(t, ContainsLabel("  DESCARGAR ", markers))
	require.True(t, ContainsLabel("Ver pdf adjunto", markers))
	// close variants are not enough, these are different actions
	require.False(t, ContainsLabel("Descartar", markers))
	require.False(t, ContainsLabel("Descarga", markers))
	require.False(t, ContainsLabel("", markers))
}
