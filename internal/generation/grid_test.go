package generation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChooseGrid(t *testing.T) {
	tests := []struct {
		n     int
		grid  Grid
		ratio Ratio
	}{
		{1, Grid{1, 1}, Ratio{2, 3}},
		{2, Grid{1, 2}, Ratio{4, 3}},
		{3, Grid{1, 3}, Ratio{16, 9}},
		{4, Grid{2, 2}, Ratio{2, 3}},
		{5, Grid{1, 5}, Ratio{21, 9}},
		{6, Grid{2, 3}, Ratio{1, 1}},
		{8, Grid{2, 4}, Ratio{4, 3}},
	}
	for _, tc := range tests {
		grid, ratio, err := ChooseGrid(tc.n)
		require.NoError(t, err)
		assert.Equal(t, tc.grid, grid, "grid for %d", tc.n)
		assert.Equal(t, tc.ratio, ratio, "ratio for %d", tc.n)
		assert.Equal(t, tc.n, grid.Cells())
	}

	_, _, err := ChooseGrid(0)
	assert.Error(t, err)
}

func TestCheckAspect(t *testing.T) {
	assert.NoError(t, checkAspect(1344, 768, BackgroundRatio))
	assert.NoError(t, checkAspect(1536, 672, Ratio{21, 9}))
	assert.Error(t, checkAspect(1024, 1024, BackgroundRatio))
	assert.Error(t, checkAspect(0, 10, BackgroundRatio))
}

func TestBuildPromptCharacterGrid(t *testing.T) {
	req := Request{
		Kind:          KindCharacter,
		Description:   "friendly barista",
		CharacterName: "mira",
		Pose:          "holding a cup",
		Emotions:      []string{"neutral", "happy", "sad", "surprised", "angry"},
	}
	prompt := BuildPrompt(req, Grid{Rows: 1, Cols: 5})
	assert.Contains(t, prompt, "Character name: mira.")
	assert.Contains(t, prompt, "grid of 1 rows and 5 columns")
	assert.Contains(t, prompt, "5. row 1, column 5: angry expression")
	assert.Contains(t, prompt, "Pose: holding a cup.")
	assert.Contains(t, prompt, "70-75%")
}

func TestBuildPromptBackground(t *testing.T) {
	prompt := BuildPrompt(Request{Kind: KindBackground, Description: "cozy cafe", Style: "watercolor"}, Grid{1, 1})
	assert.Equal(t, "cozy cafe Create a detailed visual novel background scene, 16:9 ratio. Style: watercolor.", prompt)
}

func TestRequestValidate(t *testing.T) {
	assert.NoError(t, Request{Kind: KindBackground, Description: "x"}.Validate())
	assert.Error(t, Request{Kind: KindBackground}.Validate())
	assert.Error(t, Request{Kind: "video", Description: "x"}.Validate())
	assert.Error(t, Request{Kind: KindCharacter, Description: "x"}.Validate())
	assert.Error(t, Request{Kind: KindCharacter, Description: "x", Emotions: []string{"a", "a"}}.Validate())
}
