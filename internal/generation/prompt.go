package generation

import (
	"fmt"
	"strings"
)

const (
	backgroundInstruction = "Create a detailed visual novel background scene, 16:9 ratio."
	characterInstruction  = "Create a full body character sprite suitable for a Ren'Py visual novel on a plain, uniform, light background with no scenery."
	framingInstruction    = "IMPORTANT FRAMING: in every cell the character should fill approximately 70-75% of the vertical cell height, centered, with head near the top and feet near the bottom. " +
		"Leave some empty space above the head and below the feet so all variants share one scale."
)

// BuildPrompt renders the provider prompt for req laid out on grid.
func BuildPrompt(req Request, grid Grid) string {
	if req.Kind == KindBackground {
		parts := []string{strings.TrimSpace(req.Description), backgroundInstruction}
		if style := strings.TrimSpace(req.Style); style != "" {
			parts = append(parts, fmt.Sprintf("Style: %s.", style))
		}
		return strings.Join(parts, " ")
	}

	var b strings.Builder
	if name := strings.TrimSpace(req.CharacterName); name != "" {
		fmt.Fprintf(&b, "Character name: %s.\n", name)
	}
	b.WriteString(strings.TrimSpace(req.Description))
	b.WriteString("\n\n")
	b.WriteString(characterInstruction)
	b.WriteString("\n")
	b.WriteString(framingInstruction)
	b.WriteString("\n")
	if pose := strings.TrimSpace(req.Pose); pose != "" {
		fmt.Fprintf(&b, "Pose: %s.\n", pose)
	}
	if style := strings.TrimSpace(req.Style); style != "" {
		fmt.Fprintf(&b, "Art style: %s.\n", style)
	}

	if grid.Cells() == 1 {
		fmt.Fprintf(&b, "\nDraw exactly one character with a %s expression.\n", req.Emotions[0])
		return b.String()
	}

	fmt.Fprintf(&b, "\nLAYOUT: draw ONE image arranged as a grid of %d rows and %d columns (%d equally sized cells, no borders, gutters, labels, or text).\n",
		grid.Rows, grid.Cols, grid.Cells())
	b.WriteString("Each cell contains the SAME character, full body, with an identical design, outfit, and scale. Only the facial expression and body language change.\n")
	b.WriteString("Fill the cells left to right, top to bottom, in this order:\n")
	for i, emotion := range req.Emotions {
		row, col := i/grid.Cols+1, i%grid.Cols+1
		fmt.Fprintf(&b, "%d. row %d, column %d: %s expression\n", i+1, row, col, emotion)
	}
	b.WriteString("Use the same plain background color behind every cell.\n")
	return b.String()
}
