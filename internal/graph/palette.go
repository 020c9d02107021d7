package graph

// palette holds the lane colors, cycled by lane index. The hues are spaced
// so adjacent lanes stay distinguishable on both light and dark backgrounds.
var palette = []string{
	"#e06c75",
	"#61afef",
	"#98c379",
	"#c678dd",
	"#d19a66",
	"#56b6c2",
	"#be5046",
	"#7f848e",
}

func paletteColor(lane int) string {
	if lane < 0 {
		lane = 0
	}
	return palette[lane%len(palette)]
}
