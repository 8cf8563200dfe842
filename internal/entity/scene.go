package entity

// Scene is one narrative unit produced by the script stage. Index is the
// 1-based ordinal that correlates the scene's image and audio artifacts.
type Scene struct {
	Index          int    `json:"scene"`
	Narration      string `json:"narration"`
	ImageDirective string `json:"image_prompt"`
}
