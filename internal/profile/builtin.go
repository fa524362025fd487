package profile

// DefaultName is the profile used when none is selected.
const DefaultName = "qwen3-vl:8b"

const qwenTags = `You must respond ONLY with a comma-separated list of tags. Do not write sentences. Do not explain. Only output tags separated by commas.

Tags to include: subjects, objects, colors, composition, mood, location type.

Output format example: tag1, tag2, tag3, tag4

Now analyze this image and output ONLY the tags:`

const qwenDetailedTags = `You must respond ONLY with a comma-separated list of detailed tags. Do not write sentences. Do not explain. Only output tags separated by commas.

Tags to include: main subjects, secondary elements, colors, lighting, time of day, weather, architectural style, activities, emotions.

Output format example: tag1, tag2, tag3, tag4, tag5, tag6

Now analyze this image and output ONLY the tags:`

const llavaTags = `List relevant tags for this image as a comma-separated list.
Include: subjects, objects, colors, composition, mood, location.
Format: tag1, tag2, tag3`

const llavaDetailedTags = `Provide detailed tags for this image as a comma-separated list.
Include: subjects, elements, colors, lighting, weather, architecture, activities.
Format: tag1, tag2, tag3, tag4`

func builtins() []Profile {
	return []Profile{
		{
			Name:        "qwen3-vl:8b",
			Model:       "qwen3-vl:8b",
			Description: "Maximum quality, slower",
			Temperature: 0.3,
			Prompts: map[PromptKind]string{
				KindTags:         qwenTags,
				KindDetailedTags: qwenDetailedTags,
				KindDescription:  "Describe this image in detail. What do you see?",
				KindBrief:        "Briefly describe what you see in this image (one sentence):",
				KindGroup:        "Output ONLY a comma-separated list of contextual tags for this photo collection. No descriptions, no sentences, only tags.",
			},
		},
		{
			Name:        "llava",
			Model:       "llava:latest",
			Description: "Good quality/speed tradeoff",
			Temperature: 0.5,
			Prompts: map[PromptKind]string{
				KindTags:         llavaTags,
				KindDetailedTags: llavaDetailedTags,
				KindDescription:  "Describe this image in detail.",
				KindBrief:        "In one sentence, what do you see in this image?",
				KindGroup:        "Provide contextual tags for this collection of photos (comma-separated list).",
			},
		},
	}
}

// Default returns the builtin catalog.
func Default() *Registry {
	r, err := NewRegistry(builtins()...)
	if err != nil {
		panic(err)
	}
	return r
}
