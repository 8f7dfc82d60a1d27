package extraction

// Исторические варианты написания ключей в structuredData. Порядок - приоритет: выигрывает первый найденный.
var (
	CharacterKeys = []string{"MainCharacter", "Character", "character", "mainCharacter", "main_character"}
	PlotKeys      = []string{"story_idea", "storyIdea", "plotIdea", "plot_idea", "plot", "story"}
)

// Поля персонажа и их запасные варианты.
var (
	nameKeys            = []string{"name"}
	ageKeys             = []string{"age"}
	interestsKeys       = []string{"interests"}
	looksKeys           = []string{"looks", "description"}
	characterPromptKeys = []string{"character_prompt", "prompt"}
)
