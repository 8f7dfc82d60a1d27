package extraction

import (
	"errors"
	"regexp"
	"strconv"
	"strings"

	"superstory-server/shared/models"

	"github.com/spf13/cast"
)

var (
	ErrNoStructuredData = errors.New("no structured data")
	ErrNoCharacterData  = errors.New("no character data")
	ErrNoPlotIdea       = errors.New("no plot idea")
)

// CharacterFields нормализованные поля персонажа.
type CharacterFields struct {
	Name            string
	Age             *int
	Interests       *string
	Looks           *string
	CharacterPrompt *string
}

// Extraction результат нормализации structuredData.
type Extraction struct {
	Character CharacterFields
	PlotIdea  string
	// CharacterKey и PlotKey - какие ключи сработали (для логов).
	CharacterKey string
	PlotKey      string
}

// Extract ищет персонажа и идею сюжета в structuredData.
// Персонажем считается только JSON-объект, идеей сюжета - только непустая строка.
func Extract(structuredData map[string]any) (*Extraction, error) {
	if len(structuredData) == 0 {
		return nil, ErrNoStructuredData
	}

	characterKey, characterData, ok := findObject(structuredData, CharacterKeys)
	if !ok {
		return nil, ErrNoCharacterData
	}

	plotKey, plot, ok := findString(structuredData, PlotKeys)
	if !ok {
		return nil, ErrNoPlotIdea
	}

	return &Extraction{
		Character:    normalizeCharacter(characterData),
		PlotIdea:     plot,
		CharacterKey: characterKey,
		PlotKey:      plotKey,
	}, nil
}

func normalizeCharacter(data map[string]any) CharacterFields {
	fields := CharacterFields{Name: models.UnknownCharacterName}
	if name, ok := firstString(data, nameKeys); ok {
		fields.Name = name
	}
	if raw, ok := firstPresent(data, ageKeys); ok {
		fields.Age = parseAge(raw)
	}
	fields.Interests = interests(data)
	if looks, ok := firstString(data, looksKeys); ok {
		fields.Looks = &looks
	}
	if prompt, ok := firstString(data, characterPromptKeys); ok {
		fields.CharacterPrompt = &prompt
	}
	return fields
}

// ToCharacter собирает запись персонажа для указанной истории.
func (f CharacterFields) ToCharacter() *models.Character {
	return &models.Character{
		Name:            f.Name,
		Age:             f.Age,
		Interests:       f.Interests,
		Looks:           f.Looks,
		CharacterPrompt: f.CharacterPrompt,
	}
}

func findObject(data map[string]any, keys []string) (string, map[string]any, bool) {
	for _, key := range keys {
		if obj, ok := data[key].(map[string]any); ok {
			return key, obj, true
		}
	}
	return "", nil, false
}

func findString(data map[string]any, keys []string) (string, string, bool) {
	for _, key := range keys {
		if s, ok := data[key].(string); ok && strings.TrimSpace(s) != "" {
			return key, strings.TrimSpace(s), true
		}
	}
	return "", "", false
}

func firstString(data map[string]any, keys []string) (string, bool) {
	_, s, ok := findString(data, keys)
	return s, ok
}

func firstPresent(data map[string]any, keys []string) (any, bool) {
	for _, key := range keys {
		if v, ok := data[key]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

var leadingInt = regexp.MustCompile(`^[+-]?\d+`)

// parseAge: число как есть (дробная часть отбрасывается), из строки берется ведущее целое ("7 years" -> 7).
func parseAge(v any) *int {
	switch val := v.(type) {
	case bool:
		return nil
	case string:
		m := leadingInt.FindString(strings.TrimSpace(val))
		if m == "" {
			return nil
		}
		n, err := strconv.Atoi(m)
		if err != nil {
			return nil
		}
		return &n
	default:
		n, err := cast.ToIntE(val)
		if err != nil {
			return nil
		}
		return &n
	}
}

func interests(data map[string]any) *string {
	raw, ok := firstPresent(data, interestsKeys)
	if !ok {
		return nil
	}
	switch val := raw.(type) {
	case string:
		if s := strings.TrimSpace(val); s != "" {
			return &s
		}
		return nil
	case []any:
		parts := make([]string, 0, len(val))
		for _, item := range val {
			s := strings.TrimSpace(cast.ToString(item))
			if s != "" {
				parts = append(parts, s)
			}
		}
		if len(parts) == 0 {
			return nil
		}
		joined := strings.Join(parts, ", ")
		return &joined
	default:
		return nil
	}
}
