package story

// Fallback returns the built-in template used when the generator fails or
// produces a template that does not pass Validate. It is valid by
// construction for any player count.
func Fallback(playerCount int) *Template {
    _ = playerCount
    t := &Template{
        ID:    "fallback",
        Title: "The Great Escape",
        Paragraphs: []Paragraph{
            {
                Text: "One morning a {{0}} {{1}} woke up in the middle of {{2}} " +
                    "and decided to {{3}} all the way home.",
                ImagePrompt: "A cartoon animal waking up in a strange place, storybook style",
                Blanks: []Blank{
                    {ID: "fb-0", Type: TypeAdjective, Position: 0},
                    {ID: "fb-1", Type: TypeNoun, Position: 1},
                    {ID: "fb-2", Type: TypePlace, Position: 2},
                    {ID: "fb-3", Type: TypeVerb, Position: 3},
                },
            },
            {
                Text: "On the way it met {{0}}, who was carrying {{1}} {{2}}. " +
                    "\"{{3}}!\" they shouted, and became friends forever.",
                ImagePrompt: "Two unlikely friends meeting on a country road, storybook style",
                Blanks: []Blank{
                    {ID: "fb-4", Type: TypeName, Position: 0},
                    {ID: "fb-5", Type: TypeNumber, Position: 1},
                    {ID: "fb-6", Type: TypePluralNoun, Position: 2},
                    {ID: "fb-7", Type: TypeExclamation, Position: 3},
                },
            },
        },
    }
    t.TotalBlanks = CountMarkers(t)
    return t
}
