package domain

// Avatar unlocks once a user reaches RequiredLevel.
type Avatar struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	Image         string `json:"image"`
	RequiredLevel int    `json:"requiredLevel"`
	Unlocked      bool   `json:"unlocked"`
}

// Badge describes a badge id the rewards policy can grant.
type Badge struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Condition   string `json:"condition"`
}

// ThemeInfo is the presentation metadata of a quiz theme.
type ThemeInfo struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
	Order       int    `json:"order"`
}

// GameConfig is the public game catalog served to clients.
type GameConfig struct {
	Avatars               []Avatar    `json:"avatars"`
	Badges                []Badge     `json:"badges"`
	Themes                []ThemeInfo `json:"themes"`
	XPPerCorrectAnswer    int         `json:"xpPerCorrectAnswer"`
	XPPerActivityCreation int         `json:"xpPerActivityCreation"`
	XPPerBudgetSimulation int         `json:"xpPerBudgetSimulation"`
	XPPerLevel            int         `json:"xpPerLevel"`
}

// AvatarsFor returns a copy of avatars with Unlocked set for the given level.
func AvatarsFor(avatars []Avatar, level int) []Avatar {
	out := make([]Avatar, len(avatars))
	for i, a := range avatars {
		a.Unlocked = level >= a.RequiredLevel
		out[i] = a
	}
	return out
}
