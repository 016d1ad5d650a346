package components

import "github.com/yohamta/donburi"

// SettingsData holds viewer toggles that persist between sessions.
type SettingsData struct {
	Debug bool
}

var Settings = donburi.NewComponentType[SettingsData]()
