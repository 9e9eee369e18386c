package models

// MenuEntry is the fixed menu for one weekday.
type MenuEntry struct {
	Day       string `json:"day"`
	Breakfast string `json:"breakfast"`
	Dinner    string `json:"dinner"`
}
