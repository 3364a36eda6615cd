package model

// Option is a selectable value with its display label.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// OptionsResponse lists everything the generation form can select.
type OptionsResponse struct {
	Voices []Option `json:"voices"`
	Styles []Option `json:"styles"`
	Moods  []Option `json:"moods"`
}

// VoicesResponse is a snapshot of the voice catalog.
type VoicesResponse struct {
	Voices    []Voice `json:"voices"`
	Populated bool    `json:"populated"`
}
