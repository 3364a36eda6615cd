package model

// Voice options
type VoiceOption string

const (
	VoiceFemale VoiceOption = "female"
	VoiceMale   VoiceOption = "male"
)

var ValidVoiceOptions = []VoiceOption{VoiceFemale, VoiceMale}

// Video styles
type VideoStyle string

const (
	StyleCinematic    VideoStyle = "cinematic"
	StyleRealistic    VideoStyle = "realistic"
	StyleAnimated     VideoStyle = "animated"
	StyleStorytelling VideoStyle = "storytelling"
	StyleEducational  VideoStyle = "educational"
)

var ValidVideoStyles = []VideoStyle{
	StyleCinematic, StyleRealistic, StyleAnimated, StyleStorytelling, StyleEducational,
}

// Music moods. A mood is a label shown next to the output; it is never sent
// to the synthesis service.
type MusicMood string

const (
	MoodHappy       MusicMood = "happy"
	MoodCalm        MusicMood = "calm"
	MoodSuspenseful MusicMood = "suspenseful"
	MoodEpic        MusicMood = "epic"
	MoodSad         MusicMood = "sad"
)

var ValidMusicMoods = []MusicMood{
	MoodHappy, MoodCalm, MoodSuspenseful, MoodEpic, MoodSad,
}

// RunPhase is the orchestrator state of a generation run.
type RunPhase string

const (
	PhaseIdle       RunPhase = "idle"
	PhaseAnalyzing  RunPhase = "analyzing"
	PhaseGenerating RunPhase = "generating"
	PhaseReady      RunPhase = "ready"
	PhaseErrored    RunPhase = "errored"
	PhaseCanceled   RunPhase = "canceled"
)

// Terminal reports whether no further transitions happen in this run.
func (p RunPhase) Terminal() bool {
	return p == PhaseReady || p == PhaseErrored || p == PhaseCanceled
}

// Languages with message catalogues
type Language string

const (
	LanguageEnglish    Language = "en"
	LanguageIndonesian Language = "id"
)
