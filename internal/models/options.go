package models

type RoomType string

const (
	RoomAuto         RoomType = "Auto Detect"
	RoomLiving       RoomType = "Modern Living Room"
	RoomBedroom      RoomType = "Cozy Bedroom"
	RoomDining       RoomType = "Elegant Dining Area"
	RoomKitchen      RoomType = "Modern Kitchen"
	RoomStudio       RoomType = "Professional Studio"
	RoomWhite        RoomType = "Plain White Background with Soft Shadows"
	RoomToilet       RoomType = "Luxury Toilet / Bathroom"
	RoomConstruction RoomType = "Construction Site"
	RoomStage        RoomType = "Minimalist 3D Podium Stage"
)

type AngleMode string

const (
	AngleBest       AngleMode = "AI Best Angle"
	AngleMatchInput AngleMode = "Match Input Angle"
	AngleCustom     AngleMode = "Custom Angle"
)

type AspectRatio string

const (
	AspectSquare         AspectRatio = "1:1"
	AspectPortrait       AspectRatio = "3:4"
	AspectSocialPortrait AspectRatio = "4:5"
	AspectLandscape      AspectRatio = "16:9"
	AspectWide           AspectRatio = "21:9"
)

// Angle is a camera orientation in degrees.
type Angle struct {
	Yaw   float64 `json:"yaw"`
	Pitch float64 `json:"pitch"`
}

type Lighting struct {
	Brightness  int `json:"brightness"`  // 0-100
	Temperature int `json:"temperature"` // 0 cool, 100 warm
}

type SceneOptions struct {
	RoomType              RoomType    `json:"roomType,omitempty"`
	CustomPrompt          string      `json:"customPrompt,omitempty"`
	AngleMode             AngleMode   `json:"angleMode,omitempty"`
	CustomAngle           *Angle      `json:"customAngle,omitempty"`
	AspectRatio           AspectRatio `json:"aspectRatio,omitempty"`
	Lighting              *Lighting   `json:"lighting,omitempty"`
	AntiDuplicateStrength string      `json:"antiDuplicateStrength,omitempty"`
	FidelityMode          string      `json:"fidelityMode,omitempty"`
	ProductLabel          string      `json:"productLabel,omitempty"`
	FullVisibilityMode    bool        `json:"fullVisibilityMode,omitempty"`
	ReferenceImage        string      `json:"referenceImage,omitempty"`
	AlphaMode             bool        `json:"isAlphaMode,omitempty"`
}

type EditOptions struct {
	Instruction  string   `json:"editInstruction"`
	MaskImage    string   `json:"maskImage,omitempty"`
	TextEditMode bool     `json:"textEditMode,omitempty"`
	RemoveBg     bool     `json:"isRemoveBg,omitempty"`
	SourceImages []string `json:"sourceImages,omitempty"`
}

type StyleOptions struct {
	Preset         string `json:"stylePreset"`
	CustomPrompt   string `json:"customPrompt,omitempty"`
	ReferenceImage string `json:"referenceImage,omitempty"`
}

type UpscaleOptions struct {
	ScaleFactor  string `json:"scaleFactor"`
	Model        string `json:"upscaleModel"`
	Creativity   int    `json:"upscaleCreativityLevel"`
	Sharpen      int    `json:"upscaleSharpen"`
	Denoise      int    `json:"upscaleDenoise"`
	FaceRecovery bool   `json:"faceRecovery,omitempty"`
	TextRecovery bool   `json:"textRecovery,omitempty"`
	CustomPrompt string `json:"customPrompt,omitempty"`
}

// DesignCritique is the structured result of a design audit.
type DesignCritique struct {
	Score        float64  `json:"score"`
	Summary      string   `json:"summary"`
	Strengths    []string `json:"strengths"`
	Weaknesses   []string `json:"weaknesses"`
	Improvements []string `json:"improvements"`
}
