package models

import "time"

// AnalysisResult is the recommendation payload returned by the
// inference service for one image + condition pair.
type AnalysisResult struct {
	PredictedFood         string `gorm:"size:100;not null" json:"predicted_food"`
	NutrientHighlights    string `gorm:"type:text" json:"nutrient_highlights"`
	Recommendation        string `gorm:"type:text" json:"recommendation"`
	AlternativeSuggestion string `gorm:"type:text" json:"alternative_suggestion"`
	IsSafeForCondition    bool   `json:"is_safe_for_condition"`
	SafetyMessage         string `gorm:"type:text" json:"safety_message"`
	Message               string `gorm:"type:text" json:"message"`
}

// Analysis records one completed recommendation. Every analysis owns
// exactly one FoodImage; the pair is created and deleted together.
type Analysis struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	UserID           uint           `gorm:"index;not null" json:"userId"`
	FoodImageID      uint           `gorm:"not null" json:"foodImageId"`
	FoodImage        FoodImage      `gorm:"foreignKey:FoodImageID" json:"foodImage"`
	MedicalCondition string         `gorm:"size:50;not null" json:"medicalCondition"`
	Result           AnalysisResult `gorm:"embedded;embeddedPrefix:result_" json:"result"`
	CreatedAt        time.Time      `json:"createdAt"`
}

// TableName specifies the table name for Analysis model
func (Analysis) TableName() string {
	return "analyses"
}
