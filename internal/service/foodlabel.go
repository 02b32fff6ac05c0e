package service

// foodLabels maps the model's predicted class tokens to display names.
// Unmapped classes pass through unchanged.
var foodLabels = map[string]string{
	"aloo_gobi":        "Aloo Gobi",
	"biryani":          "Biryani",
	"butter_chicken":   "Butter Chicken",
	"chole_bhature":    "Chole Bhature",
	"dal_makhani":      "Dal Makhani",
	"dhokla":           "Dhokla",
	"gulab_jamun":      "Gulab Jamun",
	"grilled_steak":    "Grilled Steak",
	"idli":             "Idli",
	"jalebi":           "Jalebi",
	"kachori":          "Kachori",
	"masala_dosa":      "Masala Dosa",
	"naan":             "Naan",
	"paneer_tikka":     "Paneer Tikka",
	"pav_bhaji":        "Pav Bhaji",
	"rasgulla":         "Rasgulla",
	"samosa":           "Samosa",
	"tandoori_chicken": "Tandoori Chicken",
	"vada_pav":         "Vada Pav",
}

// FoodLabel resolves a predicted class to its display name, falling
// back to the raw class token.
func FoodLabel(predictedClass string) string {
	if label, ok := foodLabels[predictedClass]; ok {
		return label
	}
	return predictedClass
}
