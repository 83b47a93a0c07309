package color

// Palette maps control-panel colour names to their base hex values.
var Palette = map[string]string{
	"red":     "#ef4444",
	"orange":  "#f97316",
	"amber":   "#f59e0b",
	"yellow":  "#eab308",
	"lime":    "#84cc16",
	"green":   "#22c55e",
	"emerald": "#10b981",
	"teal":    "#14b8a6",
	"cyan":    "#06b6d4",
	"sky":     "#0ea5e9",
	"blue":    "#3b82f6",
	"indigo":  "#6366f1",
	"violet":  "#8b5cf6",
	"purple":  "#a855f7",
	"fuchsia": "#d946ef",
	"pink":    "#ec4899",
	"rose":    "#f43f5e",
	"gray":    "#6b7280",
}

var aliases = map[string]string{"grey": "gray"}

// Fallback is used for values missing from a set.
const Fallback = "gray"

func builtinSets() map[string]map[string]string {
	return map[string]map[string]string{
		"status": {
			"enabled":  "green",
			"active":   "green",
			"live":     "green",
			"pending":  "amber",
			"draft":    "gray",
			"disabled": "gray",
			"expired":  "red",
			"archived": "gray",
			"failed":   "red",
		},
		"boolean": {
			"true":  "green",
			"false": "red",
			"yes":   "green",
			"no":    "red",
			"1":     "green",
			"0":     "red",
		},
		"httpStatus": {
			"1xx": "gray",
			"2xx": "green",
			"3xx": "blue",
			"4xx": "orange",
			"5xx": "red",
		},
		"level": {
			"trace":   "gray",
			"debug":   "gray",
			"info":    "blue",
			"warning": "amber",
			"warn":    "amber",
			"error":   "red",
			"fatal":   "rose",
		},
		"device": {
			"desktop": "indigo",
			"mobile":  "teal",
			"tablet":  "violet",
			"bot":     "gray",
		},
	}
}
