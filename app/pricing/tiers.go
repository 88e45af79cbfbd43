package pricing

// Tier is a subscription plan. Prices are USD major units; MaxAnalyses and
// MaxUsers use -1 for unlimited.
type Tier struct {
	ID          string
	Name        string
	Description string
	MonthlyUSD  int64
	YearlyUSD   int64
	Features    []string
	Popular     bool
	Target      string
	MaxAnalyses int
	MaxUsers    int
}

var tiers = []Tier{
	{
		ID:          "explorer",
		Name:        "Explorer",
		Description: "Perfect for students and wildlife enthusiasts",
		MonthlyUSD:  15,
		YearlyUSD:   150,
		Features: []string{
			"50 WildSpeak AI analyses per month",
			"Basic animal call library access",
			"Educational content and quizzes",
			"Community forum access",
			"Mobile app access",
			"Email support",
		},
		Target:      "Students & Enthusiasts",
		MaxAnalyses: 50,
		MaxUsers:    1,
	},
	{
		ID:          "ranger",
		Name:        "Ranger Pro",
		Description: "Essential tools for field rangers and guides",
		MonthlyUSD:  45,
		YearlyUSD:   450,
		Features: []string{
			"500 WildSpeak AI analyses per month",
			"Real-time alert system",
			"Critical threat detection",
			"Offline mode capability",
			"GPS integration",
			"Priority support",
			"Ranger dashboard",
			"Team collaboration tools",
		},
		Popular:     true,
		Target:      "Rangers & Guides",
		MaxAnalyses: 500,
		MaxUsers:    5,
	},
	{
		ID:          "researcher",
		Name:        "Research Institute",
		Description: "Advanced analytics for researchers and organizations",
		MonthlyUSD:  120,
		YearlyUSD:   1200,
		Features: []string{
			"Unlimited WildSpeak AI analyses",
			"Advanced analytics dashboard",
			"Custom AI model training",
			"API access",
			"Data export capabilities",
			"Multi-location monitoring",
			"Dedicated account manager",
			"Custom integrations",
			"White-label options",
		},
		Target:      "Research Institutions",
		MaxAnalyses: -1,
		MaxUsers:    25,
	},
	{
		ID:          "enterprise",
		Name:        "Conservation Enterprise",
		Description: "Complete solution for large conservation organizations",
		MonthlyUSD:  299,
		YearlyUSD:   2990,
		Features: []string{
			"Unlimited everything",
			"Multi-park management",
			"Advanced AI customization",
			"Real-time monitoring network",
			"Custom hardware integration",
			"Training and onboarding",
			"24/7 priority support",
			"Custom development",
			"SLA guarantees",
		},
		Target:      "Large Organizations",
		MaxAnalyses: -1,
		MaxUsers:    -1,
	},
}

func Tiers() []Tier {
	out := make([]Tier, len(tiers))
	copy(out, tiers)
	return out
}

func TierByID(id string) (Tier, bool) {
	for _, t := range tiers {
		if t.ID == id {
			return t, true
		}
	}
	return Tier{}, false
}
