package referral

// Offer is a perk unlocked at a tier.
type Offer struct {
	Type        string `json:"type"`
	Value       int    `json:"value"`
	Description string `json:"description"`
	Conditions  string `json:"conditions,omitempty"`
}

var catalogue = map[int][]Offer{
	1: {
		{Type: "discount", Value: 5, Description: "5% de réduction sur votre prochaine commande", Conditions: "Valable 30 jours"},
	},
	2: {
		{Type: "cashback", Value: 10, Description: "10% de cashback sur toutes vos commandes", Conditions: "Cumulable avec les autres offres"},
		{Type: "free_delivery", Value: 1, Description: "Livraison gratuite à vie"},
	},
	3: {
		{Type: "premium_access", Value: 1, Description: "Accès prioritaire aux nouveaux produits"},
		{Type: "cashback", Value: 15, Description: "15% de cashback permanent", Conditions: "Sur toutes les commandes"},
	},
	4: {
		{Type: "cashback", Value: 20, Description: "20% de cashback", Conditions: "Sur toutes les commandes"},
	},
	5: {
		{Type: "cashback", Value: 20, Description: "20% de cashback VIP", Conditions: "Niveau maximum atteint"},
		{Type: "premium_access", Value: 1, Description: "Accès prioritaire aux nouveaux produits"},
	},
}

// AvailableRewards lists the offers unlocked at tier. Unknown tiers have none.
func AvailableRewards(tier int) []Offer {
	offers := catalogue[tier]
	out := make([]Offer, len(offers))
	copy(out, offers)
	return out
}
