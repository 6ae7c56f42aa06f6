package referral

import (
	"fmt"
	"net/url"
	"strings"
)

// ReferralURL is the signup link carrying code.
func ReferralURL(baseURL, code string) string {
	return fmt.Sprintf("%s/signup?ref=%s", strings.TrimRight(baseURL, "/"), url.QueryEscape(code))
}

// ShareMessages holds the invitation text per channel.
type ShareMessages struct {
	WhatsApp string `json:"whatsapp"`
	Telegram string `json:"telegram"`
	SMS      string `json:"sms"`
}

// Share builds invitation messages for the holder of code.
func Share(baseURL, code string) ShareMessages {
	link := ReferralURL(baseURL, code)
	body := fmt.Sprintf("Salut ! Je commande mes produits frais sur Aumarché. "+
		"Inscris-toi avec mon code %s et on gagne tous les deux des avantages exclusifs : %s", code, link)
	return ShareMessages{WhatsApp: body, Telegram: body, SMS: body}
}
