package apperr

// User-facing messages.
const (
	MsgInternal         = "Erreur serveur interne"
	MsgInvalidBody      = "Requête invalide"
	MsgInvalidPhone     = "Numéro de téléphone invalide"
	MsgPhoneRequired    = "Le numéro de téléphone est requis."
	MsgInvalidCode      = "Code OTP invalide"
	MsgCodeRequired     = "Le code OTP est requis."
	MsgInvalidAction    = "Action invalide."
	MsgUnauthorized     = "Authentification requise"
	MsgForbidden        = "Accès réservé aux administrateurs"
	MsgTooManyRequests  = "Trop de demandes, réessayez plus tard"
	MsgInvalidReferral  = "Code de parrainage invalide."
	MsgDuplicateAccount = "Email ou téléphone déjà utilisé."
	MsgBadCredentials   = "Email ou mot de passe incorrect"
)
