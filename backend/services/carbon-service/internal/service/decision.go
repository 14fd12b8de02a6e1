package service

// Charge advice messages.
const (
	MessageOkayToCharge    = "It's okay to charge your car."
	MessageNotOkayToCharge = "It's not okay to charge your car."
	MessageUnchanged       = "Nothing has changed."
)

// Decide reports whether charging is advisable. The threshold is inclusive.
func Decide(intensity, threshold int) (bool, string) {
	if intensity <= threshold {
		return true, MessageOkayToCharge
	}
	return false, MessageNotOkayToCharge
}
