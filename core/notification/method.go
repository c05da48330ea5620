package notification

import "github.com/trezcool/attendance/core/guardian"

// SelectMethod picks the delivery channel for a guardian: WhatsApp, else SMS, else email.
func SelectMethod(g guardian.Guardian) Method {
	switch {
	case g.HasWhatsApp():
		return MethodWhatsApp
	case g.HasPhone():
		return MethodSMS
	default:
		return MethodEmail
	}
}

// RecipientFor returns the guardian's address for `method`.
func RecipientFor(g guardian.Guardian, method Method) string {
	switch method {
	case MethodWhatsApp:
		return g.WhatsApp.String
	case MethodSMS:
		return g.Phone.String
	default:
		return g.Email
	}
}

// TypeFor maps an attendance status to the notification it triggers; ok is false for statuses that
// do not notify guardians (eg. "present").
func TypeFor(attendanceStatus string) (typ Type, ok bool) {
	typ = Type(attendanceStatus)
	return typ, typ.Valid()
}
